package endpoints

import (
	"github.com/sushant-115/gojorel/core/domain"
)

// objectSetCommand changes the value of an object end-point through setter.
// The setter of a real end-point also moves its current registration between
// the opposite virtual end-points.
type objectSetCommand struct {
	endPoint ObjectEndPoint
	oldID    domain.ObjectID
	newID    domain.ObjectID
	services Services
	setter   func(domain.ObjectID) error
}

func (c *objectSetCommand) EndPoint() ObjectEndPoint       { return c.endPoint }
func (c *objectSetCommand) OldOppositeID() domain.ObjectID { return c.oldID }
func (c *objectSetCommand) NewOppositeID() domain.ObjectID { return c.newID }

func (c *objectSetCommand) Begin() error {
	return notifyChanging(c.services, c.endPoint.ID(), c.oldID, c.newID)
}

func (c *objectSetCommand) Perform() error {
	if err := c.setter(c.newID); err != nil {
		return err
	}
	c.endPoint.Touch()
	return nil
}

func (c *objectSetCommand) End() {
	notifyChanged(c.services, c.endPoint.ID(), c.oldID, c.newID)
}

func (c *objectSetCommand) oppositeProperty() string {
	return c.endPoint.Definition().OppositeEndPointDefinition().PropertyName
}

// --- SetSame ---

// SetSameCommand assigns the current value again. It raises notifications and
// touches both sides but changes no data.
type SetSameCommand struct {
	objectSetCommand
}

func (c *SetSameCommand) Perform() error {
	c.endPoint.Touch()
	return nil
}

func (c *SetSameCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	expanded := NewExpandedCommand(c)
	if c.newID.IsNil() || c.endPoint.Definition().OppositeEndPointDefinition().IsAnonymous() {
		return expanded, nil
	}
	opposite, err := c.services.Provider.GetRelationEndPointWithLazyLoad(
		domain.NewRelationEndPointID(c.newID, c.oppositeProperty()))
	if err != nil {
		return nil, err
	}
	return expanded.CombineWith(&TouchCommand{EndPoint: opposite}), nil
}

// --- SetUnidirectional ---

// SetUnidirectionalCommand changes a real end-point whose opposite is
// anonymous. Only this side is tracked.
type SetUnidirectionalCommand struct {
	objectSetCommand
}

func (c *SetUnidirectionalCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	return NewExpandedCommand(c), nil
}

// --- SetOneOne ---

// SetOneOneCommand changes one side of a one-to-one relation. Its expansion
// detaches the previous partner of the new value and the old value before
// anything is attached.
type SetOneOneCommand struct {
	objectSetCommand
}

func (c *SetOneOneCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	owner := c.endPoint.ObjectID()
	oppositeProperty := c.oppositeProperty()
	var removals []Command
	var attach Command

	if !c.newID.IsNil() {
		newOpposite, err := objectEndPointWithLazyLoad(c.services.Provider, domain.NewRelationEndPointID(c.newID, oppositeProperty))
		if err != nil {
			return nil, err
		}
		previousPartner, err := newOpposite.OppositeObjectID()
		if err != nil {
			return nil, err
		}
		if !previousPartner.IsNil() {
			partnerEndPoint, err := objectEndPointWithLazyLoad(c.services.Provider, domain.NewRelationEndPointID(previousPartner, c.endPoint.ID().PropertyName))
			if err != nil {
				return nil, err
			}
			remove, err := partnerEndPoint.CreateRemoveCommand(c.newID)
			if err != nil {
				return nil, err
			}
			removals = append(removals, remove)
		}
		if attach, err = newOpposite.CreateSetCommand(owner); err != nil {
			return nil, err
		}
	}

	if !c.oldID.IsNil() {
		oldOpposite, err := objectEndPointWithLazyLoad(c.services.Provider, domain.NewRelationEndPointID(c.oldID, oppositeProperty))
		if err != nil {
			return nil, err
		}
		remove, err := oldOpposite.CreateRemoveCommand(owner)
		if err != nil {
			return nil, err
		}
		removals = append(removals, remove)
	}

	return NewExpandedCommand(removals...).CombineWith(attach, c), nil
}

// --- SetOneMany ---

// SetOneManyCommand changes a real end-point whose opposite is a collection.
type SetOneManyCommand struct {
	objectSetCommand
}

func (c *SetOneManyCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	owner := c.endPoint.ObjectID()
	oppositeProperty := c.oppositeProperty()
	expanded := NewExpandedCommand(c)

	if !c.newID.IsNil() {
		newCollection, err := collectionEndPointWithLazyLoad(c.services.Provider, domain.NewRelationEndPointID(c.newID, oppositeProperty))
		if err != nil {
			return nil, err
		}
		add, err := newCollection.CreateAddCommand(owner)
		if err != nil {
			return nil, err
		}
		expanded.CombineWith(add)
	}
	if !c.oldID.IsNil() {
		oldCollection, err := collectionEndPointWithLazyLoad(c.services.Provider, domain.NewRelationEndPointID(c.oldID, oppositeProperty))
		if err != nil {
			return nil, err
		}
		remove, err := oldCollection.CreateRemoveCommand(owner)
		if err != nil {
			return nil, err
		}
		expanded.CombineWith(remove)
	}
	return expanded, nil
}

// --- Delete ---

// ObjectEndPointDeleteCommand nulls an object end-point of a deleted object.
// Its expansion detaches every end-point referencing the deleted object and
// never fails; failures are carried as exception commands.
type ObjectEndPointDeleteCommand struct {
	objectSetCommand
}

func (c *ObjectEndPointDeleteCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	return expandDelete(c, c.endPoint, c.services.Provider), nil
}
