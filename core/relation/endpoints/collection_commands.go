package endpoints

import (
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/relation/datakeeper"
)

type collectionCommand struct {
	endPoint *CollectionEndPoint
	keeper   *datakeeper.CollectionDataKeeper
	item     domain.ObjectID
	services Services
}

func (c *collectionCommand) EndPoint() *CollectionEndPoint { return c.endPoint }
func (c *collectionCommand) Item() domain.ObjectID         { return c.item }

// itemEndPoint returns the real end-point of item pointing back at the
// collection's relation.
func (c *collectionCommand) itemEndPoint() (ObjectEndPoint, error) {
	return objectEndPointWithLazyLoad(c.services.Provider, oppositeEndPointID(c.endPoint.Definition(), c.item))
}

// --- Insert ---

// CollectionInsertCommand adds an item at an index.
type CollectionInsertCommand struct {
	collectionCommand
	index int
}

func (c *CollectionInsertCommand) Index() int { return c.index }

func (c *CollectionInsertCommand) Begin() error {
	return notifyChanging(c.services, c.endPoint.ID(), domain.NilObjectID, c.item)
}

func (c *CollectionInsertCommand) Perform() error {
	index := c.index
	if index > c.keeper.CurrentCount() {
		index = c.keeper.CurrentCount()
	}
	if err := c.keeper.Insert(index, c.item); err != nil {
		return err
	}
	c.endPoint.Touch()
	return nil
}

func (c *CollectionInsertCommand) End() {
	notifyChanged(c.services, c.endPoint.ID(), domain.NilObjectID, c.item)
}

// ExpandToAllRelatedObjects points the item's foreign key at the collection
// owner and removes the item from its previous collection.
func (c *CollectionInsertCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	owner := c.endPoint.ObjectID()
	itemEndPoint, err := c.itemEndPoint()
	if err != nil {
		return nil, err
	}
	previousOwner, err := itemEndPoint.OppositeObjectID()
	if err != nil {
		return nil, err
	}
	setForeignKey, err := itemEndPoint.CreateSetCommand(owner)
	if err != nil {
		return nil, err
	}
	expanded := NewExpandedCommand(c, setForeignKey)

	if !previousOwner.IsNil() && previousOwner != owner {
		previousCollection, err := collectionEndPointWithLazyLoad(c.services.Provider, domain.NewRelationEndPointID(previousOwner, c.endPoint.ID().PropertyName))
		if err != nil {
			return nil, err
		}
		remove, err := previousCollection.CreateRemoveCommand(c.item)
		if err != nil {
			return nil, err
		}
		expanded.CombineWith(remove)
	}
	return expanded, nil
}

// --- Remove ---

// CollectionRemoveCommand removes an item.
type CollectionRemoveCommand struct {
	collectionCommand
}

func (c *CollectionRemoveCommand) Begin() error {
	return notifyChanging(c.services, c.endPoint.ID(), c.item, domain.NilObjectID)
}

func (c *CollectionRemoveCommand) Perform() error {
	if !c.keeper.Remove(c.item) {
		return domain.InvalidOperationf("'%s' is not part of '%s'", c.item, c.endPoint.ID())
	}
	c.endPoint.Touch()
	return nil
}

func (c *CollectionRemoveCommand) End() {
	notifyChanged(c.services, c.endPoint.ID(), c.item, domain.NilObjectID)
}

// ExpandToAllRelatedObjects nulls the foreign key of the removed item.
func (c *CollectionRemoveCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	itemEndPoint, err := c.itemEndPoint()
	if err != nil {
		return nil, err
	}
	clearForeignKey, err := itemEndPoint.CreateRemoveCommand(c.endPoint.ObjectID())
	if err != nil {
		return nil, err
	}
	return NewExpandedCommand(c, clearForeignKey), nil
}

// --- Delete ---

// CollectionDeleteCommand clears the collection of a deleted object.
type CollectionDeleteCommand struct {
	collectionCommand
	items []domain.ObjectID
}

func (c *CollectionDeleteCommand) Begin() error {
	for _, item := range c.items {
		if err := notifyChanging(c.services, c.endPoint.ID(), item, domain.NilObjectID); err != nil {
			return err
		}
	}
	return nil
}

func (c *CollectionDeleteCommand) Perform() error {
	c.keeper.Clear()
	c.endPoint.Touch()
	return nil
}

func (c *CollectionDeleteCommand) End() {
	for _, item := range c.items {
		notifyChanged(c.services, c.endPoint.ID(), item, domain.NilObjectID)
	}
}

func (c *CollectionDeleteCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	return expandDelete(c, c.endPoint, c.services.Provider), nil
}
