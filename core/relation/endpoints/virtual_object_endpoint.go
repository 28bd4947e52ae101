package endpoints

import (
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/relation/datakeeper"
	"github.com/sushant-115/gojorel/core/serialization"
)

// VirtualObjectEndPoint is the virtual side of a one-to-one relation.
type VirtualObjectEndPoint struct {
	*virtualEndPoint
}

// NewVirtualObjectEndPoint creates an incomplete end-point. Its data is
// loaded on first access, or marked complete right away for new objects.
func NewVirtualObjectEndPoint(
	id domain.RelationEndPointID,
	definition *mapping.EndPointDefinition,
	services Services,
	listener datakeeper.StateUpdateListener,
) (*VirtualObjectEndPoint, error) {
	if definition != nil && definition.Cardinality != mapping.CardinalityOne {
		return nil, domain.InvalidOperationf("'%s' is a collection property", id)
	}
	base, err := newVirtualEndPoint(id, definition, services, listener)
	if err != nil {
		return nil, err
	}
	return wrapVirtualObjectEndPoint(base), nil
}

func wrapVirtualObjectEndPoint(base *virtualEndPoint) *VirtualObjectEndPoint {
	ep := &VirtualObjectEndPoint{virtualEndPoint: base}
	base.newKeeper = func() datakeeper.DataKeeper {
		return datakeeper.NewObjectDataKeeper(base.id, base.listener)
	}
	base.load = func() error {
		return base.services.LazyLoader.LoadLazyVirtualObjectEndPoint(base.id)
	}
	return ep
}

// MarkDataComplete accepts at most one item.
func (ep *VirtualObjectEndPoint) MarkDataComplete(items []domain.ObjectID) error {
	if len(items) > 1 {
		return domain.InvalidOperationf("'%s' cannot hold %d opposite objects", ep.id, len(items))
	}
	return ep.virtualEndPoint.MarkDataComplete(items)
}

func (ep *VirtualObjectEndPoint) keeper() (*datakeeper.ObjectDataKeeper, *completeLoadState, error) {
	complete, err := ep.completeState()
	if err != nil {
		return nil, nil, err
	}
	return complete.keeper.(*datakeeper.ObjectDataKeeper), complete, nil
}

// OppositeObjectID loads the data if needed and returns the current opposite.
func (ep *VirtualObjectEndPoint) OppositeObjectID() (domain.ObjectID, error) {
	keeper, _, err := ep.keeper()
	if err != nil {
		return domain.NilObjectID, err
	}
	return keeper.CurrentOppositeObjectID(), nil
}

func (ep *VirtualObjectEndPoint) OriginalOppositeObjectID() (domain.ObjectID, error) {
	keeper, _, err := ep.keeper()
	if err != nil {
		return domain.NilObjectID, err
	}
	return keeper.OriginalOppositeObjectID(), nil
}

// CreateSetCommand returns SetSame for the current value and SetOneOne
// otherwise. It fails while an unsynchronized real end-point points here.
func (ep *VirtualObjectEndPoint) CreateSetCommand(newOppositeID domain.ObjectID) (Command, error) {
	keeper, complete, err := ep.keeper()
	if err != nil {
		return nil, err
	}
	if !newOppositeID.IsNil() && newOppositeID.ClassID != ep.definition.OppositeEndPointDefinition().ClassID {
		return nil, domain.InvalidOperationf("'%s' cannot be assigned to '%s': expected an object of class '%s'",
			newOppositeID, ep.id, ep.definition.OppositeEndPointDefinition().ClassID)
	}
	if err := ep.checkSynchronizedOpposites(complete); err != nil {
		return nil, err
	}
	base := ep.newSetCommandBase(keeper, newOppositeID)
	if newOppositeID == keeper.CurrentOppositeObjectID() {
		return &SetSameCommand{objectSetCommand: base}, nil
	}
	return &SetOneOneCommand{objectSetCommand: base}, nil
}

// CreateRemoveCommand clears the end-point if it currently holds removed.
func (ep *VirtualObjectEndPoint) CreateRemoveCommand(removed domain.ObjectID) (Command, error) {
	keeper, _, err := ep.keeper()
	if err != nil {
		return nil, err
	}
	if keeper.CurrentOppositeObjectID() != removed {
		return nil, domain.InvalidOperationf("cannot remove '%s' from '%s' because it is not the current opposite object", removed, ep.id)
	}
	return &SetOneOneCommand{objectSetCommand: ep.newSetCommandBase(keeper, domain.NilObjectID)}, nil
}

func (ep *VirtualObjectEndPoint) CreateDeleteCommand() (Command, error) {
	keeper, _, err := ep.keeper()
	if err != nil {
		return nil, err
	}
	return &ObjectEndPointDeleteCommand{objectSetCommand: ep.newSetCommandBase(keeper, domain.NilObjectID)}, nil
}

func (ep *VirtualObjectEndPoint) newSetCommandBase(keeper *datakeeper.ObjectDataKeeper, newOppositeID domain.ObjectID) objectSetCommand {
	return objectSetCommand{
		endPoint: ep,
		oldID:    keeper.CurrentOppositeObjectID(),
		newID:    newOppositeID,
		services: ep.services,
		setter: func(id domain.ObjectID) error {
			keeper.SetCurrentOppositeObjectID(id)
			return nil
		},
	}
}

// SerializeIntoFlatStructure implements serialization.Serializable.
func (ep *VirtualObjectEndPoint) SerializeIntoFlatStructure(w *serialization.FlatWriter) {
	ep.write(w)
}

// NewVirtualObjectEndPointFromFlatStructure reads an end-point written by
// SerializeIntoFlatStructure.
func NewVirtualObjectEndPointFromFlatStructure(r *serialization.FlatReader) (*VirtualObjectEndPoint, error) {
	base, err := readVirtualEndPoint(r, func(r *serialization.FlatReader) (datakeeper.DataKeeper, error) {
		keeper, err := datakeeper.NewObjectDataKeeperFromFlatStructure(r)
		if err != nil {
			return nil, err
		}
		return keeper, nil
	})
	if err != nil {
		return nil, err
	}
	return wrapVirtualObjectEndPoint(base), nil
}
