package endpoints

import (
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/relation/datakeeper"
	"github.com/sushant-115/gojorel/core/serialization"
)

// CollectionEndPoint is the virtual side of a one-to-many relation.
type CollectionEndPoint struct {
	*virtualEndPoint
}

// NewCollectionEndPoint creates an incomplete collection end-point.
func NewCollectionEndPoint(
	id domain.RelationEndPointID,
	definition *mapping.EndPointDefinition,
	services Services,
	listener datakeeper.StateUpdateListener,
) (*CollectionEndPoint, error) {
	if definition != nil && definition.Cardinality != mapping.CardinalityMany {
		return nil, domain.InvalidOperationf("'%s' is not a collection property", id)
	}
	base, err := newVirtualEndPoint(id, definition, services, listener)
	if err != nil {
		return nil, err
	}
	return wrapCollectionEndPoint(base), nil
}

func wrapCollectionEndPoint(base *virtualEndPoint) *CollectionEndPoint {
	ep := &CollectionEndPoint{virtualEndPoint: base}
	base.newKeeper = func() datakeeper.DataKeeper {
		return datakeeper.NewCollectionDataKeeper(base.id, base.listener)
	}
	base.load = func() error {
		return base.services.LazyLoader.LoadLazyCollectionEndPoint(base.id)
	}
	return ep
}

func (ep *CollectionEndPoint) keeper() (*datakeeper.CollectionDataKeeper, *completeLoadState, error) {
	complete, err := ep.completeState()
	if err != nil {
		return nil, nil, err
	}
	return complete.keeper.(*datakeeper.CollectionDataKeeper), complete, nil
}

// Items loads the data if needed and returns the current items in order.
func (ep *CollectionEndPoint) Items() ([]domain.ObjectID, error) {
	keeper, _, err := ep.keeper()
	if err != nil {
		return nil, err
	}
	return keeper.CurrentItems(), nil
}

// OriginalItems loads the data if needed and returns the original items.
func (ep *CollectionEndPoint) OriginalItems() ([]domain.ObjectID, error) {
	keeper, _, err := ep.keeper()
	if err != nil {
		return nil, err
	}
	return keeper.OriginalItems(), nil
}

// Contains loads the data if needed and reports whether id is a current item.
func (ep *CollectionEndPoint) Contains(id domain.ObjectID) (bool, error) {
	keeper, _, err := ep.keeper()
	if err != nil {
		return false, err
	}
	return keeper.ContainsCurrentItem(id), nil
}

// SortCurrentItems reorders the loaded items without making the end-point
// dirty.
func (ep *CollectionEndPoint) SortCurrentItems(less func(a, b domain.ObjectID) bool) error {
	keeper, _, err := ep.keeper()
	if err != nil {
		return err
	}
	keeper.SortCurrentItems(less)
	return nil
}

// CreateAddCommand appends item to the collection.
func (ep *CollectionEndPoint) CreateAddCommand(item domain.ObjectID) (Command, error) {
	keeper, _, err := ep.keeper()
	if err != nil {
		return nil, err
	}
	return ep.CreateInsertCommand(keeper.CurrentCount(), item)
}

// CreateInsertCommand inserts item at index.
func (ep *CollectionEndPoint) CreateInsertCommand(index int, item domain.ObjectID) (Command, error) {
	keeper, _, err := ep.keeper()
	if err != nil {
		return nil, err
	}
	if item.IsNil() {
		return nil, domain.InvalidOperationf("cannot insert null into '%s'", ep.id)
	}
	if item.ClassID != ep.definition.OppositeEndPointDefinition().ClassID {
		return nil, domain.InvalidOperationf("'%s' cannot be added to '%s': expected an object of class '%s'",
			item, ep.id, ep.definition.OppositeEndPointDefinition().ClassID)
	}
	if keeper.ContainsCurrentItem(item) {
		return nil, domain.InvalidOperationf("'%s' is already part of '%s'", item, ep.id)
	}
	if index < 0 || index > keeper.CurrentCount() {
		return nil, domain.InvalidOperationf("index %d is out of range for '%s'", index, ep.id)
	}
	return &CollectionInsertCommand{collectionCommand: ep.newCollectionCommand(keeper, item), index: index}, nil
}

// CreateRemoveCommand removes item from the collection. Items whose real
// end-point is out of sync cannot be removed.
func (ep *CollectionEndPoint) CreateRemoveCommand(item domain.ObjectID) (Command, error) {
	keeper, complete, err := ep.keeper()
	if err != nil {
		return nil, err
	}
	itemEndPointID := oppositeEndPointID(ep.definition, item)
	if complete.unsynchronizedOppositeEndPoints.contains(itemEndPointID) {
		return nil, &domain.UnsynchronizedError{EndPointID: itemEndPointID, OppositeEndPointID: ep.id}
	}
	if !keeper.ContainsCurrentItem(item) {
		return nil, domain.InvalidOperationf("'%s' is not part of '%s'", item, ep.id)
	}
	return &CollectionRemoveCommand{collectionCommand: ep.newCollectionCommand(keeper, item)}, nil
}

// CreateDeleteCommand clears the collection of a deleted object.
func (ep *CollectionEndPoint) CreateDeleteCommand() (Command, error) {
	keeper, _, err := ep.keeper()
	if err != nil {
		return nil, err
	}
	return &CollectionDeleteCommand{
		collectionCommand: ep.newCollectionCommand(keeper, domain.NilObjectID),
		items:             keeper.CurrentItems(),
	}, nil
}

func (ep *CollectionEndPoint) newCollectionCommand(keeper *datakeeper.CollectionDataKeeper, item domain.ObjectID) collectionCommand {
	return collectionCommand{endPoint: ep, keeper: keeper, item: item, services: ep.services}
}

// SerializeIntoFlatStructure implements serialization.Serializable.
func (ep *CollectionEndPoint) SerializeIntoFlatStructure(w *serialization.FlatWriter) {
	ep.write(w)
}

// NewCollectionEndPointFromFlatStructure reads an end-point written by
// SerializeIntoFlatStructure.
func NewCollectionEndPointFromFlatStructure(r *serialization.FlatReader) (*CollectionEndPoint, error) {
	base, err := readVirtualEndPoint(r, func(r *serialization.FlatReader) (datakeeper.DataKeeper, error) {
		keeper, err := datakeeper.NewCollectionDataKeeperFromFlatStructure(r)
		if err != nil {
			return nil, err
		}
		return keeper, nil
	})
	if err != nil {
		return nil, err
	}
	return wrapCollectionEndPoint(base), nil
}
