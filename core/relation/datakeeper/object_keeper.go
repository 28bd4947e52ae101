package datakeeper

import (
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/serialization"
)

// ObjectDataKeeper stores the data of a virtual object end-point.
type ObjectDataKeeper struct {
	endPointID domain.RelationEndPointID
	listener   StateUpdateListener

	currentOppositeObjectID  domain.ObjectID
	originalOppositeObjectID domain.ObjectID

	currentOppositeEndPoint  domain.RelationEndPointID
	originalOppositeEndPoint domain.RelationEndPointID

	originalItemWithoutEndPoint domain.ObjectID
}

// NewObjectDataKeeper creates an empty keeper for the given end-point.
func NewObjectDataKeeper(endPointID domain.RelationEndPointID, listener StateUpdateListener) *ObjectDataKeeper {
	return &ObjectDataKeeper{
		endPointID: endPointID,
		listener:   listenerOrNoop(listener),
	}
}

func (k *ObjectDataKeeper) EndPointID() domain.RelationEndPointID { return k.endPointID }

func (k *ObjectDataKeeper) CurrentOppositeObjectID() domain.ObjectID {
	return k.currentOppositeObjectID
}
func (k *ObjectDataKeeper) OriginalOppositeObjectID() domain.ObjectID {
	return k.originalOppositeObjectID
}

// CurrentOppositeEndPoint returns the id of the real end-point currently
// pointing at this end-point, if any.
func (k *ObjectDataKeeper) CurrentOppositeEndPoint() (domain.RelationEndPointID, bool) {
	return k.currentOppositeEndPoint, !k.currentOppositeEndPoint.IsZero()
}

// OriginalOppositeEndPoint returns the id of the registered original real
// end-point, if any.
func (k *ObjectDataKeeper) OriginalOppositeEndPoint() (domain.RelationEndPointID, bool) {
	return k.originalOppositeEndPoint, !k.originalOppositeEndPoint.IsZero()
}

// OriginalItemWithoutEndPoint returns the original opposite id registered
// without an end-point, if any.
func (k *ObjectDataKeeper) OriginalItemWithoutEndPoint() (domain.ObjectID, bool) {
	return k.originalItemWithoutEndPoint, !k.originalItemWithoutEndPoint.IsNil()
}

// CurrentOppositeEndPoints returns the current opposite as a list.
func (k *ObjectDataKeeper) CurrentOppositeEndPoints() []domain.RelationEndPointID {
	if k.currentOppositeEndPoint.IsZero() {
		return nil
	}
	return []domain.RelationEndPointID{k.currentOppositeEndPoint}
}

// OriginalOppositeEndPoints returns the original opposite as a list.
func (k *ObjectDataKeeper) OriginalOppositeEndPoints() []domain.RelationEndPointID {
	if k.originalOppositeEndPoint.IsZero() {
		return nil
	}
	return []domain.RelationEndPointID{k.originalOppositeEndPoint}
}

// OriginalItemsWithoutEndPoints returns the original item without end-point
// as a list.
func (k *ObjectDataKeeper) OriginalItemsWithoutEndPoints() []domain.ObjectID {
	if k.originalItemWithoutEndPoint.IsNil() {
		return nil
	}
	return []domain.ObjectID{k.originalItemWithoutEndPoint}
}

// SetCurrentOppositeObjectID changes the current value.
func (k *ObjectDataKeeper) SetCurrentOppositeObjectID(id domain.ObjectID) {
	k.currentOppositeObjectID = id
	k.notify()
}

// HasDataChanged compares current and original opposite ids.
func (k *ObjectDataKeeper) HasDataChanged() bool {
	return k.currentOppositeObjectID != k.originalOppositeObjectID
}

// RegisterOriginalOppositeEndPoint records the loaded real opposite. If the
// current value has not diverged it follows the new original.
func (k *ObjectDataKeeper) RegisterOriginalOppositeEndPoint(ep OppositeEndPoint) error {
	if !k.originalOppositeEndPoint.IsZero() {
		return domain.InvalidOperationf("the original opposite end-point of '%s' has already been registered", k.endPointID)
	}
	if !k.originalItemWithoutEndPoint.IsNil() {
		return domain.InvalidOperationf("an original item without end-point has already been registered for '%s'", k.endPointID)
	}

	if !k.HasDataChanged() {
		k.currentOppositeObjectID = ep.ObjectID()
		if k.currentOppositeEndPoint.IsZero() {
			k.currentOppositeEndPoint = ep.ID()
		}
	}
	k.originalOppositeObjectID = ep.ObjectID()
	k.originalOppositeEndPoint = ep.ID()
	k.notify()
	return nil
}

// SynchronizeOppositeEndPoint registers a real opposite whose foreign key
// already points here. A changed keeper is rejected: its current value would
// disagree with that foreign key.
func (k *ObjectDataKeeper) SynchronizeOppositeEndPoint(ep OppositeEndPoint) error {
	if k.HasDataChanged() {
		return domain.InvalidOperationf("cannot synchronize '%s' with '%s' because '%s' has been changed", ep.ID(), k.endPointID, k.endPointID)
	}
	return k.RegisterOriginalOppositeEndPoint(ep)
}

// UnregisterOriginalOppositeEndPoint removes the original real opposite. The
// listener receives the resulting HasDataChanged value, which stays true when
// the current value had diverged.
func (k *ObjectDataKeeper) UnregisterOriginalOppositeEndPoint(ep OppositeEndPoint) error {
	if k.originalOppositeEndPoint.IsZero() || k.originalOppositeEndPoint != ep.ID() {
		return domain.InvalidOperationf("the opposite end-point '%s' has not been registered as original opposite of '%s'", ep.ID(), k.endPointID)
	}

	if !k.HasDataChanged() {
		k.currentOppositeObjectID = domain.NilObjectID
		if k.currentOppositeEndPoint == ep.ID() {
			k.currentOppositeEndPoint = domain.RelationEndPointID{}
		}
	}
	k.originalOppositeObjectID = domain.NilObjectID
	k.originalOppositeEndPoint = domain.RelationEndPointID{}
	k.notify()
	return nil
}

// RegisterOriginalItemWithoutEndPoint records an original opposite known only
// by id.
func (k *ObjectDataKeeper) RegisterOriginalItemWithoutEndPoint(id domain.ObjectID) error {
	if !k.originalOppositeEndPoint.IsZero() || !k.originalItemWithoutEndPoint.IsNil() {
		return domain.InvalidOperationf("an original opposite object has already been registered for '%s'", k.endPointID)
	}

	if !k.HasDataChanged() {
		k.currentOppositeObjectID = id
	}
	k.originalOppositeObjectID = id
	k.originalItemWithoutEndPoint = id
	k.notify()
	return nil
}

// UnregisterOriginalItemWithoutEndPoint removes an item registered with
// RegisterOriginalItemWithoutEndPoint.
func (k *ObjectDataKeeper) UnregisterOriginalItemWithoutEndPoint(id domain.ObjectID) error {
	if k.originalItemWithoutEndPoint.IsNil() || k.originalItemWithoutEndPoint != id {
		return domain.InvalidOperationf("'%s' has not been registered as original item without end-point of '%s'", id, k.endPointID)
	}

	if !k.HasDataChanged() {
		k.currentOppositeObjectID = domain.NilObjectID
	}
	k.originalOppositeObjectID = domain.NilObjectID
	k.originalItemWithoutEndPoint = domain.NilObjectID
	k.notify()
	return nil
}

// RegisterCurrentOppositeEndPoint records the real end-point that currently
// points at this end-point. The original data is not touched.
func (k *ObjectDataKeeper) RegisterCurrentOppositeEndPoint(ep OppositeEndPoint) error {
	if !k.currentOppositeEndPoint.IsZero() {
		return domain.InvalidOperationf("a current opposite end-point has already been registered for '%s'", k.endPointID)
	}
	k.currentOppositeEndPoint = ep.ID()
	return nil
}

// UnregisterCurrentOppositeEndPoint removes the current real opposite.
func (k *ObjectDataKeeper) UnregisterCurrentOppositeEndPoint(ep OppositeEndPoint) error {
	if k.currentOppositeEndPoint.IsZero() || k.currentOppositeEndPoint != ep.ID() {
		return domain.InvalidOperationf("the opposite end-point '%s' has not been registered as current opposite of '%s'", ep.ID(), k.endPointID)
	}
	k.currentOppositeEndPoint = domain.RelationEndPointID{}
	return nil
}

// Commit makes the current data the new original data.
func (k *ObjectDataKeeper) Commit() {
	k.originalOppositeObjectID = k.currentOppositeObjectID
	k.originalOppositeEndPoint = k.currentOppositeEndPoint
	if k.originalOppositeEndPoint.IsZero() {
		k.originalItemWithoutEndPoint = k.originalOppositeObjectID
	} else {
		k.originalItemWithoutEndPoint = domain.NilObjectID
	}
	k.notify()
}

// Rollback restores the original data.
func (k *ObjectDataKeeper) Rollback() {
	k.currentOppositeObjectID = k.originalOppositeObjectID
	k.currentOppositeEndPoint = k.originalOppositeEndPoint
	k.notify()
}

func (k *ObjectDataKeeper) notify() {
	k.listener.StateUpdated(k.HasDataChanged())
}

// SerializeIntoFlatStructure implements serialization.Serializable.
func (k *ObjectDataKeeper) SerializeIntoFlatStructure(w *serialization.FlatWriter) {
	w.AddValue(k.endPointID)
	w.AddHandle(k.listener)
	w.AddValue(k.currentOppositeObjectID)
	w.AddValue(k.originalOppositeObjectID)
	w.AddValue(k.currentOppositeEndPoint)
	w.AddValue(k.originalOppositeEndPoint)
	w.AddValue(k.originalItemWithoutEndPoint)
}

// NewObjectDataKeeperFromFlatStructure reads a keeper written by
// SerializeIntoFlatStructure.
func NewObjectDataKeeperFromFlatStructure(r *serialization.FlatReader) (*ObjectDataKeeper, error) {
	k := &ObjectDataKeeper{}
	var err error
	if k.endPointID, err = serialization.GetValue[domain.RelationEndPointID](r); err != nil {
		return nil, err
	}
	listener, err := serialization.GetHandle[StateUpdateListener](r)
	if err != nil {
		return nil, err
	}
	k.listener = listenerOrNoop(listener)
	if k.currentOppositeObjectID, err = serialization.GetValue[domain.ObjectID](r); err != nil {
		return nil, err
	}
	if k.originalOppositeObjectID, err = serialization.GetValue[domain.ObjectID](r); err != nil {
		return nil, err
	}
	if k.currentOppositeEndPoint, err = serialization.GetValue[domain.RelationEndPointID](r); err != nil {
		return nil, err
	}
	if k.originalOppositeEndPoint, err = serialization.GetValue[domain.RelationEndPointID](r); err != nil {
		return nil, err
	}
	if k.originalItemWithoutEndPoint, err = serialization.GetValue[domain.ObjectID](r); err != nil {
		return nil, err
	}
	return k, nil
}
