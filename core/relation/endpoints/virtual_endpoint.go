package endpoints

import (
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/relation/datakeeper"
	"github.com/sushant-115/gojorel/core/serialization"
)

// virtualEndPoint is the part shared by virtual object and collection
// end-points: identity, collaborators and the load state.
type virtualEndPoint struct {
	id         domain.RelationEndPointID
	definition *mapping.EndPointDefinition
	services   Services
	listener   datakeeper.StateUpdateListener

	state   loadState
	touched bool

	// set by the concrete end-point
	newKeeper func() datakeeper.DataKeeper
	load      func() error
}

func newVirtualEndPoint(
	id domain.RelationEndPointID,
	definition *mapping.EndPointDefinition,
	services Services,
	listener datakeeper.StateUpdateListener,
) (*virtualEndPoint, error) {
	if definition == nil || !definition.IsVirtual {
		return nil, domain.InvalidOperationf("'%s' is not a virtual end-point", id)
	}
	if id.IsAnonymous() {
		return nil, domain.InvalidOperationf("anonymous end-points cannot be created")
	}
	return &virtualEndPoint{
		id:         id,
		definition: definition,
		services:   services,
		listener:   listener,
		state:      &incompleteLoadState{},
	}, nil
}

func (ep *virtualEndPoint) ID() domain.RelationEndPointID           { return ep.id }
func (ep *virtualEndPoint) ObjectID() domain.ObjectID               { return ep.id.ObjectID }
func (ep *virtualEndPoint) Definition() *mapping.EndPointDefinition { return ep.definition }
func (ep *virtualEndPoint) IsVirtual() bool                         { return true }

// LoadState returns the kind of the current load state.
func (ep *virtualEndPoint) LoadState() LoadStateKind { return ep.state.kind() }

func (ep *virtualEndPoint) IsDataComplete() bool { return ep.state.kind() == LoadStateComplete }

// EnsureDataComplete triggers the lazy loader if the data is not loaded yet.
// A load failure leaves the end-point incomplete.
func (ep *virtualEndPoint) EnsureDataComplete() error {
	return ep.state.ensureDataComplete(ep)
}

// MarkDataComplete is called by the lazy loader with the loaded opposite
// object ids.
func (ep *virtualEndPoint) MarkDataComplete(items []domain.ObjectID) error {
	return ep.state.markDataComplete(ep, items)
}

// MarkDataIncomplete unloads the data. It fails if the data has changed.
func (ep *virtualEndPoint) MarkDataIncomplete() error {
	return ep.state.markDataIncomplete(ep)
}

func (ep *virtualEndPoint) CanBeMarkedIncomplete() bool { return ep.state.canBeMarkedIncomplete() }

// CanBeCollected reports whether the end-point holds nothing worth keeping:
// it is incomplete and no real end-point is registered with it.
func (ep *virtualEndPoint) CanBeCollected() bool {
	incomplete, ok := ep.state.(*incompleteLoadState)
	return ok && incomplete.originalOppositeEndPoints.len() == 0
}

func (ep *virtualEndPoint) HasChanged() bool     { return ep.state.hasChanged() }
func (ep *virtualEndPoint) HasBeenTouched() bool { return ep.touched }
func (ep *virtualEndPoint) Touch()               { ep.touched = true }

func (ep *virtualEndPoint) Commit() {
	ep.state.commit()
	ep.touched = false
}

func (ep *virtualEndPoint) Rollback() {
	ep.state.rollback()
	ep.touched = false
}

func (ep *virtualEndPoint) RegisterOriginalOppositeEndPoint(opposite *RealObjectEndPoint) error {
	return ep.state.registerOriginalOppositeEndPoint(ep, opposite)
}

func (ep *virtualEndPoint) UnregisterOriginalOppositeEndPoint(opposite *RealObjectEndPoint) error {
	return ep.state.unregisterOriginalOppositeEndPoint(ep, opposite)
}

func (ep *virtualEndPoint) RegisterCurrentOppositeEndPoint(opposite *RealObjectEndPoint) error {
	return ep.state.registerCurrentOppositeEndPoint(ep, opposite)
}

func (ep *virtualEndPoint) UnregisterCurrentOppositeEndPoint(opposite *RealObjectEndPoint) error {
	return ep.state.unregisterCurrentOppositeEndPoint(ep, opposite)
}

// SynchronizeOppositeEndPoint adds an unsynchronized real end-point to the
// loaded data.
func (ep *virtualEndPoint) SynchronizeOppositeEndPoint(opposite *RealObjectEndPoint) error {
	return ep.state.synchronizeOppositeEndPoint(ep, opposite)
}

func (ep *virtualEndPoint) IsSynchronized() (bool, error) { return ep.state.isSynchronized(ep) }
func (ep *virtualEndPoint) Synchronize() error            { return ep.state.synchronize(ep) }

// HasUnsynchronizedCurrentOppositeEndPoints reports whether any registered
// current opposite end-point is itself out of sync. It never loads.
func (ep *virtualEndPoint) HasUnsynchronizedCurrentOppositeEndPoints() bool {
	complete, ok := ep.state.(*completeLoadState)
	if !ok {
		return false
	}
	for _, id := range complete.keeper.CurrentOppositeEndPoints() {
		opposite, ok := ep.services.Provider.GetRelationEndPointWithoutLoading(id)
		if !ok {
			continue
		}
		if realOpposite, ok := opposite.(*RealObjectEndPoint); ok && realOpposite.SyncState() == SyncStateUnsynchronized {
			return true
		}
	}
	return false
}

// UnsynchronizedOppositeEndPoints returns the real end-points that point at
// this end-point but are not part of its loaded data.
func (ep *virtualEndPoint) UnsynchronizedOppositeEndPoints() []domain.RelationEndPointID {
	complete, ok := ep.state.(*completeLoadState)
	if !ok {
		return nil
	}
	return complete.unsynchronizedOppositeEndPoints.slice()
}

func (ep *virtualEndPoint) OppositeRelationEndPointIDs() ([]domain.RelationEndPointID, error) {
	complete, err := ep.completeState()
	if err != nil {
		return nil, err
	}
	ids := complete.keeper.CurrentOppositeEndPoints()
	return append(ids, complete.unsynchronizedOppositeEndPoints.ids...), nil
}

// completeState loads the data if needed and returns the complete state.
func (ep *virtualEndPoint) completeState() (*completeLoadState, error) {
	if err := ep.EnsureDataComplete(); err != nil {
		return nil, err
	}
	complete, ok := ep.state.(*completeLoadState)
	if !ok {
		return nil, domain.InvalidOperationf("'%s' is not complete", ep.id)
	}
	return complete, nil
}

func (ep *virtualEndPoint) checkSynchronizedOpposites(complete *completeLoadState) error {
	if complete.unsynchronizedOppositeEndPoints.len() == 0 {
		return nil
	}
	return &domain.UnsynchronizedError{EndPointID: complete.unsynchronizedOppositeEndPoints.ids[0], OppositeEndPointID: ep.id}
}

func (ep *virtualEndPoint) notify(hasChanged bool) {
	if ep.listener != nil {
		ep.listener.StateUpdated(hasChanged)
	}
}

func (ep *virtualEndPoint) write(w *serialization.FlatWriter) {
	w.AddValue(ep.id)
	w.AddHandle(ep.definition)
	ep.services.write(w)
	w.AddHandle(ep.listener)
	w.AddBool(ep.touched)
	w.AddInt(int(ep.state.kind()))
	ep.state.write(w)
}

func readVirtualEndPoint(
	r *serialization.FlatReader,
	readKeeper func(*serialization.FlatReader) (datakeeper.DataKeeper, error),
) (*virtualEndPoint, error) {
	ep := &virtualEndPoint{}
	var err error
	if ep.id, err = serialization.GetValue[domain.RelationEndPointID](r); err != nil {
		return nil, err
	}
	if ep.definition, err = serialization.GetHandle[*mapping.EndPointDefinition](r); err != nil {
		return nil, err
	}
	if ep.services, err = readServices(r); err != nil {
		return nil, err
	}
	if ep.listener, err = serialization.GetHandle[datakeeper.StateUpdateListener](r); err != nil {
		return nil, err
	}
	if ep.touched, err = r.GetBool(); err != nil {
		return nil, err
	}
	kind, err := r.GetInt()
	if err != nil {
		return nil, err
	}
	switch LoadStateKind(kind) {
	case LoadStateIncomplete:
		pending, err := readEndPointIDSet(r)
		if err != nil {
			return nil, err
		}
		ep.state = &incompleteLoadState{originalOppositeEndPoints: pending}
	case LoadStateComplete:
		keeper, err := serialization.GetObject(r, readKeeper)
		if err != nil {
			return nil, err
		}
		if keeper == nil {
			return nil, domain.InvalidOperationf("complete end-point '%s' was serialized without data", ep.id)
		}
		unsynchronized, err := readEndPointIDSet(r)
		if err != nil {
			return nil, err
		}
		ep.state = &completeLoadState{keeper: keeper, unsynchronizedOppositeEndPoints: unsynchronized}
	default:
		return nil, domain.InvalidOperationf("unknown load state %d", kind)
	}
	return ep, nil
}
