// Package endpoints implements the runtime representatives of relation
// properties. Real object end-points hold a foreign key and a sync state.
// Virtual object and collection end-points hold a load state that wraps a
// datakeeper once their data has been loaded. All mutations go through
// commands.
//
// Nothing in this package performs I/O or locking. Missing data is requested
// through a LazyLoader, sibling end-points are found through an
// EndPointProvider, and both are implemented by the owning transaction.
package endpoints

import (
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/serialization"
)

// LazyLoader materializes data an end-point needs but does not have yet.
// Every method blocks until the data has been registered back into the
// end-points or an error occurred.
type LazyLoader interface {
	// LoadOppositeEndPoint loads the virtual end-point the real end-point
	// points at, which resolves the sync state of ep.
	LoadOppositeEndPoint(ep *RealObjectEndPoint) error
	// LoadLazyCollectionEndPoint loads the items of a collection end-point and
	// calls MarkDataComplete on it.
	LoadLazyCollectionEndPoint(id domain.RelationEndPointID) error
	// LoadLazyVirtualObjectEndPoint loads the opposite of a virtual object
	// end-point and calls MarkDataComplete on it.
	LoadLazyVirtualObjectEndPoint(id domain.RelationEndPointID) error
	// LoadLazyDataContainer loads an object and registers its real end-points.
	LoadLazyDataContainer(id domain.ObjectID) error
}

// EndPointProvider gives access to the end-point map of the transaction.
type EndPointProvider interface {
	GetRelationEndPointWithoutLoading(id domain.RelationEndPointID) (RelationEndPoint, bool)
	// GetRelationEndPointWithLazyLoad loads the owning object if needed. Virtual
	// end-points are returned with complete data.
	GetRelationEndPointWithLazyLoad(id domain.RelationEndPointID) (RelationEndPoint, error)
	// GetOrCreateVirtualEndPoint returns the registered virtual end-point or
	// registers a new incomplete one. It never loads.
	GetOrCreateVirtualEndPoint(id domain.RelationEndPointID) (VirtualEndPoint, error)
}

// ChangeListener brackets every relation change. RelationChanging may veto
// the change by returning an error; it is called before any data is touched.
type ChangeListener interface {
	RelationChanging(endPointID domain.RelationEndPointID, oldID, newID domain.ObjectID) error
	RelationChanged(endPointID domain.RelationEndPointID, oldID, newID domain.ObjectID)
}

// Services bundles the collaborators an end-point calls back into.
type Services struct {
	LazyLoader LazyLoader
	Provider   EndPointProvider
	Listener   ChangeListener
}

func (s Services) write(w *serialization.FlatWriter) {
	w.AddHandle(s.LazyLoader)
	w.AddHandle(s.Provider)
	w.AddHandle(s.Listener)
}

func readServices(r *serialization.FlatReader) (Services, error) {
	var s Services
	var err error
	if s.LazyLoader, err = serialization.GetHandle[LazyLoader](r); err != nil {
		return s, err
	}
	if s.Provider, err = serialization.GetHandle[EndPointProvider](r); err != nil {
		return s, err
	}
	if s.Listener, err = serialization.GetHandle[ChangeListener](r); err != nil {
		return s, err
	}
	return s, nil
}

// RelationEndPoint is implemented by every end-point kind.
type RelationEndPoint interface {
	ID() domain.RelationEndPointID
	ObjectID() domain.ObjectID
	Definition() *mapping.EndPointDefinition
	IsVirtual() bool

	IsDataComplete() bool
	EnsureDataComplete() error

	HasChanged() bool
	HasBeenTouched() bool
	Touch()
	Commit()
	Rollback()

	IsSynchronized() (bool, error)
	Synchronize() error

	// OppositeRelationEndPointIDs returns the ids of the end-points that
	// currently reference this end-point's object through this relation.
	OppositeRelationEndPointIDs() ([]domain.RelationEndPointID, error)

	CreateRemoveCommand(removed domain.ObjectID) (Command, error)
	CreateDeleteCommand() (Command, error)

	serialization.Serializable
}

// ObjectEndPoint is an end-point with cardinality one.
type ObjectEndPoint interface {
	RelationEndPoint
	OppositeObjectID() (domain.ObjectID, error)
	OriginalOppositeObjectID() (domain.ObjectID, error)
	CreateSetCommand(newOppositeID domain.ObjectID) (Command, error)
}

// VirtualEndPoint is the non-foreign-key side of a relation.
type VirtualEndPoint interface {
	RelationEndPoint

	RegisterOriginalOppositeEndPoint(ep *RealObjectEndPoint) error
	UnregisterOriginalOppositeEndPoint(ep *RealObjectEndPoint) error
	RegisterCurrentOppositeEndPoint(ep *RealObjectEndPoint) error
	UnregisterCurrentOppositeEndPoint(ep *RealObjectEndPoint) error
	SynchronizeOppositeEndPoint(ep *RealObjectEndPoint) error

	MarkDataComplete(items []domain.ObjectID) error
	MarkDataIncomplete() error
	CanBeMarkedIncomplete() bool
	CanBeCollected() bool

	HasUnsynchronizedCurrentOppositeEndPoints() bool
	UnsynchronizedOppositeEndPoints() []domain.RelationEndPointID
}

var (
	_ ObjectEndPoint  = (*RealObjectEndPoint)(nil)
	_ ObjectEndPoint  = (*VirtualObjectEndPoint)(nil)
	_ VirtualEndPoint = (*VirtualObjectEndPoint)(nil)
	_ VirtualEndPoint = (*CollectionEndPoint)(nil)
)

// oppositeEndPointID returns the id of the end-point on the other side of the
// relation, held by the given object.
func oppositeEndPointID(def *mapping.EndPointDefinition, oppositeObjectID domain.ObjectID) domain.RelationEndPointID {
	return domain.NewRelationEndPointID(oppositeObjectID, def.OppositeEndPointDefinition().PropertyName)
}

func realEndPoint(provider EndPointProvider, id domain.RelationEndPointID) (*RealObjectEndPoint, error) {
	ep, ok := provider.GetRelationEndPointWithoutLoading(id)
	if !ok {
		return nil, domain.InvalidOperationf("end-point '%s' is not registered", id)
	}
	realEndPoint, ok := ep.(*RealObjectEndPoint)
	if !ok {
		return nil, domain.InvalidOperationf("end-point '%s' is not a real object end-point", id)
	}
	return realEndPoint, nil
}

func objectEndPointWithLazyLoad(provider EndPointProvider, id domain.RelationEndPointID) (ObjectEndPoint, error) {
	ep, err := provider.GetRelationEndPointWithLazyLoad(id)
	if err != nil {
		return nil, err
	}
	objectEndPoint, ok := ep.(ObjectEndPoint)
	if !ok {
		return nil, domain.InvalidOperationf("end-point '%s' is not an object end-point", id)
	}
	return objectEndPoint, nil
}

func collectionEndPointWithLazyLoad(provider EndPointProvider, id domain.RelationEndPointID) (*CollectionEndPoint, error) {
	ep, err := provider.GetRelationEndPointWithLazyLoad(id)
	if err != nil {
		return nil, err
	}
	collection, ok := ep.(*CollectionEndPoint)
	if !ok {
		return nil, domain.InvalidOperationf("end-point '%s' is not a collection end-point", id)
	}
	return collection, nil
}
