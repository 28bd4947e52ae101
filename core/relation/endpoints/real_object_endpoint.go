package endpoints

import (
	"fmt"

	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/relation/datakeeper"
	"github.com/sushant-115/gojorel/core/serialization"
	"go.uber.org/multierr"
)

// RealObjectEndPoint is the foreign-key holding side of a relation.
type RealObjectEndPoint struct {
	id         domain.RelationEndPointID
	definition *mapping.EndPointDefinition
	services   Services
	listener   datakeeper.StateUpdateListener

	syncState syncState

	currentOppositeObjectID  domain.ObjectID
	originalOppositeObjectID domain.ObjectID
	touched                  bool
}

// NewRealObjectEndPoint creates the end-point of a loaded or new object with
// the given foreign key value. End-points with a null foreign key or an
// anonymous opposite start Synchronized; all others start Unknown until they
// are registered with their opposite virtual end-point.
func NewRealObjectEndPoint(
	id domain.RelationEndPointID,
	definition *mapping.EndPointDefinition,
	foreignKey domain.ObjectID,
	services Services,
	listener datakeeper.StateUpdateListener,
) (*RealObjectEndPoint, error) {
	if definition == nil || definition.IsVirtual {
		return nil, domain.InvalidOperationf("'%s' is not a real end-point", id)
	}
	if id.IsAnonymous() {
		return nil, domain.InvalidOperationf("anonymous end-points cannot be created")
	}
	ep := &RealObjectEndPoint{
		id:                       id,
		definition:               definition,
		services:                 services,
		listener:                 listener,
		currentOppositeObjectID:  foreignKey,
		originalOppositeObjectID: foreignKey,
		syncState:                unknownSyncState{},
	}
	if foreignKey.IsNil() || definition.OppositeEndPointDefinition().IsAnonymous() {
		ep.syncState = synchronizedSyncState{}
	}
	return ep, nil
}

func (ep *RealObjectEndPoint) ID() domain.RelationEndPointID           { return ep.id }
func (ep *RealObjectEndPoint) ObjectID() domain.ObjectID               { return ep.id.ObjectID }
func (ep *RealObjectEndPoint) Definition() *mapping.EndPointDefinition { return ep.definition }
func (ep *RealObjectEndPoint) IsVirtual() bool                         { return false }

// IsDataComplete is always true: the foreign key is part of the object data.
func (ep *RealObjectEndPoint) IsDataComplete() bool      { return true }
func (ep *RealObjectEndPoint) EnsureDataComplete() error { return nil }

func (ep *RealObjectEndPoint) OppositeObjectID() (domain.ObjectID, error) {
	return ep.currentOppositeObjectID, nil
}

func (ep *RealObjectEndPoint) OriginalOppositeObjectID() (domain.ObjectID, error) {
	return ep.originalOppositeObjectID, nil
}

// OppositeEndPointID returns the id of the virtual end-point the foreign key
// currently points at. It is the zero id when the foreign key is null.
func (ep *RealObjectEndPoint) OppositeEndPointID() domain.RelationEndPointID {
	if ep.currentOppositeObjectID.IsNil() {
		return domain.RelationEndPointID{}
	}
	return oppositeEndPointID(ep.definition, ep.currentOppositeObjectID)
}

// OriginalOppositeEndPointID returns the id of the virtual end-point the
// original foreign key points at.
func (ep *RealObjectEndPoint) OriginalOppositeEndPointID() domain.RelationEndPointID {
	if ep.originalOppositeObjectID.IsNil() {
		return domain.RelationEndPointID{}
	}
	return oppositeEndPointID(ep.definition, ep.originalOppositeObjectID)
}

func (ep *RealObjectEndPoint) HasChanged() bool {
	return ep.currentOppositeObjectID != ep.originalOppositeObjectID
}

func (ep *RealObjectEndPoint) HasBeenTouched() bool { return ep.touched }
func (ep *RealObjectEndPoint) Touch()               { ep.touched = true }

// Commit makes the current foreign key the original one.
func (ep *RealObjectEndPoint) Commit() {
	ep.originalOppositeObjectID = ep.currentOppositeObjectID
	ep.touched = false
	ep.notify()
}

// Rollback restores the original foreign key. The opposite virtual end-points
// restore their current registrations in their own Rollback.
func (ep *RealObjectEndPoint) Rollback() {
	ep.currentOppositeObjectID = ep.originalOppositeObjectID
	ep.touched = false
	ep.notify()
}

// SyncState returns the kind of the current sync state without resolving it.
func (ep *RealObjectEndPoint) SyncState() SyncStateKind { return ep.syncState.kind() }

// IsSynchronized resolves an Unknown sync state by loading the opposite.
func (ep *RealObjectEndPoint) IsSynchronized() (bool, error) {
	return ep.syncState.isSynchronized(ep)
}

// Synchronize registers an unsynchronized end-point with its opposite.
func (ep *RealObjectEndPoint) Synchronize() error {
	return ep.syncState.synchronize(ep)
}

func (ep *RealObjectEndPoint) MarkSynchronized()   { ep.syncState = synchronizedSyncState{} }
func (ep *RealObjectEndPoint) MarkUnsynchronized() { ep.syncState = unsynchronizedSyncState{} }
func (ep *RealObjectEndPoint) ResetSyncState()     { ep.syncState = unknownSyncState{} }

// ValidateMandatory fails for a mandatory relation with a null foreign key.
func (ep *RealObjectEndPoint) ValidateMandatory() error {
	if ep.definition.IsMandatory && ep.currentOppositeObjectID.IsNil() {
		return fmt.Errorf("mandatory relation property '%s' of object '%s' is not set: %w",
			ep.id.PropertyName, ep.id.ObjectID, domain.ErrInvalidOperation)
	}
	return nil
}

func (ep *RealObjectEndPoint) OppositeRelationEndPointIDs() ([]domain.RelationEndPointID, error) {
	if ep.currentOppositeObjectID.IsNil() || ep.definition.OppositeEndPointDefinition().IsAnonymous() {
		return nil, nil
	}
	return []domain.RelationEndPointID{ep.OppositeEndPointID()}, nil
}

// CreateSetCommand returns the command that changes the foreign key. The kind
// of command depends on the sync state and the opposite definition.
func (ep *RealObjectEndPoint) CreateSetCommand(newOppositeID domain.ObjectID) (Command, error) {
	if !newOppositeID.IsNil() && newOppositeID.ClassID != ep.definition.OppositeEndPointDefinition().ClassID {
		return nil, domain.InvalidOperationf("'%s' cannot be assigned to '%s': expected an object of class '%s'",
			newOppositeID, ep.id, ep.definition.OppositeEndPointDefinition().ClassID)
	}
	return ep.syncState.createSetCommand(ep, newOppositeID)
}

// CreateRemoveCommand sets the foreign key to null if it points at removed.
func (ep *RealObjectEndPoint) CreateRemoveCommand(removed domain.ObjectID) (Command, error) {
	if ep.currentOppositeObjectID != removed {
		return nil, domain.InvalidOperationf("cannot remove '%s' from '%s' because it is not the current opposite object", removed, ep.id)
	}
	return ep.syncState.createSetCommand(ep, domain.NilObjectID)
}

func (ep *RealObjectEndPoint) CreateDeleteCommand() (Command, error) {
	return ep.syncState.createDeleteCommand(ep)
}

func (ep *RealObjectEndPoint) newSetCommandBase(newOppositeID domain.ObjectID) objectSetCommand {
	return objectSetCommand{
		endPoint: ep,
		oldID:    ep.currentOppositeObjectID,
		newID:    newOppositeID,
		services: ep.services,
		setter:   ep.setOppositeObjectID,
	}
}

// setOppositeObjectID changes the foreign key and moves the current
// registration from the old opposite virtual end-point to the new one.
func (ep *RealObjectEndPoint) setOppositeObjectID(newOppositeID domain.ObjectID) error {
	oldOppositeID := ep.currentOppositeObjectID
	if oldOppositeID == newOppositeID {
		return nil
	}
	if ep.definition.OppositeEndPointDefinition().IsAnonymous() {
		ep.currentOppositeObjectID = newOppositeID
		ep.notify()
		return nil
	}

	var oldOpposite, newOpposite VirtualEndPoint
	var err error
	if !oldOppositeID.IsNil() {
		if oldOpposite, err = ep.services.Provider.GetOrCreateVirtualEndPoint(oppositeEndPointID(ep.definition, oldOppositeID)); err != nil {
			return err
		}
	}
	if !newOppositeID.IsNil() {
		if newOpposite, err = ep.services.Provider.GetOrCreateVirtualEndPoint(oppositeEndPointID(ep.definition, newOppositeID)); err != nil {
			return err
		}
	}

	if oldOpposite != nil {
		if err := oldOpposite.UnregisterCurrentOppositeEndPoint(ep); err != nil {
			return err
		}
	}
	ep.currentOppositeObjectID = newOppositeID
	if newOpposite != nil {
		if err := newOpposite.RegisterCurrentOppositeEndPoint(ep); err != nil {
			ep.currentOppositeObjectID = oldOppositeID
			if oldOpposite != nil {
				err = multierr.Append(err, oldOpposite.RegisterCurrentOppositeEndPoint(ep))
			}
			return err
		}
	}
	ep.notify()
	return nil
}

func (ep *RealObjectEndPoint) unsynchronizedError() error {
	return &domain.UnsynchronizedError{EndPointID: ep.id, OppositeEndPointID: ep.OppositeEndPointID()}
}

func (ep *RealObjectEndPoint) notify() {
	if ep.listener != nil {
		ep.listener.StateUpdated(ep.HasChanged())
	}
}

// SerializeIntoFlatStructure implements serialization.Serializable.
func (ep *RealObjectEndPoint) SerializeIntoFlatStructure(w *serialization.FlatWriter) {
	w.AddValue(ep.id)
	w.AddHandle(ep.definition)
	ep.services.write(w)
	w.AddHandle(ep.listener)
	w.AddInt(int(ep.syncState.kind()))
	w.AddValue(ep.currentOppositeObjectID)
	w.AddValue(ep.originalOppositeObjectID)
	w.AddBool(ep.touched)
}

// NewRealObjectEndPointFromFlatStructure reads an end-point written by
// SerializeIntoFlatStructure.
func NewRealObjectEndPointFromFlatStructure(r *serialization.FlatReader) (*RealObjectEndPoint, error) {
	ep := &RealObjectEndPoint{}
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
	kind, err := r.GetInt()
	if err != nil {
		return nil, err
	}
	if ep.syncState, err = syncStateFor(SyncStateKind(kind)); err != nil {
		return nil, err
	}
	if ep.currentOppositeObjectID, err = serialization.GetValue[domain.ObjectID](r); err != nil {
		return nil, err
	}
	if ep.originalOppositeObjectID, err = serialization.GetValue[domain.ObjectID](r); err != nil {
		return nil, err
	}
	if ep.touched, err = r.GetBool(); err != nil {
		return nil, err
	}
	return ep, nil
}
