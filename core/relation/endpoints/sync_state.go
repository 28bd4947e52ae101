package endpoints

import (
	"fmt"

	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
)

// SyncStateKind tells whether a real end-point agrees with the virtual
// end-point it points at.
type SyncStateKind int

const (
	// SyncStateUnknown means the opposite virtual end-point has not been
	// loaded yet.
	SyncStateUnknown SyncStateKind = iota
	SyncStateSynchronized
	// SyncStateUnsynchronized means the loaded opposite does not contain the
	// end-point. The relation cannot be changed until it is synchronized.
	SyncStateUnsynchronized
)

func (k SyncStateKind) String() string {
	switch k {
	case SyncStateUnknown:
		return "Unknown"
	case SyncStateSynchronized:
		return "Synchronized"
	case SyncStateUnsynchronized:
		return "Unsynchronized"
	default:
		return fmt.Sprintf("SyncStateKind(%d)", int(k))
	}
}

type syncState interface {
	kind() SyncStateKind
	isSynchronized(ep *RealObjectEndPoint) (bool, error)
	synchronize(ep *RealObjectEndPoint) error
	createSetCommand(ep *RealObjectEndPoint, newOppositeID domain.ObjectID) (Command, error)
	createDeleteCommand(ep *RealObjectEndPoint) (Command, error)
}

func syncStateFor(kind SyncStateKind) (syncState, error) {
	switch kind {
	case SyncStateUnknown:
		return unknownSyncState{}, nil
	case SyncStateSynchronized:
		return synchronizedSyncState{}, nil
	case SyncStateUnsynchronized:
		return unsynchronizedSyncState{}, nil
	default:
		return nil, fmt.Errorf("unknown sync state %d", int(kind))
	}
}

// --- Unknown ---

type unknownSyncState struct{}

func (unknownSyncState) kind() SyncStateKind { return SyncStateUnknown }

// resolve loads the opposite end-point and returns the state the end-point
// is in afterwards.
func (unknownSyncState) resolve(ep *RealObjectEndPoint) (syncState, error) {
	if err := ep.services.LazyLoader.LoadOppositeEndPoint(ep); err != nil {
		return nil, fmt.Errorf("failed to load opposite end-point of '%s': %w", ep.id, err)
	}
	if ep.syncState.kind() == SyncStateUnknown {
		return nil, fmt.Errorf("sync state of '%s' is still unknown after loading its opposite: %w", ep.id, domain.ErrLoaderIncomplete)
	}
	return ep.syncState, nil
}

func (s unknownSyncState) isSynchronized(ep *RealObjectEndPoint) (bool, error) {
	resolved, err := s.resolve(ep)
	if err != nil {
		return false, err
	}
	return resolved.isSynchronized(ep)
}

func (s unknownSyncState) synchronize(ep *RealObjectEndPoint) error {
	resolved, err := s.resolve(ep)
	if err != nil {
		return err
	}
	return resolved.synchronize(ep)
}

func (s unknownSyncState) createSetCommand(ep *RealObjectEndPoint, newOppositeID domain.ObjectID) (Command, error) {
	resolved, err := s.resolve(ep)
	if err != nil {
		return nil, err
	}
	return resolved.createSetCommand(ep, newOppositeID)
}

func (s unknownSyncState) createDeleteCommand(ep *RealObjectEndPoint) (Command, error) {
	resolved, err := s.resolve(ep)
	if err != nil {
		return nil, err
	}
	return resolved.createDeleteCommand(ep)
}

// --- Synchronized ---

type synchronizedSyncState struct{}

func (synchronizedSyncState) kind() SyncStateKind { return SyncStateSynchronized }

func (synchronizedSyncState) isSynchronized(*RealObjectEndPoint) (bool, error) { return true, nil }

func (synchronizedSyncState) synchronize(*RealObjectEndPoint) error { return nil }

// createSetCommand picks the command kind from the value and the opposite
// end-point definition.
func (synchronizedSyncState) createSetCommand(ep *RealObjectEndPoint, newOppositeID domain.ObjectID) (Command, error) {
	base := ep.newSetCommandBase(newOppositeID)
	opposite := ep.definition.OppositeEndPointDefinition()
	switch {
	case newOppositeID == ep.currentOppositeObjectID:
		return &SetSameCommand{objectSetCommand: base}, nil
	case opposite.IsAnonymous():
		return &SetUnidirectionalCommand{objectSetCommand: base}, nil
	case opposite.Cardinality == mapping.CardinalityOne:
		return &SetOneOneCommand{objectSetCommand: base}, nil
	default:
		return &SetOneManyCommand{objectSetCommand: base}, nil
	}
}

func (synchronizedSyncState) createDeleteCommand(ep *RealObjectEndPoint) (Command, error) {
	return &ObjectEndPointDeleteCommand{objectSetCommand: ep.newSetCommandBase(domain.NilObjectID)}, nil
}

// --- Unsynchronized ---

type unsynchronizedSyncState struct{}

func (unsynchronizedSyncState) kind() SyncStateKind { return SyncStateUnsynchronized }

func (unsynchronizedSyncState) isSynchronized(*RealObjectEndPoint) (bool, error) { return false, nil }

func (unsynchronizedSyncState) synchronize(ep *RealObjectEndPoint) error {
	opposite, err := ep.services.Provider.GetOrCreateVirtualEndPoint(ep.OppositeEndPointID())
	if err != nil {
		return err
	}
	return opposite.SynchronizeOppositeEndPoint(ep)
}

func (unsynchronizedSyncState) createSetCommand(ep *RealObjectEndPoint, _ domain.ObjectID) (Command, error) {
	return nil, ep.unsynchronizedError()
}

func (unsynchronizedSyncState) createDeleteCommand(ep *RealObjectEndPoint) (Command, error) {
	return nil, ep.unsynchronizedError()
}
