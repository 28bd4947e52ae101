package domain

import (
	"errors"
	"fmt"
)

// --- Error Definitions ---

var (
	// ErrInvalidOperation marks a protocol violation: double registration,
	// unregistering something that is not registered, or an operation that is
	// not allowed in the current state. It must not be retried automatically.
	ErrInvalidOperation = errors.New("invalid operation")
	ErrObjectNotFound   = errors.New("object not found")
	ErrObjectDeleted    = errors.New("object has been deleted")
	ErrUnknownProperty  = errors.New("unknown relation property")
	ErrLoaderIncomplete = errors.New("lazy loader did not complete the end-point")
)

// InvalidOperationf returns an error wrapping ErrInvalidOperation.
func InvalidOperationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}

// UnsynchronizedError is returned when a relation is mutated through a real
// end-point whose foreign key disagrees with the opposite virtual end-point.
// It can only be resolved by synchronizing the relation explicitly.
type UnsynchronizedError struct {
	EndPointID         RelationEndPointID
	OppositeEndPointID RelationEndPointID
}

func (e *UnsynchronizedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"the relation property '%s' of object '%s' is out of sync with the opposite property '%s' of object '%s'; "+
			"to make this change, synchronize the two properties by calling SynchronizeRelation on '%s'",
		e.EndPointID.PropertyName, e.EndPointID.ObjectID,
		e.OppositeEndPointID.PropertyName, e.OppositeEndPointID.ObjectID,
		e.EndPointID)
}

// Is makes errors.Is(err, ErrInvalidOperation) hold for unsynchronized errors.
func (e *UnsynchronizedError) Is(target error) bool {
	return target == ErrInvalidOperation
}
