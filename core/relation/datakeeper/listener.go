// Package datakeeper holds the per-end-point storage of virtual relation
// end-points: the current and original opposite object ids (or items), and
// the real opposite end-points registered against them. Keepers do no I/O and
// report dirtiness only through a StateUpdateListener.
package datakeeper

import "github.com/sushant-115/gojorel/core/domain"

// StateUpdateListener receives the dirty flag of a keeper after every change.
type StateUpdateListener interface {
	StateUpdated(hasChanged bool)
}

// StateUpdateListenerFunc adapts a function to StateUpdateListener.
type StateUpdateListenerFunc func(hasChanged bool)

// StateUpdated implements StateUpdateListener.
func (f StateUpdateListenerFunc) StateUpdated(hasChanged bool) {
	if f != nil {
		f(hasChanged)
	}
}

type noopListener struct{}

func (noopListener) StateUpdated(bool) {}

// OppositeEndPoint is the view a keeper needs of a real opposite end-point.
// Keepers only retain its id.
type OppositeEndPoint interface {
	ID() domain.RelationEndPointID
	ObjectID() domain.ObjectID
}

func listenerOrNoop(l StateUpdateListener) StateUpdateListener {
	if l == nil {
		return noopListener{}
	}
	return l
}
