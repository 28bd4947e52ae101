package endpoints

import (
	"fmt"

	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/relation/datakeeper"
	"github.com/sushant-115/gojorel/core/serialization"
)

// LoadStateKind tells whether a virtual end-point has loaded its data.
type LoadStateKind int

const (
	LoadStateIncomplete LoadStateKind = iota
	LoadStateComplete
)

func (k LoadStateKind) String() string {
	switch k {
	case LoadStateIncomplete:
		return "Incomplete"
	case LoadStateComplete:
		return "Complete"
	default:
		return fmt.Sprintf("LoadStateKind(%d)", int(k))
	}
}

// loadState is swapped by the owning end-point on every transition; a state
// never changes its own kind.
type loadState interface {
	kind() LoadStateKind
	ensureDataComplete(ep *virtualEndPoint) error
	markDataComplete(ep *virtualEndPoint, items []domain.ObjectID) error
	markDataIncomplete(ep *virtualEndPoint) error
	canBeMarkedIncomplete() bool
	hasChanged() bool

	registerOriginalOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error
	unregisterOriginalOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error
	registerCurrentOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error
	unregisterCurrentOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error
	synchronizeOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error

	isSynchronized(ep *virtualEndPoint) (bool, error)
	synchronize(ep *virtualEndPoint) error

	commit()
	rollback()
	write(w *serialization.FlatWriter)
}

// --- Incomplete ---

// incompleteLoadState remembers the real end-points registered while the data
// is not loaded. They are sorted into the keeper by markDataComplete.
type incompleteLoadState struct {
	originalOppositeEndPoints endPointIDSet
}

func (*incompleteLoadState) kind() LoadStateKind { return LoadStateIncomplete }

func (*incompleteLoadState) ensureDataComplete(ep *virtualEndPoint) error {
	if err := ep.load(); err != nil {
		return fmt.Errorf("failed to load '%s': %w", ep.id, err)
	}
	if !ep.IsDataComplete() {
		return fmt.Errorf("'%s' is still incomplete after loading: %w", ep.id, domain.ErrLoaderIncomplete)
	}
	return nil
}

// markDataComplete registers every item with a fresh keeper. Pending real
// end-points contained in items become Synchronized, the others
// Unsynchronized.
func (s *incompleteLoadState) markDataComplete(ep *virtualEndPoint, items []domain.ObjectID) error {
	pending := make(map[domain.ObjectID]*RealObjectEndPoint, s.originalOppositeEndPoints.len())
	for _, id := range s.originalOppositeEndPoints.ids {
		opposite, err := realEndPoint(ep.services.Provider, id)
		if err != nil {
			return err
		}
		pending[id.ObjectID] = opposite
	}

	keeper := ep.newKeeper()
	var synchronized []*RealObjectEndPoint
	for _, item := range items {
		if opposite, ok := pending[item]; ok {
			if err := keeper.RegisterOriginalOppositeEndPoint(opposite); err != nil {
				return err
			}
			synchronized = append(synchronized, opposite)
			delete(pending, item)
			continue
		}
		if err := keeper.RegisterOriginalItemWithoutEndPoint(item); err != nil {
			return err
		}
	}

	complete := &completeLoadState{keeper: keeper}
	for _, opposite := range synchronized {
		opposite.MarkSynchronized()
	}
	for _, id := range s.originalOppositeEndPoints.ids {
		if opposite, ok := pending[id.ObjectID]; ok {
			opposite.MarkUnsynchronized()
			complete.unsynchronizedOppositeEndPoints.add(id)
		}
	}
	ep.state = complete
	return nil
}

func (*incompleteLoadState) markDataIncomplete(*virtualEndPoint) error { return nil }
func (*incompleteLoadState) canBeMarkedIncomplete() bool               { return true }
func (*incompleteLoadState) hasChanged() bool                          { return false }

func (s *incompleteLoadState) registerOriginalOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error {
	if !s.originalOppositeEndPoints.add(opposite.ID()) {
		return domain.InvalidOperationf("the opposite end-point '%s' has already been registered with '%s'", opposite.ID(), ep.id)
	}
	opposite.ResetSyncState()
	return nil
}

func (s *incompleteLoadState) unregisterOriginalOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error {
	if !s.originalOppositeEndPoints.remove(opposite.ID()) {
		return domain.InvalidOperationf("the opposite end-point '%s' has not been registered with '%s'", opposite.ID(), ep.id)
	}
	return nil
}

func (s *incompleteLoadState) registerCurrentOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error {
	if err := s.ensureDataComplete(ep); err != nil {
		return err
	}
	return ep.state.registerCurrentOppositeEndPoint(ep, opposite)
}

func (s *incompleteLoadState) unregisterCurrentOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error {
	if err := s.ensureDataComplete(ep); err != nil {
		return err
	}
	return ep.state.unregisterCurrentOppositeEndPoint(ep, opposite)
}

func (s *incompleteLoadState) synchronizeOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error {
	if err := s.ensureDataComplete(ep); err != nil {
		return err
	}
	return ep.state.synchronizeOppositeEndPoint(ep, opposite)
}

func (s *incompleteLoadState) isSynchronized(ep *virtualEndPoint) (bool, error) {
	if err := s.ensureDataComplete(ep); err != nil {
		return false, err
	}
	return ep.state.isSynchronized(ep)
}

func (s *incompleteLoadState) synchronize(ep *virtualEndPoint) error {
	if err := s.ensureDataComplete(ep); err != nil {
		return err
	}
	return ep.state.synchronize(ep)
}

func (*incompleteLoadState) commit()   {}
func (*incompleteLoadState) rollback() {}

func (s *incompleteLoadState) write(w *serialization.FlatWriter) {
	s.originalOppositeEndPoints.write(w)
}

// --- Complete ---

type completeLoadState struct {
	keeper datakeeper.DataKeeper
	// unsynchronizedOppositeEndPoints point at the end-point but are not part
	// of its loaded data.
	unsynchronizedOppositeEndPoints endPointIDSet
}

func (*completeLoadState) kind() LoadStateKind                       { return LoadStateComplete }
func (*completeLoadState) ensureDataComplete(*virtualEndPoint) error { return nil }

func (*completeLoadState) markDataComplete(ep *virtualEndPoint, _ []domain.ObjectID) error {
	return domain.InvalidOperationf("the data of '%s' is already complete", ep.id)
}

// markDataIncomplete discards the keeper. The original opposite end-points
// and the unsynchronized ones go back to pending with an Unknown sync state.
func (s *completeLoadState) markDataIncomplete(ep *virtualEndPoint) error {
	if s.keeper.HasDataChanged() {
		return domain.InvalidOperationf("cannot mark '%s' incomplete because its data has been changed", ep.id)
	}

	ids := append(s.keeper.OriginalOppositeEndPoints(), s.unsynchronizedOppositeEndPoints.ids...)
	opposites := make([]*RealObjectEndPoint, 0, len(ids))
	for _, id := range ids {
		opposite, err := realEndPoint(ep.services.Provider, id)
		if err != nil {
			return err
		}
		opposites = append(opposites, opposite)
	}

	incomplete := &incompleteLoadState{}
	for _, opposite := range opposites {
		incomplete.originalOppositeEndPoints.add(opposite.ID())
		opposite.ResetSyncState()
	}
	ep.state = incomplete
	ep.touched = false
	ep.notify(false)
	return nil
}

func (s *completeLoadState) canBeMarkedIncomplete() bool { return !s.keeper.HasDataChanged() }
func (s *completeLoadState) hasChanged() bool            { return s.keeper.HasDataChanged() }

// registerOriginalOppositeEndPoint is called for real end-points loaded after
// this end-point. They are not part of the loaded data.
func (s *completeLoadState) registerOriginalOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error {
	if s.unsynchronizedOppositeEndPoints.contains(opposite.ID()) || containsID(s.keeper.OriginalOppositeEndPoints(), opposite.ID()) {
		return domain.InvalidOperationf("the opposite end-point '%s' has already been registered with '%s'", opposite.ID(), ep.id)
	}
	opposite.MarkUnsynchronized()
	s.unsynchronizedOppositeEndPoints.add(opposite.ID())
	return nil
}

func (s *completeLoadState) unregisterOriginalOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error {
	if s.unsynchronizedOppositeEndPoints.remove(opposite.ID()) {
		return nil
	}
	if err := s.markDataIncomplete(ep); err != nil {
		return fmt.Errorf("cannot unregister '%s': %w", opposite.ID(), err)
	}
	return ep.state.unregisterOriginalOppositeEndPoint(ep, opposite)
}

func (s *completeLoadState) registerCurrentOppositeEndPoint(_ *virtualEndPoint, opposite *RealObjectEndPoint) error {
	return s.keeper.RegisterCurrentOppositeEndPoint(opposite)
}

func (s *completeLoadState) unregisterCurrentOppositeEndPoint(_ *virtualEndPoint, opposite *RealObjectEndPoint) error {
	return s.keeper.UnregisterCurrentOppositeEndPoint(opposite)
}

func (s *completeLoadState) synchronizeOppositeEndPoint(ep *virtualEndPoint, opposite *RealObjectEndPoint) error {
	if !s.unsynchronizedOppositeEndPoints.contains(opposite.ID()) {
		return domain.InvalidOperationf("the opposite end-point '%s' is not out of sync with '%s'", opposite.ID(), ep.id)
	}
	if err := s.keeper.SynchronizeOppositeEndPoint(opposite); err != nil {
		return fmt.Errorf("cannot synchronize '%s' with '%s': %w", opposite.ID(), ep.id, err)
	}
	s.unsynchronizedOppositeEndPoints.remove(opposite.ID())
	opposite.MarkSynchronized()
	return nil
}

func (s *completeLoadState) isSynchronized(*virtualEndPoint) (bool, error) {
	return len(s.keeper.OriginalItemsWithoutEndPoints()) == 0 && s.unsynchronizedOppositeEndPoints.len() == 0, nil
}

// synchronize drops loaded items whose real end-point points elsewhere.
func (s *completeLoadState) synchronize(*virtualEndPoint) error {
	for _, item := range s.keeper.OriginalItemsWithoutEndPoints() {
		if err := s.keeper.UnregisterOriginalItemWithoutEndPoint(item); err != nil {
			return err
		}
	}
	return nil
}

func (s *completeLoadState) commit()   { s.keeper.Commit() }
func (s *completeLoadState) rollback() { s.keeper.Rollback() }

func (s *completeLoadState) write(w *serialization.FlatWriter) {
	w.AddObject(s.keeper)
	s.unsynchronizedOppositeEndPoints.write(w)
}

func containsID(ids []domain.RelationEndPointID, id domain.RelationEndPointID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
