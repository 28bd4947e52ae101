package endpoints

import (
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/serialization"
)

// endPointIDSet is a small insertion-ordered set of end-point ids.
type endPointIDSet struct {
	ids []domain.RelationEndPointID
}

func (s *endPointIDSet) len() int { return len(s.ids) }

func (s *endPointIDSet) contains(id domain.RelationEndPointID) bool {
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

func (s *endPointIDSet) add(id domain.RelationEndPointID) bool {
	if s.contains(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

func (s *endPointIDSet) remove(id domain.RelationEndPointID) bool {
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

func (s *endPointIDSet) slice() []domain.RelationEndPointID {
	out := make([]domain.RelationEndPointID, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *endPointIDSet) write(w *serialization.FlatWriter) {
	w.AddInt(len(s.ids))
	for _, id := range s.ids {
		w.AddValue(id)
	}
}

func readEndPointIDSet(r *serialization.FlatReader) (endPointIDSet, error) {
	var s endPointIDSet
	n, err := r.GetInt()
	if err != nil {
		return s, err
	}
	for i := 0; i < n; i++ {
		id, err := serialization.GetValue[domain.RelationEndPointID](r)
		if err != nil {
			return s, err
		}
		s.ids = append(s.ids, id)
	}
	return s, nil
}
