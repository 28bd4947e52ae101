package datakeeper

import (
	"sort"

	"github.com/sushant-115/gojorel/core/domain"
)

// orderedSet is an insertion-ordered set of object ids.
type orderedSet struct {
	items []domain.ObjectID
	index map[domain.ObjectID]int
}

func newOrderedSet(ids ...domain.ObjectID) *orderedSet {
	s := &orderedSet{index: make(map[domain.ObjectID]int, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *orderedSet) len() int { return len(s.items) }

func (s *orderedSet) contains(id domain.ObjectID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *orderedSet) add(id domain.ObjectID) bool {
	if s.contains(id) {
		return false
	}
	s.index[id] = len(s.items)
	s.items = append(s.items, id)
	return true
}

func (s *orderedSet) insert(at int, id domain.ObjectID) bool {
	if s.contains(id) {
		return false
	}
	s.items = append(s.items, domain.NilObjectID)
	copy(s.items[at+1:], s.items[at:])
	s.items[at] = id
	s.reindex(at)
	return true
}

func (s *orderedSet) remove(id domain.ObjectID) bool {
	at, ok := s.index[id]
	if !ok {
		return false
	}
	s.items = append(s.items[:at], s.items[at+1:]...)
	delete(s.index, id)
	s.reindex(at)
	return true
}

func (s *orderedSet) replaceAt(at int, id domain.ObjectID) {
	delete(s.index, s.items[at])
	s.items[at] = id
	s.index[id] = at
}

func (s *orderedSet) clear() {
	s.items = nil
	s.index = make(map[domain.ObjectID]int)
}

func (s *orderedSet) sort(less func(a, b domain.ObjectID) bool) {
	sort.SliceStable(s.items, func(i, j int) bool { return less(s.items[i], s.items[j]) })
	s.reindex(0)
}

func (s *orderedSet) reindex(from int) {
	for i := from; i < len(s.items); i++ {
		s.index[s.items[i]] = i
	}
}

func (s *orderedSet) slice() []domain.ObjectID {
	out := make([]domain.ObjectID, len(s.items))
	copy(out, s.items)
	return out
}

func (s *orderedSet) clone() *orderedSet {
	return newOrderedSet(s.items...)
}

// setEquals ignores order.
func (s *orderedSet) setEquals(other *orderedSet) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for _, id := range s.items {
		if !other.contains(id) {
			return false
		}
	}
	return true
}
