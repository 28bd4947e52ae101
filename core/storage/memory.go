package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/sushant-115/gojorel/core/domain"
)

// MemoryStore keeps records in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[domain.ObjectID]Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(records ...Record) *MemoryStore {
	s := &MemoryStore{records: make(map[domain.ObjectID]Record, len(records))}
	for _, r := range records {
		s.records[r.ID] = r.Clone()
	}
	return s
}

func (s *MemoryStore) LoadRecord(ctx context.Context, id domain.ObjectID) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("object %s: %w", id, domain.ErrObjectNotFound)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) LoadRelated(ctx context.Context, classID, property string, target domain.ObjectID) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var related []Record
	for id, r := range s.records {
		if id.ClassID == classID && r.ForeignKey(property) == target {
			related = append(related, r.Clone())
		}
	}
	sortRecords(related)
	return related, nil
}

// Save validates every change before applying any of them.
func (s *MemoryStore) Save(ctx context.Context, changes []Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, change := range changes {
		if change.Record.ID.IsNil() {
			return fmt.Errorf("cannot save a record without id: %w", domain.ErrInvalidOperation)
		}
		if _, ok := s.records[change.Record.ID]; change.Deleted && !ok {
			return fmt.Errorf("cannot delete object %s: %w", change.Record.ID, domain.ErrObjectNotFound)
		}
	}
	for _, change := range changes {
		if change.Deleted {
			delete(s.records, change.Record.ID)
			continue
		}
		s.records[change.Record.ID] = change.Record.Clone()
	}
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Close() error { return nil }
