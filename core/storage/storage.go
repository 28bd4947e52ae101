// Package storage is the backing store a transaction loads objects from and
// saves committed changes to. Only relation data is stored: an object record
// holds the foreign keys of the object's real relation end-points.
package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sushant-115/gojorel/core/domain"
	"golang.org/x/time/rate"
)

// Record is the persisted state of one object.
type Record struct {
	ID domain.ObjectID `json:"id"`
	// ForeignKeys maps a real relation property to the referenced object.
	// Null references are omitted.
	ForeignKeys map[string]domain.ObjectID `json:"foreign_keys,omitempty"`
}

// ForeignKey returns the object referenced through property, or the null id.
func (r Record) ForeignKey(property string) domain.ObjectID {
	return r.ForeignKeys[property]
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := Record{ID: r.ID}
	for property, id := range r.ForeignKeys {
		if id.IsNil() {
			continue
		}
		if out.ForeignKeys == nil {
			out.ForeignKeys = make(map[string]domain.ObjectID, len(r.ForeignKeys))
		}
		out.ForeignKeys[property] = id
	}
	return out
}

// Change is one entry of a commit: an upsert of Record, or its removal.
type Change struct {
	Record  Record
	Deleted bool
}

// Store is implemented by every backing store.
type Store interface {
	// LoadRecord returns the record of id, or an error wrapping
	// domain.ErrObjectNotFound.
	LoadRecord(ctx context.Context, id domain.ObjectID) (Record, error)
	// LoadRelated returns the records of class classID whose foreign key
	// property references target, ordered by object id.
	LoadRelated(ctx context.Context, classID, property string, target domain.ObjectID) ([]Record, error)
	// Save applies all changes atomically.
	Save(ctx context.Context, changes []Change) error
	Close() error
}

// Config selects and tunes the backing store.
type Config struct {
	// Driver is "memory" or "bolt".
	Driver string `yaml:"driver"`
	// Path is the bolt database file.
	Path string `yaml:"path"`
	// Timeout bounds the wait for the bolt file lock.
	Timeout time.Duration `yaml:"timeout"`
	// LoadRateLimit caps loads per second. Zero disables throttling.
	LoadRateLimit float64 `yaml:"load_rate_limit"`
	// LoadBurst is the number of loads allowed at once when throttled.
	LoadBurst int `yaml:"load_burst"`
}

// Open creates the store described by cfg.
func Open(cfg Config) (Store, error) {
	var store Store
	switch cfg.Driver {
	case "memory", "":
		store = NewMemoryStore()
	case "bolt":
		boltStore, err := OpenBoltStore(cfg.Path, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		store = boltStore
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if cfg.LoadRateLimit > 0 {
		store = NewThrottledStore(store, rate.Limit(cfg.LoadRateLimit), cfg.LoadBurst)
	}
	return store, nil
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID.String() < records[j].ID.String()
	})
}
