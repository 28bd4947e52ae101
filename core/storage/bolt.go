package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/sushant-115/gojorel/core/domain"
)

var (
	recordsBucket = []byte("records")
	// foreignKeyBucket indexes records by the object they reference:
	// class \x00 property \x00 target \x00 id -> nil.
	foreignKeyBucket = []byte("foreign_keys")
)

const indexSeparator = 0

// BoltStore persists records in a bolt database. Records are JSON encoded
// and indexed by foreign key so LoadRelated is a prefix scan.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database at path. Timeout bounds the
// wait for the file lock; zero waits forever.
func OpenBoltStore(path string, timeout time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store at %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{recordsBucket, foreignKeyBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) LoadRecord(ctx context.Context, id domain.ObjectID) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	var r Record
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		r, err = getRecord(tx.Bucket(recordsBucket), id)
		return err
	})
	return r, err
}

func (s *BoltStore) LoadRelated(ctx context.Context, classID, property string, target domain.ObjectID) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := indexPrefix(classID, property, target)
	var related []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		c := tx.Bucket(foreignKeyBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			id, err := domain.ParseObjectID(string(k[len(prefix):]))
			if err != nil {
				return fmt.Errorf("corrupt foreign key index entry %q: %w", k, err)
			}
			r, err := getRecord(records, id)
			if err != nil {
				return err
			}
			related = append(related, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRecords(related)
	return related, nil
}

// Save applies all changes in one bolt transaction.
func (s *BoltStore) Save(ctx context.Context, changes []Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		index := tx.Bucket(foreignKeyBucket)
		for _, change := range changes {
			id := change.Record.ID
			if id.IsNil() {
				return fmt.Errorf("cannot save a record without id: %w", domain.ErrInvalidOperation)
			}
			previous, err := getRecord(records, id)
			switch {
			case err == nil:
				if err := deleteIndexEntries(index, previous); err != nil {
					return err
				}
			case !errors.Is(err, domain.ErrObjectNotFound):
				return err
			case change.Deleted:
				return fmt.Errorf("cannot delete object %s: %w", id, domain.ErrObjectNotFound)
			}

			if change.Deleted {
				if err := records.Delete([]byte(id.String())); err != nil {
					return err
				}
				continue
			}
			data, err := json.Marshal(change.Record.Clone())
			if err != nil {
				return fmt.Errorf("failed to encode record %s: %w", id, err)
			}
			if err := records.Put([]byte(id.String()), data); err != nil {
				return err
			}
			if err := putIndexEntries(index, change.Record); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }

func getRecord(records *bolt.Bucket, id domain.ObjectID) (Record, error) {
	data := records.Get([]byte(id.String()))
	if data == nil {
		return Record{}, fmt.Errorf("object %s: %w", id, domain.ErrObjectNotFound)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return r, nil
}

func indexPrefix(classID, property string, target domain.ObjectID) []byte {
	var b bytes.Buffer
	b.WriteString(classID)
	b.WriteByte(indexSeparator)
	b.WriteString(property)
	b.WriteByte(indexSeparator)
	b.WriteString(target.String())
	b.WriteByte(indexSeparator)
	return b.Bytes()
}

func indexKey(r Record, property string, target domain.ObjectID) []byte {
	return append(indexPrefix(r.ID.ClassID, property, target), r.ID.String()...)
}

func putIndexEntries(index *bolt.Bucket, r Record) error {
	for property, target := range r.ForeignKeys {
		if target.IsNil() {
			continue
		}
		if err := index.Put(indexKey(r, property, target), []byte{}); err != nil {
			return err
		}
	}
	return nil
}

func deleteIndexEntries(index *bolt.Bucket, r Record) error {
	for property, target := range r.ForeignKeys {
		if err := index.Delete(indexKey(r, property, target)); err != nil {
			return err
		}
	}
	return nil
}
