package transaction

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/storage"
	"go.uber.org/zap/zaptest"
)

// --- Test Helpers ---

const testMapping = `
relations:
  - id: Order:Customer
    endpoints:
      - {class: Order, property: Customer}
      - {class: Customer, property: Orders, cardinality: many, virtual: true}
  - id: OrderTicket:Order
    endpoints:
      - {class: OrderTicket, property: Order}
      - {class: Order, property: OrderTicket, virtual: true}
  - id: OrderItem:Order
    endpoints:
      - {class: OrderItem, property: Order, mandatory: true}
      - {class: Order, property: Items, cardinality: many, virtual: true}
  - id: Location:Client
    endpoints:
      - {class: Location, property: Client}
      - {class: Client, cardinality: many, virtual: true}
`

// failingStore fails loads while err is set.
type failingStore struct {
	*storage.MemoryStore
	err error
}

func (s *failingStore) LoadRecord(ctx context.Context, id domain.ObjectID) (storage.Record, error) {
	if s.err != nil {
		return storage.Record{}, s.err
	}
	return s.MemoryStore.LoadRecord(ctx, id)
}

func (s *failingStore) LoadRelated(ctx context.Context, classID, property string, target domain.ObjectID) ([]storage.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.MemoryStore.LoadRelated(ctx, classID, property, target)
}

// vetoListener rejects every change while veto is set.
type vetoListener struct {
	veto    error
	changed int
}

func (l *vetoListener) RelationChanging(domain.RelationEndPointID, domain.ObjectID, domain.ObjectID) error {
	return l.veto
}

func (l *vetoListener) RelationChanged(domain.RelationEndPointID, domain.ObjectID, domain.ObjectID) {
	l.changed++
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	mapping *mapping.Configuration
	store   *failingStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := mapping.LoadYAML(strings.NewReader(testMapping))
	require.NoError(t, err)
	return &fixture{
		t:       t,
		ctx:     context.Background(),
		mapping: cfg,
		store:   &failingStore{MemoryStore: storage.NewMemoryStore()},
	}
}

func (f *fixture) begin(opts ...Option) *Transaction {
	return Begin(f.ctx, f.store, f.mapping, append([]Option{WithLogger(zaptest.NewLogger(f.t))}, opts...)...)
}

// seed saves an object with the given foreign keys (property, target pairs)
// directly to the store.
func (f *fixture) seed(classID string, foreignKeys ...any) domain.ObjectID {
	f.t.Helper()
	r := storage.Record{ID: domain.NewObjectID(classID)}
	for i := 0; i+1 < len(foreignKeys); i += 2 {
		if r.ForeignKeys == nil {
			r.ForeignKeys = make(map[string]domain.ObjectID)
		}
		r.ForeignKeys[foreignKeys[i].(string)] = foreignKeys[i+1].(domain.ObjectID)
	}
	require.NoError(f.t, f.store.Save(f.ctx, []storage.Change{{Record: r}}))
	return r.ID
}

// stored returns the foreign key as persisted.
func (f *fixture) stored(id domain.ObjectID, property string) domain.ObjectID {
	f.t.Helper()
	r, err := f.store.MemoryStore.LoadRecord(f.ctx, id)
	require.NoError(f.t, err)
	return r.ForeignKey(property)
}

func (f *fixture) exists(id domain.ObjectID) bool {
	_, err := f.store.MemoryStore.LoadRecord(f.ctx, id)
	return !errors.Is(err, domain.ErrObjectNotFound)
}

func sorted(ids ...domain.ObjectID) []domain.ObjectID {
	out := append([]domain.ObjectID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func endPointID(id domain.ObjectID, property string) domain.RelationEndPointID {
	return domain.NewRelationEndPointID(id, property)
}
