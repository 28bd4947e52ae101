package transaction

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/storage"
	internaltelemetry "github.com/sushant-115/gojorel/internal/telemetry"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- Test Helpers ---

// sumOf adds up every data point of an int64 sum instrument.
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

// --- Test Cases ---

func TestLazyLoadCollection(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	o1 := f.seed("Order", "Customer", customer)
	o2 := f.seed("Order", "Customer", customer)
	tx := f.begin()

	items, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, sorted(o1, o2), items)
	assert.ElementsMatch(t, []domain.ObjectID{customer, o1, o2}, tx.LoadedObjects())

	related, err := tx.GetRelatedObject(o1, "Customer")
	require.NoError(t, err)
	assert.Equal(t, customer, related)

	synchronized, err := tx.IsSynchronized(o1, "Customer")
	require.NoError(t, err)
	assert.True(t, synchronized)
	assert.Empty(t, tx.GetUnsynchronizedEndPoints())
	assert.False(t, tx.HasChanged())

	state, err := tx.ObjectState(o1)
	require.NoError(t, err)
	assert.Equal(t, ObjectStateUnchanged, state)
}

func TestRealEndPointLoadsOppositeOnDemand(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	order := f.seed("Order", "Customer", customer)
	tx := f.begin()

	require.NoError(t, tx.GetObject(order))
	_, loaded := tx.GetRelationEndPointWithoutLoading(endPointID(customer, "Orders"))
	assert.True(t, loaded, "the foreign key registers the order with an incomplete collection")

	synchronized, err := tx.IsSynchronized(order, "Customer")
	require.NoError(t, err)
	assert.True(t, synchronized)

	items, err := tx.GetOriginalRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{order}, items)
}

func TestMissingObject(t *testing.T) {
	f := newFixture(t)
	tx := f.begin()

	err := tx.GetObject(domain.NewObjectID("Order"))
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)

	_, err = tx.GetRelatedObject(f.seed("Order"), "Nope")
	assert.ErrorIs(t, err, domain.ErrUnknownProperty)

	_, err = tx.GetRelatedObject(f.seed("Customer"), "Orders")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestMoveOrderAndCommit(t *testing.T) {
	f := newFixture(t)
	c1 := f.seed("Customer")
	c2 := f.seed("Customer")
	o1 := f.seed("Order", "Customer", c1)
	o2 := f.seed("Order", "Customer", c1)
	tx := f.begin()

	require.NoError(t, tx.SetRelatedObject(o1, "Customer", c2))

	items, err := tx.GetRelatedObjects(c1, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{o2}, items)
	items, err = tx.GetRelatedObjects(c2, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{o1}, items)

	original, err := tx.GetOriginalRelatedObject(o1, "Customer")
	require.NoError(t, err)
	assert.Equal(t, c1, original)

	state, err := tx.ObjectState(o1)
	require.NoError(t, err)
	assert.Equal(t, ObjectStateChanged, state)
	assert.True(t, tx.HasChanged())
	assert.Equal(t, c1, f.stored(o1, "Customer"), "nothing is saved before commit")

	require.NoError(t, tx.Commit())
	assert.False(t, tx.HasChanged())
	assert.Equal(t, c2, f.stored(o1, "Customer"))
	assert.Equal(t, c1, f.stored(o2, "Customer"))

	original, err = tx.GetOriginalRelatedObject(o1, "Customer")
	require.NoError(t, err)
	assert.Equal(t, c2, original)

	fresh := f.begin()
	items, err = fresh.GetRelatedObjects(c2, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{o1}, items)
}

func TestRollback(t *testing.T) {
	f := newFixture(t)
	c1 := f.seed("Customer")
	c2 := f.seed("Customer")
	o1 := f.seed("Order", "Customer", c1)
	tx := f.begin()

	require.NoError(t, tx.SetRelatedObject(o1, "Customer", c2))
	created, err := tx.NewObject("Order")
	require.NoError(t, err)
	require.NoError(t, tx.AddRelatedObject(c1, "Orders", created))

	require.NoError(t, tx.Rollback())
	assert.False(t, tx.HasChanged())

	related, err := tx.GetRelatedObject(o1, "Customer")
	require.NoError(t, err)
	assert.Equal(t, c1, related)
	items, err := tx.GetRelatedObjects(c1, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{o1}, items)
	items, err = tx.GetRelatedObjects(c2, "Orders")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = tx.ObjectState(created)
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func TestCollectionOperations(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	o1 := f.seed("Order", "Customer", customer)
	o2 := f.seed("Order")
	tx := f.begin()

	created, err := tx.NewObject("Order")
	require.NoError(t, err)
	state, err := tx.ObjectState(created)
	require.NoError(t, err)
	assert.Equal(t, ObjectStateNew, state)

	require.NoError(t, tx.AddRelatedObject(customer, "Orders", created))
	require.NoError(t, tx.InsertRelatedObject(customer, "Orders", 0, o2))

	items, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{o2, o1, created}, items)

	related, err := tx.GetRelatedObject(created, "Customer")
	require.NoError(t, err)
	assert.Equal(t, customer, related)

	require.NoError(t, tx.RemoveRelatedObject(customer, "Orders", o1))
	related, err = tx.GetRelatedObject(o1, "Customer")
	require.NoError(t, err)
	assert.True(t, related.IsNil())

	err = tx.RemoveRelatedObject(customer, "Orders", o1)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	err = tx.InsertRelatedObject(customer, "Orders", -1, o1)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	err = tx.AddRelatedObject(customer, "Orders", domain.NilObjectID)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	require.NoError(t, tx.Commit())
	assert.Equal(t, customer, f.stored(created, "Customer"))
	assert.Equal(t, customer, f.stored(o2, "Customer"))
	assert.True(t, f.stored(o1, "Customer").IsNil())
}

func TestOneToOneRelation(t *testing.T) {
	f := newFixture(t)
	order := f.seed("Order")
	ticket := f.seed("OrderTicket", "Order", order)
	tx := f.begin()

	related, err := tx.GetRelatedObject(order, "OrderTicket")
	require.NoError(t, err)
	assert.Equal(t, ticket, related)

	replacement, err := tx.NewObject("OrderTicket")
	require.NoError(t, err)
	require.NoError(t, tx.SetRelatedObject(order, "OrderTicket", replacement))

	related, err = tx.GetRelatedObject(ticket, "Order")
	require.NoError(t, err)
	assert.True(t, related.IsNil())
	related, err = tx.GetRelatedObject(replacement, "Order")
	require.NoError(t, err)
	assert.Equal(t, order, related)

	require.NoError(t, tx.Commit())
	assert.True(t, f.stored(ticket, "Order").IsNil())
	assert.Equal(t, order, f.stored(replacement, "Order"))
}

func TestUnidirectionalRelation(t *testing.T) {
	f := newFixture(t)
	client := f.seed("Client")
	tx := f.begin()

	location, err := tx.NewObject("Location")
	require.NoError(t, err)
	require.NoError(t, tx.SetRelatedObject(location, "Client", client))

	synchronized, err := tx.IsSynchronized(location, "Client")
	require.NoError(t, err)
	assert.True(t, synchronized)

	require.NoError(t, tx.Commit())
	assert.Equal(t, client, f.stored(location, "Client"))
}

func TestDeleteWithUnsynchronizedOrder(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	o1 := f.seed("Order", "Customer", customer)
	o2 := f.seed("Order", "Customer", customer)
	tx := f.begin()

	_, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)

	// Stored after the collection was loaded.
	stale := f.seed("Order", "Customer", customer)
	require.NoError(t, tx.GetObject(stale))
	assert.ElementsMatch(t,
		[]domain.RelationEndPointID{endPointID(customer, "Orders"), endPointID(stale, "Customer")},
		tx.GetUnsynchronizedEndPoints())

	err = tx.SetRelatedObject(stale, "Customer", domain.NilObjectID)
	var unsynchronized *domain.UnsynchronizedError
	require.ErrorAs(t, err, &unsynchronized)

	err = tx.Delete(customer)
	require.Error(t, err)
	require.Len(t, multierr.Errors(errors.Unwrap(err)), 1)
	assert.ErrorAs(t, err, &unsynchronized)

	state, err := tx.ObjectState(customer)
	require.NoError(t, err)
	assert.Equal(t, ObjectStateDeleted, state)
	for _, order := range []domain.ObjectID{o1, o2} {
		related, err := tx.GetRelatedObject(order, "Customer")
		require.NoError(t, err)
		assert.True(t, related.IsNil())
	}
	related, err := tx.GetRelatedObject(stale, "Customer")
	require.NoError(t, err)
	assert.Equal(t, customer, related)

	err = tx.GetObject(customer)
	assert.ErrorIs(t, err, domain.ErrObjectDeleted)

	err = tx.Commit()
	assert.ErrorIs(t, err, domain.ErrObjectDeleted)
	assert.True(t, f.exists(customer))

	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.SynchronizeRelation(stale, "Customer"))
	assert.Empty(t, tx.GetUnsynchronizedEndPoints())

	items, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.ObjectID{o1, o2, stale}, items)

	require.NoError(t, tx.Delete(customer))
	require.NoError(t, tx.Commit())
	assert.False(t, f.exists(customer))
	for _, order := range []domain.ObjectID{o1, o2, stale} {
		assert.True(t, f.stored(order, "Customer").IsNil())
	}
	_, err = tx.ObjectState(customer)
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func TestDeleteNewObject(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	tx := f.begin()

	created, err := tx.NewObject("Order")
	require.NoError(t, err)
	require.NoError(t, tx.SetRelatedObject(created, "Customer", customer))
	require.NoError(t, tx.Delete(created))

	items, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, tx.Commit())
	assert.False(t, f.exists(created))
	assert.Equal(t, 1, f.store.Len())
}

func TestSynchronizeVirtualEndPoint(t *testing.T) {
	f := newFixture(t)
	c1 := f.seed("Customer")
	c2 := f.seed("Customer")
	o1 := f.seed("Order", "Customer", c1)
	tx := f.begin()

	require.NoError(t, tx.GetObject(o1))
	_, err := tx.GetRelatedObjects(c1, "Orders")
	require.NoError(t, err)

	// o1 moves to c2 behind the transaction's back, and c2's orders are
	// loaded with it while o1 still points at c1 in memory.
	require.NoError(t, f.store.Save(f.ctx, []storage.Change{{Record: storage.Record{ID: o1, ForeignKeys: map[string]domain.ObjectID{"Customer": c2}}}}))
	items, err := tx.GetRelatedObjects(c2, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{o1}, items)

	synchronized, err := tx.IsSynchronized(c2, "Orders")
	require.NoError(t, err)
	assert.False(t, synchronized)

	require.NoError(t, tx.SynchronizeRelation(c2, "Orders"))
	items, err = tx.GetRelatedObjects(c2, "Orders")
	require.NoError(t, err)
	assert.Empty(t, items)
	synchronized, err = tx.IsSynchronized(c2, "Orders")
	require.NoError(t, err)
	assert.True(t, synchronized)
}

// TestSynchronizeOrderIntoChangedCollection stores an order for a customer
// whose loaded orders were already edited, synchronizes it, and commits.
func TestSynchronizeOrderIntoChangedCollection(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	o1 := f.seed("Order", "Customer", customer)
	tx := f.begin()

	items, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	require.Equal(t, []domain.ObjectID{o1}, items)

	stale := f.seed("Order", "Customer", customer)
	require.NoError(t, tx.GetObject(stale))
	require.NoError(t, tx.RemoveRelatedObject(customer, "Orders", o1))
	require.NoError(t, tx.SynchronizeRelation(stale, "Customer"))
	assert.Empty(t, tx.GetUnsynchronizedEndPoints())

	items, err = tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{stale}, items)

	require.NoError(t, tx.Commit())
	items, err = tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{stale}, items)
	assert.True(t, f.stored(o1, "Customer").IsNil())
	assert.Equal(t, customer, f.stored(stale, "Customer"))

	fresh := f.begin()
	items, err = fresh.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{stale}, items)

	require.NoError(t, tx.SetRelatedObject(stale, "Customer", domain.NilObjectID))
	items, err = tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Empty(t, items)
	require.NoError(t, tx.Commit())
	assert.True(t, f.stored(stale, "Customer").IsNil())
}

func TestMandatoryRelationBlocksCommit(t *testing.T) {
	f := newFixture(t)
	order := f.seed("Order")
	tx := f.begin()

	item, err := tx.NewObject("OrderItem")
	require.NoError(t, err)

	err = tx.Commit()
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	assert.False(t, f.exists(item))

	require.NoError(t, tx.AddRelatedObject(order, "Items", item))
	require.NoError(t, tx.Validate())
	require.NoError(t, tx.Commit())
	assert.Equal(t, order, f.stored(item, "Order"))
}

func TestUnloadVirtualEndPoint(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	o1 := f.seed("Order", "Customer", customer)
	tx := f.begin()

	_, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	o2 := f.seed("Order", "Customer", customer)

	require.NoError(t, tx.UnloadVirtualEndPoint(customer, "Orders"))
	items, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, sorted(o1, o2), items)

	require.NoError(t, tx.RemoveRelatedObject(customer, "Orders", o2))
	err = tx.UnloadVirtualEndPoint(customer, "Orders")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	err = tx.UnloadVirtualEndPoint(o1, "Customer")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestUnloadData(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	o1 := f.seed("Order", "Customer", customer)
	o2 := f.seed("Order", "Customer", customer)
	tx := f.begin()

	_, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)

	require.NoError(t, tx.UnloadData(o1))
	assert.NotContains(t, tx.LoadedObjects(), o1)
	_, loaded := tx.GetRelationEndPointWithoutLoading(endPointID(o1, "Customer"))
	assert.False(t, loaded)

	items, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, sorted(o1, o2), items)
	assert.Contains(t, tx.LoadedObjects(), o1)

	require.NoError(t, tx.SetRelatedObject(o2, "Customer", domain.NilObjectID))
	err = tx.UnloadData(o2)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	err = tx.UnloadData(o1)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation, "the collection that loaded o1 has changed")
}

func TestChangeListenerVeto(t *testing.T) {
	f := newFixture(t)
	c1 := f.seed("Customer")
	c2 := f.seed("Customer")
	order := f.seed("Order", "Customer", c1)
	vetoed := errors.New("vetoed")
	listener := &vetoListener{veto: vetoed}
	tx := f.begin(WithChangeListener(listener))

	err := tx.SetRelatedObject(order, "Customer", c2)
	assert.ErrorIs(t, err, vetoed)
	assert.False(t, tx.HasChanged())
	assert.Zero(t, listener.changed)

	listener.veto = nil
	require.NoError(t, tx.SetRelatedObject(order, "Customer", c2))
	assert.Equal(t, 3, listener.changed)
}

func TestDiscard(t *testing.T) {
	f := newFixture(t)
	order := f.seed("Order")
	tx := f.begin()
	require.NoError(t, tx.GetObject(order))

	tx.Discard()
	assert.Equal(t, TxnStateDiscarded, tx.State())

	assert.ErrorIs(t, tx.GetObject(order), domain.ErrInvalidOperation)
	assert.ErrorIs(t, tx.Commit(), domain.ErrInvalidOperation)
	assert.ErrorIs(t, tx.Rollback(), domain.ErrInvalidOperation)
	_, err := tx.NewObject("Order")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	_, err = tx.Serialize()
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestStoreFailureLeavesEndPointIncomplete(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	order := f.seed("Order", "Customer", customer)
	tx := f.begin()
	require.NoError(t, tx.GetObject(customer))

	broken := errors.New("disk unavailable")
	f.store.err = broken
	_, err := tx.GetRelatedObjects(customer, "Orders")
	assert.ErrorIs(t, err, broken)

	f.store.err = nil
	items, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{order}, items)
}

func TestSerializeRoundTrip(t *testing.T) {
	f := newFixture(t)
	c1 := f.seed("Customer")
	c2 := f.seed("Customer")
	o1 := f.seed("Order", "Customer", c1)
	o2 := f.seed("Order", "Customer", c1)
	tx := f.begin()

	require.NoError(t, tx.SetRelatedObject(o1, "Customer", c2))
	created, err := tx.NewObject("Order")
	require.NoError(t, err)
	require.NoError(t, tx.AddRelatedObject(c1, "Orders", created))

	data, err := tx.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(f.ctx, data, f.store, f.mapping)
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), restored.ID())
	assert.Equal(t, tx.LoadedObjects(), restored.LoadedObjects())
	assert.True(t, restored.HasChanged())

	items, err := restored.GetRelatedObjects(c1, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{o2, created}, items)
	items, err = restored.GetOriginalRelatedObjects(c1, "Orders")
	require.NoError(t, err)
	assert.Equal(t, sorted(o1, o2), items)
	state, err := restored.ObjectState(created)
	require.NoError(t, err)
	assert.Equal(t, ObjectStateNew, state)

	// Lazy loads go through the restored transaction.
	ticket, err := restored.GetRelatedObject(o2, "OrderTicket")
	require.NoError(t, err)
	assert.True(t, ticket.IsNil())

	require.NoError(t, restored.Commit())
	assert.Equal(t, c2, f.stored(o1, "Customer"))
	assert.Equal(t, c1, f.stored(created, "Customer"))
	assert.True(t, tx.HasChanged(), "the serialized transaction is independent")
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	f.seed("Order", "Customer", customer)
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := internaltelemetry.NewRelationMetrics(provider.Meter("transaction-test"))
	require.NoError(t, err)
	tx := f.begin(WithMetrics(metrics))

	_, err = tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, int64(2), sumOf(t, reader, "gojorel.relation.lazy_loads_total"))
	assert.Equal(t, int64(2), sumOf(t, reader, "gojorel.relation.registered_endpoints"))

	err = tx.RemoveRelatedObject(customer, "Orders", domain.NewObjectID("Order"))
	require.Error(t, err)
	assert.Equal(t, int64(1), sumOf(t, reader, "gojorel.relation.commands_total"))
	assert.Equal(t, int64(1), sumOf(t, reader, "gojorel.relation.command_failures_total"))

	tx.Discard()
	assert.Zero(t, sumOf(t, reader, "gojorel.relation.registered_endpoints"))
}

func TestLogEntriesCarryTransactionAndEndPoint(t *testing.T) {
	f := newFixture(t)
	customer := f.seed("Customer")
	core, logs := observer.New(zapcore.DebugLevel)
	tx := f.begin(WithLogger(zap.New(core)))

	_, err := tx.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)

	loaded := logs.FilterMessage("relation loaded").All()
	require.Len(t, loaded, 1)
	fields := loaded[0].ContextMap()
	assert.Equal(t, tx.ID().String(), fields["transaction_id"])
	assert.Equal(t, endPointID(customer, "Orders").String(), fields["endpoint"])
	for _, entry := range logs.All() {
		assert.Equal(t, tx.ID().String(), entry.ContextMap()["transaction_id"], entry.Message)
	}
}

func TestBoltBackedCommit(t *testing.T) {
	f := newFixture(t)
	store, err := storage.OpenBoltStore(filepath.Join(t.TempDir(), "relations.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tx := Begin(f.ctx, store, f.mapping)
	customer, err := tx.NewObject("Customer")
	require.NoError(t, err)
	order, err := tx.NewObject("Order")
	require.NoError(t, err)
	require.NoError(t, tx.AddRelatedObject(customer, "Orders", order))
	require.NoError(t, tx.Commit())

	fresh := Begin(f.ctx, store, f.mapping)
	items, err := fresh.GetRelatedObjects(customer, "Orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.ObjectID{order}, items)
}
