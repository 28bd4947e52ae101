// Package transaction implements the unit of work that owns relation
// end-points. It loads objects and relations lazily from a storage.Store,
// tracks changes through the end-points' commands and saves them on Commit.
//
// A Transaction is not safe for concurrent use.
package transaction

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/relation/endpoints"
	"github.com/sushant-115/gojorel/core/serialization"
	"github.com/sushant-115/gojorel/core/storage"
	internaltelemetry "github.com/sushant-115/gojorel/internal/telemetry"
	"github.com/sushant-115/gojorel/pkg/logger"
	"go.uber.org/zap"
)

// TransactionState is the lifecycle state of a transaction.
type TransactionState int

const (
	TxnStateActive    TransactionState = iota // Operations are accepted
	TxnStateDiscarded                         // Discard was called; every operation fails
)

func (s TransactionState) String() string {
	switch s {
	case TxnStateActive:
		return "Active"
	case TxnStateDiscarded:
		return "Discarded"
	default:
		return fmt.Sprintf("TransactionState(%d)", int(s))
	}
}

// ObjectState is the state of an object within a transaction.
type ObjectState int

const (
	ObjectStateNew ObjectState = iota
	ObjectStateUnchanged
	ObjectStateChanged
	ObjectStateDeleted
)

func (s ObjectState) String() string {
	switch s {
	case ObjectStateNew:
		return "New"
	case ObjectStateUnchanged:
		return "Unchanged"
	case ObjectStateChanged:
		return "Changed"
	case ObjectStateDeleted:
		return "Deleted"
	default:
		return fmt.Sprintf("ObjectState(%d)", int(s))
	}
}

// dataContainer is the transaction's record of one loaded or new object.
// Changed is derived from the object's real end-points and never stored.
type dataContainer struct {
	id      domain.ObjectID
	isNew   bool
	deleted bool
}

func (c *dataContainer) SerializeIntoFlatStructure(w *serialization.FlatWriter) {
	w.AddValue(c.id)
	w.AddBool(c.isNew)
	w.AddBool(c.deleted)
}

func readDataContainer(r *serialization.FlatReader) (*dataContainer, error) {
	c := &dataContainer{}
	var err error
	if c.id, err = serialization.GetValue[domain.ObjectID](r); err != nil {
		return nil, err
	}
	if c.isNew, err = r.GetBool(); err != nil {
		return nil, err
	}
	if c.deleted, err = r.GetBool(); err != nil {
		return nil, err
	}
	return c, nil
}

// Option configures a Transaction.
type Option func(*Transaction)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(tx *Transaction) {
		if logger != nil {
			tx.logger = logger
		}
	}
}

// WithMetrics sets the metric instruments. The default records nothing.
func WithMetrics(metrics *internaltelemetry.RelationMetrics) Option {
	return func(tx *Transaction) {
		if metrics != nil {
			tx.metrics = metrics
		}
	}
}

// WithChangeListener adds a listener that is notified around every relation
// change and may veto it.
func WithChangeListener(listener endpoints.ChangeListener) Option {
	return func(tx *Transaction) { tx.changeListeners = append(tx.changeListeners, listener) }
}

// Transaction is an in-memory unit of work over a storage.Store.
type Transaction struct {
	id      uuid.UUID
	ctx     context.Context
	state   TransactionState
	store   storage.Store
	mapping *mapping.Configuration
	logger  *zap.Logger
	metrics *internaltelemetry.RelationMetrics

	changeListeners []endpoints.ChangeListener

	objects   map[domain.ObjectID]*dataContainer
	endPoints map[domain.RelationEndPointID]endpoints.RelationEndPoint
	// dirty holds the end-points whose data differs from the original data.
	dirty map[domain.RelationEndPointID]struct{}
}

// Begin starts a transaction. ctx is used for every store round-trip the
// transaction makes, including lazy loads.
func Begin(ctx context.Context, store storage.Store, cfg *mapping.Configuration, opts ...Option) *Transaction {
	tx := newTransaction(ctx, uuid.New(), store, cfg, opts)
	tx.logger.Debug("transaction started")
	return tx
}

func newTransaction(ctx context.Context, id uuid.UUID, store storage.Store, cfg *mapping.Configuration, opts []Option) *Transaction {
	tx := &Transaction{
		id:        id,
		ctx:       ctx,
		store:     store,
		mapping:   cfg,
		logger:    zap.NewNop(),
		metrics:   internaltelemetry.NewNoopRelationMetrics(),
		objects:   make(map[domain.ObjectID]*dataContainer),
		endPoints: make(map[domain.RelationEndPointID]endpoints.RelationEndPoint),
		dirty:     make(map[domain.RelationEndPointID]struct{}),
	}
	for _, opt := range opts {
		opt(tx)
	}
	tx.logger = logger.ForTransaction(tx.logger, id)
	return tx
}

// ID returns the transaction id.
func (tx *Transaction) ID() uuid.UUID { return tx.id }

// State returns the lifecycle state.
func (tx *Transaction) State() TransactionState { return tx.state }

// Discard ends the transaction without saving. Every later operation fails.
func (tx *Transaction) Discard() {
	if tx.state == TxnStateDiscarded {
		return
	}
	tx.metrics.RegisteredEndPointsUpDownCounter.Add(tx.ctx, -int64(len(tx.endPoints)))
	tx.state = TxnStateDiscarded
	tx.logger.Debug("transaction discarded", zap.Int("endpoints", len(tx.endPoints)))
}

func (tx *Transaction) checkActive() error {
	if tx.state != TxnStateActive {
		return domain.InvalidOperationf("transaction %s has been discarded", tx.id)
	}
	return nil
}

// ObjectState returns the state of a loaded or new object. Objects that are
// not part of the transaction yield ErrObjectNotFound.
func (tx *Transaction) ObjectState(id domain.ObjectID) (ObjectState, error) {
	container, ok := tx.objects[id]
	if !ok {
		return 0, fmt.Errorf("object %s is not loaded: %w", id, domain.ErrObjectNotFound)
	}
	switch {
	case container.deleted:
		return ObjectStateDeleted, nil
	case container.isNew:
		return ObjectStateNew, nil
	case tx.hasRealEndPointChanges(id):
		return ObjectStateChanged, nil
	default:
		return ObjectStateUnchanged, nil
	}
}

// LoadedObjects returns the ids of all objects in the transaction, ordered by
// their text form.
func (tx *Transaction) LoadedObjects() []domain.ObjectID {
	ids := make([]domain.ObjectID, 0, len(tx.objects))
	for id := range tx.objects {
		ids = append(ids, id)
	}
	sortObjectIDs(ids)
	return ids
}

// HasChanged reports whether Commit would save anything.
func (tx *Transaction) HasChanged() bool {
	if len(tx.dirty) > 0 {
		return true
	}
	for _, container := range tx.objects {
		if container.isNew || container.deleted {
			return true
		}
	}
	return false
}

func (tx *Transaction) hasRealEndPointChanges(id domain.ObjectID) bool {
	for _, def := range tx.mapping.EndPointsForClass(id.ClassID) {
		if def.IsVirtual {
			continue
		}
		if ep, ok := tx.endPoints[domain.NewRelationEndPointID(id, def.PropertyName)]; ok && ep.HasChanged() {
			return true
		}
	}
	return false
}

// definition returns the mapping of a relation property.
func (tx *Transaction) definition(id domain.RelationEndPointID) (*mapping.EndPointDefinition, error) {
	def, ok := tx.mapping.EndPoint(id.ObjectID.ClassID, id.PropertyName)
	if !ok {
		return nil, fmt.Errorf("class '%s' has no relation property '%s': %w",
			id.ObjectID.ClassID, id.PropertyName, domain.ErrUnknownProperty)
	}
	return def, nil
}

// addEndPoint registers an end-point in the map.
func (tx *Transaction) addEndPoint(ep endpoints.RelationEndPoint) {
	tx.endPoints[ep.ID()] = ep
	tx.metrics.RegisteredEndPointsUpDownCounter.Add(tx.ctx, 1)
	if ep.HasChanged() {
		tx.dirty[ep.ID()] = struct{}{}
	}
}

// removeEndPoint drops an end-point from the map.
func (tx *Transaction) removeEndPoint(id domain.RelationEndPointID) {
	if _, ok := tx.endPoints[id]; !ok {
		return
	}
	delete(tx.endPoints, id)
	delete(tx.dirty, id)
	tx.metrics.RegisteredEndPointsUpDownCounter.Add(tx.ctx, -1)
}

// sortedEndPointIDs returns the ids of the registered end-points in a stable
// order.
func (tx *Transaction) sortedEndPointIDs() []domain.RelationEndPointID {
	ids := make([]domain.RelationEndPointID, 0, len(tx.endPoints))
	for id := range tx.endPoints {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func sortObjectIDs(ids []domain.ObjectID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
