package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/relation/endpoints"
	"github.com/sushant-115/gojorel/core/storage"
	"github.com/sushant-115/gojorel/pkg/logger"
	"go.uber.org/zap"
)

var _ endpoints.LazyLoader = (*Transaction)(nil)

// LoadLazyDataContainer loads an object and registers its real end-points
// with their opposite virtual end-points. Loaded objects are not reloaded.
func (tx *Transaction) LoadLazyDataContainer(id domain.ObjectID) error {
	if _, ok := tx.objects[id]; ok {
		return nil
	}
	if err := tx.checkActive(); err != nil {
		return err
	}
	if id.IsNil() {
		return domain.InvalidOperationf("cannot load the null object")
	}
	started := time.Now()
	record, err := tx.store.LoadRecord(tx.ctx, id)
	tx.metrics.RecordLazyLoad(tx.ctx, "object", started, err)
	if err != nil {
		tx.logStoreError("failed to load object", err, logger.Object(id))
		return fmt.Errorf("failed to load object %s: %w", id, err)
	}
	if err := tx.registerRecord(record); err != nil {
		return err
	}
	tx.logger.Debug("object loaded", logger.Object(id))
	return nil
}

// LoadLazyCollectionEndPoint loads the items of a collection end-point.
func (tx *Transaction) LoadLazyCollectionEndPoint(id domain.RelationEndPointID) error {
	return tx.loadVirtualEndPoint(id, "collection")
}

// LoadLazyVirtualObjectEndPoint loads the opposite object of a virtual
// object end-point.
func (tx *Transaction) LoadLazyVirtualObjectEndPoint(id domain.RelationEndPointID) error {
	return tx.loadVirtualEndPoint(id, "virtual_object")
}

// LoadOppositeEndPoint loads the virtual end-point a real end-point points
// at, which resolves the real end-point's sync state.
func (tx *Transaction) LoadOppositeEndPoint(ep *endpoints.RealObjectEndPoint) error {
	oppositeID := ep.OppositeEndPointID()
	if oppositeID.IsZero() || ep.Definition().OppositeEndPointDefinition().IsAnonymous() {
		ep.MarkSynchronized()
		return nil
	}
	opposite, err := tx.GetOrCreateVirtualEndPoint(oppositeID)
	if err != nil {
		return err
	}
	return opposite.EnsureDataComplete()
}

// loadVirtualEndPoint loads the objects whose foreign key references the
// end-point's object, registers them and completes the end-point. Objects
// that are already loaded keep their in-memory state; if their loaded foreign
// key disagrees with the store they end up as items without end-point.
func (tx *Transaction) loadVirtualEndPoint(id domain.RelationEndPointID, kind string) error {
	if err := tx.checkActive(); err != nil {
		return err
	}
	ep, ok := tx.endPoints[id]
	if !ok {
		return fmt.Errorf("end-point %s is not registered: %w", id, domain.ErrInvalidOperation)
	}
	virtual, ok := ep.(endpoints.VirtualEndPoint)
	if !ok {
		return domain.InvalidOperationf("'%s' is not a virtual end-point", id)
	}
	opposite := ep.Definition().OppositeEndPointDefinition()

	started := time.Now()
	records, err := tx.store.LoadRelated(tx.ctx, opposite.ClassID, opposite.PropertyName, id.ObjectID)
	tx.metrics.RecordLazyLoad(tx.ctx, kind, started, err)
	if err != nil {
		tx.logStoreError("failed to load relation", err, logger.EndPoint(id))
		return fmt.Errorf("failed to load relation %s: %w", id, err)
	}

	items := make([]domain.ObjectID, 0, len(records))
	for _, record := range records {
		if _, loaded := tx.objects[record.ID]; !loaded {
			if err := tx.registerRecord(record); err != nil {
				return err
			}
		}
		items = append(items, record.ID)
	}
	if err := virtual.MarkDataComplete(items); err != nil {
		return err
	}
	tx.logger.Debug("relation loaded", logger.EndPoint(id), zap.Int("items", len(items)))
	return nil
}

// registerRecord creates the data container and real end-points of a loaded
// object.
func (tx *Transaction) registerRecord(record storage.Record) error {
	tx.objects[record.ID] = &dataContainer{id: record.ID}
	for _, def := range tx.mapping.EndPointsForClass(record.ID.ClassID) {
		if def.IsVirtual {
			continue
		}
		id := domain.NewRelationEndPointID(record.ID, def.PropertyName)
		realEndPoint, err := endpoints.NewRealObjectEndPoint(id, def, record.ForeignKey(def.PropertyName), tx.services(), &dirtyListener{tx: tx, id: id})
		if err != nil {
			return err
		}
		tx.addEndPoint(realEndPoint)
		if err := tx.registerWithOpposite(realEndPoint); err != nil {
			return err
		}
	}
	return nil
}

// registerWithOpposite registers a real end-point as original opposite of the
// virtual end-point its foreign key points at.
func (tx *Transaction) registerWithOpposite(ep *endpoints.RealObjectEndPoint) error {
	if ep.OppositeEndPointID().IsZero() || ep.Definition().OppositeEndPointDefinition().IsAnonymous() {
		return nil
	}
	opposite, err := tx.GetOrCreateVirtualEndPoint(ep.OppositeEndPointID())
	if err != nil {
		return err
	}
	return opposite.RegisterOriginalOppositeEndPoint(ep)
}

// unregisterFromOpposite reverts registerWithOpposite for the original
// foreign key. Virtual end-points left without data are dropped.
func (tx *Transaction) unregisterFromOpposite(ep *endpoints.RealObjectEndPoint) error {
	oppositeID := ep.OriginalOppositeEndPointID()
	if oppositeID.IsZero() || ep.Definition().OppositeEndPointDefinition().IsAnonymous() {
		return nil
	}
	registered, ok := tx.endPoints[oppositeID]
	if !ok {
		return nil
	}
	opposite, ok := registered.(endpoints.VirtualEndPoint)
	if !ok {
		return domain.InvalidOperationf("'%s' is not a virtual end-point", oppositeID)
	}
	if err := opposite.UnregisterOriginalOppositeEndPoint(ep); err != nil {
		return err
	}
	if opposite.CanBeCollected() {
		tx.removeEndPoint(oppositeID)
	}
	return nil
}

func (tx *Transaction) logStoreError(msg string, err error, fields ...zap.Field) {
	if errors.Is(err, domain.ErrObjectNotFound) {
		tx.logger.Debug(msg, append(fields, zap.Error(err))...)
		return
	}
	tx.logger.Error(msg, append(fields, zap.Error(err))...)
}
