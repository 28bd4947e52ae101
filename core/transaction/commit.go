package transaction

import (
	"fmt"
	"time"

	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/relation/endpoints"
	"github.com/sushant-115/gojorel/core/storage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Validate checks that the transaction can be committed: no relation of a
// live object references a deleted object, and every mandatory relation of a
// live object is set. All violations are returned together.
func (tx *Transaction) Validate() error {
	var errs error
	for _, id := range tx.sortedEndPointIDs() {
		realEndPoint, ok := tx.endPoints[id].(*endpoints.RealObjectEndPoint)
		if !ok || tx.objects[id.ObjectID] == nil || tx.objects[id.ObjectID].deleted {
			continue
		}
		if err := realEndPoint.ValidateMandatory(); err != nil {
			errs = multierr.Append(errs, err)
		}
		opposite, _ := realEndPoint.OppositeObjectID()
		if target, ok := tx.objects[opposite]; ok && target.deleted {
			errs = multierr.Append(errs, fmt.Errorf("relation property '%s' of object '%s' references deleted object '%s': %w",
				id.PropertyName, id.ObjectID, opposite, domain.ErrObjectDeleted))
		}
	}
	return errs
}

// Commit validates the transaction, saves the changes in one store call and
// then makes the current data of every end-point the original data. Nothing
// changes in memory if validation or the save fails.
func (tx *Transaction) Commit() error {
	err := tx.commit()
	tx.metrics.RecordCommand(tx.ctx, "commit", err)
	return err
}

func (tx *Transaction) commit() error {
	if err := tx.checkActive(); err != nil {
		return err
	}
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("commit validation failed: %w", err)
	}

	changes := tx.changes()
	started := time.Now()
	if len(changes) > 0 {
		if err := tx.store.Save(tx.ctx, changes); err != nil {
			tx.logger.Error("failed to save changes", zap.Int("changes", len(changes)), zap.Error(err))
			return fmt.Errorf("failed to save changes: %w", err)
		}
	}

	for _, id := range tx.sortedEndPointIDs() {
		tx.endPoints[id].Commit()
	}
	var errs error
	for _, id := range tx.LoadedObjects() {
		container := tx.objects[id]
		switch {
		case container.deleted:
			errs = multierr.Append(errs, tx.discardObject(id))
		case container.isNew:
			container.isNew = false
		}
	}
	tx.logger.Debug("transaction committed",
		zap.Int("changes", len(changes)),
		zap.Duration("duration", time.Since(started)))
	if errs != nil {
		tx.logger.Error("failed to release deleted objects", zap.Error(errs))
	}
	return errs
}

// changes lists the records to save: new and changed objects, and deleted
// objects that exist in the store.
func (tx *Transaction) changes() []storage.Change {
	var changes []storage.Change
	for _, id := range tx.LoadedObjects() {
		container := tx.objects[id]
		switch {
		case container.deleted && container.isNew:
		case container.deleted:
			changes = append(changes, storage.Change{Record: storage.Record{ID: id}, Deleted: true})
		case container.isNew || tx.hasRealEndPointChanges(id):
			changes = append(changes, storage.Change{Record: tx.record(id)})
		}
	}
	return changes
}

// record builds the storage record of an object from its real end-points.
func (tx *Transaction) record(id domain.ObjectID) storage.Record {
	r := storage.Record{ID: id}
	for _, def := range tx.mapping.EndPointsForClass(id.ClassID) {
		if def.IsVirtual {
			continue
		}
		ep, ok := tx.endPoints[domain.NewRelationEndPointID(id, def.PropertyName)].(*endpoints.RealObjectEndPoint)
		if !ok {
			continue
		}
		value, _ := ep.OppositeObjectID()
		if value.IsNil() {
			continue
		}
		if r.ForeignKeys == nil {
			r.ForeignKeys = make(map[string]domain.ObjectID)
		}
		r.ForeignKeys[def.PropertyName] = value
	}
	return r
}

// Rollback reverts every end-point to its original data. New objects are
// dropped and deleted objects are restored.
func (tx *Transaction) Rollback() error {
	if err := tx.checkActive(); err != nil {
		return err
	}
	for _, id := range tx.sortedEndPointIDs() {
		tx.endPoints[id].Rollback()
	}
	var errs error
	for _, id := range tx.LoadedObjects() {
		container := tx.objects[id]
		switch {
		case container.isNew:
			errs = multierr.Append(errs, tx.discardObject(id))
		case container.deleted:
			container.deleted = false
		}
	}
	tx.metrics.RecordCommand(tx.ctx, "rollback", errs)
	tx.logger.Debug("transaction rolled back")
	return errs
}

// discardObject removes an object and its end-points from the transaction.
// Its real end-points are unregistered from the opposite virtual end-points
// they were loaded into.
func (tx *Transaction) discardObject(id domain.ObjectID) error {
	var errs error
	for _, def := range tx.mapping.EndPointsForClass(id.ClassID) {
		epID := domain.NewRelationEndPointID(id, def.PropertyName)
		if realEndPoint, ok := tx.endPoints[epID].(*endpoints.RealObjectEndPoint); ok {
			errs = multierr.Append(errs, tx.unregisterFromOpposite(realEndPoint))
		}
		tx.removeEndPoint(epID)
	}
	delete(tx.objects, id)
	return errs
}
