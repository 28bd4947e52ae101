package transaction

import (
	"fmt"

	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/relation/endpoints"
	"github.com/sushant-115/gojorel/pkg/logger"
	"go.uber.org/zap"
)

// NewObject creates a new object of the given class. Its real end-points
// start with null foreign keys and its virtual end-points start empty and
// complete.
func (tx *Transaction) NewObject(classID string) (domain.ObjectID, error) {
	if err := tx.checkActive(); err != nil {
		return domain.NilObjectID, err
	}
	if classID == "" {
		return domain.NilObjectID, domain.InvalidOperationf("class id is required")
	}
	id := domain.NewObjectID(classID)
	tx.objects[id] = &dataContainer{id: id, isNew: true}
	for _, def := range tx.mapping.EndPointsForClass(classID) {
		epID := domain.NewRelationEndPointID(id, def.PropertyName)
		if !def.IsVirtual {
			ep, err := endpoints.NewRealObjectEndPoint(epID, def, domain.NilObjectID, tx.services(), &dirtyListener{tx: tx, id: epID})
			if err != nil {
				return domain.NilObjectID, err
			}
			tx.addEndPoint(ep)
			continue
		}
		ep, err := tx.GetOrCreateVirtualEndPoint(epID)
		if err != nil {
			return domain.NilObjectID, err
		}
		if err := ep.MarkDataComplete(nil); err != nil {
			return domain.NilObjectID, err
		}
	}
	tx.logger.Debug("object created", logger.Object(id))
	return id, nil
}

// GetObject makes sure an object is part of the transaction, loading it if
// necessary. Deleted objects yield ErrObjectDeleted.
func (tx *Transaction) GetObject(id domain.ObjectID) error {
	_, err := tx.usableObject(id)
	return err
}

// GetRelatedObject returns the current value of a cardinality-one relation
// property.
func (tx *Transaction) GetRelatedObject(id domain.ObjectID, property string) (domain.ObjectID, error) {
	ep, err := tx.objectEndPoint(id, property)
	if err != nil {
		return domain.NilObjectID, err
	}
	return ep.OppositeObjectID()
}

// GetOriginalRelatedObject returns the value a cardinality-one relation
// property had when it was loaded or last committed.
func (tx *Transaction) GetOriginalRelatedObject(id domain.ObjectID, property string) (domain.ObjectID, error) {
	ep, err := tx.objectEndPoint(id, property)
	if err != nil {
		return domain.NilObjectID, err
	}
	return ep.OriginalOppositeObjectID()
}

// GetRelatedObjects returns the current items of a collection property.
func (tx *Transaction) GetRelatedObjects(id domain.ObjectID, property string) ([]domain.ObjectID, error) {
	ep, err := tx.collectionEndPoint(id, property)
	if err != nil {
		return nil, err
	}
	return ep.Items()
}

// GetOriginalRelatedObjects returns the original items of a collection
// property.
func (tx *Transaction) GetOriginalRelatedObjects(id domain.ObjectID, property string) ([]domain.ObjectID, error) {
	ep, err := tx.collectionEndPoint(id, property)
	if err != nil {
		return nil, err
	}
	return ep.OriginalItems()
}

// SetRelatedObject assigns a cardinality-one relation property. The opposite
// side of the relation is updated as well.
func (tx *Transaction) SetRelatedObject(id domain.ObjectID, property string, value domain.ObjectID) error {
	err := tx.setRelatedObject(id, property, value)
	tx.metrics.RecordCommand(tx.ctx, "set", err)
	return err
}

func (tx *Transaction) setRelatedObject(id domain.ObjectID, property string, value domain.ObjectID) error {
	ep, err := tx.objectEndPoint(id, property)
	if err != nil {
		return err
	}
	if !value.IsNil() {
		if _, err := tx.usableObject(value); err != nil {
			return err
		}
	}
	cmd, err := ep.CreateSetCommand(value)
	if err != nil {
		return err
	}
	return tx.execute(cmd)
}

// AddRelatedObject appends item to a collection property.
func (tx *Transaction) AddRelatedObject(id domain.ObjectID, property string, item domain.ObjectID) error {
	err := tx.insertRelatedObject(id, property, -1, item)
	tx.metrics.RecordCommand(tx.ctx, "add", err)
	return err
}

// InsertRelatedObject inserts item into a collection property at index.
func (tx *Transaction) InsertRelatedObject(id domain.ObjectID, property string, index int, item domain.ObjectID) error {
	if index < 0 {
		return domain.InvalidOperationf("index %d is out of range", index)
	}
	err := tx.insertRelatedObject(id, property, index, item)
	tx.metrics.RecordCommand(tx.ctx, "insert", err)
	return err
}

// insertRelatedObject appends when index is negative.
func (tx *Transaction) insertRelatedObject(id domain.ObjectID, property string, index int, item domain.ObjectID) error {
	ep, err := tx.collectionEndPoint(id, property)
	if err != nil {
		return err
	}
	if item.IsNil() {
		return domain.InvalidOperationf("cannot add null to '%s'", ep.ID())
	}
	if _, err := tx.usableObject(item); err != nil {
		return err
	}
	var cmd endpoints.Command
	if index < 0 {
		cmd, err = ep.CreateAddCommand(item)
	} else {
		cmd, err = ep.CreateInsertCommand(index, item)
	}
	if err != nil {
		return err
	}
	return tx.execute(cmd)
}

// RemoveRelatedObject removes item from a collection property and nulls the
// item's foreign key.
func (tx *Transaction) RemoveRelatedObject(id domain.ObjectID, property string, item domain.ObjectID) error {
	err := tx.removeRelatedObject(id, property, item)
	tx.metrics.RecordCommand(tx.ctx, "remove", err)
	return err
}

func (tx *Transaction) removeRelatedObject(id domain.ObjectID, property string, item domain.ObjectID) error {
	ep, err := tx.collectionEndPoint(id, property)
	if err != nil {
		return err
	}
	cmd, err := ep.CreateRemoveCommand(item)
	if err != nil {
		return err
	}
	return tx.execute(cmd)
}

// Delete deletes an object and detaches it from every relation. Detaching
// continues past failures: the object is marked deleted even if some
// relations could not be detached, and all failures are returned together.
// Commit fails while a relation still references the deleted object.
func (tx *Transaction) Delete(id domain.ObjectID) error {
	container, err := tx.usableObject(id)
	if err != nil {
		tx.metrics.RecordCommand(tx.ctx, "delete", err)
		return err
	}

	expanded := endpoints.NewExpandedCommand()
	for _, def := range tx.mapping.EndPointsForClass(id.ClassID) {
		expanded.CombineWith(tx.deleteCommand(domain.NewRelationEndPointID(id, def.PropertyName)))
	}
	err = expanded.PerformCollectingErrors()
	container.deleted = true

	tx.metrics.RecordCommand(tx.ctx, "delete", err)
	if err != nil {
		tx.logger.Debug("object deleted with relation failures", logger.Object(id), zap.Error(err))
		return fmt.Errorf("failed to detach deleted object %s: %w", id, err)
	}
	tx.logger.Debug("object deleted", logger.Object(id))
	return nil
}

// deleteCommand returns the expanded delete command of one end-point, or an
// exception command carrying the reason it could not be created.
func (tx *Transaction) deleteCommand(id domain.RelationEndPointID) endpoints.Command {
	ep, err := tx.GetRelationEndPointWithLazyLoad(id)
	if err != nil {
		return &endpoints.ExceptionCommand{Err: err}
	}
	cmd, err := ep.CreateDeleteCommand()
	if err != nil {
		return &endpoints.ExceptionCommand{Err: err}
	}
	expanded, err := cmd.ExpandToAllRelatedObjects()
	if err != nil {
		return &endpoints.ExceptionCommand{Err: err}
	}
	return expanded
}

// execute expands a command and performs it with notifications.
func (tx *Transaction) execute(cmd endpoints.Command) error {
	expanded, err := cmd.ExpandToAllRelatedObjects()
	if err != nil {
		return err
	}
	return expanded.NotifyAndPerform()
}

// usableObject loads an object if necessary and rejects deleted objects.
func (tx *Transaction) usableObject(id domain.ObjectID) (*dataContainer, error) {
	if err := tx.checkActive(); err != nil {
		return nil, err
	}
	if err := tx.LoadLazyDataContainer(id); err != nil {
		return nil, err
	}
	container := tx.objects[id]
	if container.deleted {
		return nil, fmt.Errorf("object %s: %w", id, domain.ErrObjectDeleted)
	}
	return container, nil
}

// endPoint returns the loaded end-point of a property of a usable object.
func (tx *Transaction) endPoint(id domain.ObjectID, property string, cardinality mapping.Cardinality) (endpoints.RelationEndPoint, error) {
	epID := domain.NewRelationEndPointID(id, property)
	def, err := tx.definition(epID)
	if err != nil {
		return nil, err
	}
	if def.Cardinality != cardinality {
		return nil, domain.InvalidOperationf("'%s' has cardinality %s", epID, def.Cardinality)
	}
	if _, err := tx.usableObject(id); err != nil {
		return nil, err
	}
	return tx.GetRelationEndPointWithLazyLoad(epID)
}

func (tx *Transaction) objectEndPoint(id domain.ObjectID, property string) (endpoints.ObjectEndPoint, error) {
	ep, err := tx.endPoint(id, property, mapping.CardinalityOne)
	if err != nil {
		return nil, err
	}
	objectEndPoint, ok := ep.(endpoints.ObjectEndPoint)
	if !ok {
		return nil, domain.InvalidOperationf("'%s' is not an object end-point", ep.ID())
	}
	return objectEndPoint, nil
}

func (tx *Transaction) collectionEndPoint(id domain.ObjectID, property string) (*endpoints.CollectionEndPoint, error) {
	ep, err := tx.endPoint(id, property, mapping.CardinalityMany)
	if err != nil {
		return nil, err
	}
	collection, ok := ep.(*endpoints.CollectionEndPoint)
	if !ok {
		return nil, domain.InvalidOperationf("'%s' is not a collection end-point", ep.ID())
	}
	return collection, nil
}
