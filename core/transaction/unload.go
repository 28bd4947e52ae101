package transaction

import (
	"fmt"

	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/relation/endpoints"
	"github.com/sushant-115/gojorel/pkg/logger"
	"go.uber.org/multierr"
)

// UnloadVirtualEndPoint discards the loaded data of a virtual end-point so
// that the next access reloads it. Changed end-points cannot be unloaded.
// End-points that hold nothing afterwards are removed from the transaction.
func (tx *Transaction) UnloadVirtualEndPoint(id domain.ObjectID, property string) error {
	if err := tx.checkActive(); err != nil {
		return err
	}
	epID := domain.NewRelationEndPointID(id, property)
	def, err := tx.definition(epID)
	if err != nil {
		return err
	}
	if !def.IsVirtual {
		return domain.InvalidOperationf("'%s' is not a virtual end-point", epID)
	}
	ep, ok := tx.endPoints[epID]
	if !ok {
		return nil
	}
	virtual := ep.(endpoints.VirtualEndPoint)
	if virtual.IsDataComplete() {
		if !virtual.CanBeMarkedIncomplete() {
			return domain.InvalidOperationf("'%s' has changed and cannot be unloaded", epID)
		}
		if err := virtual.MarkDataIncomplete(); err != nil {
			return err
		}
	}
	if virtual.CanBeCollected() {
		tx.removeEndPoint(epID)
	}
	tx.logger.Debug("virtual end-point unloaded", logger.EndPoint(epID))
	return nil
}

// UnloadData removes an unchanged object and its real end-points from the
// transaction. Virtual end-points that loaded the object are marked
// incomplete, so they must be unchanged as well. The object's own virtual
// end-points stay loaded unless they hold nothing.
func (tx *Transaction) UnloadData(id domain.ObjectID) error {
	if err := tx.checkActive(); err != nil {
		return err
	}
	container, ok := tx.objects[id]
	if !ok {
		return nil
	}
	if container.isNew || container.deleted {
		return domain.InvalidOperationf("object %s is new or deleted and cannot be unloaded", id)
	}

	var realEndPoints []*endpoints.RealObjectEndPoint
	for _, def := range tx.mapping.EndPointsForClass(id.ClassID) {
		epID := domain.NewRelationEndPointID(id, def.PropertyName)
		ep, ok := tx.endPoints[epID]
		if !ok {
			continue
		}
		if def.IsVirtual {
			continue
		}
		realEndPoint := ep.(*endpoints.RealObjectEndPoint)
		if realEndPoint.HasChanged() {
			return domain.InvalidOperationf("object %s has changed and cannot be unloaded", id)
		}
		if err := tx.checkOppositeUnloadable(realEndPoint); err != nil {
			return err
		}
		realEndPoints = append(realEndPoints, realEndPoint)
	}

	var errs error
	for _, realEndPoint := range realEndPoints {
		errs = multierr.Append(errs, tx.unregisterFromOpposite(realEndPoint))
		tx.removeEndPoint(realEndPoint.ID())
	}
	for _, def := range tx.mapping.EndPointsForClass(id.ClassID) {
		epID := domain.NewRelationEndPointID(id, def.PropertyName)
		if virtual, ok := tx.endPoints[epID].(endpoints.VirtualEndPoint); ok && virtual.CanBeCollected() {
			tx.removeEndPoint(epID)
		}
	}
	delete(tx.objects, id)
	if errs != nil {
		return fmt.Errorf("failed to unload object %s: %w", id, errs)
	}
	tx.logger.Debug("object unloaded", logger.Object(id))
	return nil
}

// checkOppositeUnloadable fails if unregistering ep would require a changed
// virtual end-point to be marked incomplete.
func (tx *Transaction) checkOppositeUnloadable(ep *endpoints.RealObjectEndPoint) error {
	oppositeID := ep.OriginalOppositeEndPointID()
	if oppositeID.IsZero() {
		return nil
	}
	opposite, ok := tx.endPoints[oppositeID].(endpoints.VirtualEndPoint)
	if !ok || !opposite.IsDataComplete() {
		return nil
	}
	for _, unsynchronized := range opposite.UnsynchronizedOppositeEndPoints() {
		if unsynchronized == ep.ID() {
			return nil
		}
	}
	if !opposite.CanBeMarkedIncomplete() {
		return domain.InvalidOperationf("'%s' has changed; the object %s it loaded cannot be unloaded", oppositeID, ep.ObjectID())
	}
	return nil
}

// IsSynchronized reports whether a loaded end-point agrees with its opposite
// side. It may load the opposite side.
func (tx *Transaction) IsSynchronized(id domain.ObjectID, property string) (bool, error) {
	if err := tx.checkActive(); err != nil {
		return false, err
	}
	epID := domain.NewRelationEndPointID(id, property)
	if _, err := tx.definition(epID); err != nil {
		return false, err
	}
	ep, ok := tx.endPoints[epID]
	if !ok {
		return false, fmt.Errorf("end-point %s is not loaded: %w", epID, domain.ErrInvalidOperation)
	}
	return ep.IsSynchronized()
}

// SynchronizeRelation repairs a relation whose two sides disagree because
// they were loaded at different times. For a real end-point, it adds the
// end-point to the opposite's loaded data. For a virtual end-point, it drops
// loaded items whose foreign key points elsewhere and adds every real
// end-point that points at it.
func (tx *Transaction) SynchronizeRelation(id domain.ObjectID, property string) error {
	err := tx.synchronizeRelation(id, property)
	tx.metrics.RecordCommand(tx.ctx, "synchronize", err)
	return err
}

func (tx *Transaction) synchronizeRelation(id domain.ObjectID, property string) error {
	if err := tx.checkActive(); err != nil {
		return err
	}
	epID := domain.NewRelationEndPointID(id, property)
	def, err := tx.definition(epID)
	if err != nil {
		return err
	}
	if !def.IsVirtual {
		ep, ok := tx.endPoints[epID]
		if !ok {
			return fmt.Errorf("end-point %s is not loaded: %w", epID, domain.ErrInvalidOperation)
		}
		if err := ep.Synchronize(); err != nil {
			return err
		}
		tx.logger.Debug("relation synchronized", logger.EndPoint(epID))
		return nil
	}

	ep, err := tx.GetRelationEndPointWithLazyLoad(epID)
	if err != nil {
		return err
	}
	virtual := ep.(endpoints.VirtualEndPoint)
	if err := virtual.Synchronize(); err != nil {
		return err
	}
	for _, oppositeID := range virtual.UnsynchronizedOppositeEndPoints() {
		opposite, ok := tx.endPoints[oppositeID]
		if !ok {
			continue
		}
		if err := opposite.Synchronize(); err != nil {
			return err
		}
	}
	tx.logger.Debug("relation synchronized", logger.EndPoint(epID))
	return nil
}

// GetUnsynchronizedEndPoints returns the loaded end-points that are known to
// disagree with their opposite side, without loading anything.
func (tx *Transaction) GetUnsynchronizedEndPoints() []domain.RelationEndPointID {
	var ids []domain.RelationEndPointID
	for _, id := range tx.sortedEndPointIDs() {
		switch ep := tx.endPoints[id].(type) {
		case *endpoints.RealObjectEndPoint:
			if ep.SyncState() == endpoints.SyncStateUnsynchronized {
				ids = append(ids, id)
			}
		case endpoints.VirtualEndPoint:
			if !ep.IsDataComplete() {
				continue
			}
			if synchronized, err := ep.IsSynchronized(); err == nil && !synchronized {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
