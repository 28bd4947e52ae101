package transaction

import (
	"fmt"

	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/relation/endpoints"
	"github.com/sushant-115/gojorel/pkg/logger"
)

// dirtyListener maintains the transaction's dirty set for one end-point.
type dirtyListener struct {
	tx *Transaction
	id domain.RelationEndPointID
}

func (l *dirtyListener) StateUpdated(hasChanged bool) {
	if hasChanged {
		l.tx.dirty[l.id] = struct{}{}
	} else {
		delete(l.tx.dirty, l.id)
	}
}

func (tx *Transaction) services() endpoints.Services {
	return endpoints.Services{LazyLoader: tx, Provider: tx, Listener: tx}
}

// --- EndPointProvider ---

var _ endpoints.EndPointProvider = (*Transaction)(nil)

// GetRelationEndPointWithoutLoading returns a registered end-point.
func (tx *Transaction) GetRelationEndPointWithoutLoading(id domain.RelationEndPointID) (endpoints.RelationEndPoint, bool) {
	ep, ok := tx.endPoints[id]
	return ep, ok
}

// GetRelationEndPointWithLazyLoad returns the end-point with complete data.
// Real end-points are created by loading their object; virtual end-points
// are created on demand and loaded.
func (tx *Transaction) GetRelationEndPointWithLazyLoad(id domain.RelationEndPointID) (endpoints.RelationEndPoint, error) {
	if ep, ok := tx.endPoints[id]; ok {
		return ep, ep.EnsureDataComplete()
	}
	def, err := tx.definition(id)
	if err != nil {
		return nil, err
	}
	if def.IsVirtual {
		ep, err := tx.GetOrCreateVirtualEndPoint(id)
		if err != nil {
			return nil, err
		}
		return ep, ep.EnsureDataComplete()
	}
	if err := tx.LoadLazyDataContainer(id.ObjectID); err != nil {
		return nil, err
	}
	ep, ok := tx.endPoints[id]
	if !ok {
		return nil, fmt.Errorf("end-point %s was not registered by loading its object: %w", id, domain.ErrObjectNotFound)
	}
	return ep, nil
}

// GetOrCreateVirtualEndPoint returns the virtual end-point, creating an
// incomplete one if it is not registered yet.
func (tx *Transaction) GetOrCreateVirtualEndPoint(id domain.RelationEndPointID) (endpoints.VirtualEndPoint, error) {
	if ep, ok := tx.endPoints[id]; ok {
		virtual, ok := ep.(endpoints.VirtualEndPoint)
		if !ok {
			return nil, domain.InvalidOperationf("'%s' is not a virtual end-point", id)
		}
		return virtual, nil
	}
	def, err := tx.definition(id)
	if err != nil {
		return nil, err
	}
	listener := &dirtyListener{tx: tx, id: id}
	var ep endpoints.VirtualEndPoint
	switch {
	case !def.IsVirtual:
		return nil, domain.InvalidOperationf("'%s' is not a virtual end-point", id)
	case def.Cardinality == mapping.CardinalityMany:
		ep, err = endpoints.NewCollectionEndPoint(id, def, tx.services(), listener)
	default:
		ep, err = endpoints.NewVirtualObjectEndPoint(id, def, tx.services(), listener)
	}
	if err != nil {
		return nil, err
	}
	tx.addEndPoint(ep)
	tx.logger.Debug("virtual end-point registered", logger.EndPoint(id))
	return ep, nil
}

// --- ChangeListener ---

var _ endpoints.ChangeListener = (*Transaction)(nil)

// RelationChanging rejects changes in a discarded transaction and forwards
// to the registered listeners, any of which may veto.
func (tx *Transaction) RelationChanging(id domain.RelationEndPointID, oldID, newID domain.ObjectID) error {
	if err := tx.checkActive(); err != nil {
		return err
	}
	for _, listener := range tx.changeListeners {
		if err := listener.RelationChanging(id, oldID, newID); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Transaction) RelationChanged(id domain.RelationEndPointID, oldID, newID domain.ObjectID) {
	for _, listener := range tx.changeListeners {
		listener.RelationChanged(id, oldID, newID)
	}
}
