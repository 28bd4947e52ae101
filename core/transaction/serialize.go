package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sushant-115/gojorel/core/mapping"
	"github.com/sushant-115/gojorel/core/relation/endpoints"
	"github.com/sushant-115/gojorel/core/serialization"
	"github.com/sushant-115/gojorel/core/storage"
	"go.uber.org/zap"
)

const (
	endPointKindReal = iota
	endPointKindVirtualObject
	endPointKindCollection
)

// Serialize flattens the transaction's objects and end-points, including
// their load and sync states. The result references shared objects by handle
// and is only meant to be read back in the same process by Deserialize.
func (tx *Transaction) Serialize() (serialization.Flattened, error) {
	if err := tx.checkActive(); err != nil {
		return serialization.Flattened{}, err
	}
	w := serialization.NewFlatWriter()
	w.AddValue(tx.id)

	objectIDs := tx.LoadedObjects()
	w.AddInt(len(objectIDs))
	for _, id := range objectIDs {
		w.AddObject(tx.objects[id])
	}

	endPointIDs := tx.sortedEndPointIDs()
	w.AddInt(len(endPointIDs))
	for _, id := range endPointIDs {
		switch ep := tx.endPoints[id].(type) {
		case *endpoints.RealObjectEndPoint:
			w.AddInt(endPointKindReal)
			w.AddObject(ep)
		case *endpoints.VirtualObjectEndPoint:
			w.AddInt(endPointKindVirtualObject)
			w.AddObject(ep)
		case *endpoints.CollectionEndPoint:
			w.AddInt(endPointKindCollection)
			w.AddObject(ep)
		default:
			return serialization.Flattened{}, fmt.Errorf("cannot serialize end-point %s of type %T", id, ep)
		}
	}
	tx.logger.Debug("transaction serialized", zap.Int("objects", len(objectIDs)), zap.Int("endpoints", len(endPointIDs)))
	return w.Flattened(), nil
}

// Deserialize rebuilds a transaction written by Serialize. The end-points are
// retargeted at the new transaction, which uses ctx, store and cfg from now
// on. Mapping definitions are looked up again in cfg.
func Deserialize(ctx context.Context, data serialization.Flattened, store storage.Store, cfg *mapping.Configuration, opts ...Option) (*Transaction, error) {
	var tx *Transaction
	r := serialization.NewFlatReader(data, serialization.WithHandleMapper(func(handle any) any {
		return tx.retarget(handle)
	}))

	id, err := serialization.GetValue[uuid.UUID](r)
	if err != nil {
		return nil, err
	}
	tx = newTransaction(ctx, id, store, cfg, opts)

	objectCount, err := r.GetInt()
	if err != nil {
		return nil, err
	}
	for i := 0; i < objectCount; i++ {
		container, err := serialization.GetObject(r, readDataContainer)
		if err != nil {
			return nil, err
		}
		if container == nil {
			return nil, fmt.Errorf("missing object %d of %d in flat structure", i+1, objectCount)
		}
		tx.objects[container.id] = container
	}

	endPointCount, err := r.GetInt()
	if err != nil {
		return nil, err
	}
	for i := 0; i < endPointCount; i++ {
		ep, err := readEndPoint(r)
		if err != nil {
			return nil, err
		}
		tx.addEndPoint(ep)
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	tx.logger.Debug("transaction deserialized", zap.Int("objects", objectCount), zap.Int("endpoints", endPointCount))
	return tx, nil
}

func readEndPoint(r *serialization.FlatReader) (endpoints.RelationEndPoint, error) {
	kind, err := r.GetInt()
	if err != nil {
		return nil, err
	}
	switch kind {
	case endPointKindReal:
		return readPresent(r, endpoints.NewRealObjectEndPointFromFlatStructure)
	case endPointKindVirtualObject:
		return readPresent(r, endpoints.NewVirtualObjectEndPointFromFlatStructure)
	case endPointKindCollection:
		return readPresent(r, endpoints.NewCollectionEndPointFromFlatStructure)
	default:
		return nil, fmt.Errorf("unknown end-point kind %d", kind)
	}
}

// readPresent reads a nested end-point that must be present.
func readPresent[T endpoints.RelationEndPoint](r *serialization.FlatReader, read func(*serialization.FlatReader) (T, error)) (endpoints.RelationEndPoint, error) {
	present, err := r.GetBool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("missing end-point in flat structure")
	}
	ep, err := read(r)
	if err != nil {
		return nil, err
	}
	return ep, nil
}

// retarget maps handles of the serialized transaction onto tx.
func (tx *Transaction) retarget(handle any) any {
	switch h := handle.(type) {
	case *Transaction:
		return tx
	case *dirtyListener:
		return &dirtyListener{tx: tx, id: h.id}
	case *mapping.EndPointDefinition:
		if def, ok := tx.mapping.EndPoint(h.ClassID, h.PropertyName); ok {
			return def
		}
	}
	return handle
}
