package datakeeper

import (
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/serialization"
)

// CollectionDataKeeper stores the data of a collection end-point: ordered
// current and original items plus the real opposite end-points registered
// for them.
type CollectionDataKeeper struct {
	endPointID domain.RelationEndPointID
	listener   StateUpdateListener

	currentItems  *orderedSet
	originalItems *orderedSet

	currentOppositeEndPoints      map[domain.ObjectID]domain.RelationEndPointID
	originalOppositeEndPoints     map[domain.ObjectID]domain.RelationEndPointID
	originalItemsWithoutEndPoints map[domain.ObjectID]struct{}
}

// NewCollectionDataKeeper creates an empty keeper for the given end-point.
func NewCollectionDataKeeper(endPointID domain.RelationEndPointID, listener StateUpdateListener) *CollectionDataKeeper {
	return &CollectionDataKeeper{
		endPointID:                    endPointID,
		listener:                      listenerOrNoop(listener),
		currentItems:                  newOrderedSet(),
		originalItems:                 newOrderedSet(),
		currentOppositeEndPoints:      make(map[domain.ObjectID]domain.RelationEndPointID),
		originalOppositeEndPoints:     make(map[domain.ObjectID]domain.RelationEndPointID),
		originalItemsWithoutEndPoints: make(map[domain.ObjectID]struct{}),
	}
}

func (k *CollectionDataKeeper) EndPointID() domain.RelationEndPointID { return k.endPointID }

// CurrentItems returns a copy of the current items in order.
func (k *CollectionDataKeeper) CurrentItems() []domain.ObjectID { return k.currentItems.slice() }

// OriginalItems returns a copy of the original items in order.
func (k *CollectionDataKeeper) OriginalItems() []domain.ObjectID { return k.originalItems.slice() }

func (k *CollectionDataKeeper) CurrentCount() int { return k.currentItems.len() }

func (k *CollectionDataKeeper) ContainsCurrentItem(id domain.ObjectID) bool {
	return k.currentItems.contains(id)
}

func (k *CollectionDataKeeper) ContainsOriginalItem(id domain.ObjectID) bool {
	return k.originalItems.contains(id)
}

func (k *CollectionDataKeeper) ContainsOriginalOppositeEndPoint(ep OppositeEndPoint) bool {
	registered, ok := k.originalOppositeEndPoints[ep.ObjectID()]
	return ok && registered == ep.ID()
}

func (k *CollectionDataKeeper) ContainsCurrentOppositeEndPoint(ep OppositeEndPoint) bool {
	registered, ok := k.currentOppositeEndPoints[ep.ObjectID()]
	return ok && registered == ep.ID()
}

func (k *CollectionDataKeeper) ContainsOriginalItemWithoutEndPoint(id domain.ObjectID) bool {
	_, ok := k.originalItemsWithoutEndPoints[id]
	return ok
}

// OriginalItemsWithoutEndPoints returns those original items whose real
// end-point is not registered, in original order.
func (k *CollectionDataKeeper) OriginalItemsWithoutEndPoints() []domain.ObjectID {
	var out []domain.ObjectID
	for _, id := range k.originalItems.items {
		if k.ContainsOriginalItemWithoutEndPoint(id) {
			out = append(out, id)
		}
	}
	return out
}

// CurrentOppositeEndPoints returns the ids of the registered current real
// opposites, in current item order followed by opposites not (or no longer)
// contained in the current items.
func (k *CollectionDataKeeper) CurrentOppositeEndPoints() []domain.RelationEndPointID {
	return orderedEndPoints(k.currentItems, k.originalItems, k.currentOppositeEndPoints)
}

// OriginalOppositeEndPoints returns the ids of the registered original real
// opposites in original item order.
func (k *CollectionDataKeeper) OriginalOppositeEndPoints() []domain.RelationEndPointID {
	return orderedEndPoints(k.originalItems, k.currentItems, k.originalOppositeEndPoints)
}

func orderedEndPoints(primary, secondary *orderedSet, endPoints map[domain.ObjectID]domain.RelationEndPointID) []domain.RelationEndPointID {
	out := make([]domain.RelationEndPointID, 0, len(endPoints))
	seen := make(map[domain.ObjectID]struct{}, len(endPoints))
	for _, set := range []*orderedSet{primary, secondary} {
		for _, id := range set.items {
			if _, done := seen[id]; done {
				continue
			}
			if ep, ok := endPoints[id]; ok {
				out = append(out, ep)
				seen[id] = struct{}{}
			}
		}
	}
	for id, ep := range endPoints {
		if _, done := seen[id]; !done {
			out = append(out, ep)
		}
	}
	return out
}

// HasDataChanged compares current and original items as sets.
func (k *CollectionDataKeeper) HasDataChanged() bool {
	return !k.currentItems.setEquals(k.originalItems)
}

// RegisterOriginalOppositeEndPoint adds the loaded real opposite to the
// original items, and to the current items unless they have diverged.
func (k *CollectionDataKeeper) RegisterOriginalOppositeEndPoint(ep OppositeEndPoint) error {
	return k.registerOriginalOppositeEndPoint(ep, !k.HasDataChanged())
}

// SynchronizeOppositeEndPoint registers a real opposite whose foreign key
// already points here. The item joins the current items even if they have
// diverged, so both sides of the relation agree.
func (k *CollectionDataKeeper) SynchronizeOppositeEndPoint(ep OppositeEndPoint) error {
	return k.registerOriginalOppositeEndPoint(ep, true)
}

func (k *CollectionDataKeeper) registerOriginalOppositeEndPoint(ep OppositeEndPoint, addCurrent bool) error {
	id := ep.ObjectID()
	if _, ok := k.originalOppositeEndPoints[id]; ok {
		return domain.InvalidOperationf("the opposite end-point '%s' has already been registered with '%s'", ep.ID(), k.endPointID)
	}
	if k.originalItems.contains(id) {
		return domain.InvalidOperationf("'%s' is already part of the original data of '%s'", id, k.endPointID)
	}

	k.originalItems.add(id)
	k.originalOppositeEndPoints[id] = ep.ID()
	if addCurrent && !k.currentItems.contains(id) {
		k.currentItems.add(id)
	}
	// The foreign key of ep points here, so it is a current opposite whether
	// or not the items have diverged.
	if _, ok := k.currentOppositeEndPoints[id]; !ok {
		k.currentOppositeEndPoints[id] = ep.ID()
	}
	k.notify()
	return nil
}

// UnregisterOriginalOppositeEndPoint removes a real opposite registered with
// RegisterOriginalOppositeEndPoint. The collection must not have diverged.
func (k *CollectionDataKeeper) UnregisterOriginalOppositeEndPoint(ep OppositeEndPoint) error {
	if !k.ContainsOriginalOppositeEndPoint(ep) {
		return domain.InvalidOperationf("the opposite end-point '%s' has not been registered with '%s'", ep.ID(), k.endPointID)
	}
	if k.HasDataChanged() {
		return domain.InvalidOperationf("cannot unregister original item '%s' because '%s' has been changed", ep.ObjectID(), k.endPointID)
	}

	id := ep.ObjectID()
	k.originalItems.remove(id)
	k.currentItems.remove(id)
	delete(k.originalOppositeEndPoints, id)
	if k.currentOppositeEndPoints[id] == ep.ID() {
		delete(k.currentOppositeEndPoints, id)
	}
	k.notify()
	return nil
}

// RegisterOriginalItemWithoutEndPoint adds an original item whose real
// end-point is not registered.
func (k *CollectionDataKeeper) RegisterOriginalItemWithoutEndPoint(id domain.ObjectID) error {
	if k.originalItems.contains(id) {
		return domain.InvalidOperationf("'%s' is already part of the original data of '%s'", id, k.endPointID)
	}

	changed := k.HasDataChanged()
	k.originalItems.add(id)
	k.originalItemsWithoutEndPoints[id] = struct{}{}
	if !changed {
		k.currentItems.add(id)
	}
	k.notify()
	return nil
}

// UnregisterOriginalItemWithoutEndPoint removes an item registered with
// RegisterOriginalItemWithoutEndPoint. The collection must not have diverged.
func (k *CollectionDataKeeper) UnregisterOriginalItemWithoutEndPoint(id domain.ObjectID) error {
	if !k.ContainsOriginalItemWithoutEndPoint(id) {
		return domain.InvalidOperationf("'%s' has not been registered as original item without end-point of '%s'", id, k.endPointID)
	}
	if k.HasDataChanged() {
		return domain.InvalidOperationf("cannot unregister original item '%s' because '%s' has been changed", id, k.endPointID)
	}

	k.originalItems.remove(id)
	k.currentItems.remove(id)
	delete(k.originalItemsWithoutEndPoints, id)
	k.notify()
	return nil
}

// RegisterCurrentOppositeEndPoint records a real end-point currently pointing
// at this collection.
func (k *CollectionDataKeeper) RegisterCurrentOppositeEndPoint(ep OppositeEndPoint) error {
	if _, ok := k.currentOppositeEndPoints[ep.ObjectID()]; ok {
		return domain.InvalidOperationf("the opposite end-point '%s' has already been registered as current opposite of '%s'", ep.ID(), k.endPointID)
	}
	k.currentOppositeEndPoints[ep.ObjectID()] = ep.ID()
	return nil
}

// UnregisterCurrentOppositeEndPoint removes a current real opposite.
func (k *CollectionDataKeeper) UnregisterCurrentOppositeEndPoint(ep OppositeEndPoint) error {
	if !k.ContainsCurrentOppositeEndPoint(ep) {
		return domain.InvalidOperationf("the opposite end-point '%s' has not been registered as current opposite of '%s'", ep.ID(), k.endPointID)
	}
	delete(k.currentOppositeEndPoints, ep.ObjectID())
	return nil
}

// Add appends an item to the current items.
func (k *CollectionDataKeeper) Add(id domain.ObjectID) error {
	return k.Insert(k.currentItems.len(), id)
}

// Insert places an item at the given index of the current items.
func (k *CollectionDataKeeper) Insert(index int, id domain.ObjectID) error {
	if id.IsNil() {
		return domain.InvalidOperationf("cannot insert null into '%s'", k.endPointID)
	}
	if index < 0 || index > k.currentItems.len() {
		return domain.InvalidOperationf("index %d is out of range for '%s'", index, k.endPointID)
	}
	if !k.currentItems.insert(index, id) {
		return domain.InvalidOperationf("'%s' is already part of '%s'", id, k.endPointID)
	}
	k.notify()
	return nil
}

// Remove deletes an item from the current items. It reports whether the item
// was present.
func (k *CollectionDataKeeper) Remove(id domain.ObjectID) bool {
	if !k.currentItems.remove(id) {
		return false
	}
	k.notify()
	return true
}

// Replace swaps the item at index.
func (k *CollectionDataKeeper) Replace(index int, id domain.ObjectID) error {
	if index < 0 || index >= k.currentItems.len() {
		return domain.InvalidOperationf("index %d is out of range for '%s'", index, k.endPointID)
	}
	if k.currentItems.items[index] == id {
		return nil
	}
	if k.currentItems.contains(id) {
		return domain.InvalidOperationf("'%s' is already part of '%s'", id, k.endPointID)
	}
	k.currentItems.replaceAt(index, id)
	k.notify()
	return nil
}

// IndexOf returns the position of id in the current items, or -1.
func (k *CollectionDataKeeper) IndexOf(id domain.ObjectID) int {
	if at, ok := k.currentItems.index[id]; ok {
		return at
	}
	return -1
}

// Clear removes all current items.
func (k *CollectionDataKeeper) Clear() {
	k.currentItems.clear()
	k.notify()
}

// SortCurrentItems reorders the current items. Ordering alone never makes the
// collection dirty.
func (k *CollectionDataKeeper) SortCurrentItems(less func(a, b domain.ObjectID) bool) {
	k.currentItems.sort(less)
	k.notify()
}

// Commit makes the current data the new original data.
func (k *CollectionDataKeeper) Commit() {
	k.originalItems = k.currentItems.clone()
	k.originalOppositeEndPoints = copyEndPoints(k.currentOppositeEndPoints)
	k.originalItemsWithoutEndPoints = make(map[domain.ObjectID]struct{})
	for _, id := range k.originalItems.items {
		if _, hasEndPoint := k.originalOppositeEndPoints[id]; !hasEndPoint {
			k.originalItemsWithoutEndPoints[id] = struct{}{}
		}
	}
	k.notify()
}

// Rollback restores the original data.
func (k *CollectionDataKeeper) Rollback() {
	k.currentItems = k.originalItems.clone()
	k.currentOppositeEndPoints = copyEndPoints(k.originalOppositeEndPoints)
	k.notify()
}

func (k *CollectionDataKeeper) notify() {
	k.listener.StateUpdated(k.HasDataChanged())
}

func copyEndPoints(src map[domain.ObjectID]domain.RelationEndPointID) map[domain.ObjectID]domain.RelationEndPointID {
	dst := make(map[domain.ObjectID]domain.RelationEndPointID, len(src))
	for id, ep := range src {
		dst[id] = ep
	}
	return dst
}

// SerializeIntoFlatStructure implements serialization.Serializable.
func (k *CollectionDataKeeper) SerializeIntoFlatStructure(w *serialization.FlatWriter) {
	w.AddValue(k.endPointID)
	w.AddHandle(k.listener)
	writeIDs(w, k.currentItems.items)
	writeIDs(w, k.originalItems.items)
	writeEndPoints(w, k.CurrentOppositeEndPoints())
	writeEndPoints(w, k.OriginalOppositeEndPoints())
	writeIDs(w, k.OriginalItemsWithoutEndPoints())
}

// NewCollectionDataKeeperFromFlatStructure reads a keeper written by
// SerializeIntoFlatStructure.
func NewCollectionDataKeeperFromFlatStructure(r *serialization.FlatReader) (*CollectionDataKeeper, error) {
	endPointID, err := serialization.GetValue[domain.RelationEndPointID](r)
	if err != nil {
		return nil, err
	}
	listener, err := serialization.GetHandle[StateUpdateListener](r)
	if err != nil {
		return nil, err
	}
	k := NewCollectionDataKeeper(endPointID, listener)

	current, err := readIDs(r)
	if err != nil {
		return nil, err
	}
	original, err := readIDs(r)
	if err != nil {
		return nil, err
	}
	k.currentItems = newOrderedSet(current...)
	k.originalItems = newOrderedSet(original...)

	currentEndPoints, err := readEndPoints(r)
	if err != nil {
		return nil, err
	}
	for _, ep := range currentEndPoints {
		k.currentOppositeEndPoints[ep.ObjectID] = ep
	}
	originalEndPoints, err := readEndPoints(r)
	if err != nil {
		return nil, err
	}
	for _, ep := range originalEndPoints {
		k.originalOppositeEndPoints[ep.ObjectID] = ep
	}
	withoutEndPoints, err := readIDs(r)
	if err != nil {
		return nil, err
	}
	for _, id := range withoutEndPoints {
		k.originalItemsWithoutEndPoints[id] = struct{}{}
	}
	return k, nil
}

func writeIDs(w *serialization.FlatWriter, ids []domain.ObjectID) {
	w.AddInt(len(ids))
	for _, id := range ids {
		w.AddValue(id)
	}
}

func readIDs(r *serialization.FlatReader) ([]domain.ObjectID, error) {
	n, err := r.GetInt()
	if err != nil {
		return nil, err
	}
	ids := make([]domain.ObjectID, 0, n)
	for i := 0; i < n; i++ {
		id, err := serialization.GetValue[domain.ObjectID](r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeEndPoints(w *serialization.FlatWriter, ids []domain.RelationEndPointID) {
	w.AddInt(len(ids))
	for _, id := range ids {
		w.AddValue(id)
	}
}

func readEndPoints(r *serialization.FlatReader) ([]domain.RelationEndPointID, error) {
	n, err := r.GetInt()
	if err != nil {
		return nil, err
	}
	ids := make([]domain.RelationEndPointID, 0, n)
	for i := 0; i < n; i++ {
		id, err := serialization.GetValue[domain.RelationEndPointID](r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
