package endpoints

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/mapping"
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
  - id: Location:Client
    endpoints:
      - {class: Location, property: Client}
      - {class: Client, cardinality: many, virtual: true}
`

type mockLazyLoader struct {
	mock.Mock
}

func (m *mockLazyLoader) LoadOppositeEndPoint(ep *RealObjectEndPoint) error {
	return m.Called(ep).Error(0)
}

func (m *mockLazyLoader) LoadLazyCollectionEndPoint(id domain.RelationEndPointID) error {
	return m.Called(id).Error(0)
}

func (m *mockLazyLoader) LoadLazyVirtualObjectEndPoint(id domain.RelationEndPointID) error {
	return m.Called(id).Error(0)
}

func (m *mockLazyLoader) LoadLazyDataContainer(id domain.ObjectID) error {
	return m.Called(id).Error(0)
}

// recordingChangeListener records notifications and can veto changes.
type recordingChangeListener struct {
	events []string
	veto   error
}

func (l *recordingChangeListener) RelationChanging(id domain.RelationEndPointID, oldID, newID domain.ObjectID) error {
	if l.veto != nil {
		return l.veto
	}
	l.events = append(l.events, fmt.Sprintf("changing %s", id.PropertyName))
	return nil
}

func (l *recordingChangeListener) RelationChanged(id domain.RelationEndPointID, oldID, newID domain.ObjectID) {
	l.events = append(l.events, fmt.Sprintf("changed %s", id.PropertyName))
}

// testEnv is a minimal end-point map. Real end-points must be added
// explicitly; virtual end-points are created on demand.
type testEnv struct {
	t         *testing.T
	mapping   *mapping.Configuration
	endPoints map[domain.RelationEndPointID]RelationEndPoint
	loader    *mockLazyLoader
	listener  *recordingChangeListener
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg, err := mapping.LoadYAML(strings.NewReader(testMapping))
	require.NoError(t, err)
	return &testEnv{
		t:         t,
		mapping:   cfg,
		endPoints: make(map[domain.RelationEndPointID]RelationEndPoint),
		loader:    &mockLazyLoader{},
		listener:  &recordingChangeListener{},
	}
}

func (e *testEnv) services() Services {
	return Services{LazyLoader: e.loader, Provider: e, Listener: e.listener}
}

func (e *testEnv) definition(id domain.RelationEndPointID) *mapping.EndPointDefinition {
	def, ok := e.mapping.EndPoint(id.ObjectID.ClassID, id.PropertyName)
	require.True(e.t, ok, "unmapped property %s", id)
	return def
}

func (e *testEnv) GetRelationEndPointWithoutLoading(id domain.RelationEndPointID) (RelationEndPoint, bool) {
	ep, ok := e.endPoints[id]
	return ep, ok
}

func (e *testEnv) GetRelationEndPointWithLazyLoad(id domain.RelationEndPointID) (RelationEndPoint, error) {
	if ep, ok := e.endPoints[id]; ok {
		return ep, ep.EnsureDataComplete()
	}
	if !e.definition(id).IsVirtual {
		return nil, fmt.Errorf("object %s is not loaded: %w", id.ObjectID, domain.ErrObjectNotFound)
	}
	ep, err := e.GetOrCreateVirtualEndPoint(id)
	if err != nil {
		return nil, err
	}
	return ep, ep.EnsureDataComplete()
}

func (e *testEnv) GetOrCreateVirtualEndPoint(id domain.RelationEndPointID) (VirtualEndPoint, error) {
	if ep, ok := e.endPoints[id]; ok {
		virtual, ok := ep.(VirtualEndPoint)
		if !ok {
			return nil, fmt.Errorf("%s is not virtual", id)
		}
		return virtual, nil
	}
	def := e.definition(id)
	var ep VirtualEndPoint
	var err error
	if def.Cardinality == mapping.CardinalityMany {
		ep, err = NewCollectionEndPoint(id, def, e.services(), nil)
	} else {
		ep, err = NewVirtualObjectEndPoint(id, def, e.services(), nil)
	}
	if err != nil {
		return nil, err
	}
	e.endPoints[id] = ep
	return ep, nil
}

// addReal registers the real end-point of a loaded object the way the
// transaction does: with the opposite virtual end-point, without loading it.
func (e *testEnv) addReal(objectID domain.ObjectID, property string, foreignKey domain.ObjectID) *RealObjectEndPoint {
	e.t.Helper()
	id := domain.NewRelationEndPointID(objectID, property)
	ep, err := NewRealObjectEndPoint(id, e.definition(id), foreignKey, e.services(), nil)
	require.NoError(e.t, err)
	e.endPoints[id] = ep
	if !foreignKey.IsNil() && !ep.Definition().OppositeEndPointDefinition().IsAnonymous() {
		virtual, err := e.GetOrCreateVirtualEndPoint(ep.OppositeEndPointID())
		require.NoError(e.t, err)
		require.NoError(e.t, virtual.RegisterOriginalOppositeEndPoint(ep))
	}
	return ep
}

func (e *testEnv) collection(objectID domain.ObjectID, property string) *CollectionEndPoint {
	e.t.Helper()
	ep, err := e.GetOrCreateVirtualEndPoint(domain.NewRelationEndPointID(objectID, property))
	require.NoError(e.t, err)
	collection, ok := ep.(*CollectionEndPoint)
	require.True(e.t, ok)
	return collection
}

func (e *testEnv) virtualObject(objectID domain.ObjectID, property string) *VirtualObjectEndPoint {
	e.t.Helper()
	ep, err := e.GetOrCreateVirtualEndPoint(domain.NewRelationEndPointID(objectID, property))
	require.NoError(e.t, err)
	virtual, ok := ep.(*VirtualObjectEndPoint)
	require.True(e.t, ok)
	return virtual
}

// complete marks a virtual end-point complete with the given items, the way
// the lazy loader does.
func (e *testEnv) complete(ep VirtualEndPoint, items ...domain.ObjectID) {
	e.t.Helper()
	require.NoError(e.t, ep.MarkDataComplete(items))
}

func (e *testEnv) expandAndPerform(cmd Command) {
	e.t.Helper()
	expanded, err := cmd.ExpandToAllRelatedObjects()
	require.NoError(e.t, err)
	require.NoError(e.t, expanded.NotifyAndPerform())
}

func (e *testEnv) items(ep *CollectionEndPoint) []domain.ObjectID {
	e.t.Helper()
	items, err := ep.Items()
	require.NoError(e.t, err)
	return items
}

func (e *testEnv) oppositeOf(ep ObjectEndPoint) domain.ObjectID {
	e.t.Helper()
	id, err := ep.OppositeObjectID()
	require.NoError(e.t, err)
	return id
}

func objectIDs(values ...domain.ObjectID) []domain.ObjectID { return values }
