package endpoints

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushant-115/gojorel/core/domain"
)

func TestRealObjectEndPoint_InitialSyncState(t *testing.T) {
	env := newTestEnv(t)

	withoutForeignKey := env.addReal(domain.NewObjectID("Order"), "Customer", domain.NilObjectID)
	assert.Equal(t, SyncStateSynchronized, withoutForeignKey.SyncState())

	unidirectional := env.addReal(domain.NewObjectID("Location"), "Client", domain.NewObjectID("Client"))
	assert.Equal(t, SyncStateSynchronized, unidirectional.SyncState())

	pending := env.addReal(domain.NewObjectID("Order"), "Customer", domain.NewObjectID("Customer"))
	assert.Equal(t, SyncStateUnknown, pending.SyncState())
}

func TestUnknownSyncState_ForcesOppositeLoad(t *testing.T) {
	env := newTestEnv(t)
	customer := domain.NewObjectID("Customer")
	order := domain.NewObjectID("Order")
	orderEndPoint := env.addReal(order, "Customer", customer)
	orders := env.collection(customer, "Orders")

	env.loader.On("LoadOppositeEndPoint", orderEndPoint).
		Run(func(mock.Arguments) { require.NoError(t, orders.EnsureDataComplete()) }).
		Return(nil).Once()
	env.loader.On("LoadLazyCollectionEndPoint", orders.ID()).
		Run(func(mock.Arguments) { env.complete(orders, order) }).
		Return(nil).Once()

	synchronized, err := orderEndPoint.IsSynchronized()
	require.NoError(t, err)
	assert.True(t, synchronized)
	assert.Equal(t, SyncStateSynchronized, orderEndPoint.SyncState())

	// resolved: no further loads
	synchronized, err = orderEndPoint.IsSynchronized()
	require.NoError(t, err)
	assert.True(t, synchronized)
	env.loader.AssertExpectations(t)
}

func TestUnknownSyncState_LoadFailureStaysUnknown(t *testing.T) {
	env := newTestEnv(t)
	orderEndPoint := env.addReal(domain.NewObjectID("Order"), "Customer", domain.NewObjectID("Customer"))
	storeDown := errors.New("store down")
	env.loader.On("LoadOppositeEndPoint", orderEndPoint).Return(storeDown).Once()

	_, err := orderEndPoint.CreateSetCommand(domain.NilObjectID)
	assert.ErrorIs(t, err, storeDown)
	assert.Equal(t, SyncStateUnknown, orderEndPoint.SyncState())
}

func TestUnknownSyncState_LoaderMustResolve(t *testing.T) {
	env := newTestEnv(t)
	orderEndPoint := env.addReal(domain.NewObjectID("Order"), "Customer", domain.NewObjectID("Customer"))
	env.loader.On("LoadOppositeEndPoint", orderEndPoint).Return(nil).Once()

	_, err := orderEndPoint.IsSynchronized()
	assert.ErrorIs(t, err, domain.ErrLoaderIncomplete)
}

func TestSynchronizedSyncState_CommandKinds(t *testing.T) {
	env := newTestEnv(t)
	customer := domain.NewObjectID("Customer")
	order := domain.NewObjectID("Order")
	orderCustomer := env.addReal(order, "Customer", customer)
	env.complete(env.collection(customer, "Orders"), order)

	ticketOrder := env.addReal(domain.NewObjectID("OrderTicket"), "Order", domain.NilObjectID)
	locationClient := env.addReal(domain.NewObjectID("Location"), "Client", domain.NilObjectID)

	cmd, err := orderCustomer.CreateSetCommand(customer)
	require.NoError(t, err)
	assert.IsType(t, &SetSameCommand{}, cmd)

	cmd, err = orderCustomer.CreateSetCommand(domain.NewObjectID("Customer"))
	require.NoError(t, err)
	assert.IsType(t, &SetOneManyCommand{}, cmd)

	cmd, err = ticketOrder.CreateSetCommand(order)
	require.NoError(t, err)
	assert.IsType(t, &SetOneOneCommand{}, cmd)

	cmd, err = locationClient.CreateSetCommand(domain.NewObjectID("Client"))
	require.NoError(t, err)
	assert.IsType(t, &SetUnidirectionalCommand{}, cmd)

	cmd, err = orderCustomer.CreateDeleteCommand()
	require.NoError(t, err)
	assert.IsType(t, &ObjectEndPointDeleteCommand{}, cmd)

	_, err = orderCustomer.CreateSetCommand(domain.NewObjectID("Order"))
	assert.ErrorIs(t, err, domain.ErrInvalidOperation, "wrong opposite class")
}

func TestUnsynchronizedSyncState_RejectsEveryMutation(t *testing.T) {
	env := newTestEnv(t)
	customer := domain.NewObjectID("Customer")
	env.complete(env.collection(customer, "Orders"))
	stale := env.addReal(domain.NewObjectID("Order"), "Customer", customer)
	require.Equal(t, SyncStateUnsynchronized, stale.SyncState())

	for _, value := range []domain.ObjectID{customer, domain.NilObjectID, domain.NewObjectID("Customer")} {
		_, err := stale.CreateSetCommand(value)
		require.Error(t, err)
		var unsynchronized *domain.UnsynchronizedError
		require.True(t, errors.As(err, &unsynchronized))
		assert.Equal(t, stale.ID(), unsynchronized.EndPointID)
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	}

	_, err := stale.CreateDeleteCommand()
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	_, err = stale.CreateRemoveCommand(customer)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	synchronized, err := stale.IsSynchronized()
	require.NoError(t, err)
	assert.False(t, synchronized)

	require.NoError(t, stale.Synchronize())
	_, err = stale.CreateSetCommand(domain.NilObjectID)
	assert.NoError(t, err)
}

func TestRealObjectEndPoint_ValidateMandatory(t *testing.T) {
	env := newTestEnv(t)
	ep := env.addReal(domain.NewObjectID("Order"), "Customer", domain.NilObjectID)
	assert.NoError(t, ep.ValidateMandatory(), "Order.Customer is optional in the test mapping")
}
