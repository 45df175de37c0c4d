package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	customerrepo "motomaster/internal/customer/repository"
	"motomaster/internal/domain"
	"motomaster/internal/dto"
	apperrors "motomaster/internal/errors"
	"motomaster/internal/infrastructure/database"
	orderrepo "motomaster/internal/order/repository"
	"motomaster/internal/testutil"
)

func newTestIntakeService(t *testing.T, strict bool) (*IntakeService, func(table string) int) {
	t.Helper()
	db, dialect := testutil.SetupTestDB(t)
	svc := NewIntakeService(
		db,
		customerrepo.NewSQLCustomerRepository(db, dialect),
		orderrepo.NewSQLOrderRepository(db, dialect),
		zap.NewNop(),
		5*time.Second,
		strict,
	)
	return svc, func(table string) int { return testutil.CountRows(t, db, table) }
}

func ivan(credential string) dto.CustomerIdentity {
	return dto.CustomerIdentity{DisplayName: "Ivan", Phone: "+79990000000", Credential: credential}
}

func TestRecordOrder_NewCustomer(t *testing.T) {
	svc, count := newTestIntakeService(t, false)

	result, err := svc.RecordOrder(context.Background(), dto.PlaceOrderRequest{
		Customer:    ivan("secret1"),
		ServiceCode: domain.ServiceOilChange,
	})
	require.NoError(t, err)

	assert.True(t, result.CustomerCreated)
	assert.Positive(t, result.OrderID)
	assert.Positive(t, result.CustomerID)
	assert.Equal(t, domain.ServiceOilChange, result.ServiceCode)
	assert.Equal(t, "Ivan", result.DisplayName)
	assert.Equal(t, "+79990000000", result.Phone)
	assert.False(t, result.CreatedAt.IsZero())
	assert.Equal(t, 1, count("customers"))
	assert.Equal(t, 1, count("orders"))
}

func TestRecordOrder_ReturningCustomerReusesRow(t *testing.T) {
	svc, count := newTestIntakeService(t, false)
	ctx := context.Background()

	first, err := svc.RecordOrder(ctx, dto.PlaceOrderRequest{Customer: ivan("secret1"), ServiceCode: domain.ServiceOilChange})
	require.NoError(t, err)

	second, err := svc.RecordOrder(ctx, dto.PlaceOrderRequest{Customer: ivan("other"), ServiceCode: domain.ServiceRoadAssistance})
	require.NoError(t, err)

	assert.False(t, second.CustomerCreated)
	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, count("customers"))
	assert.Equal(t, 2, count("orders"))
}

func TestRecordOrder_StoresCredentialHash(t *testing.T) {
	db, dialect := testutil.SetupTestDB(t)
	repo := customerrepo.NewSQLCustomerRepository(db, dialect)
	svc := NewIntakeService(db, repo, orderrepo.NewSQLOrderRepository(db, dialect), zap.NewNop(), time.Second, false)

	result, err := svc.RecordOrder(context.Background(), dto.PlaceOrderRequest{Customer: ivan("secret1"), ServiceCode: domain.ServiceEngineRepair})
	require.NoError(t, err)

	customer, err := repo.FindByID(context.Background(), result.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, "5b11618c2e44027877d0cd0921ed166b9f176f50587fc91e7534dd2946db77d6", customer.CredentialHash)
	assert.NotContains(t, customer.CredentialHash, "secret1")
}

func TestRecordOrder_StrictCredentialMismatch(t *testing.T) {
	svc, count := newTestIntakeService(t, true)
	ctx := context.Background()

	_, err := svc.RecordOrder(ctx, dto.PlaceOrderRequest{Customer: ivan("secret1"), ServiceCode: domain.ServiceOilChange})
	require.NoError(t, err)

	_, err = svc.RecordOrder(ctx, dto.PlaceOrderRequest{Customer: ivan("wrong"), ServiceCode: domain.ServiceOilChange})
	require.Error(t, err)
	_, ok := apperrors.IsForbiddenError(err)
	assert.True(t, ok)
	assert.Equal(t, 1, count("orders"))

	_, err = svc.RecordOrder(ctx, dto.PlaceOrderRequest{Customer: ivan("secret1"), ServiceCode: domain.ServiceOilChange})
	require.NoError(t, err)
	assert.Equal(t, 2, count("orders"))
}

func TestRecordOrder_InvalidServiceCodeRollsBackCustomer(t *testing.T) {
	svc, count := newTestIntakeService(t, false)

	_, err := svc.RecordOrder(context.Background(), dto.PlaceOrderRequest{Customer: ivan("secret1"), ServiceCode: domain.ServiceCode("tire_change")})
	require.Error(t, err)

	assert.Equal(t, 0, count("customers"))
	assert.Equal(t, 0, count("orders"))
}

func TestResolveOrCreateCustomer_Idempotent(t *testing.T) {
	svc, count := newTestIntakeService(t, false)
	ctx := context.Background()

	first, err := svc.ResolveOrCreateCustomer(ctx, ivan("secret1"))
	require.NoError(t, err)
	second, err := svc.ResolveOrCreateCustomer(ctx, ivan("secret1"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, count("customers"))
}

func TestResolveOrCreateCustomer_TrimsIdentity(t *testing.T) {
	svc, count := newTestIntakeService(t, false)
	ctx := context.Background()

	first, err := svc.ResolveOrCreateCustomer(ctx, ivan("secret1"))
	require.NoError(t, err)
	second, err := svc.ResolveOrCreateCustomer(ctx, dto.CustomerIdentity{DisplayName: "  Ivan ", Phone: " +79990000000", Credential: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, count("customers"))
}

func TestResolveOrCreateCustomer_Concurrent(t *testing.T) {
	svc, count := newTestIntakeService(t, false)
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = svc.ResolveOrCreateCustomer(ctx, ivan("secret1"))
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, count("customers"))
}

func TestCreateOrder_UnknownCustomer(t *testing.T) {
	svc, count := newTestIntakeService(t, false)

	_, err := svc.CreateOrder(context.Background(), 999, domain.ServiceChainAdjustment)
	require.Error(t, err)
	assert.Equal(t, 0, count("orders"))
}

func TestCreateOrder_Success(t *testing.T) {
	svc, count := newTestIntakeService(t, false)
	ctx := context.Background()

	customerID, err := svc.ResolveOrCreateCustomer(ctx, ivan("secret1"))
	require.NoError(t, err)

	order, err := svc.CreateOrder(ctx, customerID, domain.ServiceChainAdjustment)
	require.NoError(t, err)
	assert.Positive(t, order.ID)
	assert.Equal(t, customerID, order.CustomerID)
	assert.Equal(t, domain.ServiceChainAdjustment, order.ServiceCode)
	assert.Equal(t, 1, count("orders"))
}

// Mock-based tests

type mockCustomerRepository struct {
	FindByIdentityFunc func(ctx context.Context, q database.Querier, displayName, phone string) (*domain.Customer, error)
	InsertFunc         func(ctx context.Context, q database.Querier, customer domain.Customer) (int64, error)
}

func (m *mockCustomerRepository) FindByIdentity(ctx context.Context, q database.Querier, displayName, phone string) (*domain.Customer, error) {
	return m.FindByIdentityFunc(ctx, q, displayName, phone)
}

func (m *mockCustomerRepository) Insert(ctx context.Context, q database.Querier, customer domain.Customer) (int64, error) {
	return m.InsertFunc(ctx, q, customer)
}

func TestRecordOrder_LookupErrorIsReturned(t *testing.T) {
	db, dialect := testutil.SetupTestDB(t)
	lookupErr := errors.New("connection reset")
	customers := &mockCustomerRepository{
		FindByIdentityFunc: func(ctx context.Context, q database.Querier, displayName, phone string) (*domain.Customer, error) {
			return nil, lookupErr
		},
	}
	svc := NewIntakeService(db, customers, orderrepo.NewSQLOrderRepository(db, dialect), zap.NewNop(), time.Second, false)

	_, err := svc.RecordOrder(context.Background(), dto.PlaceOrderRequest{Customer: ivan("secret1"), ServiceCode: domain.ServiceOilChange})
	assert.ErrorIs(t, err, lookupErr)
	assert.Equal(t, 0, testutil.CountRows(t, db, "orders"))
}
