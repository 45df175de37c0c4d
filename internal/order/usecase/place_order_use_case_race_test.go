package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	customerrepo "motomaster/internal/customer/repository"
	"motomaster/internal/dto"
	orderrepo "motomaster/internal/order/repository"
	"motomaster/internal/order/service"
	"motomaster/internal/testutil"
)

func TestPlaceOrder_ConcurrentFirstOrdersShareOneCustomer(t *testing.T) {
	const workers = 8
	db, dialect := testutil.SetupConcurrentTestDB(t, workers)
	svc := service.NewIntakeService(
		db,
		customerrepo.NewSQLCustomerRepository(db, dialect),
		orderrepo.NewSQLOrderRepository(db, dialect),
		zap.NewNop(),
		5*time.Second,
		false,
	)
	uc := NewPlaceOrderUseCase(svc, zap.NewNop(), 20)
	uc.backoff = func(attempt int) time.Duration { return time.Duration(attempt) * time.Millisecond }

	results := make([]*dto.PlaceOrderResult, workers)
	errs := make([]error, workers)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = uc.PlaceOrder(context.Background(), validRequest())
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].CustomerID, results[i].CustomerID)
		if results[i].CustomerCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, testutil.CountRows(t, db, "customers"))
	assert.Equal(t, workers, testutil.CountRows(t, db, "orders"))
}
