package order

import (
	"database/sql"

	"go.uber.org/zap"

	"motomaster/internal/config"
	customerrepo "motomaster/internal/customer/repository"
	"motomaster/internal/infrastructure/database"
	orderrepo "motomaster/internal/order/repository"
	"motomaster/internal/order/service"
	"motomaster/internal/order/usecase"
)

func NewModule(db *sql.DB, dialect database.Dialect, cfg *config.Config, logger *zap.Logger) *usecase.PlaceOrderUseCase {
	customerRepo := customerrepo.NewSQLCustomerRepository(db, dialect)
	orderRepo := orderrepo.NewSQLOrderRepository(db, dialect)

	intakeSvc := service.NewIntakeService(
		db,
		customerRepo,
		orderRepo,
		logger.Named("intake"),
		cfg.Order.TxTimeout,
		cfg.Order.StrictCredentials,
	)

	return usecase.NewPlaceOrderUseCase(
		intakeSvc,
		logger.Named("place-order"),
		cfg.Order.MaxRetryAttempts,
	)
}
