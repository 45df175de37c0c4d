package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"motomaster/internal/domain"
	"motomaster/internal/dto"
	apperrors "motomaster/internal/errors"
	"motomaster/internal/infrastructure/database"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type CustomerRepository interface {
	FindByIdentity(ctx context.Context, q database.Querier, displayName, phone string) (*domain.Customer, error)
	Insert(ctx context.Context, q database.Querier, customer domain.Customer) (int64, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, q database.Querier, order domain.Order) (int64, error)
}

// IntakeService owns the customer registry and order writes. Every public
// method runs in its own transaction; errors are returned unclassified so the
// caller can decide whether to retry the whole unit.
type IntakeService struct {
	db                TransactionManager
	customerRepo      CustomerRepository
	orderRepo         OrderRepository
	logger            *zap.Logger
	txTimeout         time.Duration
	strictCredentials bool
	now               func() time.Time
}

func NewIntakeService(
	db TransactionManager,
	customerRepo CustomerRepository,
	orderRepo OrderRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
	strictCredentials bool,
) *IntakeService {
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &IntakeService{
		db:                db,
		customerRepo:      customerRepo,
		orderRepo:         orderRepo,
		logger:            logger,
		txTimeout:         txTimeout,
		strictCredentials: strictCredentials,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// RecordOrder resolves the customer and creates the order atomically.
func (s *IntakeService) RecordOrder(ctx context.Context, req dto.PlaceOrderRequest) (*dto.PlaceOrderResult, error) {
	var result *dto.PlaceOrderResult

	err := s.inTx(ctx, func(txCtx context.Context, tx *sql.Tx) error {
		customerID, created, err := s.resolveOrCreateCustomer(txCtx, tx, req.Customer)
		if err != nil {
			return err
		}

		order, err := s.insertOrder(txCtx, tx, customerID, req.ServiceCode)
		if err != nil {
			return err
		}

		result = &dto.PlaceOrderResult{
			OrderID:         order.ID,
			CustomerID:      customerID,
			CustomerCreated: created,
			ServiceCode:     order.ServiceCode,
			DisplayName:     req.Customer.DisplayName,
			Phone:           req.Customer.Phone,
			CreatedAt:       order.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order recorded",
		zap.Int64("orderId", result.OrderID),
		zap.Int64("customerId", result.CustomerID),
		zap.Bool("customerCreated", result.CustomerCreated),
		zap.String("serviceCode", string(result.ServiceCode)),
	)
	return result, nil
}

func (s *IntakeService) ResolveOrCreateCustomer(ctx context.Context, identity dto.CustomerIdentity) (int64, error) {
	var customerID int64
	err := s.inTx(ctx, func(txCtx context.Context, tx *sql.Tx) error {
		id, _, err := s.resolveOrCreateCustomer(txCtx, tx, identity)
		customerID = id
		return err
	})
	if err != nil {
		return 0, err
	}
	return customerID, nil
}

func (s *IntakeService) CreateOrder(ctx context.Context, customerID int64, code domain.ServiceCode) (*domain.Order, error) {
	var order *domain.Order
	err := s.inTx(ctx, func(txCtx context.Context, tx *sql.Tx) error {
		o, err := s.insertOrder(txCtx, tx, customerID, code)
		order = o
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *IntakeService) inTx(ctx context.Context, fn func(txCtx context.Context, tx *sql.Tx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return apperrors.NewInternalError("beginning transaction", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	if err := fn(txCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Error(err))
		return apperrors.NewInternalError("committing transaction", err)
	}
	return nil
}

// resolveOrCreateCustomer returns the existing id for the identity or inserts
// a new row. A lost insert race comes back as a unique violation; the caller
// retries the whole transaction and the next lookup sees the winner's row.
func (s *IntakeService) resolveOrCreateCustomer(ctx context.Context, tx *sql.Tx, identity dto.CustomerIdentity) (int64, bool, error) {
	displayName := strings.TrimSpace(identity.DisplayName)
	phone := strings.TrimSpace(identity.Phone)

	existing, err := s.customerRepo.FindByIdentity(ctx, tx, displayName, phone)
	if err == nil {
		if !existing.CredentialMatches(identity.Credential) {
			if s.strictCredentials {
				s.logger.Warn("credential mismatch for existing customer", zap.Int64("customerId", existing.ID))
				return 0, false, apperrors.NewForbiddenError("credential does not match the registered customer")
			}
			s.logger.Debug("credential differs for existing customer, keeping stored hash", zap.Int64("customerId", existing.ID))
		}
		return existing.ID, false, nil
	}
	if _, ok := apperrors.IsNotFoundError(err); !ok {
		return 0, false, err
	}

	id, err := s.customerRepo.Insert(ctx, tx, domain.Customer{
		DisplayName:    displayName,
		Phone:          phone,
		CredentialHash: domain.HashCredential(identity.Credential),
		CreatedAt:      s.now(),
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			s.logger.Info("customer created concurrently, transaction will be retried")
		}
		return 0, false, err
	}

	s.logger.Info("customer registered", zap.Int64("customerId", id))
	return id, true, nil
}

func (s *IntakeService) insertOrder(ctx context.Context, tx *sql.Tx, customerID int64, code domain.ServiceCode) (*domain.Order, error) {
	order := domain.Order{
		CustomerID:  customerID,
		ServiceCode: code,
		CreatedAt:   s.now(),
	}

	id, err := s.orderRepo.Insert(ctx, tx, order)
	if err != nil {
		s.logger.Error("failed to insert order", zap.Int64("customerId", customerID), zap.Error(err))
		return nil, err
	}

	order.ID = id
	return &order, nil
}
