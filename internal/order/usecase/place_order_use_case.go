package usecase

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"motomaster/internal/domain"
	"motomaster/internal/dto"
	apperrors "motomaster/internal/errors"
	"motomaster/internal/infrastructure/database"
)

type IntakeService interface {
	RecordOrder(ctx context.Context, req dto.PlaceOrderRequest) (*dto.PlaceOrderResult, error)
	ResolveOrCreateCustomer(ctx context.Context, identity dto.CustomerIdentity) (int64, error)
	CreateOrder(ctx context.Context, customerID int64, code domain.ServiceCode) (*domain.Order, error)
}

type PlaceOrderUseCase struct {
	intakeSvc        IntakeService
	logger           *zap.Logger
	maxRetryAttempts int
	backoff          func(attempt int) time.Duration
}

func NewPlaceOrderUseCase(intakeSvc IntakeService, logger *zap.Logger, maxRetryAttempts int) *PlaceOrderUseCase {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &PlaceOrderUseCase{
		intakeSvc:        intakeSvc,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		backoff:          jitteredBackoff,
	}
}

// PlaceOrder records the order for the customer identified by name and phone,
// registering the customer first when unknown. Both writes commit together.
func (uc *PlaceOrderUseCase) PlaceOrder(ctx context.Context, req dto.PlaceOrderRequest) (*dto.PlaceOrderResult, error) {
	uc.logger.Info("place-order started", zap.String("serviceCode", string(req.ServiceCode)))

	if err := validatePlaceOrderRequest(req); err != nil {
		return nil, err
	}

	var result *dto.PlaceOrderResult
	err := uc.withRetry(ctx, "place-order", func() error {
		r, err := uc.intakeSvc.RecordOrder(ctx, req)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *PlaceOrderUseCase) ResolveOrCreateCustomer(ctx context.Context, identity dto.CustomerIdentity) (int64, error) {
	if details := validateIdentity(identity); len(details) > 0 {
		return 0, apperrors.NewValidationError("validation failed", details...)
	}

	var customerID int64
	err := uc.withRetry(ctx, "resolve-customer", func() error {
		id, err := uc.intakeSvc.ResolveOrCreateCustomer(ctx, identity)
		customerID = id
		return err
	})
	if err != nil {
		return 0, err
	}
	return customerID, nil
}

func (uc *PlaceOrderUseCase) CreateOrder(ctx context.Context, customerID int64, code domain.ServiceCode) (*domain.Order, error) {
	var details []apperrors.ValidationDetail
	if customerID <= 0 {
		details = append(details, apperrors.ValidationDetail{Field: "customerId", Message: "customerId must be a positive integer"})
	}
	if !code.Valid() {
		details = append(details, apperrors.ValidationDetail{Field: "serviceCode", Message: "serviceCode is not a known service"})
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	var order *domain.Order
	err := uc.withRetry(ctx, "create-order", func() error {
		o, err := uc.intakeSvc.CreateOrder(ctx, customerID, code)
		order = o
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// withRetry reruns fn while the store reports a lost uniqueness race or lock
// contention. Any other error is returned as is.
func (uc *PlaceOrderUseCase) withRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; attempt <= uc.maxRetryAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		if attempt == uc.maxRetryAttempts {
			break
		}

		uc.logger.Warn("store contention, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", uc.maxRetryAttempts),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(uc.backoff(attempt)):
		}
	}

	uc.logger.Error("retries exhausted", zap.String("operation", op), zap.Int("maxAttempts", uc.maxRetryAttempts))
	return apperrors.NewDeadlockError("max retries exceeded")
}

func isRetryable(err error) bool {
	return database.IsUniqueViolation(err) || database.IsContention(err)
}

// jitteredBackoff waits 50ms, 100ms, 200ms... with +/-20% jitter.
func jitteredBackoff(attempt int) time.Duration {
	base := 50 * time.Millisecond << (attempt - 1)
	factor := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(base) * factor)
}

func validatePlaceOrderRequest(req dto.PlaceOrderRequest) error {
	details := validateIdentity(req.Customer)
	if !req.ServiceCode.Valid() {
		details = append(details, apperrors.ValidationDetail{
			Field:   "serviceCode",
			Message: "serviceCode is not a known service",
		})
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}

func validateIdentity(identity dto.CustomerIdentity) []apperrors.ValidationDetail {
	var details []apperrors.ValidationDetail
	if strings.TrimSpace(identity.DisplayName) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "displayName", Message: "displayName is required"})
	}
	if strings.TrimSpace(identity.Phone) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "phone", Message: "phone is required"})
	}
	if identity.Credential == "" {
		details = append(details, apperrors.ValidationDetail{Field: "credential", Message: "credential is required"})
	}
	return details
}
