package repository

import (
	"context"
	"database/sql"
	"fmt"

	"motomaster/internal/domain"
	"motomaster/internal/errors"
	"motomaster/internal/infrastructure/database"
)

type SQLCustomerRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewSQLCustomerRepository(db *sql.DB, dialect database.Dialect) *SQLCustomerRepository {
	return &SQLCustomerRepository{db: db, dialect: dialect}
}

// FindByIdentity looks a customer up by its (display name, phone) pair using
// q, which may be a transaction.
func (r *SQLCustomerRepository) FindByIdentity(ctx context.Context, q database.Querier, displayName, phone string) (*domain.Customer, error) {
	query := r.dialect.Rebind(`
		SELECT id, display_name, phone, credential_hash, created_at
		FROM customers
		WHERE display_name = ? AND phone = ?
	`)

	var customer domain.Customer
	err := q.QueryRowContext(ctx, query, displayName, phone).Scan(
		&customer.ID, &customer.DisplayName, &customer.Phone,
		&customer.CredentialHash, &customer.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("customer not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying customer by identity: %w", err)
	}

	return &customer, nil
}

func (r *SQLCustomerRepository) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	query := r.dialect.Rebind(`
		SELECT id, display_name, phone, credential_hash, created_at
		FROM customers
		WHERE id = ?
	`)

	var customer domain.Customer
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID, &customer.DisplayName, &customer.Phone,
		&customer.CredentialHash, &customer.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("customer with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying customer by id: %w", err)
	}

	return &customer, nil
}

// Insert stores a new customer. A concurrent insert of the same identity
// surfaces as a unique violation (see database.IsUniqueViolation).
func (r *SQLCustomerRepository) Insert(ctx context.Context, q database.Querier, customer domain.Customer) (int64, error) {
	query := `INSERT INTO customers (display_name, phone, credential_hash, created_at) VALUES (?, ?, ?, ?)`

	id, err := r.dialect.InsertReturningID(ctx, q, query,
		customer.DisplayName, customer.Phone, customer.CredentialHash, customer.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting customer: %w", err)
	}

	return id, nil
}
