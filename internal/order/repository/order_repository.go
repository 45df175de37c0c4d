package repository

import (
	"context"
	"database/sql"
	"fmt"

	"motomaster/internal/domain"
	"motomaster/internal/errors"
	"motomaster/internal/infrastructure/database"
)

type SQLOrderRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewSQLOrderRepository(db *sql.DB, dialect database.Dialect) *SQLOrderRepository {
	return &SQLOrderRepository{db: db, dialect: dialect}
}

func (r *SQLOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := r.dialect.Rebind(`
		SELECT id, customer_id, service_code, created_at
		FROM orders
		WHERE id = ?
	`)

	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.CustomerID, &order.ServiceCode, &order.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return &order, nil
}

func (r *SQLOrderRepository) Insert(ctx context.Context, q database.Querier, order domain.Order) (int64, error) {
	query := `INSERT INTO orders (customer_id, service_code, created_at) VALUES (?, ?, ?)`

	id, err := r.dialect.InsertReturningID(ctx, q, query,
		order.CustomerID, string(order.ServiceCode), order.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	return id, nil
}
