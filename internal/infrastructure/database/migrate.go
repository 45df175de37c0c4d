package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schemas = map[string][]string{
	DialectMySQL: {
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			display_name VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
			phone VARCHAR(64) COLLATE utf8mb4_bin NOT NULL,
			credential_hash CHAR(64) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY ux_customers_identity (display_name, phone)
		) DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			service_code VARCHAR(32) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_orders_customer FOREIGN KEY (customer_id) REFERENCES customers(id),
			CONSTRAINT chk_orders_service CHECK (service_code IN ('oil_change', 'chain_adjustment', 'engine_repair', 'road_assistance')),
			INDEX idx_orders_customer (customer_id)
		)`,
	},
	DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			display_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			credential_hash CHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT ux_customers_identity UNIQUE (display_name, phone)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			service_code TEXT NOT NULL CHECK (service_code IN ('oil_change', 'chain_adjustment', 'engine_repair', 'road_assistance')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id)`,
	},
	DialectSQLite: {
		`CREATE TABLE IF NOT EXISTS customers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			display_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			credential_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (display_name, phone)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id INTEGER NOT NULL REFERENCES customers(id),
			service_code TEXT NOT NULL CHECK (service_code IN ('oil_change', 'chain_adjustment', 'engine_repair', 'road_assistance')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id)`,
	},
}

// Migrate creates the customers and orders tables. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	statements, ok := schemas[dialect.Name]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", dialect.Name)
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
