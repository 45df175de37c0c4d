package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motomaster/internal/config"
)

func TestDialectFor(t *testing.T) {
	for _, name := range []string{DialectMySQL, DialectPostgres, DialectSQLite} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.DriverName())
	}

	_, err := DialectFor("oracle")
	assert.Error(t, err)
}

func TestDialect_Rebind(t *testing.T) {
	query := `SELECT id FROM customers WHERE display_name = ? AND phone = ?`

	assert.Equal(t, query, Dialect{Name: DialectMySQL}.Rebind(query))
	assert.Equal(t, query, Dialect{Name: DialectSQLite}.Rebind(query))
	assert.Equal(t,
		`SELECT id FROM customers WHERE display_name = $1 AND phone = $2`,
		Dialect{Name: DialectPostgres}.Rebind(query),
	)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("inserting customer: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1213}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsContention(t *testing.T) {
	assert.True(t, IsContention(&mysql.MySQLError{Number: 1213}))
	assert.True(t, IsContention(&mysql.MySQLError{Number: 1205}))
	assert.True(t, IsContention(&pq.Error{Code: "40P01"}))
	assert.True(t, IsContention(&pq.Error{Code: "40001"}))
	assert.False(t, IsContention(&pq.Error{Code: "23505"}))
	assert.False(t, IsContention(errors.New("boom")))
}

func TestSQLite_UniqueViolationIsDetected(t *testing.T) {
	db, dialect, err := NewConnection(config.DatabaseConfig{
		Driver: DialectSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, dialect))
	// Migrate is idempotent.
	require.NoError(t, Migrate(ctx, db, dialect))

	insert := `INSERT INTO customers (display_name, phone, credential_hash) VALUES (?, ?, ?)`
	id, err := dialect.InsertReturningID(ctx, db, insert, "Ivan", "+79990000000", "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = dialect.InsertReturningID(ctx, db, insert, "Ivan", "+79990000000", "other")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsContention(err))
}

func TestSQLite_ForeignKeysEnforced(t *testing.T) {
	db, dialect, err := NewConnection(config.DatabaseConfig{
		Driver: DialectSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, dialect))

	_, err = db.ExecContext(ctx, `INSERT INTO orders (customer_id, service_code) VALUES (?, ?)`, 999, "oil_change")
	assert.Error(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO customers (display_name, phone, credential_hash) VALUES ('A', '1', 'h')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO orders (customer_id, service_code) VALUES (?, ?)`, 1, "car_wash")
	assert.Error(t, err)
}

func TestNewConnection_UnsupportedDriver(t *testing.T) {
	_, _, err := NewConnection(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMySQLSchema_IdentityColumnsCompareBinary(t *testing.T) {
	customers := schemas[DialectMySQL][0]
	assert.Contains(t, customers, "display_name VARCHAR(255) COLLATE utf8mb4_bin")
	assert.Contains(t, customers, "phone VARCHAR(64) COLLATE utf8mb4_bin")
}

func TestSQLite_IdentityIsCaseSensitive(t *testing.T) {
	db, dialect, err := NewConnection(config.DatabaseConfig{
		Driver: DialectSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, dialect))

	insert := `INSERT INTO customers (display_name, phone, credential_hash) VALUES (?, ?, ?)`
	_, err = dialect.InsertReturningID(ctx, db, insert, "Ivan", "+79990000000", "hash")
	require.NoError(t, err)
	id, err := dialect.InsertReturningID(ctx, db, insert, "IVAN", "+79990000000", "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}
