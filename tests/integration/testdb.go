// Package integration runs the order core against a real PostgreSQL started with testcontainers.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/garmentflow/backend/internal/infrastructure/config"
	"github.com/garmentflow/backend/internal/infrastructure/migration"
	"github.com/garmentflow/backend/internal/infrastructure/persistence"
	"github.com/garmentflow/backend/migrations"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// TestDB is a migrated database in a throwaway container.
type TestDB struct {
	*persistence.Database
	t *testing.T
}

// NewTestDB needs docker and is skipped under -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test needs docker")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("garmentflow_test"),
		tcpostgres.WithUsername("garmentflow"),
		tcpostgres.WithPassword("garmentflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Host:         host,
		Port:         port.Int(),
		User:         "garmentflow",
		Password:     "garmentflow",
		DBName:       "garmentflow_test",
		SSLMode:      "disable",
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	})
	require.NoError(t, err, "connect to postgres container")
	t.Cleanup(func() { _ = db.Close() })

	m, err := migration.NewFromFS(db.SQL, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up(), "apply migrations")

	return &TestDB{Database: db, t: t}
}

// SeedProduct lists a "Denim Jacket" for managerEmail.
func (tdb *TestDB) SeedProduct(managerEmail string, stock, minOrder int, price, paymentOption string) uuid.UUID {
	tdb.t.Helper()
	id := uuid.New()
	require.NoError(tdb.t, tdb.DB.Exec(
		`INSERT INTO products (id, name, manager_email, price, available_quantity, min_order, payment_option)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, "Denim Jacket", managerEmail, decimal.RequireFromString(price), stock, minOrder, paymentOption,
	).Error, "seed product")
	return id
}

func (tdb *TestDB) Stock(productID uuid.UUID) int {
	tdb.t.Helper()
	var qty int
	require.NoError(tdb.t, tdb.DB.Raw(`SELECT available_quantity FROM products WHERE id = ?`, productID).Scan(&qty).Error)
	return qty
}

// Count counts rows of table matching where.
func (tdb *TestDB) Count(table, where string, args ...any) int64 {
	tdb.t.Helper()
	var n int64
	require.NoError(tdb.t, tdb.DB.Table(table).Where(where, args...).Count(&n).Error)
	return n
}
