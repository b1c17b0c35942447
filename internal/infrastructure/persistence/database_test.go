package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/garmentflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	db, err := wrap(gdb)
	require.NoError(t, err)
	assert.Same(t, conn, db.SQL)
	return db, mock
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		mock.ExpectPing()
		require.NoError(t, db.Ping(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreachable", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		assert.ErrorContains(t, db.Ping(context.Background()), "connection refused")
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock := newMockDatabase(t)
	mock.ExpectClose()
	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurePool(t *testing.T) {
	db, _ := newMockDatabase(t)
	configurePool(db.SQL, &config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 2, ConnMaxLifetime: 30, ConnMaxIdleTime: 5})
	assert.Equal(t, 7, db.SQL.Stats().MaxOpenConnections)
}

func TestNewDatabase_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	_, err := NewDatabase(&config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, User: "gf", DBName: "gf", SSLMode: "disable",
		MaxOpenConns: 1, ConnMaxLifetime: 1,
	})
	assert.Error(t, err)
}
