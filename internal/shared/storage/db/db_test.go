package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubOpen makes Connect hand out sqlmock pools and counts the opens.
func stubOpen(t *testing.T, pingErr error) (*int, func() sqlmock.Sqlmock) {
	t.Helper()
	prev := openDB
	t.Cleanup(func() { openDB = prev })

	opens := 0
	var last sqlmock.Sqlmock
	openDB = func(string) (*sql.DB, error) {
		opens++
		pool, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			return nil, err
		}
		mock.ExpectPing().WillReturnError(pingErr)
		last = mock
		return pool, nil
	}
	return &opens, func() sqlmock.Sqlmock { return last }
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), "  ", ProfileServer.Defaults())
	assert.ErrorIs(t, err, ErrNoDatabaseURL)
}

func TestConnectAppliesPoolOptions(t *testing.T) {
	_, mock := stubOpen(t, nil)
	opts := ProfileServer.Defaults().Merge(Options{MaxOpenConns: 7})

	pool, err := Connect(context.Background(), "postgres://insights", opts)
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, 7, pool.Stats().MaxOpenConnections)
	require.NoError(t, mock().ExpectationsWereMet())
}

func TestConnectFailsWhenPingFails(t *testing.T) {
	stubOpen(t, errors.New("connection refused"))
	_, err := Connect(context.Background(), "postgres://insights", ProfileMigrate.Defaults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: ping")
}

func TestProfileDefaults(t *testing.T) {
	assert.Equal(t, 2, ProfileLambda.Defaults().MaxOpenConns)
	assert.Equal(t, 1, ProfileMigrate.Defaults().MaxOpenConns)
	assert.Equal(t, 10, ProfileServer.Defaults().MaxOpenConns)
	assert.Equal(t, "lambda", ProfileLambda.String())
}

func TestMergeKeepsDefaultsForZeroFields(t *testing.T) {
	got := ProfileServer.Defaults().Merge(Options{
		MaxIdleConns:    3,
		ConnMaxLifetime: 20 * time.Minute,
	})
	assert.Equal(t, Options{
		MaxOpenConns:    10,
		MaxIdleConns:    3,
		ConnMaxLifetime: 20 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		PingTimeout:     5 * time.Second,
	}, got)

	capped := ProfileLambda.Defaults().Merge(Options{MaxIdleConns: 8})
	assert.Equal(t, 2, capped.MaxIdleConns, "idle connections never exceed the open limit")
}

func TestSharedReusesPool(t *testing.T) {
	opens, _ := stubOpen(t, nil)
	var s Shared

	first, err := s.Get(context.Background(), "postgres://insights", ProfileLambda.Defaults())
	require.NoError(t, err)
	second, err := s.Get(context.Background(), "postgres://insights", ProfileLambda.Defaults())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, *opens)
}

func TestSharedRetriesAfterFailure(t *testing.T) {
	prev := openDB
	t.Cleanup(func() { openDB = prev })
	calls := 0
	openDB = func(string) (*sql.DB, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("dns lookup failed")
		}
		pool, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			return nil, err
		}
		mock.ExpectPing()
		return pool, nil
	}

	var s Shared
	_, err := s.Get(context.Background(), "postgres://insights", ProfileLambda.Defaults())
	require.Error(t, err)

	pool, err := s.Get(context.Background(), "postgres://insights", ProfileLambda.Defaults())
	require.NoError(t, err)
	assert.NotNil(t, pool)
	assert.Equal(t, 2, calls)
}

func TestRunMigrationsNilDatabaseIsNoop(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil))
}
