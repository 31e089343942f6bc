package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/config"
)

func TestLibsqlDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io",
			AuthToken: "token123",
		}

		dsn, err := libsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, err := libsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./headhunter.db"}

		dsn, err := libsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:./headhunter.db", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		_, err := libsqlDSN(config.StoreConfig{})
		require.Error(t, err)
	})

	t.Run("PlainPathCreatesParent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "headhunter.db")
		dsn, err := libsqlDSN(config.StoreConfig{Path: path})
		require.NoError(t, err)
		require.Equal(t, "file:"+path, dsn)
		require.DirExists(t, filepath.Dir(path))
	})

	t.Run("ExistingTokenKept", func(t *testing.T) {
		dsn, err := libsqlDSN(config.StoreConfig{URL: "libsql://db.turso.io?authToken=mine", AuthToken: "other"})
		require.NoError(t, err)
		require.Equal(t, "libsql://db.turso.io?authToken=mine", dsn)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		dsn, err := libsqlDSN(config.StoreConfig{Path: ":memory:"})
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})
}

func TestRebindDollar(t *testing.T) {
	require.Equal(t, "SELECT 1", rebindDollar("SELECT 1"))
	require.Equal(t,
		"UPDATE t SET a = $1, b = $2 WHERE id = $3",
		rebindDollar("UPDATE t SET a = ?, b = ? WHERE id = ?"),
	)
}

func TestBindKeepsPlaceholdersForLibsql(t *testing.T) {
	s := &Store{driver: driverLibsql}
	require.Equal(t, "WHERE id = ?", s.bind("WHERE id = ?"))

	pg := &Store{driver: driverPostgres}
	require.Equal(t, "WHERE id = $1", pg.bind("WHERE id = ?"))
}

func TestNormalizeDriver(t *testing.T) {
	require.Equal(t, driverLibsql, normalizeDriver(""))
	require.Equal(t, driverLibsql, normalizeDriver(" LibSQL "))
	require.Equal(t, driverPostgres, normalizeDriver("pgx"))
	require.Equal(t, driverPostgres, normalizeDriver("postgresql"))
	require.Equal(t, "mysql", normalizeDriver("mysql"))
}

func TestNilStoreGuards(t *testing.T) {
	var s *Store

	require.NoError(t, s.Close())
	require.Equal(t, "", s.Driver())
	require.Error(t, s.Migrate(nil))

	_, err := s.DecrementCredits(nil, "u1")
	require.Error(t, err)
	_, err = s.ListSearches(nil, "u1", 10)
	require.Error(t, err)
}

func TestIsEmailConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres email index", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_user_profiles_email"}), true},
		{"postgres primary key", &pgconn.PgError{Code: "23505", ConstraintName: "user_profiles_pkey"}, false},
		{"postgres other code", &pgconn.PgError{Code: "23502", ConstraintName: "idx_user_profiles_email"}, false},
		{"libsql email", errors.New("SQLite error: UNIQUE constraint failed: user_profiles.email"), true},
		{"libsql id", errors.New("SQLite error: UNIQUE constraint failed: user_profiles.id"), false},
		{"other", errors.New("disk I/O error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isEmailConflict(tt.err))
		})
	}
}
