package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/headhuntertrace/headhunter/internal/config"
	"github.com/headhuntertrace/headhunter/internal/core"
)

const (
	driverLibsql   = "libsql"
	driverPostgres = "postgres"
)

var (
	// ErrUserNotFound is returned when no profile exists for a user id.
	ErrUserNotFound = errors.New("user profile not found")
	// ErrNoCredits is returned when a conditional decrement finds a zero balance.
	ErrNoCredits = core.ErrNoCredits
	// ErrSearchNotFound is returned when no search record exists for an id.
	ErrSearchNotFound = errors.New("search not found")
	// ErrInvalidTransition is returned when a status update targets a terminal record.
	ErrInvalidTransition = errors.New("invalid search status transition")
	// ErrDuplicateEmail is returned when a profile already uses the email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Store wraps the database connection for Headhunter.
type Store struct {
	DB     *sql.DB
	driver string
	pool   *pgxpool.Pool

	// Now supplies timestamps for updates; defaults to time.Now.
	Now func() time.Time
}

// Open connects to the configured database and pings it. An empty driver
// means libsql; "pgx" and "postgresql" are aliases of postgres.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch driver := normalizeDriver(cfg.Driver); driver {
	case driverLibsql:
		return openLibsql(ctx, cfg)
	case driverPostgres:
		return openPostgres(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

func openLibsql(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	dsn, err := libsqlDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverLibsql, dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}
	if dsn == memoryDSN {
		// every :memory: connection is its own database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping libsql store: %w", err)
	}
	return &Store{DB: db, driver: driverLibsql}, nil
}

func openPostgres(ctx context.Context, url string) (*Store, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("store url is required for postgres")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres store: %w", err)
	}
	return &Store{DB: stdlib.OpenDBFromPool(pool), driver: driverPostgres, pool: pool}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	err := s.DB.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// Driver returns the configured store driver.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.DB.PingContext(ctx)
}

func (s *Store) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// bind rewrites ? placeholders into the driver's native form.
func (s *Store) bind(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func normalizeDriver(raw string) string {
	driver := strings.ToLower(strings.TrimSpace(raw))
	switch driver {
	case "":
		return driverLibsql
	case "pgx", "postgresql":
		return driverPostgres
	default:
		return driver
	}
}
