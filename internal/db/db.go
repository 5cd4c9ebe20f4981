// Package db is the credential store: the users and files tables behind
// echost, on SQLite by default or PostgreSQL when a connection URL is given.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour used for placeholders and migrations.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Options says where the database lives. URL wins when set and must be a
// postgres:// or postgresql:// connection string; otherwise Path is a SQLite
// file.
type Options struct {
	Path string
	URL  string
}

// IsPostgresURL reports whether s is a PostgreSQL connection URL.
func IsPostgresURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// Store runs the credential store queries.
type Store struct {
	sql     *sql.DB
	dialect Dialect
	url     string
}

// New wraps an already opened database. Migrations are not run.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{sql: db, dialect: dialect}
}

// Open connects to the database described by opt, verifies connectivity and
// brings the schema up to date.
func Open(ctx context.Context, opt Options) (*Store, error) {
	var (
		s   *Store
		err error
	)
	switch {
	case opt.URL != "":
		if !IsPostgresURL(opt.URL) {
			return nil, errors.New("database url must start with postgres:// or postgresql://")
		}
		s, err = openPostgres(opt.URL)
	case opt.Path != "":
		s, err = openSQLite(opt.Path)
	default:
		return nil, errors.New("db path is required")
	}
	if err != nil {
		return nil, err
	}

	if err := s.Ping(ctx); err != nil {
		_ = s.sql.Close()
		return nil, err
	}
	if s.dialect == SQLite {
		if err := s.setPragmas(ctx); err != nil {
			_ = s.sql.Close()
			return nil, err
		}
	}
	if err := RunMigrations(s); err != nil {
		_ = s.sql.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func openSQLite(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return &Store{sql: db, dialect: SQLite}, nil
}

func openPostgres(url string) (*Store, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{sql: db, dialect: Postgres, url: url}, nil
}

// Dialect returns the dialect the store was opened with.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.sql.Close()
}

// Ping checks connectivity with a short timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.sql.PingContext(ctx)
}

func (s *Store) setPragmas(ctx context.Context) error {
	if _, err := s.sql.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return err
	}
	_, err := s.sql.ExecContext(ctx, "PRAGMA busy_timeout = 5000;")
	return err
}

// rebind rewrites ? placeholders into $1, $2, ... for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
