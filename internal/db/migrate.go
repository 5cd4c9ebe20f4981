package db

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies every pending migration for the store's dialect.
// An up-to-date schema is not an error.
func RunMigrations(s *Store) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(s.dialect))
	if err != nil {
		return err
	}

	var m *migrate.Migrate
	switch s.dialect {
	case SQLite:
		// WithInstance shares the store's single connection; closing the
		// migrate instance would close it too, so only the source is closed.
		defer func() { _ = src.Close() }()
		driver, err := sqlite.WithInstance(s.sql, &sqlite.Config{})
		if err != nil {
			return err
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite", driver)
		if err != nil {
			return err
		}
	case Postgres:
		m, err = migrate.NewWithSourceInstance("iofs", src, migrateURL(s.url))
		if err != nil {
			_ = src.Close()
			return err
		}
		defer func() { _, _ = m.Close() }()
	default:
		_ = src.Close()
		return errors.New("unknown dialect " + string(s.dialect))
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// migrateURL maps a PostgreSQL URL onto the scheme registered by the
// golang-migrate pgx/v5 driver.
func migrateURL(url string) string {
	for _, p := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(url, p) {
			return "pgx5://" + strings.TrimPrefix(url, p)
		}
	}
	return url
}
