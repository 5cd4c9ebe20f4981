package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"echost/internal/apperr"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return New(db, Postgres), mock, db
}

func TestRebind(t *testing.T) {
	pg := New(nil, Postgres)
	got := pg.rebind("UPDATE files SET filename = ? WHERE owner = ? AND path = ?")
	want := "UPDATE files SET filename = $1 WHERE owner = $2 AND path = $3"
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}

	lite := New(nil, SQLite)
	if q := "SELECT 1 WHERE a = ?"; lite.rebind(q) != q {
		t.Fatalf("sqlite queries must not be rewritten")
	}
}

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@h/db":       "pgx5://u:p@h/db",
		"postgresql://u:p@h/db?x=1": "pgx5://u:p@h/db?x=1",
		"pgx5://already":            "pgx5://already",
	}
	for in, want := range tests {
		if got := migrateURL(in); got != want {
			t.Fatalf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateUser_UsesPostgresPlaceholders(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`^INSERT INTO users \(username, passwordHash\) VALUES \(\$1, \$2\)$`).
		WithArgs("eve", "hash").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.CreateUser(context.Background(), "eve", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetPasswordHash_DBError(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT passwordHash FROM users`).
		WithArgs("eve").
		WillReturnError(errors.New("db down"))

	_, ok, err := s.GetPasswordHash(context.Background(), "eve")
	if ok || err == nil {
		t.Fatalf("expected error, got ok=%v err=%v", ok, err)
	}
	if !apperr.IsStorage(err) {
		t.Fatalf("expected StorageError, got %T: %v", err, err)
	}
}

func TestFindOwnerByPath_DBError(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT f\.owner FROM files f\s+JOIN users u`).
		WithArgs("p1").
		WillReturnError(errors.New("conn reset"))

	if _, _, err := s.FindOwnerByPath(context.Background(), "p1"); !apperr.IsStorage(err) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestListFiles_ScanError(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"owner", "filename"}).AddRow("eve", "a.txt")
	mock.ExpectQuery(`SELECT owner, filename, path FROM files`).WillReturnRows(rows)

	if _, err := s.ListFiles(context.Background()); !apperr.IsStorage(err) {
		t.Fatalf("expected StorageError on scan mismatch, got %v", err)
	}
}

func TestDeleteUser_ExecError(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM users WHERE username = \$1$`).
		WithArgs("eve").
		WillReturnError(errors.New("locked"))

	err := s.DeleteUser(context.Background(), "eve")
	var se *apperr.StorageError
	if !errors.As(err, &se) || se.Op != "delete user" {
		t.Fatalf("expected delete user StorageError, got %v", err)
	}
}
