package db

import (
	"context"
	"database/sql"
	"errors"

	"echost/internal/apperr"
)

// File is one row of the files table.
type File struct {
	Owner    string
	Filename string
	Path     string
}

// CreateUser inserts a user row. Uniqueness is the caller's concern.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.sql.ExecContext(ctx, s.rebind(
		"INSERT INTO users (username, passwordHash) VALUES (?, ?)"),
		username, passwordHash)
	return apperr.Storage("create user", err)
}

// GetPasswordHash returns the stored hash for username. The boolean is false
// when the user does not exist.
func (s *Store) GetPasswordHash(ctx context.Context, username string) (string, bool, error) {
	var h string
	err := s.sql.QueryRowContext(ctx, s.rebind(
		"SELECT passwordHash FROM users WHERE username = ?"), username).Scan(&h)
	if err == nil {
		return h, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return "", false, apperr.Storage("get password hash", err)
}

// SetPasswordHash replaces the hash of an existing user. Unknown users are
// left alone.
func (s *Store) SetPasswordHash(ctx context.Context, username, passwordHash string) error {
	_, err := s.sql.ExecContext(ctx, s.rebind(
		"UPDATE users SET passwordHash = ? WHERE username = ?"),
		passwordHash, username)
	return apperr.Storage("set password hash", err)
}

// DeleteUser removes the user row. The user's files stay behind as orphans
// until the cleanup sweep runs.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	_, err := s.sql.ExecContext(ctx, s.rebind(
		"DELETE FROM users WHERE username = ?"), username)
	return apperr.Storage("delete user", err)
}

// ListUsers returns every username in alphabetical order.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.sql.QueryContext(ctx, "SELECT username FROM users ORDER BY username")
	if err != nil {
		return nil, apperr.Storage("list users", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, apperr.Storage("list users", err)
		}
		out = append(out, u)
	}
	return out, apperr.Storage("list users", rows.Err())
}

// CreateFile maps filename to path for owner.
func (s *Store) CreateFile(ctx context.Context, owner, filename, path string) error {
	_, err := s.sql.ExecContext(ctx, s.rebind(
		"INSERT INTO files (owner, filename, path) VALUES (?, ?, ?)"),
		owner, filename, path)
	return apperr.Storage("create file", err)
}

// RenameFile changes the display name of the file stored at path. The path
// itself never changes.
func (s *Store) RenameFile(ctx context.Context, owner, path, newFilename string) error {
	_, err := s.sql.ExecContext(ctx, s.rebind(
		"UPDATE files SET filename = ? WHERE owner = ? AND path = ?"),
		newFilename, owner, path)
	return apperr.Storage("rename file", err)
}

// DeleteFile removes the mapping of owner's file at path.
func (s *Store) DeleteFile(ctx context.Context, owner, path string) error {
	_, err := s.sql.ExecContext(ctx, s.rebind(
		"DELETE FROM files WHERE owner = ? AND path = ?"), owner, path)
	return apperr.Storage("delete file", err)
}

// DeleteFileByName removes every mapping of filename for owner.
func (s *Store) DeleteFileByName(ctx context.Context, owner, filename string) error {
	_, err := s.sql.ExecContext(ctx, s.rebind(
		"DELETE FROM files WHERE owner = ? AND filename = ?"), owner, filename)
	return apperr.Storage("delete file", err)
}

// GetPathForFilename resolves owner/filename to a storage path.
func (s *Store) GetPathForFilename(ctx context.Context, owner, filename string) (string, bool, error) {
	var p string
	err := s.sql.QueryRowContext(ctx, s.rebind(
		"SELECT path FROM files WHERE owner = ? AND filename = ?"), owner, filename).Scan(&p)
	if err == nil {
		return p, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return "", false, apperr.Storage("get path", err)
}

// FindOwnerByPath returns the owner of the file stored at path, provided the
// owner still exists as a user.
func (s *Store) FindOwnerByPath(ctx context.Context, path string) (string, bool, error) {
	var owner string
	err := s.sql.QueryRowContext(ctx, s.rebind(`
SELECT f.owner FROM files f
JOIN users u ON u.username = f.owner
WHERE f.path = ?`), path).Scan(&owner)
	if err == nil {
		return owner, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return "", false, apperr.Storage("find owner", err)
}

// ListFiles returns every file row ordered by owner and filename.
func (s *Store) ListFiles(ctx context.Context) ([]File, error) {
	return s.queryFiles(ctx, "list files",
		"SELECT owner, filename, path FROM files ORDER BY owner, filename")
}

// ListFilesByOwner returns owner's file rows ordered by filename.
func (s *Store) ListFilesByOwner(ctx context.Context, owner string) ([]File, error) {
	return s.queryFiles(ctx, "list files",
		s.rebind("SELECT owner, filename, path FROM files WHERE owner = ? ORDER BY filename"), owner)
}

func (s *Store) queryFiles(ctx context.Context, op, query string, args ...any) ([]File, error) {
	rows, err := s.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.Owner, &f.Filename, &f.Path); err != nil {
			return nil, apperr.Storage(op, err)
		}
		out = append(out, f)
	}
	return out, apperr.Storage(op, rows.Err())
}
