package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"apartmentng/internal/db"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")

// ErrMissingReference reports a write that points at a row that no longer exists.
var ErrMissingReference = errors.New("missing reference")

type Store struct {
	db      *sql.DB
	dialect db.Dialect
	now     func() time.Time
}

func New(sqdb *sql.DB, d db.Dialect) *Store {
	return &Store{db: sqdb, dialect: d, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.Rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(q), args...)
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(q), args...)
}

// insert runs an INSERT and returns the new row id.
func (s *Store) insert(ctx context.Context, q string, args ...any) (int64, error) {
	if s.dialect.SupportsReturning() {
		var id int64
		err := s.queryRow(ctx, q+" RETURNING id", args...).Scan(&id)
		return id, mapWriteErr(err)
	}
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return res.LastInsertId()
}

// execOne runs a single-row mutation and reports ErrNotFound when nothing matched.
func (s *Store) execOne(ctx context.Context, q string, args ...any) error {
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return mapWriteErr(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return ErrConflict
	case isForeignKeyViolation(err):
		return ErrMissingReference
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "sqlstate 23505")
}

func isForeignKeyViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint") ||
		strings.Contains(msg, "sqlstate 23503")
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
