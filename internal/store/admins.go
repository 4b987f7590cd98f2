package store

import (
	"context"
	"database/sql"
	"strings"

	"apartmentng/internal/models"
)

const adminColumns = `id,email,password_hash,name,created_at`

func scanAdmin(row rowScanner) (models.Admin, error) {
	var a models.Admin
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Admin{}, ErrNotFound
	}
	return a, err
}

func (s *Store) CreateAdmin(ctx context.Context, email, passwordHash, name string) (models.Admin, error) {
	a := models.Admin{Email: email, PasswordHash: passwordHash, Name: name, CreatedAt: s.now()}
	id, err := s.insert(ctx,
		`INSERT INTO admins(email,password_hash,name,created_at) VALUES(?,?,?,?)`,
		a.Email, a.PasswordHash, a.Name, a.CreatedAt,
	)
	if err != nil {
		return models.Admin{}, err
	}
	a.ID = id
	return a, nil
}

// EnsureAdmin inserts the bootstrap admin if the email is not yet present.
// It reports whether a row was created; existing admins are left untouched.
func (s *Store) EnsureAdmin(ctx context.Context, email, passwordHash, name string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return false, nil
	}
	_, err := s.GetAdminByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if err != ErrNotFound {
		return false, err
	}
	if _, err := s.CreateAdmin(ctx, email, passwordHash, name); err != nil {
		if err == ErrConflict {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := s.queryRow(ctx, `SELECT COUNT(1) FROM admins`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (models.Admin, error) {
	return scanAdmin(s.queryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email=?`, email))
}

func (s *Store) GetAdminByID(ctx context.Context, id int64) (models.Admin, error) {
	return scanAdmin(s.queryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id=?`, id))
}

func (s *Store) UpdateAdminPasswordHash(ctx context.Context, id int64, passwordHash string) error {
	return s.execOne(ctx, `UPDATE admins SET password_hash=? WHERE id=?`, passwordHash, id)
}
