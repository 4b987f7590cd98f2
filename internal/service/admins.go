package service

import (
	"context"
	"errors"
	"strings"

	"apartmentng/internal/apperr"
	"apartmentng/internal/auth"
	"apartmentng/internal/authz"
	"apartmentng/internal/models"
	"apartmentng/internal/store"
)

func (s *Service) AdminLogin(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, apperr.Validation("Email and password are required")
	}
	a, err := s.st.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, apperr.Unauthenticated("Invalid credentials")
		}
		return LoginResult{}, apperr.Internal(err)
	}
	if !auth.VerifyPassword(a.PasswordHash, password) {
		return LoginResult{}, apperr.Unauthenticated("Invalid credentials")
	}
	if auth.IsLegacyHash(a.PasswordHash) {
		s.rehashAdmin(ctx, a.ID, password)
	}
	return s.issue(auth.Principal{ID: a.ID, Role: auth.RoleAdmin}, a.Name, a.Email)
}

// rehashAdmin upgrades a bcrypt hash carried over from an older deployment.
// Failure only costs another rehash on the next login.
func (s *Service) rehashAdmin(ctx context.Context, id int64, password string) {
	h, err := auth.HashPassword(password)
	if err == nil {
		err = s.st.UpdateAdminPasswordHash(ctx, id, h)
	}
	if err != nil {
		s.log.WithError(err).WithField("admin_id", id).Warn("legacy password rehash failed")
	}
}

func (s *Service) AdminProfile(ctx context.Context, p auth.Principal) (models.Admin, error) {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return models.Admin{}, err
	}
	a, err := s.st.GetAdminByID(ctx, p.ID)
	if err != nil {
		return models.Admin{}, storeErr(err, "Admin not found")
	}
	return a, nil
}

func (s *Service) ChangeAdminPassword(ctx context.Context, p auth.Principal, current, next string) error {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return err
	}
	if current == "" || next == "" {
		return apperr.Validation("Current and new password are required")
	}
	if err := s.checkNewPassword("New password", next); err != nil {
		return err
	}
	a, err := s.st.GetAdminByID(ctx, p.ID)
	if err != nil {
		return storeErr(err, "Admin not found")
	}
	if !auth.VerifyPassword(a.PasswordHash, current) {
		return apperr.Unauthenticated("Current password is incorrect")
	}
	h, err := hashPassword(next)
	if err != nil {
		return err
	}
	return storeErr(s.st.UpdateAdminPasswordHash(ctx, a.ID, h), "Admin not found")
}

// EnsureAdmin creates the bootstrap admin when no admin with that email
// exists. It reports whether a row was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, apperr.Validation("Email and password are required")
	}
	if !validEmail(email) {
		return false, apperr.Validation("Invalid email address")
	}
	if err := s.checkNewPassword("Password", password); err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Admin"
	}
	h, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	created, err := s.st.EnsureAdmin(ctx, email, h, name)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return created, nil
}
