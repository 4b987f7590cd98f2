package store

import (
	"context"
	"database/sql"
	"time"

	"apartmentng/internal/models"
)

const agentColumns = `id,name,email,password_hash,phone,company_name,is_approved,email_verified,verification_token_hash,verification_expires_at,pending_email,pending_email_token_hash,pending_email_expires_at,created_at`

func scanAgent(row rowScanner) (models.Agent, error) {
	var a models.Agent
	var phone, company, verifyHash, pendingEmail, pendingHash sql.NullString
	var verifyExp, pendingExp sql.NullTime
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &phone, &company, &a.IsApproved, &a.EmailVerified,
		&verifyHash, &verifyExp, &pendingEmail, &pendingHash, &pendingExp, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Agent{}, ErrNotFound
	}
	if err != nil {
		return models.Agent{}, err
	}
	a.Phone = stringPtr(phone)
	a.CompanyName = stringPtr(company)
	a.VerificationTokenHash = stringPtr(verifyHash)
	a.VerificationExpiresAt = timePtr(verifyExp)
	a.PendingEmail = stringPtr(pendingEmail)
	a.PendingTokenHash = stringPtr(pendingHash)
	a.PendingExpiresAt = timePtr(pendingExp)
	return a, nil
}

type NewAgent struct {
	Name                  string
	Email                 string
	PasswordHash          string
	Phone                 *string
	CompanyName           *string
	VerificationTokenHash string
	VerificationExpiresAt time.Time
}

// CreateAgent inserts an unapproved, unverified agent. A taken email yields
// ErrConflict.
func (s *Store) CreateAgent(ctx context.Context, in NewAgent) (models.Agent, error) {
	now := s.now()
	id, err := s.insert(ctx,
		`INSERT INTO agents(name,email,password_hash,phone,company_name,is_approved,email_verified,verification_token_hash,verification_expires_at,created_at) VALUES(?,?,?,?,?,0,0,?,?,?)`,
		in.Name, in.Email, in.PasswordHash, nullString(in.Phone), nullString(in.CompanyName), in.VerificationTokenHash, in.VerificationExpiresAt, now,
	)
	if err != nil {
		return models.Agent{}, err
	}
	hash := in.VerificationTokenHash
	exp := in.VerificationExpiresAt
	return models.Agent{
		ID:                    id,
		Name:                  in.Name,
		Email:                 in.Email,
		PasswordHash:          in.PasswordHash,
		Phone:                 in.Phone,
		CompanyName:           in.CompanyName,
		VerificationTokenHash: &hash,
		VerificationExpiresAt: &exp,
		CreatedAt:             now,
	}, nil
}

func (s *Store) GetAgentByID(ctx context.Context, id int64) (models.Agent, error) {
	return scanAgent(s.queryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=?`, id))
}

func (s *Store) GetAgentByEmail(ctx context.Context, email string) (models.Agent, error) {
	return scanAgent(s.queryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE email=?`, email))
}

func (s *Store) GetAgentByVerificationHash(ctx context.Context, tokenHash string) (models.Agent, error) {
	return scanAgent(s.queryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE verification_token_hash=?`, tokenHash))
}

func (s *Store) GetAgentByPendingEmailHash(ctx context.Context, tokenHash string) (models.Agent, error) {
	return scanAgent(s.queryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE pending_email_token_hash=?`, tokenHash))
}

func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(1) FROM agents WHERE email=?`, email).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]models.Agent, error) {
	rows, err := s.query(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SetAgentApproval(ctx context.Context, id int64, approved bool) error {
	return s.execOne(ctx, `UPDATE agents SET is_approved=? WHERE id=?`, boolToInt(approved), id)
}

func (s *Store) UpdateAgentProfile(ctx context.Context, id int64, name string, phone, company *string) error {
	return s.execOne(ctx, `UPDATE agents SET name=?, phone=?, company_name=? WHERE id=?`,
		name, nullString(phone), nullString(company), id)
}

func (s *Store) UpdateAgentPasswordHash(ctx context.Context, id int64, passwordHash string) error {
	return s.execOne(ctx, `UPDATE agents SET password_hash=? WHERE id=?`, passwordHash, id)
}

func (s *Store) SetVerificationToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	return s.execOne(ctx, `UPDATE agents SET verification_token_hash=?, verification_expires_at=? WHERE id=?`,
		tokenHash, expiresAt, id)
}

// MarkEmailVerified consumes the verification token. The token hash is part
// of the predicate so a replayed token matches nothing.
func (s *Store) MarkEmailVerified(ctx context.Context, id int64, tokenHash string) error {
	return s.execOne(ctx,
		`UPDATE agents SET email_verified=1, verification_token_hash=NULL, verification_expires_at=NULL WHERE id=? AND verification_token_hash=?`,
		id, tokenHash)
}

// SetPendingEmail records an email change request. The candidate address must
// not belong to any agent at write time.
func (s *Store) SetPendingEmail(ctx context.Context, id int64, email, tokenHash string, expiresAt time.Time) error {
	err := s.execOne(ctx,
		`UPDATE agents SET pending_email=?, pending_email_token_hash=?, pending_email_expires_at=?
		 WHERE id=? AND NOT EXISTS (SELECT 1 FROM (SELECT id FROM agents WHERE email=?) AS taken)`,
		email, tokenHash, expiresAt, id, email)
	if err == ErrNotFound {
		if _, gerr := s.GetAgentByID(ctx, id); gerr == nil {
			return ErrConflict
		}
	}
	return err
}

func (s *Store) ClearPendingEmail(ctx context.Context, id int64) error {
	_, err := s.exec(ctx,
		`UPDATE agents SET pending_email=NULL, pending_email_token_hash=NULL, pending_email_expires_at=NULL WHERE id=?`, id)
	return err
}

// ApplyPendingEmail swaps in the pending address, marks it verified and
// clears the pending fields. A collision with another agent yields ErrConflict.
func (s *Store) ApplyPendingEmail(ctx context.Context, id int64, tokenHash string) error {
	return s.execOne(ctx,
		`UPDATE agents SET email=pending_email, email_verified=1, pending_email=NULL, pending_email_token_hash=NULL, pending_email_expires_at=NULL
		 WHERE id=? AND pending_email_token_hash=? AND pending_email IS NOT NULL`,
		id, tokenHash)
}

func (s *Store) DeleteAgent(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM agents WHERE id=?`, id)
}
