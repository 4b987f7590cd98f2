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

const (
	msgAgentNotFound  = "Agent not found"
	msgEmailTaken     = "Email already registered"
	msgInvalidToken   = "Invalid or expired verification link"
	msgExpiredToken   = "Verification link has expired"
	msgMailSendFailed = "Failed to send verification email"
)

type RegisterAgentInput struct {
	Name        string
	Email       string
	Password    string
	Phone       *string
	CompanyName *string
}

// RegisterAgent creates an unapproved, unverified agent and mails the
// verification link. A failed send is logged and does not fail registration.
func (s *Service) RegisterAgent(ctx context.Context, in RegisterAgentInput) (models.Agent, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return models.Agent{}, apperr.Validation("Name, email, and password are required")
	}
	if !validEmail(email) {
		return models.Agent{}, apperr.Validation("Invalid email address")
	}
	if err := s.checkNewPassword("Password", in.Password); err != nil {
		return models.Agent{}, err
	}
	taken, err := s.st.EmailTaken(ctx, email)
	if err != nil {
		return models.Agent{}, apperr.Internal(err)
	}
	if taken {
		return models.Agent{}, apperr.Conflict(msgEmailTaken)
	}
	h, err := hashPassword(in.Password)
	if err != nil {
		return models.Agent{}, err
	}
	raw, tokenHash, err := auth.NewOpaqueToken()
	if err != nil {
		return models.Agent{}, apperr.Internal(err)
	}
	a, err := s.st.CreateAgent(ctx, store.NewAgent{
		Name:                  name,
		Email:                 email,
		PasswordHash:          h,
		Phone:                 trimOptional(in.Phone),
		CompanyName:           trimOptional(in.CompanyName),
		VerificationTokenHash: tokenHash,
		VerificationExpiresAt: s.now().Add(s.cfg.VerificationTTL()),
	})
	if err != nil {
		return models.Agent{}, storeErr(err, msgAgentNotFound)
	}
	if err := s.mailer.SendVerification(ctx, a.Email, a.Name, raw); err != nil {
		s.log.WithError(err).WithField("agent_id", a.ID).Warn("verification email not sent")
	}
	return a, nil
}

// AgentLogin rejects unapproved agents before the password is checked, so
// the response for a pending account does not depend on the password.
func (s *Service) AgentLogin(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, apperr.Validation("Email and password are required")
	}
	a, err := s.st.GetAgentByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, apperr.Unauthenticated("Invalid credentials")
		}
		return LoginResult{}, apperr.Internal(err)
	}
	if !a.IsApproved {
		return LoginResult{}, apperr.Forbidden("Your account is pending approval")
	}
	if !auth.VerifyPassword(a.PasswordHash, password) {
		return LoginResult{}, apperr.Unauthenticated("Invalid credentials")
	}
	if auth.IsLegacyHash(a.PasswordHash) {
		if h, err := auth.HashPassword(password); err == nil {
			if err := s.st.UpdateAgentPasswordHash(ctx, a.ID, h); err != nil {
				s.log.WithError(err).WithField("agent_id", a.ID).Warn("legacy password rehash failed")
			}
		}
	}
	return s.issue(auth.Principal{ID: a.ID, Role: auth.RoleAgent}, a.Name, a.Email)
}

// VerifyAgentEmail consumes a registration verification token.
func (s *Service) VerifyAgentEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Validation(msgInvalidToken)
	}
	tokenHash := auth.HashToken(token)
	a, err := s.st.GetAgentByVerificationHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Validation(msgInvalidToken)
		}
		return apperr.Internal(err)
	}
	if a.VerificationExpiresAt == nil || s.now().After(*a.VerificationExpiresAt) {
		return apperr.Validation(msgExpiredToken)
	}
	if err := s.st.MarkEmailVerified(ctx, a.ID, tokenHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Validation(msgInvalidToken)
		}
		return apperr.Internal(err)
	}
	return nil
}

// ResendVerification issues a fresh token. Unlike registration, a failed send
// is reported to the caller.
func (s *Service) ResendVerification(ctx context.Context, p auth.Principal) error {
	if err := authz.RequireRole(p, authz.AgentOnly...); err != nil {
		return err
	}
	a, err := s.st.GetAgentByID(ctx, p.ID)
	if err != nil {
		return storeErr(err, msgAgentNotFound)
	}
	if a.EmailVerified {
		return apperr.Validation("Email is already verified")
	}
	raw, tokenHash, err := auth.NewOpaqueToken()
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.st.SetVerificationToken(ctx, a.ID, tokenHash, s.now().Add(s.cfg.VerificationTTL())); err != nil {
		return storeErr(err, msgAgentNotFound)
	}
	if err := s.mailer.SendVerification(ctx, a.Email, a.Name, raw); err != nil {
		return apperr.Upstream(msgMailSendFailed, err)
	}
	return nil
}

// RequestEmailChange parks newEmail as pending and mails a confirmation link
// to it. A taken address leaves the pending fields untouched.
func (s *Service) RequestEmailChange(ctx context.Context, p auth.Principal, newEmail, password string) error {
	if err := authz.RequireRole(p, authz.AgentOnly...); err != nil {
		return err
	}
	newEmail = normalizeEmail(newEmail)
	if newEmail == "" || password == "" {
		return apperr.Validation("New email and password are required")
	}
	if !validEmail(newEmail) {
		return apperr.Validation("Invalid email address")
	}
	a, err := s.st.GetAgentByID(ctx, p.ID)
	if err != nil {
		return storeErr(err, msgAgentNotFound)
	}
	if !auth.VerifyPassword(a.PasswordHash, password) {
		return apperr.Unauthenticated("Password is incorrect")
	}
	if newEmail == a.Email {
		return apperr.Validation("New email must be different from the current email")
	}
	raw, tokenHash, err := auth.NewOpaqueToken()
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.st.SetPendingEmail(ctx, a.ID, newEmail, tokenHash, s.now().Add(s.cfg.VerificationTTL())); err != nil {
		return storeErr(err, msgAgentNotFound)
	}
	if err := s.mailer.SendEmailChange(ctx, newEmail, a.Name, raw); err != nil {
		if cerr := s.st.ClearPendingEmail(ctx, a.ID); cerr != nil {
			s.log.WithError(cerr).WithField("agent_id", a.ID).Error("clear pending email failed")
		}
		return apperr.Upstream(msgMailSendFailed, err)
	}
	return nil
}

// VerifyNewEmail consumes an email-change token and swaps the address in.
func (s *Service) VerifyNewEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Validation(msgInvalidToken)
	}
	tokenHash := auth.HashToken(token)
	a, err := s.st.GetAgentByPendingEmailHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Validation(msgInvalidToken)
		}
		return apperr.Internal(err)
	}
	if a.PendingExpiresAt == nil || s.now().After(*a.PendingExpiresAt) {
		s.clearPending(ctx, a.ID)
		return apperr.Validation(msgExpiredToken)
	}
	err = s.st.ApplyPendingEmail(ctx, a.ID, tokenHash)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict):
		s.clearPending(ctx, a.ID)
		return apperr.Conflict(msgEmailTaken)
	case errors.Is(err, store.ErrNotFound):
		return apperr.Validation(msgInvalidToken)
	}
	return apperr.Internal(err)
}

func (s *Service) clearPending(ctx context.Context, agentID int64) {
	if err := s.st.ClearPendingEmail(ctx, agentID); err != nil {
		s.log.WithError(err).WithField("agent_id", agentID).Error("clear pending email failed")
	}
}

// AgentProfile is an agent's own view of its account.
type AgentProfile struct {
	models.Agent
	Documents      []models.AgentDocument `json:"documents"`
	ApartmentCount int                    `json:"apartment_count"`
}

func (s *Service) AgentProfile(ctx context.Context, p auth.Principal) (AgentProfile, error) {
	if err := authz.RequireRole(p, authz.AgentOnly...); err != nil {
		return AgentProfile{}, err
	}
	a, err := s.st.GetAgentByID(ctx, p.ID)
	if err != nil {
		return AgentProfile{}, storeErr(err, msgAgentNotFound)
	}
	docs, err := s.st.ListAgentDocuments(ctx, a.ID)
	if err != nil {
		return AgentProfile{}, apperr.Internal(err)
	}
	count, err := s.st.CountAgentApartments(ctx, a.ID)
	if err != nil {
		return AgentProfile{}, apperr.Internal(err)
	}
	return AgentProfile{Agent: a, Documents: docs, ApartmentCount: count}, nil
}

func (s *Service) UpdateAgentProfile(ctx context.Context, p auth.Principal, name string, phone, company *string) error {
	if err := authz.RequireRole(p, authz.AgentOnly...); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation("Name is required")
	}
	return storeErr(s.st.UpdateAgentProfile(ctx, p.ID, name, trimOptional(phone), trimOptional(company)), msgAgentNotFound)
}

func (s *Service) ChangeAgentPassword(ctx context.Context, p auth.Principal, current, next string) error {
	if err := authz.RequireRole(p, authz.AgentOnly...); err != nil {
		return err
	}
	if current == "" || next == "" {
		return apperr.Validation("Current and new passwords are required")
	}
	if err := s.checkNewPassword("New password", next); err != nil {
		return err
	}
	a, err := s.st.GetAgentByID(ctx, p.ID)
	if err != nil {
		return storeErr(err, msgAgentNotFound)
	}
	if !auth.VerifyPassword(a.PasswordHash, current) {
		return apperr.Unauthenticated("Current password is incorrect")
	}
	h, err := hashPassword(next)
	if err != nil {
		return err
	}
	return storeErr(s.st.UpdateAgentPasswordHash(ctx, a.ID, h), msgAgentNotFound)
}

func (s *Service) ListAgents(ctx context.Context, p auth.Principal) ([]models.Agent, error) {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return nil, err
	}
	out, err := s.st.ListAgents(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// AgentDetail is the admin view of one agent.
type AgentDetail struct {
	Agent      models.Agent              `json:"agent"`
	Apartments []models.ApartmentSummary `json:"apartments"`
	Documents  []models.AgentDocument    `json:"documents"`
	Stats      models.AgentStats         `json:"stats"`
}

func (s *Service) GetAgentDetail(ctx context.Context, p auth.Principal, id int64) (AgentDetail, error) {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return AgentDetail{}, err
	}
	a, err := s.st.GetAgentByID(ctx, id)
	if err != nil {
		return AgentDetail{}, storeErr(err, msgAgentNotFound)
	}
	apts, err := s.st.ListApartments(ctx, models.ApartmentQuery{AgentID: &a.ID, IncludeUnapproved: true, Sort: "newest"})
	if err != nil {
		return AgentDetail{}, apperr.Internal(err)
	}
	docs, err := s.st.ListAgentDocuments(ctx, a.ID)
	if err != nil {
		return AgentDetail{}, apperr.Internal(err)
	}
	return AgentDetail{Agent: a, Apartments: apts, Documents: docs, Stats: agentStats(apts)}, nil
}

func agentStats(apts []models.ApartmentSummary) models.AgentStats {
	var st models.AgentStats
	for _, a := range apts {
		st.TotalApartments++
		if a.IsApproved {
			st.ApprovedApartments++
		} else {
			st.PendingApartments++
		}
		if a.IsAvailable {
			st.AvailableApartments++
		} else {
			st.BookedApartments++
		}
		if a.IsFeatured {
			st.FeaturedApartments++
		}
	}
	return st
}

// SetAgentApproval writes an explicit approval state; replaying it is a no-op.
func (s *Service) SetAgentApproval(ctx context.Context, p auth.Principal, id int64, approved bool) error {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return err
	}
	return storeErr(s.st.SetAgentApproval(ctx, id, approved), msgAgentNotFound)
}

// DeleteAgent removes the agent's hosted media and documents best-effort,
// then deletes the agent row. Apartments, images, videos and documents go
// with it through the foreign keys.
func (s *Service) DeleteAgent(ctx context.Context, p auth.Principal, id int64) (CascadeReport, error) {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return CascadeReport{}, err
	}
	a, err := s.st.GetAgentByID(ctx, id)
	if err != nil {
		return CascadeReport{}, storeErr(err, msgAgentNotFound)
	}
	apts, err := s.st.ListApartments(ctx, models.ApartmentQuery{AgentID: &a.ID, IncludeUnapproved: true})
	if err != nil {
		return CascadeReport{}, apperr.Internal(err)
	}
	docs, err := s.st.ListAgentDocuments(ctx, a.ID)
	if err != nil {
		return CascadeReport{}, apperr.Internal(err)
	}
	report := CascadeReport{Steps: []CascadeStep{}}
	for _, apt := range apts {
		r, err := s.apartmentMediaCascade(ctx, apt.ID, "agent_delete")
		if err != nil {
			return CascadeReport{}, err
		}
		report.merge(r)
	}
	docIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		docIDs = append(docIDs, d.MediaID)
	}
	report.merge(s.cascade(ctx, models.MediaDocument, docIDs, "agent_delete"))
	if err := s.st.DeleteAgent(ctx, a.ID); err != nil {
		return CascadeReport{}, storeErr(err, msgAgentNotFound)
	}
	s.log.WithField("agent_id", a.ID).WithField("orphaned", report.Orphaned).Info("agent deleted")
	return report, nil
}
