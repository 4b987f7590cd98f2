// Package service holds the use-cases behind the HTTP surface. Every method
// follows the same pipeline: check the caller's role, load the target row,
// check ownership, then perform a single mutating statement. Each step returns
// an *apperr.Error on failure and the caller returns it unchanged.
package service

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"apartmentng/internal/apperr"
	"apartmentng/internal/auth"
	"apartmentng/internal/config"
	"apartmentng/internal/logging"
	"apartmentng/internal/media"
	"apartmentng/internal/notify"
	"apartmentng/internal/store"
)

// MaxImagesPerRequest bounds a single image upload batch.
const MaxImagesPerRequest = 10

type Service struct {
	cfg    config.Config
	st     *store.Store
	codec  *auth.Codec
	media  media.Host
	mailer *notify.Sender
	log    logrus.FieldLogger
	now    func() time.Time
}

func New(cfg config.Config, st *store.Store, codec *auth.Codec, host media.Host, mailer *notify.Sender, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{
		cfg:    cfg,
		st:     st,
		codec:  codec,
		media:  host,
		mailer: mailer,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Upload is one file received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// UserView is the identity returned next to a freshly issued token.
type UserView struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

type LoginResult struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

func (s *Service) Ping(ctx context.Context) error {
	return s.st.Ping(ctx)
}

func (s *Service) MediaBackend() string { return s.media.Name() }

func (s *Service) MailTransport() string { return s.mailer.TransportName() }

func (s *Service) issue(p auth.Principal, name, email string) (LoginResult, error) {
	token, err := s.codec.Issue(p)
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}
	return LoginResult{Token: token, User: UserView{ID: p.ID, Name: name, Email: email, Role: p.Role}}, nil
}

// storeErr maps store sentinels onto the error taxonomy. notFound is the
// client-facing message for a missing row.
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("Email already registered")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := netmail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// checkNewPassword enforces the configured length bounds on a password the
// caller is about to set. prefix names the field in the message.
func (s *Service) checkNewPassword(prefix, pw string) error {
	if len(pw) < s.cfg.PasswordMinLength {
		return apperr.Validation(fmt.Sprintf("%s must be at least %d characters", prefix, s.cfg.PasswordMinLength))
	}
	if s.cfg.PasswordMaxLength > 0 && len(pw) > s.cfg.PasswordMaxLength {
		return apperr.Validation(fmt.Sprintf("%s must be at most %d characters", prefix, s.cfg.PasswordMaxLength))
	}
	return nil
}

func hashPassword(pw string) (string, error) {
	h, err := auth.HashPassword(pw)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return h, nil
}

func (s *Service) limits() media.Limits {
	return media.Limits{
		MaxBytes:  s.cfg.MaxUploadBytes(),
		MaxWidth:  s.cfg.ImageMaxWidth,
		MaxHeight: s.cfg.ImageMaxHeight,
	}
}

func (s *Service) upload(ctx context.Context, obj media.Object) (media.Stored, error) {
	stored, err := s.media.Upload(ctx, obj)
	if err != nil {
		return media.Stored{}, apperr.Upstream("Media upload failed", err)
	}
	return stored, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
