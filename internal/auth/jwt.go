package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing credential")
	ErrInvalidToken = errors.New("invalid or expired credential")
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Principal is the authenticated actor carried by a credential.
type Principal struct {
	ID   int64
	Role Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
func (p Principal) IsAgent() bool { return p.Role == RoleAgent }

type claims struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 credentials. It holds no state besides the
// secret, the lifetime and the clock.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the codec that reads time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Codec) TTL() time.Duration { return c.ttl }

func (c *Codec) Issue(p Principal) (string, error) {
	if !p.Role.Valid() {
		return "", fmt.Errorf("issue credential: unknown role %q", p.Role)
	}
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ID:   p.ID,
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	return tok.SignedString(c.secret)
}

func (c *Codec) Verify(token string) (Principal, error) {
	if strings.TrimSpace(token) == "" {
		return Principal{}, ErrMissingToken
	}
	var cl claims
	parsed, err := jwt.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	role, err := ParseRole(cl.Role)
	if err != nil || cl.ID <= 0 {
		return Principal{}, ErrInvalidToken
	}
	return Principal{ID: cl.ID, Role: role}, nil
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
