package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec(testSecret, 7*24*time.Hour)
	tok, err := c.Issue(Principal{ID: 42, Role: RoleAgent})
	require.NoError(t, err)

	p, err := c.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, Principal{ID: 42, Role: RoleAgent}, p)
	require.True(t, p.IsAgent())
}

func TestCodecExpiryWindow(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCodec(testSecret, 7*24*time.Hour).WithClock(func() time.Time { return issued })
	tok, err := c.Issue(Principal{ID: 1, Role: RoleAdmin})
	require.NoError(t, err)

	at := func(d time.Duration) *Codec {
		return c.WithClock(func() time.Time { return issued.Add(d) })
	}
	_, err = at(6*24*time.Hour + 23*time.Hour).Verify(tok)
	require.NoError(t, err)

	_, err = at(7*24*time.Hour + time.Hour).Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodecRejectsBadCredentials(t *testing.T) {
	c := NewCodec(testSecret, time.Hour)
	good, err := c.Issue(Principal{ID: 7, Role: RoleAdmin})
	require.NoError(t, err)

	_, err = c.Verify("")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = c.Verify("not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)

	other := NewCodec([]byte("another-secret-another-secret-123"), time.Hour)
	_, err = other.Verify(good)
	require.ErrorIs(t, err, ErrInvalidToken, "token signed with a different secret")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": 7, "role": "admin", "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = c.Verify(unsigned)
	require.ErrorIs(t, err, ErrInvalidToken, "alg=none must be rejected")

	bogusRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 7, "role": "superuser", "exp": time.Now().Add(time.Hour).Unix()})
	signed, err := bogusRole.SignedString(testSecret)
	require.NoError(t, err)
	_, err = c.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken, "unknown role must be rejected")

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 7, "role": "admin"})
	signed, err = noExp.SignedString(testSecret)
	require.NoError(t, err)
	_, err = c.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken, "credential without expiry must be rejected")
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	_, err := NewCodec(testSecret, time.Hour).Issue(Principal{ID: 1, Role: Role("owner")})
	require.Error(t, err)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("admin")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, r)
	_, err = ParseRole("Admin")
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc.def": "abc.def",
		"bearer  abc ":   "abc",
		"Basic dXNlcg==": "",
		"":               "",
		"Bearer":         "",
	}
	for header, want := range cases {
		require.Equal(t, want, BearerToken(header), "header %q", header)
	}
}
