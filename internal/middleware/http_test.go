package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apartmentng/internal/auth"
	"apartmentng/internal/rate"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestClientIPTrustProxy(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:12345"
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.5")

	if got := ClientIP(r, false); got != "10.0.0.5" {
		t.Fatalf("unexpected direct IP: %s", got)
	}
	if got := ClientIP(r, true); got != "1.2.3.4" {
		t.Fatalf("unexpected proxied IP: %s", got)
	}
}

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := Principal(r.Context())
		if !ok {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(string(p.Role)))
	})
}

func TestAuthnRequiresValidBearer(t *testing.T) {
	codec := auth.NewCodec(testSecret, time.Hour)
	h := Authn(codec)(echoPrincipal())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "No token provided") {
		t.Fatalf("expected 401 for missing token, got %d body=%s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rr.Code)
	}

	tok, _ := codec.Issue(auth.Principal{ID: 3, Role: auth.RoleAgent})
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "agent" {
		t.Fatalf("expected agent principal, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestOptionalAuthnIgnoresBadTokens(t *testing.T) {
	codec := auth.NewCodec(testSecret, time.Hour)
	h := OptionalAuthn(codec)(echoPrincipal())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "anonymous" {
		t.Fatalf("expected anonymous pass-through, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRequireRoles(t *testing.T) {
	h := RequireRoles(auth.RoleAdmin)(echoPrincipal())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), auth.Principal{ID: 1, Role: auth.RoleAgent}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, `"code":"authorization"`) || !strings.Contains(body, "Access denied") {
		t.Fatalf("expected role gate error body, got %s", body)
	}

	req = req.WithContext(WithPrincipal(context.Background(), auth.Principal{ID: 1, Role: auth.RoleAdmin}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	h := RateLimit(rate.NewMemoryLimiter(), "login", 1, time.Minute, false)(echoPrincipal())
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rr.Code)
		}
	}
}
