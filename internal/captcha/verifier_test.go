package captcha

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"apartmentng/internal/config"
)

func TestSiteVerifierSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("secret") != "secret" || r.PostForm.Get("response") != "token" {
			t.Fatalf("unexpected form %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer ts.Close()

	v := &SiteVerifier{verifyURL: ts.URL, secret: "secret", client: ts.Client()}
	if err := v.Verify(context.Background(), "token", "127.0.0.1"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestSiteVerifierRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer ts.Close()

	v := &SiteVerifier{verifyURL: ts.URL, secret: "secret", client: ts.Client()}
	err := v.Verify(context.Background(), "token", "127.0.0.1")
	if !errors.Is(err, ErrRequired) {
		t.Fatalf("expected ErrRequired, got %v", err)
	}
}

func TestSiteVerifierUpstreamDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	v := &SiteVerifier{verifyURL: ts.URL, secret: "secret", client: ts.Client()}
	if err := v.Verify(context.Background(), "token", ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMissingTokenIsRequired(t *testing.T) {
	v := &SiteVerifier{verifyURL: "http://unused", secret: "secret", client: http.DefaultClient}
	if err := v.Verify(context.Background(), " ", ""); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected ErrRequired, got %v", err)
	}
}

func TestNewVerifierDisabled(t *testing.T) {
	v := NewVerifier(config.Config{CaptchaEnabled: false})
	if _, ok := v.(Disabled); !ok {
		t.Fatalf("expected Disabled verifier, got %T", v)
	}
	if err := v.Verify(context.Background(), "", ""); err != nil {
		t.Fatalf("disabled verifier must accept: %v", err)
	}
}
