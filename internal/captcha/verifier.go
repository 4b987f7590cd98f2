// Package captcha guards agent registration with an optional human check.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"apartmentng/internal/config"
)

var (
	ErrRequired    = errors.New("captcha required")
	ErrUnavailable = errors.New("captcha unavailable")
)

type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Disabled accepts every request.
type Disabled struct{}

func (Disabled) Verify(context.Context, string, string) error { return nil }

// SiteVerifier speaks the siteverify form protocol shared by Turnstile and
// hCaptcha.
type SiteVerifier struct {
	verifyURL string
	secret    string
	client    *http.Client
}

func NewVerifier(cfg config.Config) Verifier {
	if !cfg.CaptchaEnabled {
		return Disabled{}
	}
	return &SiteVerifier{
		verifyURL: strings.TrimSpace(cfg.CaptchaVerifyURL),
		secret:    strings.TrimSpace(cfg.CaptchaSecret),
		client:    &http.Client{Timeout: 8 * time.Second},
	}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *SiteVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token missing", ErrRequired)
	}
	form := url.Values{"secret": {v.secret}, "response": {token}}
	if ip := strings.TrimSpace(remoteIP); ip != "" {
		form.Set("remoteip", ip)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: siteverify HTTP %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: siteverify HTTP %d", ErrRequired, resp.StatusCode)
	}

	var out siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !out.Success {
		if len(out.ErrorCodes) > 0 {
			return fmt.Errorf("%w: rejected: %s", ErrRequired, strings.Join(out.ErrorCodes, ","))
		}
		return fmt.Errorf("%w: rejected", ErrRequired)
	}
	return nil
}
