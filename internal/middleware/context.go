package middleware

import (
	"context"
	"net/http"

	"apartmentng/internal/auth"
)

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxPrincipal ctxKey = "principal"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

func Principal(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(auth.Principal)
	return p, ok
}

// OptionalPrincipal returns nil for anonymous requests.
func OptionalPrincipal(ctx context.Context) *auth.Principal {
	p, ok := Principal(ctx)
	if !ok {
		return nil
	}
	return &p
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:; media-src 'self'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
