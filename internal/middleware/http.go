package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"apartmentng/internal/apperr"
	"apartmentng/internal/auth"
	"apartmentng/internal/authz"
	"apartmentng/internal/rate"
	"apartmentng/internal/util"
)

func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" || len(rid) > 64 {
			rid = uuid.NewString()
		}
		r = r.WithContext(WithRequestID(r.Context(), rid))
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

// Authn requires a valid bearer credential and stores the principal on the
// request context.
func Authn(codec *auth.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := codec.Verify(auth.BearerToken(r.Header.Get("Authorization")))
			if err == auth.ErrMissingToken {
				util.WriteError(w, http.StatusUnauthorized, "unauthorized", "No token provided", RequestID(r.Context()))
				return
			}
			if err != nil {
				util.WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid token", RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuthn attaches a principal when a valid credential is present and
// otherwise lets the request through anonymously.
func OptionalAuthn(codec *auth.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, err := codec.Verify(auth.BearerToken(r.Header.Get("Authorization"))); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireRoles(allowed ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := Principal(r.Context())
			if !ok {
				util.WriteError(w, http.StatusUnauthorized, "unauthorized", "No token provided", RequestID(r.Context()))
				return
			}
			if err := authz.RequireRole(p, allowed...); err != nil {
				kind := apperr.KindOf(err)
				util.WriteError(w, kind.Status(), kind.String(), apperr.PublicMessage(err, false), RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RateLimit(l rate.Limiter, route string, limit int, window time.Duration, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := route + ":" + ClientIP(r, trustProxy)
			if !l.Allow(r.Context(), key, limit, window) {
				util.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func RequestLogger(log logrus.FieldLogger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			entry := log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sr.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  RequestID(r.Context()),
				"remote_ip":   ClientIP(r, trustProxy),
			})
			if sr.status >= http.StatusInternalServerError {
				entry.Warn("request")
				return
			}
			entry.Info("request")
		})
	}
}
