package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"apartmentng/internal/auth"
	"apartmentng/internal/authz"
	"apartmentng/internal/captcha"
	"apartmentng/internal/config"
	"apartmentng/internal/logging"
	"apartmentng/internal/middleware"
	"apartmentng/internal/rate"
	"apartmentng/internal/service"
	"apartmentng/internal/util"
	"apartmentng/internal/version"
)

type Handlers struct {
	cfg      config.Config
	svc      *service.Service
	limiter  rate.Limiter
	captcha  captcha.Verifier
	validate *validator.Validate
	log      logrus.FieldLogger
}

// Options carries the optional collaborators of the router. Zero values fall
// back to an in-process limiter, the configured captcha and a silent logger.
type Options struct {
	Limiter rate.Limiter
	Captcha captcha.Verifier
	Log     logrus.FieldLogger
	// MediaDir is served at /uploads when set.
	MediaDir string
}

func NewRouter(cfg config.Config, svc *service.Service, codec *auth.Codec, opts Options) http.Handler {
	h := &Handlers{
		cfg:      cfg,
		svc:      svc,
		limiter:  opts.Limiter,
		captcha:  opts.Captcha,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      opts.Log,
	}
	if h.limiter == nil {
		h.limiter = rate.NewMemoryLimiter()
	}
	if h.captcha == nil {
		h.captcha = captcha.NewVerifier(cfg)
	}
	if h.log == nil {
		h.log = logging.Discard()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger(h.log, cfg.TrustProxy))
	r.Use(middleware.SecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	authn := middleware.Authn(codec)
	adminOnly := middleware.RequireRoles(authz.AdminOnly...)
	agentOnly := middleware.RequireRoles(authz.AgentOnly...)
	adminOrAgent := middleware.RequireRoles(authz.AdminOrAgent...)
	limit := func(route string, n int) func(http.Handler) http.Handler {
		return middleware.RateLimit(h.limiter, route, n, time.Minute, cfg.TrustProxy)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/admin", func(r chi.Router) {
			r.With(limit("admin_login", 20)).Post("/login", h.AdminLogin)
			r.Group(func(r chi.Router) {
				r.Use(authn, adminOnly)
				r.Get("/profile", h.AdminProfile)
				r.Put("/password", h.AdminChangePassword)
				r.Get("/orphaned-media", h.ListOrphanedMedia)
				r.Post("/orphaned-media/reconcile", h.ReconcileOrphanedMedia)
			})
		})

		r.Route("/agents", func(r chi.Router) {
			r.With(limit("agent_register", 10)).Post("/register", h.AgentRegister)
			r.With(limit("agent_login", 20)).Post("/login", h.AgentLogin)
			r.Get("/verify/{token}", h.VerifyAgentEmail)
			r.Get("/verify-new-email/{token}", h.VerifyNewEmail)

			r.Group(func(r chi.Router) {
				r.Use(authn, agentOnly)
				r.Get("/me", h.AgentProfile)
				r.Put("/me", h.UpdateAgentProfile)
				r.Put("/me/password", h.ChangeAgentPassword)
				r.With(limit("agent_email_change", 5)).Put("/me/email", h.RequestEmailChange)
				r.With(limit("agent_resend", 5)).Post("/me/resend-verification", h.ResendVerification)
				r.Post("/me/documents", h.UploadAgentDocument)
				r.Delete("/me/documents/{docID}", h.DeleteAgentDocument)
			})

			r.Group(func(r chi.Router) {
				r.Use(authn, adminOnly)
				r.Get("/", h.ListAgents)
				r.Get("/{id}", h.GetAgent)
				r.Put("/{id}/approve", h.ApproveAgent)
				r.Delete("/{id}", h.DeleteAgent)
				r.Put("/{id}/documents/{docID}/review", h.ReviewAgentDocument)
			})
		})

		r.Route("/apartments", func(r chi.Router) {
			r.With(middleware.OptionalAuthn(codec)).Get("/", h.ListApartments)
			r.With(authn, adminOnly).Get("/admin/all", h.ListAllApartments)
			r.With(authn, agentOnly).Get("/agent/my-apartments", h.ListMyApartments)
			r.With(middleware.OptionalAuthn(codec)).Get("/{id}", h.GetApartment)

			r.Group(func(r chi.Router) {
				r.Use(authn, adminOrAgent)
				r.Post("/", h.CreateApartment)
				r.Put("/{id}", h.UpdateApartment)
				r.Delete("/{id}", h.DeleteApartment)
				r.Put("/{id}/availability", h.SetAvailability)
				r.Post("/{id}/images", h.UploadImages)
				r.Post("/{id}/videos", h.UploadVideo)
				r.Delete("/{id}/images/{imageID}", h.DeleteImage)
				r.Delete("/{id}/videos/{videoID}", h.DeleteVideo)
			})
			r.Group(func(r chi.Router) {
				r.Use(authn, adminOnly)
				r.Put("/{id}/featured", h.SetFeatured)
				r.Put("/{id}/approve", h.ApproveApartment)
			})
		})
	})

	if opts.MediaDir != "" {
		base := strings.TrimRight(cfg.MediaPublicBaseURL, "/")
		if base == "" || strings.Contains(base, "://") {
			base = "/uploads"
		}
		fs := http.StripPrefix(base+"/", http.FileServer(http.Dir(opts.MediaDir)))
		r.Get(base+"/*", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}
			fs.ServeHTTP(w, r)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		util.WriteError(w, http.StatusNotFound, "not_found", "Route not found", middleware.RequestID(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		util.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", middleware.RequestID(r.Context()))
	})
	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"status":     "ok",
		"checked_at": time.Now().UTC().Format(time.RFC3339),
		"version":    version.Current(),
		"media":      h.svc.MediaBackend(),
		"mail":       h.svc.MailTransport(),
	}
	if err := h.svc.Ping(r.Context()); err != nil {
		h.log.WithError(err).Warn("health: database ping failed")
		out["status"] = "degraded"
		out["database"] = map[string]any{"ok": false}
		util.WriteJSON(w, http.StatusServiceUnavailable, out)
		return
	}
	out["database"] = map[string]any{"ok": true}
	util.WriteJSON(w, http.StatusOK, out)
}
