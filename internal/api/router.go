package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ahloulbait/internal/config"
	"ahloulbait/internal/middleware"
	"ahloulbait/internal/rate"
	"ahloulbait/internal/service"
	"ahloulbait/internal/store"
)

type Handlers struct {
	cfg config.Config
	svc *service.Service
	st  *store.Store
	ip  *rate.Limiter

	static http.Handler
	admin  http.Handler
}

func NewRouter(cfg config.Config, svc *service.Service, st *store.Store) http.Handler {
	h := &Handlers{
		cfg:    cfg,
		svc:    svc,
		st:     st,
		ip:     rate.NewLimiter(),
		static: http.FileServer(http.Dir("./web")),
	}
	h.admin = http.StripPrefix("/admin", http.FileServer(http.Dir("./web/admin")))

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.SecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health/live", h.handleHealthLive)
	r.Get("/health/ready", h.handleHealthReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", h.handleListEvents)
		r.Get("/events/{id}", h.handleGetEvent)
		r.Get("/tafsir", h.handleListTafsir)
		r.Get("/tafsir/{id}", h.handleGetTafsir)
		r.Get("/sira", h.handleListSira)
		r.Get("/sira/{id}", h.handleGetSira)
		r.Get("/fatwas", h.handleListFatwas)
		r.Get("/fatwas/{id}", h.handleGetFatwa)

		// Sensitive POSTs carry a coarse per-IP cap on top of the
		// per-identifier limiter inside the service.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(h.ip, 30, time.Minute, cfg.TrustProxy))
			r.Post("/auth/signup", h.handleSignup)
			r.Post("/auth/login", h.handleLogin)
			r.Post("/contact", h.handleContact)
			r.Post("/chat", h.handleChat)
			r.Post("/rate-limit/check", h.handleRateLimitCheck)
		})

		r.Post("/auth/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authn(svc, cfg.SessionCookieName))
			r.Use(middleware.CSRFFromCookie(cfg.CSRFCookieName))
			r.Get("/me", h.handleMe)
			r.Get("/auth/is-admin", h.handleIsAdmin)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminOnly(svc))
				r.Post("/audit", h.handleAppendAudit)
				r.Route("/admin", func(r chi.Router) {
					r.Get("/audit-log", h.handleListAudit)
					r.Post("/events", h.handleCreateEvent)
					r.Put("/events/{id}", h.handleUpdateEvent)
					r.Delete("/events/{id}", h.handleDeleteEvent)
					r.Post("/tafsir", h.handleCreateTafsir)
					r.Put("/tafsir/{id}", h.handleUpdateTafsir)
					r.Delete("/tafsir/{id}", h.handleDeleteTafsir)
					r.Post("/sira", h.handleCreateSira)
					r.Put("/sira/{id}", h.handleUpdateSira)
					r.Delete("/sira/{id}", h.handleDeleteSira)
					r.Post("/fatwas", h.handleCreateFatwa)
					r.Put("/fatwas/{id}", h.handleUpdateFatwa)
					r.Delete("/fatwas/{id}", h.handleDeleteFatwa)
				})
			})
		})
	})

	// Route-level admin gate: anyone without an admin session is bounced to
	// the landing page with the same redirect, no distinguishing body.
	r.Get("/admin", h.handleAdminGate)
	r.Get("/admin/*", h.handleAdminGate)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.static.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})

	return r
}
