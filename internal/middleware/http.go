package middleware

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"ahloulbait/internal/models"
	"ahloulbait/internal/rate"
	"ahloulbait/internal/roles"
	"ahloulbait/internal/util"
)

// SessionValidator resolves a raw session token to its user, refreshing
// the idle deadline as a side effect.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (models.User, models.Session, error)
}

// AdminAuthorizer decides whether an authenticated user may reach the
// admin surface.
type AdminAuthorizer interface {
	AuthorizeAdmin(ctx context.Context, user models.User, hasSession bool) roles.Decision
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("http %s %s status=%d dur=%s req_id=%s",
			r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond), RequestID(r.Context()))
	})
}

// ClientIP returns the peer address, honoring proxy headers only when the
// deployment says a trusted proxy sits in front of us.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
		if rip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); rip != "" {
			return rip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Authn authenticates the request from the session cookie or a bearer
// token and stores the user and session on the context. Requests without
// a valid session get a 401.
func Authn(v SessionValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie(cookieName); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				util.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", RequestID(r.Context()))
				return
			}
			user, sess, err := v.ValidateSession(r.Context(), token)
			if err != nil {
				util.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", RequestID(r.Context()))
				return
			}
			ctx := WithUser(r.Context(), user)
			ctx = WithSession(ctx, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly sits behind Authn and denies anyone the authorizer does not
// vouch for. The denial body is the same whether the role is missing or
// the lookup failed.
func AdminOnly(a AdminAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := User(r.Context())
			dec := a.AuthorizeAdmin(r.Context(), user, ok)
			if !dec.Authorized {
				util.WriteError(w, http.StatusForbidden, "forbidden", "admin role required", RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies a coarse per-IP cap in front of a handler group. The
// fine per-identifier windows live in the ratelimit package; this one just
// keeps a single peer from hammering the API.
func RateLimit(l *rate.Limiter, limit int, window time.Duration, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(ClientIP(r, trustProxy), limit, window) {
				util.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFFromCookie enforces the double-submit cookie check on mutating
// requests. Bearer clients are not cookie-bound, so a request carrying an
// Authorization header skips the check.
func CSRFFromCookie(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if bearerToken(r) != "" {
				next.ServeHTTP(w, r)
				return
			}
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" || r.Header.Get("X-CSRF-Token") != c.Value {
				util.WriteError(w, http.StatusForbidden, "csrf", "missing or invalid CSRF token", RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
