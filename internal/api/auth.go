package api

import (
	"net/http"
	"time"

	"ahloulbait/internal/auth"
	"ahloulbait/internal/middleware"
	"ahloulbait/internal/models"
	"ahloulbait/internal/ratelimit"
	"ahloulbait/internal/util"
)

// userView keeps credential material out of API responses.
type userView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"display_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func toUserView(u models.User) userView {
	return userView{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, CreatedAt: u.CreatedAt, LastLoginAt: u.LastLoginAt}
}

func (h *Handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string  `json:"email"`
		Password    string  `json:"password"`
		DisplayName *string `json:"display_name"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.Signup(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]any{"user": toUserView(u)})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	meta := h.requestMeta(r)
	u, sess, token, err := h.svc.Login(r.Context(), req.Email, req.Password, meta.IP, meta.UserAgent)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.setAuthCookies(w, token, sess.ExpiresAt); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"user":       toUserView(u),
		"token":      token,
		"expires_at": sess.ExpiresAt,
	})
}

// handleLogout is deliberately lenient: it revokes the session when one
// resolves and clears cookies either way, so a stale client can always
// reach a clean state.
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, sess, err := h.sessionUser(r); err == nil {
		if err := h.svc.Logout(r.Context(), sess); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}
	h.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r.Context())
	util.WriteJSON(w, http.StatusOK, map[string]any{"user": toUserView(u)})
}

// handleIsAdmin always answers 200 for a valid session; the boolean is the
// only thing that differs between an admin and anyone else.
func (h *Handlers) handleIsAdmin(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.User(r.Context())
	dec := h.svc.AuthorizeAdmin(r.Context(), u, ok)
	util.WriteJSON(w, http.StatusOK, map[string]bool{"isAdmin": dec.Authorized})
}

func (h *Handlers) handleRateLimitCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier  string `json:"identifier"`
		AttemptType string `json:"attemptType"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.CheckRateLimit(r.Context(), req.Identifier, ratelimit.AttemptType(req.AttemptType))
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "validation", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	if res.Blocked {
		util.WriteJSON(w, http.StatusTooManyRequests, res)
		return
	}
	util.WriteJSON(w, http.StatusOK, res)
}

func (h *Handlers) setAuthCookies(w http.ResponseWriter, token string, expires time.Time) error {
	csrf, _, err := auth.NewSessionToken()
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	// Double-submit cookie: readable by the frontend, echoed in X-CSRF-Token.
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CSRFCookieName,
		Value:    csrf,
		Path:     "/",
		Expires:  expires,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{h.cfg.SessionCookieName, h.cfg.CSRFCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == h.cfg.SessionCookieName,
			Secure:   h.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
