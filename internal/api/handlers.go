package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ahloulbait/internal/audit"
	"ahloulbait/internal/chat"
	"ahloulbait/internal/middleware"
	"ahloulbait/internal/models"
	"ahloulbait/internal/service"
	"ahloulbait/internal/store"
	"ahloulbait/internal/util"
)

const maxBodyBytes = 1 << 20

func (h *Handlers) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.st.Ping(ctx); err != nil {
		util.WriteError(w, http.StatusServiceUnavailable, "not_ready", "database unavailable", middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAdminGate fronts the admin static pages. Every deny — no cookie,
// bad session, missing role — is the same 303 to the landing page.
func (h *Handlers) handleAdminGate(w http.ResponseWriter, r *http.Request) {
	var hasSession bool
	user, _, err := h.sessionUser(r)
	if err == nil {
		hasSession = true
	}
	if !h.svc.AuthorizeAdmin(r.Context(), user, hasSession).Authorized {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.admin.ServeHTTP(w, r)
}

// sessionUser resolves the request's session outside the Authn middleware,
// for routes that decide on missing sessions themselves.
func (h *Handlers) sessionUser(r *http.Request) (models.User, models.Session, error) {
	token := ""
	if hdr := r.Header.Get("Authorization"); len(hdr) > 7 && strings.EqualFold(hdr[:7], "Bearer ") {
		token = strings.TrimSpace(hdr[7:])
	}
	if token == "" {
		if c, err := r.Cookie(h.cfg.SessionCookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return models.User{}, models.Session{}, service.ErrInvalidSession
	}
	return h.svc.ValidateSession(r.Context(), token)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", middleware.RequestID(r.Context()))
		return false
	}
	return true
}

func (h *Handlers) requestMeta(r *http.Request) audit.RequestMeta {
	return audit.RequestMeta{
		IP:        middleware.ClientIP(r, h.cfg.TrustProxy),
		UserAgent: r.UserAgent(),
	}
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.RequestID(r.Context())
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		util.WriteError(w, http.StatusBadRequest, "validation", ve.Error(), reqID)
		return
	}
	var rle *service.RateLimitedError
	if errors.As(err, &rle) {
		util.WriteJSON(w, http.StatusTooManyRequests, rle.Result)
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		util.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", reqID)
	case errors.Is(err, service.ErrInvalidSession):
		util.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
	case errors.Is(err, service.ErrEmailTaken):
		util.WriteError(w, http.StatusConflict, "email_taken", "email already registered", reqID)
	case errors.Is(err, store.ErrNotFound):
		util.WriteError(w, http.StatusNotFound, "not_found", "resource not found", reqID)
	case errors.Is(err, chat.ErrUnavailable):
		util.WriteError(w, http.StatusServiceUnavailable, "chat_unavailable", "Le service de chat est temporairement indisponible.", reqID)
	case errors.Is(err, chat.ErrUpstream):
		util.WriteError(w, http.StatusBadGateway, "chat_upstream", "chat upstream error", reqID)
	default:
		util.WriteError(w, http.StatusInternalServerError, "internal", "internal error", reqID)
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
