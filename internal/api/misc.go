package api

import (
	"encoding/json"
	"net/http"

	"ahloulbait/internal/audit"
	"ahloulbait/internal/chat"
	"ahloulbait/internal/middleware"
	"ahloulbait/internal/models"
	"ahloulbait/internal/util"
)

func (h *Handlers) handleContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	err := h.svc.SubmitContact(r.Context(), models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteSuccess(w)
}

func (h *Handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []chat.Message `json:"messages"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	reply, err := h.svc.Chat(r.Context(), req.Messages)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{"message": reply})
}

// handleAppendAudit is the synchronous audit write: unlike the recorder's
// background path, a storage failure here comes back as a 500.
func (h *Handlers) handleAppendAudit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action    string          `json:"action"`
		TableName string          `json:"table_name"`
		RecordID  string          `json:"record_id"`
		OldData   json.RawMessage `json:"old_data"`
		NewData   json.RawMessage `json:"new_data"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := middleware.User(r.Context())
	err := h.svc.AppendAudit(r.Context(), actor, audit.Entry{
		Action:    req.Action,
		TableName: req.TableName,
		RecordID:  req.RecordID,
		OldData:   req.OldData,
		NewData:   req.NewData,
	}, h.requestMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteSuccess(w)
}

func (h *Handlers) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	entries, err := h.svc.ListAudit(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
