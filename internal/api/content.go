package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ahloulbait/internal/middleware"
	"ahloulbait/internal/service"
	"ahloulbait/internal/util"
)

func (h *Handlers) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	items, err := h.svc.ListEvents(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"events": items})
}

func (h *Handlers) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, e)
}

func (h *Handlers) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in service.EventInput
	if !h.decode(w, r, &in) {
		return
	}
	actor, _ := middleware.User(r.Context())
	e, err := h.svc.CreateEvent(r.Context(), actor, h.requestMeta(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handlers) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in service.EventInput
	if !h.decode(w, r, &in) {
		return
	}
	actor, _ := middleware.User(r.Context())
	e, err := h.svc.UpdateEvent(r.Context(), actor, h.requestMeta(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, e)
}

func (h *Handlers) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	if err := h.svc.DeleteEvent(r.Context(), actor, h.requestMeta(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteSuccess(w)
}

func (h *Handlers) handleListTafsir(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	items, err := h.svc.ListTafsir(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"tafsir": items})
}

func (h *Handlers) handleGetTafsir(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTafsir(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, t)
}

func (h *Handlers) handleCreateTafsir(w http.ResponseWriter, r *http.Request) {
	var in service.TafsirInput
	if !h.decode(w, r, &in) {
		return
	}
	actor, _ := middleware.User(r.Context())
	t, err := h.svc.CreateTafsir(r.Context(), actor, h.requestMeta(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handlers) handleUpdateTafsir(w http.ResponseWriter, r *http.Request) {
	var in service.TafsirInput
	if !h.decode(w, r, &in) {
		return
	}
	actor, _ := middleware.User(r.Context())
	t, err := h.svc.UpdateTafsir(r.Context(), actor, h.requestMeta(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, t)
}

func (h *Handlers) handleDeleteTafsir(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	if err := h.svc.DeleteTafsir(r.Context(), actor, h.requestMeta(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteSuccess(w)
}

func (h *Handlers) handleListSira(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	items, err := h.svc.ListSira(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"sira": items})
}

func (h *Handlers) handleGetSira(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetSira(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, v)
}

func (h *Handlers) handleCreateSira(w http.ResponseWriter, r *http.Request) {
	var in service.SiraInput
	if !h.decode(w, r, &in) {
		return
	}
	actor, _ := middleware.User(r.Context())
	v, err := h.svc.CreateSira(r.Context(), actor, h.requestMeta(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handlers) handleUpdateSira(w http.ResponseWriter, r *http.Request) {
	var in service.SiraInput
	if !h.decode(w, r, &in) {
		return
	}
	actor, _ := middleware.User(r.Context())
	v, err := h.svc.UpdateSira(r.Context(), actor, h.requestMeta(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, v)
}

func (h *Handlers) handleDeleteSira(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	if err := h.svc.DeleteSira(r.Context(), actor, h.requestMeta(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteSuccess(w)
}

func (h *Handlers) handleListFatwas(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	items, err := h.svc.ListFatwas(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"fatwas": items})
}

func (h *Handlers) handleGetFatwa(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.GetFatwa(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, f)
}

func (h *Handlers) handleCreateFatwa(w http.ResponseWriter, r *http.Request) {
	var in service.FatwaInput
	if !h.decode(w, r, &in) {
		return
	}
	actor, _ := middleware.User(r.Context())
	f, err := h.svc.CreateFatwa(r.Context(), actor, h.requestMeta(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, f)
}

func (h *Handlers) handleUpdateFatwa(w http.ResponseWriter, r *http.Request) {
	var in service.FatwaInput
	if !h.decode(w, r, &in) {
		return
	}
	actor, _ := middleware.User(r.Context())
	f, err := h.svc.UpdateFatwa(r.Context(), actor, h.requestMeta(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, f)
}

func (h *Handlers) handleDeleteFatwa(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	if err := h.svc.DeleteFatwa(r.Context(), actor, h.requestMeta(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	util.WriteSuccess(w)
}
