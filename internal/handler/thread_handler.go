package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"booking-api/internal/middleware"
)

type threadRequest struct {
	Subject *string `json:"subject"`
}

type sendMessageRequest struct {
	Content *string `json:"content"`
}

func (h *Handler) listThreads(w http.ResponseWriter, r *http.Request) {
	list, err := h.msgs.ListThreads(r.Context(), middleware.Principal(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]threadView, len(list))
	for i := range list {
		out[i] = toThread(&list[i], false)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createThread(w http.ResponseWriter, r *http.Request) {
	var req threadRequest
	if err := decode(r, &req); err != nil {
		badBody(w, err)
		return
	}
	t, err := h.msgs.CreateThread(r.Context(), middleware.Principal(r.Context()), req.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toThread(t, true))
}

func (h *Handler) getThread(w http.ResponseWriter, r *http.Request) {
	t, err := h.msgs.GetThread(r.Context(), middleware.Principal(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toThread(t, true))
}

func (h *Handler) updateThread(w http.ResponseWriter, r *http.Request) {
	var req threadRequest
	if err := decode(r, &req); err != nil {
		badBody(w, err)
		return
	}
	partial := r.Method == http.MethodPatch
	t, err := h.msgs.UpdateThread(r.Context(), middleware.Principal(r.Context()), mux.Vars(r)["id"], req.Subject, partial)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toThread(t, true))
}

func (h *Handler) deleteThread(w http.ResponseWriter, r *http.Request) {
	if err := h.msgs.DeleteThread(r.Context(), middleware.Principal(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decode(r, &req); err != nil {
		badBody(w, err)
		return
	}
	content := ""
	if req.Content != nil {
		content = *req.Content
	}
	m, err := h.msgs.SendMessage(r.Context(), middleware.Principal(r.Context()), mux.Vars(r)["id"], content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessage(m))
}
