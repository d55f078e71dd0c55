package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"booking-api/internal/middleware"
	"booking-api/internal/service"
)

// client and status are not part of the request body; unknown keys are
// dropped by the decoder.
type appointmentRequest struct {
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Service   *string `json:"service"`
}

func (req appointmentRequest) input() service.AppointmentInput {
	return service.AppointmentInput{StartTime: req.StartTime, EndTime: req.EndTime, Service: req.Service}
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := h.appts.List(r.Context(), middleware.Principal(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]appointmentView, len(list))
	for i := range list {
		out[i] = toAppointment(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := decode(r, &req); err != nil {
		badBody(w, err)
		return
	}
	a, err := h.appts.Create(r.Context(), middleware.Principal(r.Context()), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointment(a))
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	a, err := h.appts.Get(r.Context(), middleware.Principal(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointment(a))
}

// PUT replaces every writable field, PATCH only the ones present.
func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := decode(r, &req); err != nil {
		badBody(w, err)
		return
	}
	partial := r.Method == http.MethodPatch
	a, err := h.appts.Update(r.Context(), middleware.Principal(r.Context()), mux.Vars(r)["id"], req.input(), partial)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointment(a))
}

func (h *Handler) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.appts.Delete(r.Context(), middleware.Principal(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) setAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		badBody(w, err)
		return
	}
	a, err := h.appts.SetStatus(r.Context(), middleware.Principal(r.Context()), mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointment(a))
}
