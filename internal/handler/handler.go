package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"booking-api/internal/middleware"
	"booking-api/internal/service"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	appts    *service.Appointments
	msgs     *service.Messaging
	accounts *service.Accounts
	db       Pinger
}

func New(appts *service.Appointments, msgs *service.Messaging, accounts *service.Accounts, db Pinger) *Handler {
	return &Handler{appts: appts, msgs: msgs, accounts: accounts, db: db}
}

// Router mounts every route. limiter guards login and registration and may
// be nil.
func (h *Handler) Router(limiter *middleware.RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.Use(middleware.Metrics)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	limit := func(f http.HandlerFunc) http.Handler {
		if limiter == nil {
			return f
		}
		return limiter.Limit(f)
	}
	authed := middleware.Auth(h.accounts)

	r.Handle("/auth/registration", limit(h.register)).Methods(http.MethodPost)
	r.Handle("/auth/login", limit(h.login)).Methods(http.MethodPost)
	r.HandleFunc("/auth/token/refresh", h.refresh).Methods(http.MethodPost)
	r.Handle("/auth/logout", authed(http.HandlerFunc(h.logout))).Methods(http.MethodPost)
	r.Handle("/auth/user", authed(http.HandlerFunc(h.profile))).Methods(http.MethodGet)
	r.Handle("/auth/user", authed(http.HandlerFunc(h.updateProfile))).Methods(http.MethodPut, http.MethodPatch)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authed)

	api.HandleFunc("/appointments", h.listAppointments).Methods(http.MethodGet)
	api.HandleFunc("/appointments", h.createAppointment).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}", h.getAppointment).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}", h.updateAppointment).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/appointments/{id}", h.deleteAppointment).Methods(http.MethodDelete)
	api.HandleFunc("/appointments/{id}/status", h.setAppointmentStatus).Methods(http.MethodPost)

	api.HandleFunc("/messages/threads", h.listThreads).Methods(http.MethodGet)
	api.HandleFunc("/messages/threads", h.createThread).Methods(http.MethodPost)
	api.HandleFunc("/messages/threads/{id}", h.getThread).Methods(http.MethodGet)
	api.HandleFunc("/messages/threads/{id}", h.updateThread).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/messages/threads/{id}", h.deleteThread).Methods(http.MethodDelete)
	api.HandleFunc("/messages/threads/{id}/send-message", h.sendMessage).Methods(http.MethodPost)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
