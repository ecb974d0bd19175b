package handler

import (
	"net/http"

	"github.com/Dan9191/daybal/internal/middleware"
	"github.com/gorilla/mux"
)

// RouterConfig holds the guards wrapped around the route groups
type RouterConfig struct {
	Auth    func(http.Handler) http.Handler
	Cron    func(http.Handler) http.Handler
	Metrics http.Handler
}

// NewRouter wires h into a mux router
func NewRouter(h *Handler, rc RouterConfig) *mux.Router {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/api/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/verify-pin", h.VerifyPIN).Methods(http.MethodPost)
	r.HandleFunc("/api/callback", h.Callback).Methods(http.MethodGet)
	if rc.Metrics != nil {
		r.Handle("/metrics", rc.Metrics).Methods(http.MethodGet)
	}

	// Scheduler routes
	cron := r.PathPrefix("/api").Subrouter()
	cron.Use(orPass(rc.Cron))
	cron.HandleFunc("/cron/record-balance", h.RecordBalance).Methods(http.MethodGet, http.MethodPost)
	cron.HandleFunc("/backfill", h.Backfill).Methods(http.MethodGet, http.MethodPost)

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(orPass(rc.Auth))
	api.HandleFunc("/start-auth", h.StartAuth).Methods(http.MethodGet)
	api.HandleFunc("/session-status", h.SessionStatus).Methods(http.MethodGet)
	api.HandleFunc("/accounts", h.Accounts).Methods(http.MethodGet)
	api.HandleFunc("/balance", h.Balance).Methods(http.MethodGet)
	api.HandleFunc("/balance/{account_id}", h.AccountBalance).Methods(http.MethodGet)
	api.HandleFunc("/comparison-data", h.ComparisonData).Methods(http.MethodGet)
	api.HandleFunc("/preferences", h.GetPreferences).Methods(http.MethodGet)
	api.HandleFunc("/preferences", h.PutPreferences).Methods(http.MethodPut)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	return r
}

func orPass(mw func(http.Handler) http.Handler) mux.MiddlewareFunc {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
