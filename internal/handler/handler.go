package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/Dan9191/daybal/internal/gate"
	"github.com/Dan9191/daybal/internal/integrations/enablebanking"
	"github.com/Dan9191/daybal/internal/metrics"
	"github.com/Dan9191/daybal/internal/middleware"
	"github.com/Dan9191/daybal/internal/models"
	"github.com/Dan9191/daybal/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// API is the service surface the handlers need
type API interface {
	StartAuth(ctx context.Context) (*service.AuthStart, error)
	CompleteAuth(ctx context.Context, code string) (*models.Session, []string, error)
	SessionStatus(ctx context.Context) (*service.SessionStatus, error)
	Accounts(ctx context.Context) ([]string, error)
	CurrentBalance(ctx context.Context) (*models.Balance, apperr.Step, error)
	AccountBalance(ctx context.Context, accountID string) (*enablebanking.BalancesResponse, apperr.Step, error)
	Comparison(ctx context.Context) (*models.ComparisonData, apperr.Step, error)
	Preferences(ctx context.Context) (models.Preferences, error)
	UpdatePreferences(ctx context.Context, p models.Preferences) error
	RecordToday(ctx context.Context) *service.RunResult
	Backfill(ctx context.Context, monthsAgo int) *service.RunResult
}

// Gatekeeper checks PINs and matches bank callbacks to the authorization
// requests this process started
type Gatekeeper interface {
	VerifyPIN(identity, pin string) gate.PINResult
	RememberState(state string)
	ConsumeState(state string) bool
}

type Handler struct {
	svc     API
	gate    Gatekeeper
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func NewHandler(svc API, g Gatekeeper, m *metrics.Metrics, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, gate: g, metrics: m, log: log}
}

// ErrorResult is the body of every failed call
type ErrorResult struct {
	Error       bool         `json:"error"`
	Step        apperr.Step  `json:"step,omitempty"`
	Detail      string       `json:"detail"`
	Status      int          `json:"status,omitempty"`
	NothingToDo bool         `json:"nothing_to_do,omitempty"`
	Fields      []FieldError `json:"fields,omitempty"`
}

func failure(step apperr.Step, err error) ErrorResult {
	res := ErrorResult{Error: true, Step: step, Detail: err.Error()}
	switch {
	case errors.Is(err, apperr.ErrNoSession):
		res.Detail = "No active session. Please authenticate first."
		res.NothingToDo = true
	case errors.Is(err, apperr.ErrNoData):
		res.NothingToDo = true
	}
	if status, ok := apperr.UpstreamStatus(err); ok {
		res.Status = status
	}
	return res
}

// respond writes a domain failure as a structured 200 result
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, step apperr.Step, err error) {
	h.log.WithField("step", step).Warnf("%s %s failed: %v", r.Method, r.URL.Path, err)
	middleware.WriteJSON(w, http.StatusOK, failure(step, err))
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pinRequest struct {
	PIN string `json:"pin" validate:"required,max=64"`
}

// VerifyPIN handles POST /api/verify-pin
func (h *Handler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if !h.decode(w, r, &req) {
		return
	}

	res := h.gate.VerifyPIN(middleware.ClientIP(r), req.PIN)
	switch {
	case res.Success:
		h.metrics.ObservePIN("success")
	case res.Locked:
		h.metrics.ObservePIN("locked")
	case res.AttemptsLeft != nil:
		h.metrics.ObservePIN("incorrect")
	default:
		h.metrics.ObservePIN("unconfigured")
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// StartAuth handles GET /api/start-auth
func (h *Handler) StartAuth(w http.ResponseWriter, r *http.Request) {
	start, err := h.svc.StartAuth(r.Context())
	if err != nil {
		h.respond(w, r, apperr.StepAuth, err)
		return
	}
	h.gate.RememberState(start.State)
	middleware.WriteJSON(w, http.StatusOK, start)
}

// Callback handles GET /api/callback from the bank redirect
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		middleware.WriteJSON(w, http.StatusOK, ErrorResult{Error: true, Step: apperr.StepAuth, Detail: e})
		return
	}
	code := q.Get("code")
	if code == "" {
		middleware.WriteJSON(w, http.StatusOK, ErrorResult{Error: true, Step: apperr.StepAuth, Detail: "No authorization code received"})
		return
	}
	if !h.gate.ConsumeState(q.Get("state")) {
		h.log.WithField("ip", middleware.ClientIP(r)).Warn("Callback with unknown authorization state")
		middleware.WriteJSON(w, http.StatusOK, ErrorResult{Error: true, Step: apperr.StepAuth, Detail: "Invalid or expired authorization state"})
		return
	}

	sess, accounts, err := h.svc.CompleteAuth(r.Context(), code)
	if err != nil {
		h.respond(w, r, apperr.StepAuth, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": sess.SessionID,
		"accounts":   accounts,
		"expires_at": sess.ExpiryDate,
	})
}

// SessionStatus handles GET /api/session-status
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.SessionStatus(r.Context())
	if err != nil {
		h.respond(w, r, apperr.StepSession, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, status)
}

// Accounts handles GET /api/accounts
func (h *Handler) Accounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.Accounts(r.Context())
	if err != nil {
		h.respond(w, r, apperr.StepSession, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string][]string{"accounts": accounts})
}

// Balance handles GET /api/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	bal, step, err := h.svc.CurrentBalance(r.Context())
	if err != nil {
		h.respond(w, r, step, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, bal)
}

// AccountBalance handles GET /api/balance/{account_id}
func (h *Handler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	resp, step, err := h.svc.AccountBalance(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		h.respond(w, r, step, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// ComparisonData handles GET /api/comparison-data
func (h *Handler) ComparisonData(w http.ResponseWriter, r *http.Request) {
	data, step, err := h.svc.Comparison(r.Context())
	if err != nil {
		h.respond(w, r, step, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, data)
}

// GetPreferences handles GET /api/preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.svc.Preferences(r.Context())
	if err != nil {
		h.respond(w, r, apperr.StepPreferences, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, prefs)
}

// PutPreferences handles PUT /api/preferences
func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs models.Preferences
	if !h.decode(w, r, &prefs) {
		return
	}
	if err := h.svc.UpdatePreferences(r.Context(), prefs); err != nil {
		h.respond(w, r, apperr.StepPreferences, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, prefs)
}

// RecordBalance handles the daily scheduler call
func (h *Handler) RecordBalance(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.svc.RecordToday(r.Context()))
}

// Backfill handles /api/backfill?months_ago=N
func (h *Handler) Backfill(w http.ResponseWriter, r *http.Request) {
	monthsAgo := 0
	if raw := r.URL.Query().Get("months_ago"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteJSON(w, http.StatusOK, &service.RunResult{
				Step:  apperr.StepParse,
				Error: (&apperr.ValidationError{Field: "months_ago", Value: raw}).Error(),
			})
			return
		}
		monthsAgo = n
	}
	middleware.WriteJSON(w, http.StatusOK, h.svc.Backfill(r.Context(), monthsAgo))
}

// decode reads a JSON body into dst and validates it, writing a 400 on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, ErrorResult{Error: true, Detail: "Invalid request body"})
		return false
	}
	if fields := ValidateStruct(dst); len(fields) > 0 {
		middleware.WriteJSON(w, http.StatusBadRequest, ErrorResult{Error: true, Detail: "Validation failed", Fields: fields})
		return false
	}
	return true
}
