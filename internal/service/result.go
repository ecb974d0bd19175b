package service

import (
	"errors"

	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/shopspring/decimal"
)

// RunResult is the structured outcome of a record or backfill run
type RunResult struct {
	Success             bool             `json:"success"`
	NothingToDo         bool             `json:"nothing_to_do,omitempty"`
	Step                apperr.Step      `json:"step,omitempty"`
	Error               string           `json:"error,omitempty"`
	Status              int              `json:"status,omitempty"`
	Month               string           `json:"month,omitempty"`
	Mode                string           `json:"mode,omitempty"`
	Date                string           `json:"date,omitempty"`
	Balance             *decimal.Decimal `json:"balance,omitempty"`
	PreviousBalance     *decimal.Decimal `json:"previous_balance,omitempty"`
	Currency            string           `json:"currency,omitempty"`
	TransactionsFetched int              `json:"transactions_fetched"`
	TransactionsSkipped int              `json:"transactions_skipped,omitempty"`
	DatesRecorded       int              `json:"dates_recorded"`
	Errors              []string         `json:"errors,omitempty"`
	ErrorCount          int              `json:"error_count,omitempty"`
}

// fail tags r with the step that failed. Missing sessions and empty feeds are
// not failures, they mean there is nothing to do yet.
func (r *RunResult) fail(step apperr.Step, err error) *RunResult {
	r.Success = false
	r.Step = step
	r.Error = err.Error()
	if errors.Is(err, apperr.ErrNoSession) || errors.Is(err, apperr.ErrNoData) {
		r.NothingToDo = true
	}
	if status, ok := apperr.UpstreamStatus(err); ok {
		r.Status = status
	}
	return r
}
