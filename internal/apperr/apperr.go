package apperr

import (
	"errors"
	"fmt"
)

// Step identifies the phase of a run that failed
type Step string

const (
	StepSession      Step = "session"
	StepBalance      Step = "balance"
	StepTransactions Step = "transactions"
	StepParse        Step = "parse"
	StepPersist      Step = "persist"
	StepAuth         Step = "auth"
	StepPreferences  Step = "preferences"
	StepHistory      Step = "history"
)

// MaxReportedErrors bounds the per-date errors carried in a run result
const MaxReportedErrors = 10

var (
	ErrNoSession = errors.New("no active session, please authenticate first")
	ErrNoData    = errors.New("no data")
	ErrNotFound  = errors.New("data not found")
)

// ConfigError reports missing or malformed configuration
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

// UpstreamError is a non-2xx answer from the bank gateway
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d: %s", e.Op, e.Status, e.Body)
}

// PersistenceError wraps a store failure for a single key
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidationError marks a numeric value rejected by the sanity filter.
// It is never fatal; callers skip the offending record.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// UpstreamStatus returns the status carried by an UpstreamError anywhere in the chain
func UpstreamStatus(err error) (int, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status, true
	}
	return 0, false
}

// Summarize keeps the first MaxReportedErrors messages and returns the total count
func Summarize(errs []error) ([]string, int) {
	out := make([]string, 0, min(len(errs), MaxReportedErrors))
	for i, err := range errs {
		if i >= MaxReportedErrors {
			break
		}
		out = append(out, err.Error())
	}
	return out, len(errs)
}
