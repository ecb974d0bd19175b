package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	var errs []error
	for i := 0; i < 14; i++ {
		errs = append(errs, fmt.Errorf("date %d failed", i))
	}

	msgs, count := Summarize(errs)
	assert.Len(t, msgs, MaxReportedErrors)
	assert.Equal(t, 14, count)
	assert.Equal(t, "date 0 failed", msgs[0])

	msgs, count = Summarize(nil)
	assert.Empty(t, msgs)
	assert.Zero(t, count)
}

func TestUpstreamStatus(t *testing.T) {
	err := fmt.Errorf("fetch balances: %w", &UpstreamError{Op: "balances", Status: 401, Body: "expired"})

	status, ok := UpstreamStatus(err)
	assert.True(t, ok)
	assert.Equal(t, 401, status)
	assert.Contains(t, err.Error(), "expired")

	_, ok = UpstreamStatus(errors.New("boom"))
	assert.False(t, ok)
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	root := errors.New("connection refused")
	err := &PersistenceError{Key: "2024-03-01", Err: root}

	assert.ErrorIs(t, err, root)
	assert.Equal(t, "persist 2024-03-01: connection refused", err.Error())
}

func TestConfigError(t *testing.T) {
	assert.Equal(t, "DB_CONN is required", (&ConfigError{Key: "DB_CONN"}).Error())
	assert.Equal(t, "HTTP_TIMEOUT: not a duration", (&ConfigError{Key: "HTTP_TIMEOUT", Reason: "not a duration"}).Error())
}
