package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsAPIError(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		assert.Same(t, ErrCycleInProgress, AsAPIError(ErrCycleInProgress))
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("RunCycle: %w", ErrCycleInProgress)
		got := AsAPIError(err)
		assert.Equal(t, http.StatusConflict, got.StatusCode)
		assert.Equal(t, "cycle_in_progress", got.Code)
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Same(t, ErrInternal, AsAPIError(fmt.Errorf("boom")))
	})
}

func TestWithMessage(t *testing.T) {
	err := ErrBadRequest.WithMessage("reference_date must be YYYY-MM-DD")

	assert.Equal(t, "reference_date must be YYYY-MM-DD", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "Invalid request", ErrBadRequest.Message)
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("reference_date", "must be a date")

	assert.Equal(t, "validation_error", err.Code)
	assert.Equal(t, map[string]string{"field": "reference_date", "error": "must be a date"}, err.Details)
}
