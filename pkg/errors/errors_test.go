package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "app error wins", err: New(ErrInternal, http.StatusTeapot, "brew"), want: http.StatusTeapot},
		{name: "wrapped app error", err: fmt.Errorf("outer: %w", Newf(ErrInvalidInput, http.StatusBadRequest, "bad %d", 1)), want: http.StatusBadRequest},
		{name: "invalid input", err: ErrInvalidInput, want: http.StatusBadRequest},
		{name: "too large", err: fmt.Errorf("body: %w", ErrPayloadTooLarge), want: http.StatusRequestEntityTooLarge},
		{name: "unavailable", err: ErrUnavailable, want: http.StatusServiceUnavailable},
		{name: "timeout", err: ErrTimeout, want: http.StatusGatewayTimeout},
		{name: "unknown", err: stderrors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppError(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "field %s", "queries")

	assert.Equal(t, "invalid input: field queries", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
}
