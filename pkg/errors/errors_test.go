package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDetailKeepsSentinel(t *testing.T) {
	sentinel := NewAppError(CodeNotFound, "device not found", nil)
	detailed := sentinel.WithDetail("device %s not found", "AA:BB")

	assert.ErrorIs(t, detailed, sentinel)
	assert.Equal(t, CodeNotFound, CodeOf(detailed))
	assert.Equal(t, "device AA:BB not found: device not found", detailed.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NewAppError(CodeNotFound, "x", nil), http.StatusNotFound},
		{NewAppError(CodeAlreadyExists, "x", nil), http.StatusConflict},
		{ErrForbidden, http.StatusForbidden},
		{NewAppError(CodeInactiveDevice, "x", nil), http.StatusForbidden},
		{ErrDisallowedLogin, http.StatusForbidden},
		{ErrAuthenticationRequired, http.StatusUnauthorized},
		{ErrInvalidToken, http.StatusUnauthorized},
		{ErrIncorrectLogin, http.StatusUnauthorized},
		{NewBadRequest("x"), http.StatusBadRequest},
		{NewValidationError(errors.New("x")), http.StatusBadRequest},
		{ErrServer, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrForbidden), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), tt.err.Error())
	}
}
