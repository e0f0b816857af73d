package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosniper/internal/domain"
)

func TestNewError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{NewValidationError("bad", nil), http.StatusBadRequest, "VALIDATION_ERROR"},
		{NewSessionRequiredError(), http.StatusUnauthorized, "AUTHENTICATION_ERROR"},
		{NewForbiddenResourceError("strategy", 1), http.StatusForbidden, "AUTHORIZATION_ERROR"},
		{NewResourceNotFoundError("strategy", 1), http.StatusNotFound, "NOT_FOUND"},
		{NewConflictError("dup", nil), http.StatusBadRequest, "CONFLICT"},
		{NewRateLimitError("slow down", nil), http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{NewInternalError("boom", nil), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode, tc.err.Message)
		assert.Equal(t, tc.code, tc.err.ErrorCode, tc.err.Message)
	}
}

func TestFromOTP(t *testing.T) {
	missing := FromOTP(fmt.Errorf("verify: %w", domain.ErrMissingCode))
	expired := FromOTP(domain.ErrExpiredCode)
	invalid := FromOTP(domain.ErrInvalidCode)
	unverified := FromOTP(domain.ErrUnverified)

	assert.Equal(t, "OTP_MISSING", missing.ErrorCode)
	assert.Equal(t, "OTP_EXPIRED", expired.ErrorCode)
	assert.Equal(t, "OTP_INVALID", invalid.ErrorCode)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", unverified.ErrorCode)
	for _, e := range []*Error{missing, expired, invalid, unverified} {
		assert.Equal(t, http.StatusBadRequest, e.StatusCode)
	}

	assert.Equal(t, http.StatusInternalServerError, FromOTP(stderrors.New("redis down")).StatusCode)
}

func TestAs_UnwrapsWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewResourceNotFoundError("position", 9))

	apiErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, int64(9), apiErr.Details["id"])

	_, ok = As(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestError_IsComparesType(t *testing.T) {
	err := NewForbiddenResourceError("strategy", 3)

	assert.True(t, stderrors.Is(err, &Error{Type: ErrorTypeAuthorization}))
	assert.False(t, stderrors.Is(err, &Error{Type: ErrorTypeNotFound}))
}

func TestError_MessageIncludesCause(t *testing.T) {
	err := NewInternalError("Failed to create strategy", stderrors.New("disk full"))

	assert.Equal(t, "Failed to create strategy: disk full", err.Error())
	assert.ErrorContains(t, err, "disk full")
}
