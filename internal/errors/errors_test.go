package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Pairing code not found")
		assert.Equal(t, "NOT_FOUND: Pairing code not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := StoreTransient(cause)
		assert.Contains(t, err.Error(), "STORE_TRANSIENT")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "deviceId", "reason": "too short"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})

	t.Run("errors.As finds wrapped AppError", func(t *testing.T) {
		inner := SelfConnect()
		wrapped := fmt.Errorf("connect: %w", inner)
		got, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeSelfConnect, got.Code)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"Forbidden", func() *AppError { return Forbidden("test") }, ErrCodeForbidden},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("email", "invalid") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("email") }, ErrCodeMissingRequired},
		{"NotFound", func() *AppError { return NotFound("Pairing code") }, ErrCodeNotFound},
		{"Conflict", func() *AppError { return Conflict("test") }, ErrCodeConflict},
		{"InvalidPairingCode", func() *AppError { return InvalidPairingCode() }, ErrCodeInvalidPairingCode},
		{"SelfConnect", func() *AppError { return SelfConnect() }, ErrCodeSelfConnect},
		{"AlreadyConnected", func() *AppError { return AlreadyConnected() }, ErrCodeAlreadyConnected},
		{"BadQRPayload", func() *AppError { return BadQRPayload() }, ErrCodeBadQRPayload},
		{"RateLimitExceeded", func() *AppError { return RateLimitExceeded() }, ErrCodeRateLimitExceeded},
		{"Timeout", func() *AppError { return Timeout("resolve") }, ErrCodeTimeout},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestStableMessages(t *testing.T) {
	// These strings are shown to end users and asserted on by clients.
	assert.Equal(t, "Invalid or expired device code", InvalidPairingCode().Message)
	assert.Equal(t, "Cannot connect to your own device", SelfConnect().Message)
	assert.Equal(t, "Already connected to this device", AlreadyConnected().Message)
}

func TestGetCode(t *testing.T) {
	t.Run("returns code of AppError", func(t *testing.T) {
		assert.Equal(t, ErrCodeTimeout, GetCode(Timeout("issue")))
	})

	t.Run("returns internal for plain errors", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("boom")))
	})
}
