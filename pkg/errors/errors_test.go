package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AuthError
		expected string
	}{
		{
			name: "without cause",
			err: &AuthError{
				Code:    CodeCertificateDenied,
				Message: "self-signed certificates are not permitted",
			},
			expected: "CERTIFICATE_DENIED: self-signed certificates are not permitted",
		},
		{
			name: "with cause",
			err: &AuthError{
				Code:    CodeChainInvalid,
				Message: "chain validation failed",
				Cause:   errors.New("unknown authority"),
			},
			expected: "CHAIN_INVALID: chain validation failed: unknown authority",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAuthError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AuthError{
		Code:    CodeInternalError,
		Message: "something went wrong",
		Cause:   cause,
	}

	unwrapped := err.Unwrap()
	assert.Equal(t, cause, unwrapped)
}

func TestAuthError_Unwrap_NilCause(t *testing.T) {
	err := &AuthError{
		Code:    CodeCertificateDenied,
		Message: "denied",
	}

	unwrapped := err.Unwrap()
	assert.Nil(t, unwrapped)
}

func TestAuthError_WithDetail(t *testing.T) {
	err := &AuthError{
		Code:    CodeChainInvalid,
		Message: "chain validation failed",
	}

	result := err.WithDetail("subject", "CN=client").WithDetail("status", "expired")

	require.NotNil(t, result.Details)
	assert.Equal(t, "CN=client", result.Details["subject"])
	assert.Equal(t, "expired", result.Details["status"])
	// Should return same instance (chaining)
	assert.Same(t, err, result)
}

func TestNewAuthError(t *testing.T) {
	cause := errors.New("cause error")
	err := NewAuthError(CodeCertificateMalformed, "failed to parse certificate", cause)

	require.NotNil(t, err)
	assert.Equal(t, CodeCertificateMalformed, err.Code)
	assert.Equal(t, "failed to parse certificate", err.Message)
	assert.Equal(t, cause, err.Cause)
}

func TestNewAuthError_NilCause(t *testing.T) {
	err := NewAuthError(CodeCertificateDenied, "denied", nil)

	require.NotNil(t, err)
	assert.Nil(t, err.Cause)
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{
			name:     "match",
			err:      ErrCertificateExpired,
			target:   ErrCertificateExpired,
			expected: true,
		},
		{
			name:     "no match",
			err:      ErrCertificateExpired,
			target:   ErrCertificateRevoked,
			expected: false,
		},
		{
			name:     "wrapped match",
			err:      Wrap(ErrChainValidation, "context"),
			target:   ErrChainValidation,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Is(tt.err, tt.target)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAs(t *testing.T) {
	authErr := &AuthError{
		Code:    CodeCertificateDenied,
		Message: "denied",
	}

	var target *AuthError
	result := As(authErr, &target)

	assert.True(t, result)
	assert.Equal(t, authErr.Code, target.Code)
}

func TestAs_NoMatch(t *testing.T) {
	err := errors.New("plain error")

	var target *AuthError
	result := As(err, &target)

	assert.False(t, result)
}

func TestWrap(t *testing.T) {
	err := errors.New("original error")
	wrapped := Wrap(err, "context message")

	require.NotNil(t, wrapped)
	assert.Contains(t, wrapped.Error(), "context message")
	assert.Contains(t, wrapped.Error(), "original error")
	assert.True(t, errors.Is(wrapped, err))
}

func TestWrap_NilError(t *testing.T) {
	wrapped := Wrap(nil, "context message")
	assert.Nil(t, wrapped)
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "auth error",
			err:      NewAuthError(CodeChainInvalid, "chain failed", nil),
			expected: CodeChainInvalid,
		},
		{
			name:     "wrapped auth error",
			err:      Wrap(NewAuthError(CodeRevocationFailed, "crl fetch failed", nil), "context"),
			expected: CodeRevocationFailed,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetCode(tt.err))
		})
	}
}

func TestStandardErrors(t *testing.T) {
	// Ensure all standard errors are unique
	standardErrors := []error{
		ErrCertificateMissing,
		ErrCertificateMalformed,
		ErrCertificateExpired,
		ErrCertificateNotYetValid,
		ErrCertificateRevoked,
		ErrCertificateTypeDenied,
		ErrChainValidation,
		ErrUntrustedAuthority,
		ErrKeyUsageInvalid,
		ErrRevocationCheckFailed,
		ErrRevocationUnknown,
		ErrTrustStoreLoadFailed,
		ErrTrustStoreEmpty,
		ErrHookFailed,
		ErrConfigInvalid,
		ErrConfigNotFound,
		ErrConfigLoadFailed,
		ErrServiceUnavailable,
		ErrTimeout,
		ErrInternal,
	}

	// Each error should be unique
	seen := make(map[string]bool)
	for _, err := range standardErrors {
		msg := err.Error()
		assert.False(t, seen[msg], "duplicate error: %s", msg)
		seen[msg] = true
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []string{
		CodeCertificateMissing,
		CodeCertificateMalformed,
		CodeCertificateDenied,
		CodeChainInvalid,
		CodeRevocationFailed,
		CodeHookError,
		CodeInternalError,
		CodeConfigError,
		CodeUnavailable,
	}

	// Each code should be unique
	seen := make(map[string]bool)
	for _, code := range codes {
		assert.False(t, seen[code], "duplicate code: %s", code)
		seen[code] = true
	}
}

func TestAuthError_ErrorsIsCompatibility(t *testing.T) {
	cause := ErrCertificateExpired
	authErr := NewAuthError(CodeChainInvalid, "certificate expired", cause)

	// Should be able to use errors.Is to check cause
	assert.True(t, errors.Is(authErr, ErrCertificateExpired))
}

func TestAuthError_ChainedDetails(t *testing.T) {
	err := NewAuthError(CodeChainInvalid, "chain validation failed", nil).
		WithDetail("subject", "CN=client").
		WithDetail("issuer", "CN=root").
		WithDetail("status", "revoked")

	assert.Len(t, err.Details, 3)
	assert.Equal(t, "CN=client", err.Details["subject"])
	assert.Equal(t, "CN=root", err.Details["issuer"])
	assert.Equal(t, "revoked", err.Details["status"])
}

func BenchmarkAuthError_Error(b *testing.B) {
	err := &AuthError{
		Code:    CodeChainInvalid,
		Message: "chain validation failed",
		Cause:   errors.New("underlying cause"),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = err.Error()
	}
}

func BenchmarkAuthError_WithDetail(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := &AuthError{Code: "TEST", Message: "test"}
		err.WithDetail("key", "value")
	}
}

func BenchmarkWrap(b *testing.B) {
	err := errors.New("original")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Wrap(err, "context")
	}
}

func BenchmarkIs(b *testing.B) {
	err := Wrap(ErrCertificateExpired, "context")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Is(err, ErrCertificateExpired)
	}
}
