package errors

import (
	"errors"
	"fmt"
)

// Standard error types for the certificate authentication service.
var (
	// Certificate errors
	ErrCertificateMissing     = errors.New("client certificate is missing")
	ErrCertificateMalformed   = errors.New("client certificate is malformed")
	ErrCertificateExpired     = errors.New("client certificate has expired")
	ErrCertificateNotYetValid = errors.New("client certificate is not yet valid")
	ErrCertificateRevoked     = errors.New("client certificate has been revoked")
	ErrCertificateTypeDenied  = errors.New("certificate type is not permitted")

	// Chain validation errors
	ErrChainValidation    = errors.New("certificate chain validation failed")
	ErrUntrustedAuthority = errors.New("certificate authority is not trusted")
	ErrKeyUsageInvalid    = errors.New("certificate key usage does not permit client authentication")

	// Revocation errors
	ErrRevocationCheckFailed = errors.New("revocation status check failed")
	ErrRevocationUnknown     = errors.New("revocation status could not be determined")

	// Trust store errors
	ErrTrustStoreLoadFailed = errors.New("failed to load trust store")
	ErrTrustStoreEmpty      = errors.New("trust store contains no certificates")

	// Hook errors
	ErrHookFailed = errors.New("authentication hook failed")

	// Configuration errors
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConfigNotFound   = errors.New("configuration not found")
	ErrConfigLoadFailed = errors.New("failed to load configuration")

	// Service errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrInternal           = errors.New("internal error")
)

// AuthError represents a structured authentication error.
type AuthError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the error message
	Message string `json:"message"`

	// Details contains additional error details
	Details map[string]any `json:"details,omitempty"`

	// Cause is the underlying error
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *AuthError) WithDetail(key string, value any) *AuthError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewAuthError creates a new AuthError.
func NewAuthError(code, message string, cause error) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error codes
const (
	CodeCertificateMissing   = "CERTIFICATE_MISSING"
	CodeCertificateMalformed = "CERTIFICATE_MALFORMED"
	CodeCertificateDenied    = "CERTIFICATE_DENIED"
	CodeChainInvalid         = "CHAIN_INVALID"
	CodeRevocationFailed     = "REVOCATION_CHECK_FAILED"
	CodeHookError            = "HOOK_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeConfigError          = "CONFIG_ERROR"
	CodeUnavailable          = "SERVICE_UNAVAILABLE"
)

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// GetCode extracts the error code from an error chain, or returns
// CodeInternalError when no AuthError is present.
func GetCode(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternalError
}
