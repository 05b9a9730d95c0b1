package llm

import (
	"errors"
	"fmt"
)

// Error codes shared by all providers.
const (
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeAuthFailed     = "auth_failed"
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeModelError     = "model_error"
	ErrCodeTimeout        = "timeout"
	ErrCodeUnavailable    = "unavailable"
)

// ProviderError carries structured information about a failed provider call so
// callers can decide whether a retry is worthwhile.
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (%s, status %d)", e.Provider, e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError builds a ProviderError with retryability derived from the code.
func NewProviderError(provider, code, message string, cause error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Retryable: retryableCode(code),
		Cause:     cause,
	}
}

func retryableCode(code string) bool {
	switch code {
	case ErrCodeRateLimited, ErrCodeTimeout, ErrCodeModelError, ErrCodeUnavailable:
		return true
	}
	return false
}

// IsRetryable reports whether err is a provider error worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
