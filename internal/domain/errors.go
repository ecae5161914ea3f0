package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrHandleInvalid   = errors.New("handle invalid")
	ErrHandleTaken     = errors.New("handle taken")
	ErrAgentLimit      = errors.New("agent limit reached")
	ErrAlreadyClaimed  = errors.New("already claimed")
	ErrAgentAccount    = errors.New("agent accounts cannot link agents")
	ErrTokenInvalid    = errors.New("token invalid")
	ErrPostNotOpen     = errors.New("post not open for comments")
	ErrRateLimited     = errors.New("rate limited")
)

// ValidationError is a field-level rejection raised before any mutation.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	if strings.HasPrefix(e.Code, "HANDLE_") {
		return ErrHandleInvalid
	}
	return ErrInvalidArgument
}

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// SignupErrorCode is the machine-readable outcome of a failed signup step.
type SignupErrorCode string

const (
	SignupInvalidHandle       SignupErrorCode = "HANDLE_INVALID"
	SignupUnsupportedPlatform SignupErrorCode = "UNSUPPORTED_PLATFORM"
	SignupInvalidCode         SignupErrorCode = "INVALID_CODE"
	SignupAlreadyVerified     SignupErrorCode = "ALREADY_VERIFIED"
	SignupCodeExpired         SignupErrorCode = "CODE_EXPIRED"
	SignupTooManyAttempts     SignupErrorCode = "MAX_ATTEMPTS"
	SignupServiceUnavailable  SignupErrorCode = "SERVICE_UNAVAILABLE"
	SignupTimeoutApproaching  SignupErrorCode = "TIMEOUT_APPROACHING"
	SignupVerificationFailed  SignupErrorCode = "VERIFICATION_FAILED"
	SignupHandleTaken         SignupErrorCode = "HANDLE_TAKEN"
)

type SignupError struct {
	Code              SignupErrorCode
	Message           string
	Reason            string
	AttemptsRemaining int
	RetryAfter        time.Duration
	KeyPrefix         string
	Handle            string
}

func (e *SignupError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *SignupError) Unwrap() error {
	switch e.Code {
	case SignupHandleTaken:
		return ErrHandleTaken
	case SignupInvalidHandle:
		return ErrHandleInvalid
	}
	return nil
}

// Retryable reports whether the caller should try the same request again later.
func (e *SignupError) Retryable() bool {
	return e.Code == SignupServiceUnavailable || e.Code == SignupTimeoutApproaching
}

// RateLimitError carries the wait a denied caller should observe.
type RateLimitError struct {
	RetryAfter time.Duration
	Limit      int
}

func (e *RateLimitError) Error() string {
	return "rate limited: retry after " + e.RetryAfter.String()
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
