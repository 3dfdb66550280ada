package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadySubscribed indicates the account already has an active subscription
	ErrAlreadySubscribed = errors.New("account already has an active subscription")

	// ErrNoActiveSubscription indicates the account has no active subscription
	ErrNoActiveSubscription = errors.New("no active subscription found")

	// ErrSubscriptionNotFound indicates the specified subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrInvalidTransition indicates a disallowed subscription status change
	ErrInvalidTransition = errors.New("invalid subscription status transition")

	// ErrUnauthorized indicates a missing or invalid caller identity
	ErrUnauthorized = errors.New("authentication required")
)

// ValidationError reports missing or malformed request input. It is resolved
// entirely before any gateway call or store write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
	}
	return "invalid request: " + e.Reason
}

// GatewayError carries the payment gateway's own error code and message, which
// are surfaced to the caller verbatim rather than masked.
type GatewayError struct {
	Code       string
	Message    string
	HTTPStatus int
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// PersistenceError is raised when a local write fails after a successful
// charge. PaymentKey is the reconciliation marker: it must reach both the
// response and the operator log so a human can resolve the orphaned charge.
type PersistenceError struct {
	PaymentKey string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist subscription after charge (payment key %s): %v", e.PaymentKey, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
