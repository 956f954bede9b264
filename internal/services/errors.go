package services

import (
	"errors"
	"fmt"
)

// Recoverable, user-facing conditions. Storage and transport failures below
// the core propagate as ordinary wrapped errors and are surfaced to clients
// as a generic failure.
var (
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrVerificationInvalid = errors.New("verification code invalid")
	ErrVerificationExpired = errors.New("verification code expired")
	ErrAttemptsExceeded    = errors.New("too many verification attempts")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrTokenExpired        = errors.New("token expired")
)

// OAuthLoginRequiredError is returned when the email belongs to an
// OAuth-only account: the caller should be sent to that provider's sign-in
// instead of registration.
type OAuthLoginRequiredError struct {
	Provider string
}

func (e *OAuthLoginRequiredError) Error() string {
	return fmt.Sprintf("account uses %s sign-in", e.Provider)
}

// ResendTooSoonError carries the whole seconds left in the cooldown window.
type ResendTooSoonError struct {
	SecondsRemaining int
}

func (e *ResendTooSoonError) Error() string {
	return fmt.Sprintf("resend available in %d seconds", e.SecondsRemaining)
}

// EmailSendFailedError wraps a mail transport failure. The code row issued
// before the send stays persisted, so the resend cooldown still applies.
type EmailSendFailedError struct {
	Err error
}

func (e *EmailSendFailedError) Error() string {
	return fmt.Sprintf("email send failed: %v", e.Err)
}

func (e *EmailSendFailedError) Unwrap() error { return e.Err }
