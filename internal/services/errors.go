// Package services defines the business logic for identity, watches, triage,
// and entitlements. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Identity-related errors.
var (
	// ErrNotAuthenticated is returned when an operation requires an owning
	// identity and none is resolvable.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials is returned when sign-in fails because the email
	// is unknown or the password does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when sign-up or an email change targets an
	// address already used by another account.
	ErrEmailTaken = errors.New("email already in use")

	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrBadToken is returned when an email-change or password-reset token
	// does not match the outstanding one.
	ErrBadToken = errors.New("invalid or expired token")
)

// Watch-related errors.
var (
	// ErrWatchNotFound indicates that the requested watch does not exist or
	// is not accessible to the current user.
	ErrWatchNotFound = errors.New("watch not found")

	// ErrValidation is returned when a required field is missing or
	// malformed (e.g. a non-numeric value or an unknown vocabulary term).
	ErrValidation = errors.New("invalid watch")

	// ErrQuotaExceeded is returned when a non-entitled user is at the free
	// record limit; the caller should redirect to the purchase flow.
	ErrQuotaExceeded = errors.New("free quota exceeded")
)

// Triage-related errors.
var (
	// ErrBadDirection is returned when a swipe direction is neither accept
	// nor reject.
	ErrBadDirection = errors.New("direction must be accept or reject")
)
