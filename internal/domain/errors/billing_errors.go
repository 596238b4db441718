package errors

import "errors"

var (
	// ErrCustomerNotFound indicates that no billing customer matches the user identity
	ErrCustomerNotFound = errors.New("no billing customer found for user")

	// ErrSubscriptionNotFound indicates that the customer has no subscription yet
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrUnknownUser indicates that a billing customer carries no usable user cross-reference
	ErrUnknownUser = errors.New("billing customer has no user reference")

	// ErrAdminRequired indicates that the caller lacks the administrator role
	ErrAdminRequired = errors.New("administrator role required")

	// ErrInvalidDateRange indicates a malformed or inverted metrics date range
	ErrInvalidDateRange = errors.New("invalid date range")
)
