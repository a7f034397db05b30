package domain

import "errors"

var (
	// ErrPermissionDenied indicates the step event source refused access.
	// The aggregator must not start in this state.
	ErrPermissionDenied = errors.New("step source permission denied")

	// ErrSensorUnavailable indicates no step source exists. The aggregator
	// degrades to a zero counter for the session instead of failing.
	ErrSensorUnavailable = errors.New("step sensor unavailable")

	// ErrNoAuthenticatedUser blocks every coordinator operation.
	ErrNoAuthenticatedUser = errors.New("no authenticated user")

	// ErrCodeNotFound is returned when no active group matches an invite code.
	ErrCodeNotFound = errors.New("invite code not found")

	// ErrAlreadyMember is returned when the caller already belongs to the group.
	ErrAlreadyMember = errors.New("already a group member")

	// ErrGroupNotFound is returned when the caller has no group or the group
	// document no longer exists.
	ErrGroupNotFound = errors.New("group not found")

	// ErrTransactionConflict marks a transient transaction failure. Retrying
	// the whole transaction is safe.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrRequiresRecentLogin distinguishes the re-authentication condition
	// from generic account-deletion failures.
	ErrRequiresRecentLogin = errors.New("requires recent login")

	// ErrStoreUnavailable wraps network or backend failures of the remote
	// store. Callers log it and rely on the next tick or user action.
	ErrStoreUnavailable = errors.New("remote store unavailable")
)
