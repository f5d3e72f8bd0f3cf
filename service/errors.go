package service

import "errors"

// Expected failure modes callers are meant to branch on. Anything else
// coming out of the service is a wrapped store or validation error.
var (
	// ErrSelfFollow is returned when an operation targets the same
	// identifier twice. Rejected before any cache or store access.
	ErrSelfFollow = errors.New("users cannot follow themselves")

	// ErrAlreadyFollowing is returned when a follow mutation finds the
	// edge already present.
	ErrAlreadyFollowing = errors.New("already following this user")
)
