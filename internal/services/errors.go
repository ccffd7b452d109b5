package services

import "errors"

// Sentinel errors returned by the service layer. Handlers map these to HTTP
// statuses; everything else is treated as an internal error.
var (
	// ErrNotFound covers both a missing resource and an authorization
	// denial, so unauthorized callers cannot probe for existence.
	ErrNotFound = errors.New("not found")

	// ErrInvitationInvalid is returned when a token matches no pending,
	// unexpired invitation.
	ErrInvitationInvalid = errors.New("invitation is invalid or has expired")

	// ErrEmailMismatch is returned when the accepting user's email does not
	// match the invitation. The invitation stays pending.
	ErrEmailMismatch = errors.New("invitation was issued for a different email address")

	// ErrInvitationAccepted is returned on a second acceptance attempt with
	// the same token.
	ErrInvitationAccepted = errors.New("invitation has already been accepted")

	// ErrSelfTarget is returned when an owner tries to remove or demote
	// themself, which would leave the project without an owner.
	ErrSelfTarget = errors.New("cannot target your own membership")

	// ErrDuplicate is returned on uniqueness conflicts not absorbed by
	// upsert semantics.
	ErrDuplicate = errors.New("already exists")
)
