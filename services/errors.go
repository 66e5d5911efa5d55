package services

import "errors"

// Sentinel errors handlers translate into HTTP statuses or redirect
// query parameters. None of these are fatal to the claim flow; the
// worst case routes the user back one step.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrNotEligible       = errors.New("not all tasks completed")
	ErrAlreadyClaimed    = errors.New("badge already claimed")
	ErrAlreadySpun       = errors.New("wheel already spun")
	ErrCodeNotFound      = errors.New("no verification code found")
	ErrCodeExpired       = errors.New("verification code expired")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrResendCooldown    = errors.New("verification code resent too soon")
	ErrDuplicateIdentity = errors.New("account already linked to another email")
	ErrStateNotFound     = errors.New("oauth state not found or already used")
)
