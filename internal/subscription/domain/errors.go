package domain

import "errors"

var (
	ErrInvalidUser            = errors.New("invalid_user")
	ErrInvalidSubscriptionRef = errors.New("invalid_subscription_reference")
	ErrUnknownPlan            = errors.New("unknown_plan")
	ErrSubscriptionNotFound   = errors.New("subscription_not_found")
	ErrAlreadyApplied         = errors.New("already_applied")
)
