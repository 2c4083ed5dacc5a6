package domain

import "errors"

var (
	ErrInvalidUser       = errors.New("invalid_user")
	ErrInvalidPaymentRef = errors.New("invalid_payment_reference")
	ErrInvalidCredits    = errors.New("invalid_credits")
	ErrAlreadyApplied    = errors.New("already_applied")
)
