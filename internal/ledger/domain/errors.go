package domain

import "errors"

var (
	ErrInvalidUser            = errors.New("invalid_user")
	ErrInvalidTransactionType = errors.New("invalid_transaction_type")
	ErrInvalidSource          = errors.New("invalid_source")
	ErrZeroCreditsChange      = errors.New("zero_credits_change")
)
