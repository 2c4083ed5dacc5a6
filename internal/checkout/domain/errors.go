package domain

import "errors"

var (
	ErrInvalidSessionRef = errors.New("invalid_session_reference")
	ErrInvalidUser       = errors.New("invalid_user")
)
