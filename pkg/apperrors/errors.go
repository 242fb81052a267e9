package apperrors

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrMutationRejected        = errors.New("mutation rejected by backend")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidConnectionString = errors.New("invalid connection string")
	ErrSuspiciousInput         = errors.New("input looks like SQL injection")
	ErrUnauthorized            = errors.New("unauthorized")
)
