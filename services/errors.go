package services

import "errors"

// Sentinel errors shared by all services. Handlers map these onto HTTP
// statuses; anything else is reported as a generic internal error so store
// details never leak to clients.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
)
