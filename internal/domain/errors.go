package domain

import "errors"

// Sentinel errors shared by the backend services and the HTTP client. The
// server maps them to status codes and the client maps status codes back.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalid      = errors.New("invalid")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
