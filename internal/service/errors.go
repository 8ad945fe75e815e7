package service

import "errors"

// Typed operation errors. Every rejected operation wraps one of these so the
// handler layer can map them to HTTP status codes with errors.Is, and the
// message states which rule blocked the call without leaking record fields.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
)
