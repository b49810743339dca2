// Package apperr holds sentinel errors shared by the service, API and CLI layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnsupported   = errors.New("unsupported action")
	ErrNoGenerator   = errors.New("ai generator not configured")
	ErrInvalidInput  = errors.New("invalid input")
)
