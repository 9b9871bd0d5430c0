package services

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrClientNotFound = errors.New("client not found")
	ErrConflict       = errors.New("conflict")
	ErrSendFailed     = errors.New("send failed")
)
