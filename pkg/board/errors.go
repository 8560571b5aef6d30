package board

import "errors"

var (
	// ErrValidation marks a command or record with missing or malformed fields.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a command that referenced a list or todo that does not exist.
	ErrNotFound = errors.New("not found")
)
