package medical

import "errors"

var (
	ErrInvalidInput  = errors.New("medical: invalid input")
	ErrNotFound      = errors.New("medical: not found")
	ErrAlreadyExists = errors.New("medical: already exists")
)
