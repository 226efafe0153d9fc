package auth

import "errors"

var (
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrUsernameTaken      = errors.New("auth: username already taken")
	ErrAlreadyExists      = errors.New("auth: already exists")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPermissionDenied   = errors.New("auth: permission denied")
	ErrNotFound           = errors.New("auth: not found")
)

// Token verification failures. Each stage of Verify has its own
// sentinel so callers can tell them apart even when the transport
// collapses them into one status code.
var (
	ErrTokenInvalid   = errors.New("auth: token invalid")
	ErrTokenWrongType = errors.New("auth: token type mismatch")
	ErrTokenRevoked   = errors.New("auth: token revoked")
	ErrTokenExpired   = errors.New("auth: token expired")
)
