package domain

import "errors"

// Domain errors
var (
	// Credential errors
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrSessionNotFound    = errors.New("session not found")

	// User errors
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserInactive      = errors.New("user is inactive")

	// Role assignment errors
	ErrForbidden       = errors.New("caller is not allowed to assign this role")
	ErrInvalidRole     = errors.New("invalid role")
	ErrAlreadyAssigned = errors.New("role already assigned")
)
