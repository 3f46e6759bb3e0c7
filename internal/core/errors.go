package core

import "errors"

var (
	// ErrAuthFailed covers unknown users and wrong passwords alike.
	ErrAuthFailed = errors.New("incorrect username or password")

	ErrDuplicateUser      = errors.New("username already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("username and password are required")

	// ErrNotFound is returned when an expense does not exist or is not
	// visible to the caller.
	ErrNotFound = errors.New("expense not found")
)
