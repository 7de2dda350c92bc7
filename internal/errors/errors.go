package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Graph session library
var (
	// Authorization flow errors
	ErrStateMismatch = errors.New("authorization state mismatch")
	ErrStateNotFound = errors.New("no pending authorization state")
	ErrMissingCode   = errors.New("authorization code missing from callback")

	// Token errors
	ErrNoAccessToken  = errors.New("no access token in response")
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrNoRefreshToken = errors.New("no refresh token available")

	// Configuration errors
	ErrMissingClientID    = errors.New("client id is required")
	ErrMissingRedirectURI = errors.New("redirect uri is required")

	// Storage errors
	ErrStateRecordNotFound = errors.New("no persisted session state")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
