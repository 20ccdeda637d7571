package models

import (
	"errors"
	"fmt"
)

// AuthError is a credential acquisition or refresh failure
type AuthError struct {
	Op   string
	Path string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("auth %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteError is a listing or fetch failure on the remote side
type RemoteError struct {
	Op string // "list" or "fetch"
	ID string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IOError is a local read or write failure
type IOError struct {
	Op   string // "fingerprint", "mkdir", "write", "report"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("local %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsAuthError reports whether err wraps an AuthError
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsRemoteError reports whether err wraps a RemoteError
func IsRemoteError(err error) bool {
	var target *RemoteError
	return errors.As(err, &target)
}

// IsIOError reports whether err wraps an IOError
func IsIOError(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}
