package api

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError is returned for any failed call to the story API: a transport
// failure (StatusCode 0) or a non-success HTTP status.
type RemoteError struct {
	Op         string
	StatusCode int
	Title      string
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, msg)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// AuthError is a RemoteError caused by rejected credentials.
type AuthError struct {
	*RemoteError
}

func (e *AuthError) Error() string {
	return "invalid username or password: " + e.RemoteError.Error()
}

func (e *AuthError) Unwrap() error {
	return e.RemoteError
}

// IsAuthError reports whether err is, or wraps, an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

func isCredentialRejection(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
