// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUserCancelled is returned when the user backs out of an authentication
// attempt (declines a prompt, presses esc, or cancels the context).
// Callers can check for it using errors.Is.
var ErrUserCancelled = errors.New("authentication cancelled by user")

// ErrTimeout is returned when an attempt exhausts its wall-clock budget
// before the provider authorizes it.
var ErrTimeout = errors.New("authentication timed out")

// ErrUnauthorized is returned by API calls when the provider responds with
// HTTP 401, meaning the token is missing, revoked, or lacks its scopes.
var ErrUnauthorized = errors.New("unauthorized")

// NetworkError wraps a transport-level failure. During device-code polling
// these are treated as transient and retried at the next tick; everywhere
// else they propagate.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProviderRejectedError is returned when the provider answers with an error
// payload that terminates the attempt (e.g. access_denied). Description
// carries the provider's error text untouched.
type ProviderRejectedError struct {
	Description string
}

func (e *ProviderRejectedError) Error() string {
	return fmt.Sprintf("provider rejected the request: %s", e.Description)
}

// NoStrategyError is the terminal failure of a login chain: every strategy
// was attempted and none produced a token. Causes holds the per-strategy
// failures in attempt order.
type NoStrategyError struct {
	Causes []error
}

func (e *NoStrategyError) Error() string {
	if len(e.Causes) == 0 {
		return "no auth strategy succeeded"
	}
	parts := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		parts[i] = c.Error()
	}
	return "no auth strategy succeeded: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is search the individual strategy failures.
func (e *NoStrategyError) Unwrap() []error { return e.Causes }
