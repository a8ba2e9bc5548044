package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrSessionNotFound      = errors.New("signup session not found")
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
)

// MsgNetworkUnavailable is shown when the registration service cannot be
// reached and the transport error carries no message of its own.
const MsgNetworkUnavailable = "Unable to reach the registration service. Please check your connection and try again."

// TransitionError is returned when a wizard move is not allowed.
type TransitionError struct {
	Event   Event
	Current State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// UnknownFieldError is returned for a field name the form does not have.
type UnknownFieldError struct {
	Field Field
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// RemoteError is returned when the registration backend answers with a
// non-2xx status. Message is already suitable for display.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("registration rejected (%d): %s", e.StatusCode, e.Message)
}

// NetworkError is returned when no response was received at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return MsgNetworkUnavailable
	}
	return e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage returns the text shown for a network failure.
func (e *NetworkError) UserMessage() string {
	if e.Err == nil || e.Err.Error() == "" {
		return MsgNetworkUnavailable
	}
	return e.Err.Error()
}
