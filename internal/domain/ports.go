package domain

import (
	"context"
	"time"
)

// SessionRepository defines the persistence contract for signup sessions.
type SessionRepository interface {
	Create(ctx context.Context, session Session) error
	GetByID(ctx context.Context, id string) (Session, error)
	List(ctx context.Context, filter ListFilter) ([]Session, error)
	Update(ctx context.Context, session Session) error
	Delete(ctx context.Context, id string) error
	// DeleteStale removes sessions last updated before the cutoff and
	// returns how many were removed.
	DeleteStale(ctx context.Context, before time.Time) (int, error)
}

// ListFilter holds optional criteria for listing sessions.
type ListFilter struct {
	State  *State
	Limit  int
	Offset int
}

// TransitionValidator checks a wizard move and returns the destination state.
type TransitionValidator interface {
	Apply(ctx context.Context, current State, event Event) (State, error)
}

// Registrar is the external registration backend.
type Registrar interface {
	Register(ctx context.Context, req RegistrationRequest) (RegistrationResponse, error)
}

// EventPublisher defines the contract for emitting wizard events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, session Session) error
}

// User is the principal the outbound credentials belong to.
type User struct {
	ID    string
	Email string
	Role  string
}

// SessionContext supplies credentials for outbound calls without tying
// callers to where they are stored.
type SessionContext interface {
	Token() string
	ClearSession()
	CurrentUser() (User, bool)
}
