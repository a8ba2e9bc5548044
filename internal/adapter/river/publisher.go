package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/fleetsignup/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// SignupEventJobArgs carries a wizard event for asynchronous processing.
// River stores it as JSON in its job table, so it only holds the session's
// position and outcome. Form values never leave the session store.
type SignupEventJobArgs struct {
	Event      string `json:"event"`
	SessionID  string `json:"session_id"`
	State      string `json:"state"`
	Step       int    `json:"step,omitempty"`
	ResultKind string `json:"result_kind,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (SignupEventJobArgs) Kind() string { return "signup.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a wizard event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, session domain.Session) error {
	_, err := p.client.Insert(ctx, SignupEventJobArgs{
		Event:      string(event),
		SessionID:  session.ID,
		State:      string(session.State),
		Step:       int(session.Step()),
		ResultKind: string(session.Result.Kind),
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}
