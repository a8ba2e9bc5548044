package app_test

import (
	"context"
	"sync"
	"time"

	"github.com/neomorfeo/fleetsignup/internal/domain"
)

// tableValidator applies domain.Transitions directly.
type tableValidator struct{}

func (v *tableValidator) Apply(_ context.Context, current domain.State, event domain.Event) (domain.State, error) {
	for _, t := range domain.Transitions {
		if t.Event == event && t.Src == current {
			return t.Dst, nil
		}
	}
	return "", &domain.TransitionError{Event: event, Current: current}
}

type mockRegistrar struct {
	mu    sync.Mutex
	calls []domain.RegistrationRequest
	resp  domain.RegistrationResponse
	err   error
}

func (m *mockRegistrar) Register(_ context.Context, req domain.RegistrationRequest) (domain.RegistrationResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	return m.resp, m.err
}

// blockingRegistrar holds the call open until release is closed.
type blockingRegistrar struct {
	entered chan struct{}
	release chan struct{}
	calls   int
}

func (b *blockingRegistrar) Register(_ context.Context, req domain.RegistrationRequest) (domain.RegistrationResponse, error) {
	b.calls++
	close(b.entered)
	<-b.release
	return domain.RegistrationResponse{Name: req.Name}, nil
}

type mockRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newMockRepo() *mockRepo {
	return &mockRepo{sessions: make(map[string]domain.Session)}
}

func (m *mockRepo) Create(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockRepo) List(_ context.Context, _ domain.ListFilter) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockRepo) DeleteStale(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

type publishedEvent struct {
	event   domain.Event
	session domain.Session
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Event, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{event: e, session: s})
	return m.err
}

func (m *mockPublisher) kinds() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events))
	for i, e := range m.events {
		out[i] = e.event
	}
	return out
}
