package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neomorfeo/fleetsignup/internal/domain"
)

// SignupService orchestrates persisted signup sessions.
type SignupService struct {
	repo      domain.SessionRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	registrar domain.Registrar

	locks    keyedMutex
	inflight sync.Map
}

// NewSignupService creates a service with the given adapters.
func NewSignupService(repo domain.SessionRepository, publisher domain.EventPublisher, validator domain.TransitionValidator, registrar domain.Registrar) *SignupService {
	return &SignupService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		registrar: registrar,
	}
}

// Start persists a new session on the first step, optionally pre-filled.
func (s *SignupService) Start(ctx context.Context, prefill map[domain.Field]string) (domain.Session, error) {
	for field := range prefill {
		if !domain.IsField(field) {
			return domain.Session{}, &domain.UnknownFieldError{Field: field}
		}
	}

	id, err := generateID()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generating session id: %w", err)
	}

	session := domain.NewSession(id)
	for field, value := range prefill {
		session.Form.Values[field] = value
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("creating session: %w", err)
	}

	slog.InfoContext(ctx, "signup started", "session_id", id, "prefilled", len(prefill))
	return session, nil
}

// Get returns a session by its unique identifier.
func (s *SignupService) Get(ctx context.Context, id string) (domain.Session, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns sessions matching the given filter.
func (s *SignupService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Session, error) {
	return s.repo.List(ctx, filter)
}

// Discard deletes a session.
func (s *SignupService) Discard(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	return s.repo.Delete(ctx, id)
}

// SetField records a field value.
func (s *SignupService) SetField(ctx context.Context, id string, field domain.Field, value string) (domain.Session, error) {
	return s.mutate(ctx, id, func(form *Form) error {
		return form.SetField(field, value)
	})
}

// Blur validates a single field and stores the outcome.
func (s *SignupService) Blur(ctx context.Context, id string, field domain.Field) (domain.Session, error) {
	return s.mutate(ctx, id, func(form *Form) error {
		_, err := form.Blur(field)
		return err
	})
}

// SetConsent records the terms acknowledgement.
func (s *SignupService) SetConsent(ctx context.Context, id string, accepted bool) (domain.Session, error) {
	return s.mutate(ctx, id, func(form *Form) error {
		form.SetConsent(accepted)
		return nil
	})
}

// Advance moves the session to the next step if the current one is valid.
func (s *SignupService) Advance(ctx context.Context, id string) (domain.Session, AdvanceResult, error) {
	var result AdvanceResult
	session, err := s.mutate(ctx, id, func(form *Form) error {
		result = form.Advance(ctx)
		return nil
	})
	if err != nil {
		return domain.Session{}, AdvanceResult{}, err
	}

	if result.OK {
		if err := s.publisher.Publish(ctx, domain.EventAdvance, session); err != nil {
			return domain.Session{}, AdvanceResult{}, fmt.Errorf("publishing event %q: %w", domain.EventAdvance, err)
		}
	}
	return session, result, nil
}

// Retreat moves the session one step back.
func (s *SignupService) Retreat(ctx context.Context, id string) (domain.Session, bool, error) {
	var moved bool
	session, err := s.mutate(ctx, id, func(form *Form) error {
		moved = form.Retreat(ctx)
		return nil
	})
	if err != nil {
		return domain.Session{}, false, err
	}

	if moved {
		if err := s.publisher.Publish(ctx, domain.EventRetreat, session); err != nil {
			return domain.Session{}, false, fmt.Errorf("publishing event %q: %w", domain.EventRetreat, err)
		}
	}
	return session, moved, nil
}

// Submit sends the registration for a session on its last step. A second
// submit for the same session while one is in flight fails with
// domain.ErrSubmissionInProgress.
func (s *SignupService) Submit(ctx context.Context, id string) (domain.Session, domain.SubmissionResult, error) {
	if _, busy := s.inflight.LoadOrStore(id, struct{}{}); busy {
		return domain.Session{}, domain.SubmissionResult{}, domain.ErrSubmissionInProgress
	}
	defer s.inflight.Delete(id)

	var result domain.SubmissionResult
	session, err := s.mutate(ctx, id, func(form *Form) error {
		var err error
		result, err = form.Submit(ctx)
		return err
	})
	if err != nil {
		return domain.Session{}, domain.SubmissionResult{}, err
	}

	if !result.Succeeded() {
		slog.InfoContext(ctx, "signup submission failed", "session_id", id, "reason", result.Message)
		return session, result, nil
	}

	slog.InfoContext(ctx, "signup submitted", "session_id", id)

	// The registration already went through; a lost event must not turn
	// into a failed submit the user would retry.
	for _, event := range []domain.Event{domain.EventSubmit, domain.EventReset} {
		if err := s.publisher.Publish(ctx, event, session); err != nil {
			slog.WarnContext(ctx, "publishing signup event", "session_id", id, "event", event, "error", err)
		}
	}
	return session, result, nil
}

// ExpireIdle deletes sessions that have not been touched for maxIdle.
func (s *SignupService) ExpireIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	if maxIdle <= 0 {
		return 0, fmt.Errorf("expiring idle sessions: max idle must be positive, got %s", maxIdle)
	}
	n, err := s.repo.DeleteStale(ctx, time.Now().UTC().Add(-maxIdle))
	if err != nil {
		return 0, fmt.Errorf("expiring idle sessions: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "expired idle signup sessions", "count", n)
	}
	return n, nil
}

// mutate loads a session, applies fn under the session lock and persists
// the result.
func (s *SignupService) mutate(ctx context.Context, id string, fn func(*Form) error) (domain.Session, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}

	form := NewForm(session, s.validator, s.registrar)
	if err := fn(form); err != nil {
		return domain.Session{}, err
	}

	updated := form.Session()
	if err := s.repo.Update(ctx, updated); err != nil {
		return domain.Session{}, fmt.Errorf("updating session: %w", err)
	}
	return updated, nil
}

// keyedMutex serializes work per session ID.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
