package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/neomorfeo/fleetsignup/internal/domain"
)

// AdvanceResult reports whether the wizard moved forward and, if not, which
// fields of the current step blocked it.
type AdvanceResult struct {
	OK     bool
	Errors domain.FieldErrors
	Step   domain.Step
}

// Form is the step-gated signup form for a single session. Each step must
// pass its validators before the wizard may advance; the final submit
// re-validates the last step and the consent flag before calling the
// registration backend.
//
// Form is safe for concurrent use. At most one Submit runs at a time; a
// concurrent Submit fails fast with domain.ErrSubmissionInProgress.
type Form struct {
	mu         sync.Mutex
	session    domain.Session
	validator  domain.TransitionValidator
	registrar  domain.Registrar
	submitting atomic.Bool
}

// NewForm wraps session. The session is copied; read it back with Session.
func NewForm(session domain.Session, validator domain.TransitionValidator, registrar domain.Registrar) *Form {
	if session.Form.Values == nil {
		session.Form = domain.NewFormState()
	} else {
		session.Form = session.Form.Clone()
	}
	if session.Errors == nil {
		session.Errors = make(domain.FieldErrors)
	} else {
		session.Errors = session.Errors.Clone()
	}
	if session.State == "" {
		session.State = domain.StateContact
	}
	return &Form{
		session:   session,
		validator: validator,
		registrar: registrar,
	}
}

// Session returns a snapshot of the underlying session.
func (f *Form) Session() domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.session
	s.Form = s.Form.Clone()
	s.Errors = s.Errors.Clone()
	return s
}

// Step returns the active step index.
func (f *Form) Step() domain.Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.Step()
}

// Errors returns a copy of the current field errors.
func (f *Form) Errors() domain.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.Errors.Clone()
}

// SetField records a value and clears any error previously shown for it.
func (f *Form) SetField(field domain.Field, value string) error {
	if !domain.IsField(field) {
		return &domain.UnknownFieldError{Field: field}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.session.SetField(field, value)
	f.touch()
	return nil
}

// SetConsent records whether the terms were accepted.
func (f *Form) SetConsent(accepted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.session.Form.TermsAccepted = accepted
	f.touch()
}

// ValidateField runs the validator for field against value without touching
// the form's errors. Cross-field rules read the current form values.
func (f *Form) ValidateField(field domain.Field, value string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.ValidateField(field, value, f.session.Form)
}

// Blur validates one field and records the result.
func (f *Form) Blur(field domain.Field) (string, error) {
	if !domain.IsField(field) {
		return "", &domain.UnknownFieldError{Field: field}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	msg := f.session.Blur(field)
	f.touch()
	return msg, nil
}

// Advance validates the active step and moves to the next one when every
// field passes. On the last step it does nothing and reports OK=false.
func (f *Form) Advance(ctx context.Context) AdvanceResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	step := f.session.Step()

	next, err := f.validator.Apply(ctx, f.session.State, domain.EventAdvance)
	if err != nil {
		return AdvanceResult{OK: false, Errors: domain.FieldErrors{}, Step: step}
	}

	errs := domain.ValidateStep(step, f.session.Form)
	if errs.Any() {
		for field, msg := range errs {
			f.session.Errors[field] = msg
		}
		f.touch()
		return AdvanceResult{OK: false, Errors: errs, Step: step}
	}

	f.session.ClearStepErrors(step)
	f.session.State = next
	f.touch()
	return AdvanceResult{OK: true, Errors: domain.FieldErrors{}, Step: f.session.Step()}
}

// Retreat moves one step back without validating. It reports whether the
// step changed; on the first step it is a no-op.
func (f *Form) Retreat(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, err := f.validator.Apply(ctx, f.session.State, domain.EventRetreat)
	if err != nil {
		return false
	}

	f.session.State = prev
	f.touch()
	return true
}

// Submit re-validates the last step and the consent flag, then sends the
// registration. Validation and remote failures are reported in the returned
// result and leave the entered values untouched. The error is non-nil only
// when submitting is not possible at all: the wizard is not on its last
// step, or another submit is in flight.
func (f *Form) Submit(ctx context.Context) (domain.SubmissionResult, error) {
	if !f.submitting.CompareAndSwap(false, true) {
		return domain.SubmissionResult{}, domain.ErrSubmissionInProgress
	}
	defer f.submitting.Store(false)

	f.mu.Lock()
	defer f.mu.Unlock()

	submitted, err := f.validator.Apply(ctx, f.session.State, domain.EventSubmit)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	if errs := domain.ValidateStep(domain.LastStep, f.session.Form); errs.Any() {
		for field, msg := range errs {
			f.session.Errors[field] = msg
		}
		return f.finish(domain.Failure(joinErrors(errs))), nil
	}

	if msg := domain.ValidateTerms(f.session.Form.TermsAccepted); msg != "" {
		return f.finish(domain.Failure(msg)), nil
	}

	resp, err := f.registrar.Register(ctx, f.session.Form.Payload())
	if err != nil {
		return f.finish(domain.Failure(failureMessage(err))), nil
	}

	initial, err := f.validator.Apply(ctx, submitted, domain.EventReset)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("resetting after submit: %w", err)
	}

	f.session.Reset()
	f.session.State = initial
	return f.finish(domain.Success(successMessage(resp))), nil
}

func (f *Form) finish(result domain.SubmissionResult) domain.SubmissionResult {
	f.session.Result = result
	f.touch()
	return result
}

func (f *Form) touch() {
	f.session.UpdatedAt = time.Now().UTC()
}

func successMessage(resp domain.RegistrationResponse) string {
	if resp.Name == "" {
		return "Registration successful!"
	}
	return fmt.Sprintf("Registration successful! Welcome, %s.", resp.Name)
}

func failureMessage(err error) string {
	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}

	var network *domain.NetworkError
	if errors.As(err, &network) {
		return network.UserMessage()
	}

	if err.Error() == "" {
		return domain.MsgNetworkUnavailable
	}
	return err.Error()
}

// joinErrors renders step errors in display order.
func joinErrors(errs domain.FieldErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, field := range domain.AllFields() {
		if msg := errs[field]; msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return strings.Join(msgs, "; ")
}
