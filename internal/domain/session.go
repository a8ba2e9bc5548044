package domain

import "time"

// State is the position of a signup session in the wizard.
type State string

const (
	StateContact   State = "contact"
	StateBusiness  State = "business"
	StateSecurity  State = "security"
	StateSubmitted State = "submitted"
)

// Event represents a user action that moves the wizard.
type Event string

const (
	EventAdvance Event = "advance"
	EventRetreat Event = "retreat"
	EventSubmit  Event = "submit"
	EventReset   Event = "reset"
)

// Transition defines a valid state change: an event moves a session from Src to Dst.
type Transition struct {
	Event Event
	Src   State
	Dst   State
}

// Transitions defines all valid moves of the signup wizard.
// This is domain knowledge consumed by the FSM adapter.
var Transitions = []Transition{
	{Event: EventAdvance, Src: StateContact, Dst: StateBusiness},
	{Event: EventAdvance, Src: StateBusiness, Dst: StateSecurity},
	{Event: EventRetreat, Src: StateBusiness, Dst: StateContact},
	{Event: EventRetreat, Src: StateSecurity, Dst: StateBusiness},
	{Event: EventSubmit, Src: StateSecurity, Dst: StateSubmitted},
	{Event: EventReset, Src: StateSubmitted, Dst: StateContact},
}

var stepStates = map[Step]State{
	StepContact:  StateContact,
	StepBusiness: StateBusiness,
	StepSecurity: StateSecurity,
}

// StateOf maps a step index to its wizard state.
func StateOf(step Step) State {
	return stepStates[step]
}

// StepOfState maps a wizard state back to its step index. The submitted
// state has no step of its own.
func StepOfState(state State) (Step, bool) {
	for step, st := range stepStates {
		if st == state {
			return step, true
		}
	}
	return 0, false
}

// ResultKind tells whether the last submit attempt succeeded.
type ResultKind string

const (
	ResultNone    ResultKind = ""
	ResultSuccess ResultKind = "success"
	ResultFailure ResultKind = "failure"
)

// SubmissionResult is the outcome of the latest submit attempt. Each attempt
// replaces the previous result.
type SubmissionResult struct {
	Kind    ResultKind
	Message string
}

// Succeeded reports whether the result is a success.
func (r SubmissionResult) Succeeded() bool { return r.Kind == ResultSuccess }

// Success builds a successful result.
func Success(msg string) SubmissionResult {
	return SubmissionResult{Kind: ResultSuccess, Message: msg}
}

// Failure builds a failed result.
func Failure(msg string) SubmissionResult {
	return SubmissionResult{Kind: ResultFailure, Message: msg}
}

// Session is one signup wizard in progress.
type Session struct {
	ID        string
	State     State
	Form      FormState
	Errors    FieldErrors
	Result    SubmissionResult
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates a session on the first step with an empty form.
func NewSession(id string) Session {
	now := time.Now().UTC()
	return Session{
		ID:        id,
		State:     StateContact,
		Form:      NewFormState(),
		Errors:    make(FieldErrors),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Step returns the current step index.
func (s Session) Step() Step {
	step, _ := StepOfState(s.State)
	return step
}

// SetField records a value and optimistically clears any error for it.
// Re-validation happens on blur or step change, not on every keystroke.
func (s *Session) SetField(f Field, value string) {
	s.Form.Values[f] = value
	delete(s.Errors, f)
}

// Blur validates one field and stores the outcome, replacing any previous
// entry for that field.
func (s *Session) Blur(f Field) string {
	msg := ValidateField(f, s.Form.Get(f), s.Form)
	if msg == "" {
		delete(s.Errors, f)
	} else {
		s.Errors[f] = msg
	}
	return msg
}

// ClearStepErrors removes the errors belonging to step.
func (s *Session) ClearStepErrors(step Step) {
	for _, f := range StepFields[step] {
		delete(s.Errors, f)
	}
}

// Reset returns the session to an empty first step.
func (s *Session) Reset() {
	s.State = StateContact
	s.Form = NewFormState()
	s.Errors = make(FieldErrors)
}
