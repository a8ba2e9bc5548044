package domain_test

import (
	"testing"
	"time"

	"github.com/neomorfeo/fleetsignup/internal/domain"
)

func TestNewSession(t *testing.T) {
	before := time.Now().UTC()
	s := domain.NewSession("id-1")
	after := time.Now().UTC()

	if s.ID != "id-1" {
		t.Errorf("ID = %q, want %q", s.ID, "id-1")
	}
	if s.State != domain.StateContact {
		t.Errorf("State = %q, want %q", s.State, domain.StateContact)
	}
	if s.Step() != domain.StepContact {
		t.Errorf("Step = %d, want %d", s.Step(), domain.StepContact)
	}
	for _, f := range domain.AllFields() {
		v, ok := s.Form.Values[f]
		if !ok || v != "" {
			t.Errorf("field %q = %q (present=%v), want empty", f, v, ok)
		}
	}
	if s.Form.TermsAccepted {
		t.Error("TermsAccepted should start false")
	}
	if s.CreatedAt.Before(before) || s.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v, want between %v and %v", s.CreatedAt, before, after)
	}
}

func TestSetField_ClearsError(t *testing.T) {
	s := domain.NewSession("id-1")
	s.Errors[domain.FieldEmail] = domain.MsgEmailRequired

	s.SetField(domain.FieldEmail, "j")
	if _, ok := s.Errors[domain.FieldEmail]; ok {
		t.Error("SetField should clear the existing error")
	}

	// Same value again must not bring the error back.
	s.SetField(domain.FieldEmail, "j")
	if _, ok := s.Errors[domain.FieldEmail]; ok {
		t.Error("repeated SetField resurrected the error")
	}
	if got := s.Form.Get(domain.FieldEmail); got != "j" {
		t.Errorf("value = %q, want %q", got, "j")
	}
}

func TestBlur_WritesAndClears(t *testing.T) {
	s := domain.NewSession("id-1")

	if msg := s.Blur(domain.FieldEmail); msg != domain.MsgEmailRequired {
		t.Errorf("Blur = %q, want %q", msg, domain.MsgEmailRequired)
	}
	if s.Errors[domain.FieldEmail] != domain.MsgEmailRequired {
		t.Errorf("Errors[email] = %q", s.Errors[domain.FieldEmail])
	}

	s.SetField(domain.FieldEmail, "not-an-email")
	s.Blur(domain.FieldEmail)
	if s.Errors[domain.FieldEmail] != domain.MsgEmailInvalid {
		t.Errorf("Errors[email] = %q, want %q", s.Errors[domain.FieldEmail], domain.MsgEmailInvalid)
	}

	s.SetField(domain.FieldEmail, "jane@x.com")
	s.Blur(domain.FieldEmail)
	if _, ok := s.Errors[domain.FieldEmail]; ok {
		t.Error("valid value should remove the error entry")
	}
}

func TestReset(t *testing.T) {
	s := domain.NewSession("id-1")
	s.State = domain.StateSecurity
	s.SetField(domain.FieldName, "Jane Doe")
	s.Form.TermsAccepted = true
	s.Errors[domain.FieldPassword] = domain.MsgPasswordRequired

	s.Reset()

	if s.State != domain.StateContact {
		t.Errorf("State = %q, want %q", s.State, domain.StateContact)
	}
	if s.Form.Get(domain.FieldName) != "" || s.Form.TermsAccepted {
		t.Error("form should be back to its empty shape")
	}
	if len(s.Errors) != 0 {
		t.Errorf("Errors = %v, want empty", s.Errors)
	}
}

func TestPayload_DropsConfirmation(t *testing.T) {
	form := domain.NewFormState()
	form.Values[domain.FieldName] = "Jane Doe"
	form.Values[domain.FieldPassword] = "secret1"
	form.Values[domain.FieldConfirmPassword] = "secret1"

	p := form.Payload()
	if p.Name != "Jane Doe" || p.Password != "secret1" {
		t.Errorf("payload = %+v", p)
	}
}

func TestPayload_TrimsValidatedFields(t *testing.T) {
	form := domain.NewFormState()
	form.Values[domain.FieldName] = " Jane Doe "
	form.Values[domain.FieldEmail] = " jane@x.com "
	form.Values[domain.FieldRole] = " fleet_owner "
	form.Values[domain.FieldPassword] = " secret1 "

	p := form.Payload()
	if p.Name != "Jane Doe" || p.Email != "jane@x.com" || p.Role != "fleet_owner" {
		t.Errorf("payload = %+v, want trimmed name, email and role", p)
	}
	if p.Password != " secret1 " {
		t.Errorf("Password = %q, want it sent verbatim", p.Password)
	}
}

func TestStepFields_CoverEveryField(t *testing.T) {
	seen := make(map[domain.Field]bool)
	for s := domain.FirstStep; s <= domain.LastStep; s++ {
		for _, f := range domain.StepFields[s] {
			if seen[f] {
				t.Errorf("field %q appears on more than one step", f)
			}
			seen[f] = true
			got, ok := domain.StepOf(f)
			if !ok || got != s {
				t.Errorf("StepOf(%q) = %d, %v; want %d", f, got, ok, s)
			}
		}
	}
	if domain.IsField("nickname") {
		t.Error(`"nickname" should not be a field`)
	}
}

func TestTransitions_ValidPaths(t *testing.T) {
	cases := []struct {
		event domain.Event
		src   domain.State
		dst   domain.State
	}{
		{domain.EventAdvance, domain.StateContact, domain.StateBusiness},
		{domain.EventAdvance, domain.StateBusiness, domain.StateSecurity},
		{domain.EventRetreat, domain.StateBusiness, domain.StateContact},
		{domain.EventRetreat, domain.StateSecurity, domain.StateBusiness},
		{domain.EventSubmit, domain.StateSecurity, domain.StateSubmitted},
		{domain.EventReset, domain.StateSubmitted, domain.StateContact},
	}

	for _, tc := range cases {
		found := false
		for _, tr := range domain.Transitions {
			if tr.Event == tc.event && tr.Src == tc.src && tr.Dst == tc.dst {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing transition: %q from %q → %q", tc.event, tc.src, tc.dst)
		}
	}
}

func TestTransitions_InvalidPaths(t *testing.T) {
	// These transitions must NOT exist.
	invalid := []struct {
		event domain.Event
		src   domain.State
	}{
		{domain.EventAdvance, domain.StateSecurity},
		{domain.EventRetreat, domain.StateContact},
		{domain.EventSubmit, domain.StateContact},
		{domain.EventSubmit, domain.StateBusiness},
		{domain.EventAdvance, domain.StateSubmitted},
	}

	for _, tc := range invalid {
		for _, tr := range domain.Transitions {
			if tr.Event == tc.event && tr.Src == tc.src {
				t.Errorf("unexpected transition: %q from %q should not exist", tc.event, tc.src)
			}
		}
	}
}

func TestStateOf_RoundTrip(t *testing.T) {
	for s := domain.FirstStep; s <= domain.LastStep; s++ {
		got, ok := domain.StepOfState(domain.StateOf(s))
		if !ok || got != s {
			t.Errorf("step %d round-tripped to %d (%v)", s, got, ok)
		}
	}
	if _, ok := domain.StepOfState(domain.StateSubmitted); ok {
		t.Error("submitted state should have no step")
	}
}
