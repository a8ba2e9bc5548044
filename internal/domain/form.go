package domain

import "strings"

// Field names a single input of the signup form. The value doubles as the
// JSON key sent to the registration backend.
type Field string

const (
	FieldName                  Field = "name"
	FieldEmail                 Field = "email"
	FieldPhone                 Field = "phone"
	FieldCompanyName           Field = "company_name"
	FieldCompanyAddress        Field = "company_address"
	FieldBusinessLicenseNumber Field = "business_license_number"
	FieldTaxID                 Field = "tax_id"
	FieldWebsite               Field = "website"
	FieldBusinessPhone         Field = "business_phone"
	FieldBusinessEmail         Field = "business_email"
	FieldRole                  Field = "role"
	FieldPassword              Field = "password"
	FieldConfirmPassword       Field = "confirm_password"
)

// Step is the 1-based index of a form page.
type Step int

const (
	StepContact  Step = 1
	StepBusiness Step = 2
	StepSecurity Step = 3
)

// FirstStep and LastStep bound the valid step range.
const (
	FirstStep = StepContact
	LastStep  = StepSecurity
)

func (s Step) String() string {
	switch s {
	case StepContact:
		return "contact"
	case StepBusiness:
		return "business"
	case StepSecurity:
		return "security"
	default:
		return "unknown"
	}
}

// StepFields lists the fields collected on each step, in display order.
var StepFields = map[Step][]Field{
	StepContact:  {FieldName, FieldEmail, FieldPhone},
	StepBusiness: {FieldCompanyName, FieldCompanyAddress, FieldBusinessLicenseNumber, FieldTaxID, FieldWebsite, FieldBusinessPhone, FieldBusinessEmail},
	StepSecurity: {FieldRole, FieldPassword, FieldConfirmPassword},
}

// AllFields returns every form field ordered by step.
func AllFields() []Field {
	var out []Field
	for s := FirstStep; s <= LastStep; s++ {
		out = append(out, StepFields[s]...)
	}
	return out
}

// IsField reports whether f is a known form field.
func IsField(f Field) bool {
	_, ok := fieldStep[f]
	return ok
}

// StepOf returns the step that owns f.
func StepOf(f Field) (Step, bool) {
	s, ok := fieldStep[f]
	return s, ok
}

// IsSecret reports whether a field value must never be echoed back.
func IsSecret(f Field) bool {
	return f == FieldPassword || f == FieldConfirmPassword
}

var fieldStep = func() map[Field]Step {
	m := make(map[Field]Step)
	for s, fields := range StepFields {
		for _, f := range fields {
			m[f] = s
		}
	}
	return m
}()

// Roles accepted for the account being registered.
var Roles = []string{"fleet_owner", "fleet_manager", "dispatcher"}

// FormState holds every value entered across all steps.
type FormState struct {
	Values        map[Field]string
	TermsAccepted bool
}

// NewFormState returns the initial empty shape: every field present with an
// empty value and consent not given.
func NewFormState() FormState {
	values := make(map[Field]string, len(fieldStep))
	for f := range fieldStep {
		values[f] = ""
	}
	return FormState{Values: values}
}

// Get returns the current value of f.
func (s FormState) Get(f Field) string {
	return s.Values[f]
}

// Clone returns a deep copy so callers can mutate it safely.
func (s FormState) Clone() FormState {
	values := make(map[Field]string, len(s.Values))
	for k, v := range s.Values {
		values[k] = v
	}
	return FormState{Values: values, TermsAccepted: s.TermsAccepted}
}

// Payload builds the registration request, dropping confirmation-only fields.
// Non-secret values are trimmed the same way ValidateField trims them, so the
// request carries exactly what was validated. Passwords are sent verbatim.
func (s FormState) Payload() RegistrationRequest {
	get := func(f Field) string { return strings.TrimSpace(s.Get(f)) }
	return RegistrationRequest{
		Name:                  get(FieldName),
		Email:                 get(FieldEmail),
		Phone:                 get(FieldPhone),
		CompanyName:           get(FieldCompanyName),
		CompanyAddress:        get(FieldCompanyAddress),
		BusinessLicenseNumber: get(FieldBusinessLicenseNumber),
		TaxID:                 get(FieldTaxID),
		Website:               get(FieldWebsite),
		BusinessPhone:         get(FieldBusinessPhone),
		BusinessEmail:         get(FieldBusinessEmail),
		Role:                  get(FieldRole),
		Password:              s.Get(FieldPassword),
	}
}

// FieldErrors maps a field to its current error message. A missing entry or
// an empty string both mean the field is valid.
type FieldErrors map[Field]string

// Clone returns a copy of e.
func (e FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Any reports whether at least one entry carries a message.
func (e FieldErrors) Any() bool {
	for _, msg := range e {
		if msg != "" {
			return true
		}
	}
	return false
}

// RegistrationRequest is the body sent to the registration backend.
type RegistrationRequest struct {
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	CompanyName           string `json:"company_name"`
	CompanyAddress        string `json:"company_address"`
	BusinessLicenseNumber string `json:"business_license_number"`
	TaxID                 string `json:"tax_id"`
	Website               string `json:"website"`
	BusinessPhone         string `json:"business_phone"`
	BusinessEmail         string `json:"business_email"`
	Role                  string `json:"role"`
	Password              string `json:"password"`
}

// RegistrationResponse is the subset of the backend's success body we use.
type RegistrationResponse struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
