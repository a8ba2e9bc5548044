package domain

import (
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

const minPhoneDigits = 7

// Validation messages shown next to the offending input.
const (
	MsgNameRequired           = "Full name is required"
	MsgEmailRequired          = "Email is required"
	MsgEmailInvalid           = "Please enter a valid email address"
	MsgPhoneRequired          = "Phone number is required"
	MsgPhoneInvalid           = "Please enter a valid phone number"
	MsgCompanyNameRequired    = "Company name is required"
	MsgCompanyAddressRequired = "Company address is required"
	MsgLicenseRequired        = "Business license number is required"
	MsgTaxIDRequired          = "Tax ID is required"
	MsgWebsiteInvalid         = "Please enter a valid website URL"
	MsgBusinessPhoneInvalid   = "Please enter a valid business phone number"
	MsgBusinessEmailInvalid   = "Please enter a valid business email address"
	MsgRoleRequired           = "Role is required"
	MsgRoleInvalid            = "Please select a valid role"
	MsgPasswordRequired       = "Password is required"
	MsgPasswordTooShort       = "Password must be at least 6 characters"
	MsgConfirmRequired        = "Please confirm your password"
	MsgPasswordsMismatch      = "Passwords do not match"
	MsgTermsRequired          = "You must accept the terms and conditions"
)

var (
	validate = validator.New()

	// Optional leading +, then digits with common separators.
	phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-.]{7,20}$`)
)

// ValidateField checks a single value. It returns an empty string when the
// value is valid. form is only consulted by cross-field rules.
func ValidateField(f Field, value string, form FormState) string {
	v := strings.TrimSpace(value)

	switch f {
	case FieldName:
		return required(v, MsgNameRequired)
	case FieldEmail:
		if v == "" {
			return MsgEmailRequired
		}
		return checkEmail(v, MsgEmailInvalid)
	case FieldPhone:
		if v == "" {
			return MsgPhoneRequired
		}
		return checkPhone(v, MsgPhoneInvalid)
	case FieldCompanyName:
		return required(v, MsgCompanyNameRequired)
	case FieldCompanyAddress:
		return required(v, MsgCompanyAddressRequired)
	case FieldBusinessLicenseNumber:
		return required(v, MsgLicenseRequired)
	case FieldTaxID:
		return required(v, MsgTaxIDRequired)
	case FieldWebsite:
		if v == "" {
			return ""
		}
		if validate.Var(v, "http_url|fqdn") != nil {
			return MsgWebsiteInvalid
		}
		return ""
	case FieldBusinessPhone:
		if v == "" {
			return ""
		}
		return checkPhone(v, MsgBusinessPhoneInvalid)
	case FieldBusinessEmail:
		if v == "" {
			return ""
		}
		return checkEmail(v, MsgBusinessEmailInvalid)
	case FieldRole:
		if v == "" {
			return MsgRoleRequired
		}
		if !slices.Contains(Roles, v) {
			return MsgRoleInvalid
		}
		return ""
	case FieldPassword:
		return ValidatePassword(value)
	case FieldConfirmPassword:
		return ValidateConfirmPassword(value, form.Get(FieldPassword))
	}
	return ""
}

// ValidatePassword enforces presence and minimum length. Passwords are not
// trimmed: surrounding spaces count.
func ValidatePassword(password string) string {
	if password == "" {
		return MsgPasswordRequired
	}
	if len([]rune(password)) < MinPasswordLength {
		return MsgPasswordTooShort
	}
	return ""
}

// ValidateConfirmPassword is non-empty iff confirm is empty or differs from
// password.
func ValidateConfirmPassword(confirm, password string) string {
	if confirm == "" {
		return MsgConfirmRequired
	}
	if confirm != password {
		return MsgPasswordsMismatch
	}
	return ""
}

// ValidateTerms checks the consent flag required on the final step.
func ValidateTerms(accepted bool) string {
	if !accepted {
		return MsgTermsRequired
	}
	return ""
}

// ValidateStep runs every validator registered for step and returns only the
// failing fields.
func ValidateStep(step Step, form FormState) FieldErrors {
	errs := make(FieldErrors)
	for _, f := range StepFields[step] {
		if msg := ValidateField(f, form.Get(f), form); msg != "" {
			errs[f] = msg
		}
	}
	return errs
}

func required(v, msg string) string {
	if v == "" {
		return msg
	}
	return ""
}

func checkEmail(v, msg string) string {
	if validate.Var(v, "email") != nil {
		return msg
	}
	return ""
}

func checkPhone(v, msg string) string {
	if !phonePattern.MatchString(v) {
		return msg
	}
	digits := 0
	for _, r := range v {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < minPhoneDigits {
		return msg
	}
	return ""
}
