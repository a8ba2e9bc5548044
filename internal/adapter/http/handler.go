package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/fleetsignup/internal/app"
	"github.com/neomorfeo/fleetsignup/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// ResultResponse is the outcome of the latest submit attempt.
type ResultResponse struct {
	Success bool   `json:"success" doc:"Whether the registration went through"`
	Message string `json:"message" doc:"Message to show the user"`
}

// SessionResponse is the API representation of a signup session. Secret
// fields are reported only as set or unset.
type SessionResponse struct {
	ID            string            `json:"id" doc:"Unique identifier"`
	State         string            `json:"state" doc:"Wizard state" enum:"contact,business,security,submitted"`
	Step          int               `json:"step" doc:"Active step (1-3), 0 once submitted"`
	Values        map[string]string `json:"values" doc:"Entered values for non-secret fields"`
	SecretsSet    map[string]bool   `json:"secrets_set" doc:"Whether each secret field holds a value"`
	TermsAccepted bool              `json:"terms_accepted" doc:"Consent flag"`
	Errors        map[string]string `json:"errors" doc:"Current validation errors by field"`
	Result        *ResultResponse   `json:"result,omitempty" doc:"Latest submit outcome"`
	CreatedAt     string            `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt     string            `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toSessionResponse(s domain.Session) SessionResponse {
	resp := SessionResponse{
		ID:            s.ID,
		State:         string(s.State),
		Step:          int(s.Step()),
		Values:        make(map[string]string),
		SecretsSet:    make(map[string]bool),
		TermsAccepted: s.Form.TermsAccepted,
		Errors:        make(map[string]string, len(s.Errors)),
		CreatedAt:     s.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:     s.UpdatedAt.UTC().Format(timeFormat),
	}

	for _, f := range domain.AllFields() {
		if domain.IsSecret(f) {
			resp.SecretsSet[string(f)] = s.Form.Get(f) != ""
			continue
		}
		resp.Values[string(f)] = s.Form.Get(f)
	}
	for f, msg := range s.Errors {
		if msg != "" {
			resp.Errors[string(f)] = msg
		}
	}
	if s.Result.Kind != domain.ResultNone {
		resp.Result = &ResultResponse{Success: s.Result.Succeeded(), Message: s.Result.Message}
	}
	return resp
}

// --- Start ---

type StartSignupInput struct {
	Body struct {
		Prefill map[string]string `json:"prefill,omitempty" doc:"Initial values by field name"`
	}
}

type SessionOutput struct {
	Body SessionResponse
}

// --- Get / Discard ---

type SessionIDInput struct {
	ID string `path:"id" doc:"Signup session ID"`
}

// --- List ---

type ListSignupsInput struct {
	Step   int `query:"step" required:"false" minimum:"0" maximum:"3" default:"0" doc:"Filter by active step; 0 lists all"`
	Limit  int `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset int `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListSignupsOutput struct {
	Body []SessionResponse
}

// --- Fields ---

type SetFieldInput struct {
	ID    string `path:"id" doc:"Signup session ID"`
	Field string `path:"field" doc:"Field name"`
	Body  struct {
		Value string `json:"value" doc:"New value"`
	}
}

type FieldInput struct {
	ID    string `path:"id" doc:"Signup session ID"`
	Field string `path:"field" doc:"Field name"`
}

type SetConsentInput struct {
	ID   string `path:"id" doc:"Signup session ID"`
	Body struct {
		Accepted bool `json:"accepted" doc:"Whether the terms are accepted"`
	}
}

// --- Events ---

type EventInput struct {
	ID   string `path:"id" doc:"Signup session ID"`
	Body struct {
		Event string `json:"event" doc:"Wizard action" enum:"advance,retreat,submit"`
	}
}

type EventOutput struct {
	Body struct {
		OK      bool              `json:"ok" doc:"Whether the action took effect"`
		Errors  map[string]string `json:"errors,omitempty" doc:"Fields that blocked an advance"`
		Result  *ResultResponse   `json:"result,omitempty" doc:"Submit outcome"`
		Session SessionResponse   `json:"session"`
	}
}

// --- Validate ---

type ValidateInput struct {
	Body struct {
		Field string            `json:"field" doc:"Field name"`
		Value string            `json:"value" doc:"Value to check"`
		Form  map[string]string `json:"form,omitempty" doc:"Other values for cross-field rules"`
	}
}

type ValidateOutput struct {
	Body struct {
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	}
}

// Register adds all signup API routes to the Huma API.
func Register(api huma.API, svc *app.SignupService) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-signup",
		Method:        http.MethodPost,
		Path:          "/api/v1/signups",
		Summary:       "Start a signup session",
		Tags:          []string{"Signups"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *StartSignupInput) (*SessionOutput, error) {
		prefill := make(map[domain.Field]string, len(input.Body.Prefill))
		for k, v := range input.Body.Prefill {
			prefill[domain.Field(k)] = v
		}
		session, err := svc.Start(ctx, prefill)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-signups",
		Method:      http.MethodGet,
		Path:        "/api/v1/signups",
		Summary:     "List signup sessions",
		Tags:        []string{"Signups"},
	}, func(ctx context.Context, input *ListSignupsInput) (*ListSignupsOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Step > 0 {
			state := domain.StateOf(domain.Step(input.Step))
			filter.State = &state
		}

		sessions, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]SessionResponse, len(sessions))
		for i, s := range sessions {
			resp[i] = toSessionResponse(s)
		}
		return &ListSignupsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-signup",
		Method:      http.MethodGet,
		Path:        "/api/v1/signups/{id}",
		Summary:     "Get a signup session",
		Tags:        []string{"Signups"},
	}, func(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
		session, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "discard-signup",
		Method:        http.MethodDelete,
		Path:          "/api/v1/signups/{id}",
		Summary:       "Discard a signup session",
		Tags:          []string{"Signups"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *SessionIDInput) (*struct{}, error) {
		if err := svc.Discard(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-signup-field",
		Method:      http.MethodPut,
		Path:        "/api/v1/signups/{id}/fields/{field}",
		Summary:     "Set a field value",
		Tags:        []string{"Signups"},
	}, func(ctx context.Context, input *SetFieldInput) (*SessionOutput, error) {
		session, err := svc.SetField(ctx, input.ID, domain.Field(input.Field), input.Body.Value)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "blur-signup-field",
		Method:      http.MethodPost,
		Path:        "/api/v1/signups/{id}/fields/{field}/blur",
		Summary:     "Validate a field after it loses focus",
		Tags:        []string{"Signups"},
	}, func(ctx context.Context, input *FieldInput) (*SessionOutput, error) {
		session, err := svc.Blur(ctx, input.ID, domain.Field(input.Field))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-signup-consent",
		Method:      http.MethodPut,
		Path:        "/api/v1/signups/{id}/consent",
		Summary:     "Accept or withdraw the terms",
		Tags:        []string{"Signups"},
	}, func(ctx context.Context, input *SetConsentInput) (*SessionOutput, error) {
		session, err := svc.SetConsent(ctx, input.ID, input.Body.Accepted)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SessionOutput{Body: toSessionResponse(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "signup-event",
		Method:      http.MethodPost,
		Path:        "/api/v1/signups/{id}/events",
		Summary:     "Advance, retreat or submit",
		Tags:        []string{"Signups"},
	}, func(ctx context.Context, input *EventInput) (*EventOutput, error) {
		out := &EventOutput{}

		switch domain.Event(input.Body.Event) {
		case domain.EventAdvance:
			session, res, err := svc.Advance(ctx, input.ID)
			if err != nil {
				return nil, toHumaError(err)
			}
			out.Body.OK = res.OK
			out.Body.Errors = errorMap(res.Errors)
			out.Body.Session = toSessionResponse(session)

		case domain.EventRetreat:
			session, moved, err := svc.Retreat(ctx, input.ID)
			if err != nil {
				return nil, toHumaError(err)
			}
			out.Body.OK = moved
			out.Body.Session = toSessionResponse(session)

		case domain.EventSubmit:
			session, result, err := svc.Submit(ctx, input.ID)
			if err != nil {
				return nil, toHumaError(err)
			}
			out.Body.OK = result.Succeeded()
			out.Body.Result = &ResultResponse{Success: result.Succeeded(), Message: result.Message}
			out.Body.Session = toSessionResponse(session)

		default:
			return nil, huma.Error422UnprocessableEntity("unsupported event " + input.Body.Event)
		}

		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "validate-field",
		Method:      http.MethodPost,
		Path:        "/api/v1/validate",
		Summary:     "Check a single field value",
		Tags:        []string{"Validation"},
	}, func(_ context.Context, input *ValidateInput) (*ValidateOutput, error) {
		field := domain.Field(input.Body.Field)
		if !domain.IsField(field) {
			return nil, toHumaError(&domain.UnknownFieldError{Field: field})
		}

		form := domain.NewFormState()
		for k, v := range input.Body.Form {
			if f := domain.Field(k); domain.IsField(f) {
				form.Values[f] = v
			}
		}

		out := &ValidateOutput{}
		out.Body.Error = domain.ValidateField(field, input.Body.Value, form)
		out.Body.Valid = out.Body.Error == ""
		return out, nil
	})
}

func errorMap(errs domain.FieldErrors) map[string]string {
	if !errs.Any() {
		return nil
	}
	out := make(map[string]string, len(errs))
	for f, msg := range errs {
		if msg != "" {
			out[string(f)] = msg
		}
	}
	return out
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrSessionNotFound) {
		return huma.Error404NotFound("signup session not found")
	}

	if errors.Is(err, domain.ErrSubmissionInProgress) {
		return huma.Error409Conflict(err.Error())
	}

	var fieldErr *domain.UnknownFieldError
	if errors.As(err, &fieldErr) {
		return huma.Error422UnprocessableEntity(fieldErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
