package registration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ErrorDetail is one of the error body shapes the registration backend is
// known to produce. Message renders it for display.
type ErrorDetail interface {
	Message() string
	isErrorDetail()
}

// StringDetail is {"detail": "text"}.
type StringDetail struct {
	Detail string
}

// ValidationErrorList is {"detail": [{"loc": [...], "msg": "..."}, ...]}.
type ValidationErrorList struct {
	Items []ValidationItem
}

// ValidationItem is one entry of a ValidationErrorList.
type ValidationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// NestedMsg is {"detail": {"msg": "text"}}.
type NestedMsg struct {
	Msg string
}

// KeyedErrors is {"detail": {"field": value, ...}} without a msg key.
type KeyedErrors struct {
	Pairs map[string]any
}

// Unparseable covers bodies that match none of the shapes above. Text holds
// the raw body when it was not JSON at all.
type Unparseable struct {
	StatusCode int
	StatusText string
	Text       string
}

func (StringDetail) isErrorDetail()        {}
func (ValidationErrorList) isErrorDetail() {}
func (NestedMsg) isErrorDetail()           {}
func (KeyedErrors) isErrorDetail()         {}
func (Unparseable) isErrorDetail()         {}

func (d StringDetail) Message() string { return d.Detail }

func (d ValidationErrorList) Message() string {
	msgs := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		msgs = append(msgs, item.String())
	}
	return strings.Join(msgs, "; ")
}

// String formats the item as "loc.path: msg", or just msg without a loc.
func (i ValidationItem) String() string {
	if len(i.Loc) == 0 {
		return i.Msg
	}
	parts := make([]string, len(i.Loc))
	for n, p := range i.Loc {
		parts[n] = fmt.Sprint(p)
	}
	return strings.Join(parts, ".") + ": " + i.Msg
}

func (d NestedMsg) Message() string { return d.Msg }

func (d KeyedErrors) Message() string {
	keys := make([]string, 0, len(d.Pairs))
	for k := range d.Pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for n, k := range keys {
		pairs[n] = k + ": " + formatValue(d.Pairs[k])
	}
	return strings.Join(pairs, ", ")
}

func (d Unparseable) Message() string {
	if d.Text != "" {
		return d.Text
	}
	return strings.TrimSpace(fmt.Sprintf("%d %s", d.StatusCode, d.StatusText))
}

// ParseErrorBody classifies a non-2xx response body.
func ParseErrorBody(statusCode int, statusText string, body []byte) ErrorDetail {
	fallback := Unparseable{StatusCode: statusCode, StatusText: statusText}

	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		fallback.Text = string(trimmed)
		return fallback
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return fallback
	}

	raw, ok := envelope["detail"]
	if !ok {
		return fallback
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text == "" {
			return fallback
		}
		return StringDetail{Detail: text}
	}

	var items []ValidationItem
	if err := json.Unmarshal(raw, &items); err == nil {
		kept := items[:0]
		for _, item := range items {
			if item.Msg != "" {
				kept = append(kept, item)
			}
		}
		if len(kept) == 0 {
			return fallback
		}
		return ValidationErrorList{Items: kept}
	}

	var object map[string]any
	if err := json.Unmarshal(raw, &object); err == nil {
		if msg, ok := object["msg"].(string); ok && msg != "" {
			return NestedMsg{Msg: msg}
		}
		if len(object) == 0 {
			return fallback
		}
		return KeyedErrors{Pairs: object}
	}

	return fallback
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, len(val))
		for n, p := range val {
			parts[n] = formatValue(p)
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
