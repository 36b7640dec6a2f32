// Package feedback defines the feedback form and response shapes shared by the
// statistics engine, the query orchestrator and the storage adapters.
package feedback

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldType enumerates the supported form field kinds.
type FieldType string

const (
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldRating   FieldType = "rating"
)

// DefaultMaxRating applies to rating fields that omit maxRating.
const DefaultMaxRating = 5

// Valid reports whether the field type is one of the supported kinds.
func (t FieldType) Valid() bool {
	switch t {
	case FieldRadio, FieldCheckbox, FieldText, FieldTextarea, FieldRating:
		return true
	}
	return false
}

// FormField describes a single question in a feedback form. ID is the key used
// in every response's answer map.
type FormField struct {
	ID        string    `json:"id" yaml:"id"`
	Type      FieldType `json:"type" yaml:"type"`
	Label     string    `json:"label" yaml:"label"`
	Options   []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Required  bool      `json:"required,omitempty" yaml:"required,omitempty"`
	MaxRating int       `json:"maxRating,omitempty" yaml:"maxRating,omitempty"`
}

// RatingScale returns the upper bound of the rating scale.
func (f FormField) RatingScale() int {
	if f.MaxRating > 0 {
		return f.MaxRating
	}
	return DefaultMaxRating
}

// HasOption reports whether option is one of the declared options.
func (f FormField) HasOption(option string) bool {
	for _, candidate := range f.Options {
		if candidate == option {
			return true
		}
	}
	return false
}

// Form is an ordered set of fields.
type Form struct {
	ID     string      `json:"id" yaml:"id"`
	Title  string      `json:"title" yaml:"title"`
	Fields []FormField `json:"fields" yaml:"fields"`
}

// Field looks up a field by id.
func (f Form) Field(id string) (FormField, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FormField{}, false
}

// Response is a single submitted feedback form.
type Response struct {
	ID          string
	FormID      string
	EventID     string
	SubmittedBy string
	SubmittedAt time.Time
	Answers     map[string]any
}

// Clone returns a deep copy of the response's answer map.
func (r Response) Clone() Response {
	out := r
	if r.Answers != nil {
		out.Answers = make(map[string]any, len(r.Answers))
		for key, value := range r.Answers {
			switch list := value.(type) {
			case []string:
				value = append([]string(nil), list...)
			case []any:
				value = append([]any(nil), list...)
			}
			out.Answers[key] = value
		}
	}
	return out
}

// AnswerText normalizes a scalar answer to a trimmed string. Missing and
// non-scalar answers yield "".
func AnswerText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// AnswerList normalizes a multi-select answer. A scalar answer is treated as a
// single selection; blank entries are dropped.
func AnswerList(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if text := AnswerText(item); text != "" {
				out = append(out, text)
			}
		}
		return out
	default:
		if text := AnswerText(v); text != "" {
			return []string{text}
		}
		return nil
	}
}

// AnswerNumber parses a rating answer given either as a number or a numeric string.
func AnswerNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
