package application

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var queryValidator = newQueryValidator()

func newQueryValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("query"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// ParseFeedbackQuery applies defaults to raw request parameters and validates
// the result. Values that are not integers mark the error Malformed.
func ParseFeedbackQuery(raw RawFeedbackQuery) (FeedbackQuery, error) {
	vErr := &ValidationError{}
	query := FeedbackQuery{
		Page:      parseIntParam(vErr, "page", raw.Page, DefaultPage),
		Limit:     parseIntParam(vErr, "limit", raw.Limit, DefaultLimit),
		Search:    strings.TrimSpace(raw.Search),
		SortBy:    SortField(strings.TrimSpace(raw.SortBy)),
		SortOrder: SortOrder(strings.ToLower(strings.TrimSpace(raw.SortOrder))),
	}
	if query.SortBy == "" {
		query.SortBy = DefaultSortBy
	}
	if query.SortOrder == "" {
		query.SortOrder = DefaultSortOrder
	}
	if vErr.HasErrors() {
		return FeedbackQuery{}, vErr
	}
	if err := query.Validate(); err != nil {
		return FeedbackQuery{}, err
	}
	return query, nil
}

// Validate checks ranges and enumerations.
func (q FeedbackQuery) Validate() error {
	err := queryValidator.Struct(q)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	vErr := &ValidationError{}
	for _, fe := range fieldErrs {
		vErr.add(fe.Field(), describeRule(fe))
	}
	return vErr
}

func parseIntParam(vErr *ValidationError, name, raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		vErr.add(name, "must be an integer")
		vErr.Malformed = true
		return 0
	}
	return value
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "required":
		return "is required"
	}
	return "is invalid"
}
