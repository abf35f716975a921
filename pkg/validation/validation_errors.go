package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Messages overrides the generated message for a "field.tag" pair, or for every
// tag on a field when keyed by the field alone. Field names are json names.
var Messages = map[string]string{
	"title.required":       "Job title is required",
	"company.required":     "Company name is required",
	"description.required": "Job description is required",
	"category.required":    "Job category is required",
	"salary_min.required":  "Salary range is required",
	"salary_min.gt":        "Salary range is required",
	"salary_max.required":  "Salary range is required",
	"salary_max.gt":        "Salary range is required",
	"salary_max.gtfield":   "Maximum salary must be greater than minimum salary",
	"latitude":             "Latitude must be between -90 and 90",
	"longitude":            "Longitude must be between -180 and 180",
}

// FieldLabels maps json field names to user-facing labels for generated messages.
var FieldLabels = map[string]string{
	"job_type":         "Job type",
	"location_text":    "Job location",
	"location_source":  "Location source",
	"radius_km":        "Search radius",
	"experience_level": "Experience level",
	"sort_by":          "Sort order",
	"salary_min":       "Minimum salary",
	"salary_max":       "Maximum salary",
	"accuracy":         "Accuracy",
}

// FieldErrors converts validator errors into one message per field, keeping the
// first failure for each field. Non-validation errors land under "_".
func FieldErrors(err error) map[string]string {
	out := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		out["_"] = err.Error()
		return out
	}

	for _, e := range validationErrors {
		field := e.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = formatSingleError(e)
	}
	return out
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

func formatSingleError(e validator.FieldError) string {
	field := e.Field()
	tag := e.Tag()
	if msg, ok := Messages[field+"."+tag]; ok {
		return msg
	}
	if msg, ok := Messages[field]; ok {
		return msg
	}

	label := getFieldLabel(field)
	param := e.Param()

	switch tag {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", label)
	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", label, param)
		}
		return fmt.Sprintf("%s must be at least %s", label, param)
	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", label, param)
		}
		return fmt.Sprintf("%s must be at most %s", label, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.Join(strings.Fields(param), ", "))
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid ID", label)
	case "valid_name":
		return fmt.Sprintf("%s may only contain letters, numbers and common punctuation", label)
	case "valid_phone":
		return fmt.Sprintf("%s must be a valid phone number", label)
	case "no_emoji":
		return fmt.Sprintf("%s must not contain emoji", label)
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", label, getFieldLabel(param))
	case "lat":
		return "Latitude must be between -90 and 90"
	case "lng":
		return "Longitude must be between -180 and 180"
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, tag)
	}
}

func getFieldLabel(field string) string {
	if label, ok := FieldLabels[field]; ok {
		return label
	}
	words := strings.Split(field, "_")
	if len(words) > 0 && words[0] != "" {
		words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	}
	return strings.Join(words, " ")
}
