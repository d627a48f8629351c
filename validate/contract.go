package validate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorKind classifies validation failures.
type ErrorKind string

const (
	// KindMalformed means the text did not parse as JSON at all.
	KindMalformed ErrorKind = "malformed"

	// KindMissingField means a required top-level field is absent.
	KindMissingField ErrorKind = "missing_field"

	// KindEmptyRequiredArray means a required array field is empty.
	KindEmptyRequiredArray ErrorKind = "empty_required_array"

	// KindWrongElementType means a numeric array holds non-numeric values.
	KindWrongElementType ErrorKind = "wrong_element_type"

	// KindRenderRejected means a schema-valid chart payload was rejected
	// by the rendering library's dry run.
	KindRenderRejected ErrorKind = "render_rejected"
)

// Error is a typed validation failure. Callers can fall back to displaying
// raw text with a warning rather than crashing.
type Error struct {
	Kind  ErrorKind
	Field string
	msg   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validate: %s: field %q: %s", e.Kind, e.Field, e.msg)
	}
	return fmt.Sprintf("validate: %s: %s", e.Kind, e.msg)
}

// NewError creates a typed validation error.
func NewError(kind ErrorKind, field, msg string) *Error {
	return &Error{Kind: kind, Field: field, msg: msg}
}

// Contract declares the required shape of a structured response.
type Contract struct {
	// Required lists top-level fields that must be present and non-null.
	Required []string

	// NonEmptyArrays lists fields that must be arrays with at least one
	// element.
	NonEmptyArrays []string

	// NumericArrays lists fields whose elements must all be actual JSON
	// numbers. Stringified numbers and nulls are rejected, not coerced.
	NumericArrays []string

	// NumericRanges maps field names to inclusive [min, max] bounds for
	// top-level numeric fields.
	NumericRanges map[string][2]float64
}

// Parse strips wrapping artifacts from raw model text and parses it as a
// JSON object.
func Parse(raw string) (map[string]any, *Error) {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		cleaned = strings.TrimSpace(raw)
	}
	if cleaned == "" {
		return nil, NewError(KindMalformed, "", "empty response")
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, NewError(KindMalformed, "", err.Error())
	}
	return parsed, nil
}

// Check validates an already-parsed object against the contract.
func Check(parsed map[string]any, c Contract) *Error {
	for _, field := range c.Required {
		v, ok := parsed[field]
		if !ok || v == nil {
			return NewError(KindMissingField, field, "required field absent")
		}
	}

	for _, field := range c.NonEmptyArrays {
		v, ok := parsed[field]
		if !ok || v == nil {
			return NewError(KindMissingField, field, "required array absent")
		}
		arr, ok := v.([]any)
		if !ok {
			return NewError(KindWrongElementType, field, "expected an array")
		}
		if len(arr) == 0 {
			return NewError(KindEmptyRequiredArray, field, "array must not be empty")
		}
	}

	for _, field := range c.NumericArrays {
		v, ok := parsed[field]
		if !ok || v == nil {
			continue // presence enforced via Required/NonEmptyArrays
		}
		arr, ok := v.([]any)
		if !ok {
			return NewError(KindWrongElementType, field, "expected a numeric array")
		}
		for i, elem := range arr {
			if _, ok := elem.(float64); !ok {
				return NewError(KindWrongElementType, field,
					fmt.Sprintf("element %d is %T, want number", i, elem))
			}
		}
	}

	for field, bounds := range c.NumericRanges {
		v, ok := parsed[field]
		if !ok || v == nil {
			continue
		}
		num, ok := v.(float64)
		if !ok {
			return NewError(KindWrongElementType, field, "expected a number")
		}
		if num < bounds[0] || num > bounds[1] {
			return NewError(KindWrongElementType, field,
				fmt.Sprintf("value %v outside [%v, %v]", num, bounds[0], bounds[1]))
		}
	}

	return nil
}

// Validate parses raw model text and checks it against the contract in one
// step.
func Validate(raw string, c Contract) (map[string]any, *Error) {
	parsed, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := Check(parsed, c); err != nil {
		return nil, err
	}
	return parsed, nil
}
