// ABOUTME: Presence, length and pattern checks over a decoded input
// ABOUTME: Endpoint mode enforces Required fields; form mode also enforces FormRequired

package resource

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects which required flags apply.
type Mode int

const (
	ModeEndpoint Mode = iota
	ModeForm
)

// Validate checks every field in declaration order and returns all failures.
// The endpoint reports only the first one.
func Validate(s *Schema, in Input, mode Mode) ValidationErrors {
	var errs ValidationErrors
	for _, f := range s.Fields {
		if f.Internal && mode == ModeForm {
			continue
		}
		if err := validateField(f, in, mode); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateField(f Field, in Input, mode Mode) *ValidationError {
	required := f.Required || (mode == ModeForm && f.FormRequired)
	missing := &ValidationError{Field: f.Name, Message: requiredMessage(f)}

	switch f.Kind {
	case KindImages:
		if required && len(in.Images) == 0 {
			return missing
		}
		for _, u := range in.Images {
			if strings.TrimSpace(u) == "" {
				return &ValidationError{Field: f.Name, Message: "Image url is required"}
			}
		}
		return nil
	case KindBool:
		return nil
	case KindDecimal:
		d, ok := in.Values[f.Name].(decimal.Decimal)
		if !ok {
			if required {
				return missing
			}
			return nil
		}
		if required && !d.IsPositive() {
			return &ValidationError{Field: f.Name, Message: fmt.Sprintf("%s must be greater than 0", f.Label)}
		}
		return nil
	}

	str, _ := in.Values[f.Name].(string)
	if str == "" {
		if required {
			return missing
		}
		return nil
	}
	if f.MinLen > 0 && len([]rune(str)) < f.MinLen {
		return &ValidationError{
			Field:   f.Name,
			Message: fmt.Sprintf("%s must contain at least %d character(s)", f.Label, f.MinLen),
		}
	}
	if f.Pattern != nil && !f.Pattern.MatchString(str) {
		msg := f.PatternMessage
		if msg == "" {
			msg = f.Label + " is invalid"
		}
		return &ValidationError{Field: f.Name, Message: msg}
	}
	return nil
}

func requiredMessage(f Field) string {
	if f.Kind == KindImages {
		return f.Label + " are required"
	}
	return f.Label + " is required"
}
