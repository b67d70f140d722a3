// ABOUTME: Error taxonomy for resource operations
// ABOUTME: Handlers map these onto HTTP status codes and form notifications

package resource

import "errors"

var (
	// ErrUnauthenticated is returned when a write has no caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when a create targets a store the caller does not own.
	ErrForbidden = errors.New("store not owned by caller")
	// ErrNotFound is returned when a record does not exist in the given scope.
	ErrNotFound = errors.New("not found")
	// ErrReferenced is returned when a delete is rejected because other
	// records still point at the target.
	ErrReferenced = errors.New("record is referenced by other records")
	// ErrMissingScope is returned when the owning store id is empty.
	ErrMissingScope = errors.New("store id is required")
	// ErrMissingID is returned when a record id is empty.
	ErrMissingID = errors.New("record id is required")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors collects every failing field of a form submission.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "validation failed"
	}
	return errs[0].Message
}

// ByField indexes messages by field name for template rendering.
func (errs ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}
