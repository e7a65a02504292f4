// internal/contact/errors.go
//
// Serenity – Contact form: error taxonomy.
//
// Context
//   Every failure in this package is recoverable.  Validation failures come
//   back as *ValidationError so handlers can re-render inline messages;
//   lifecycle misuse (editing while busy, double submit) comes back as a
//   sentinel so handlers can pick a status code with errors.Is.
//
//------------------------------------------------------------------------------

package contact

import (
	"errors"
	"sort"
	"strings"
)

// Reason classifies why a field or submission failed.
type Reason string

const (
	ReasonRequired         Reason = "required"
	ReasonInvalidFormat    Reason = "invalid_format"
	ReasonTooShort         Reason = "too_short"
	ReasonTransportFailure Reason = "transport_failure"
)

// Lifecycle errors.
var (
	ErrUnknownField = errors.New("contact: unknown field")
	ErrNotEditable  = errors.New("contact: form is not editable")
	ErrBusy         = errors.New("contact: submission already in progress")
	ErrNotIdle      = errors.New("contact: form already submitted")
	ErrNotSubmitted = errors.New("contact: nothing to reset")
	ErrClosed       = errors.New("contact: form closed")
)

// ValidationError is returned by Controller.Submit when at least one field
// fails its rule.  Fields is a copy; callers may keep it.
type ValidationError struct{ Fields ErrorMap }

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return "contact: invalid fields: " + strings.Join(names, ", ")
}

// IsValidationError reports whether err carries field errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Notice is a form-level message that is not tied to one field.
type Notice struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

const msgTransportFailure = "We could not send your message.  Please try again."

func transportNotice() *Notice {
	return &Notice{Reason: ReasonTransportFailure, Message: msgTransportFailure}
}
