// internal/form/validate.go
//
// Serenity – Forms subsystem: form-level checks.
//
// Context
//   Per-field rules belong to internal/contact, which owns the messages the
//   visitor sees next to each input.  This file covers what happens before
//   the controller ever sees the values: the CSRF token must be valid for
//   the session, the form must not be submitted faster than a human can
//   type, and no value may exceed the declared maxlength.
//
// Style
//   Comments follow the house guide: full sentences, two space spacing,
//   Oxford comma, and IDs like “CSRF.”
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
	"unicode/utf8"
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// Form-level rejection causes.
var (
	ErrBadToken = errors.New("form: security token invalid")
	ErrTooFast  = errors.New("form: submitted too quickly")
)

// FormError is a rejection that is not tied to one field.  Message is safe
// to show the visitor.
type FormError struct {
	Err     error
	Message string
}

func (e *FormError) Error() string { return e.Err.Error() }
func (e *FormError) Unwrap() error { return e.Err }

// IsFormError reports whether err is a form-level rejection.
func IsFormError(err error) bool {
	var fe *FormError
	return errors.As(err, &fe)
}

// -----------------------------------------------------------------------------
// Form-level helpers
// -----------------------------------------------------------------------------

func checkCSRF(token, sid string) error {
	if !VerifyToken(token, sid) {
		return &FormError{Err: ErrBadToken, Message: "Security token invalid or expired.  Please reload the page and try again."}
	}
	return nil
}

// checkTiming rejects a submission that arrives less than minFill after the
// form was rendered.  The render time comes from the signed token, so it
// cannot be forged.  Call only after checkCSRF succeeded.
func checkTiming(token string, minFill time.Duration, now time.Time) error {
	if minFill <= 0 {
		return nil
	}
	issued, ok := tokenIssued(token)
	if !ok || now.Sub(issued) < minFill {
		return &FormError{Err: ErrTooFast, Message: "Form submitted too quickly.  Please take a moment and try again."}
	}
	return nil
}

// CheckToken runs the CSRF and fill-time checks on a token that did not
// arrive in a form body, such as an X-CSRF-Token header.
func CheckToken(token, sid string, minFill time.Duration) error {
	if err := checkCSRF(token, sid); err != nil {
		return err
	}
	return checkTiming(token, minFill, time.Now())
}

func tokenIssued(token string) (time.Time, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != tokenBytes {
		return time.Time{}, false
	}
	return time.UnixMicro(int64(binary.BigEndian.Uint64(raw[16:24]))), true
}

// clamp cuts s to at most n runes.  n <= 0 means no limit.
func clamp(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
