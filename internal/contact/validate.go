// internal/contact/validate.go
//
// Serenity – Contact form: field validator.
//
// Context
//   Validate maps a Fields snapshot to an ErrorMap.  Each rule looks at one
//   field only, so the result for a field never depends on its neighbours.
//   The function is pure and total: any string, including whitespace-only
//   input, produces a result.
//
// Rules
//   •  name     – required.
//   •  email    – required, then "x@y.z" shape.
//   •  phone    – optional; if present, "+" optional then 7–15 digits after
//                 whitespace is removed.
//   •  message  – required, then at least 10 characters after trimming.
//
//------------------------------------------------------------------------------

package contact

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinMessageLength is the shortest accepted message, in characters.
const MinMessageLength = 10

var (
	emailShape = regexp.MustCompile(`\S+@\S+\.\S+`)
	phoneShape = regexp.MustCompile(`^\+?\d{7,15}$`)
)

// User-facing messages.
const (
	msgNameRequired    = "Full name is required"
	msgEmailRequired   = "Email is required"
	msgEmailInvalid    = "Please enter a valid email address"
	msgPhoneInvalid    = "Please enter a valid phone number"
	msgMessageRequired = "Message is required"
	msgMessageShort    = "Message should be at least 10 characters"
)

// rule checks one value.  An empty Reason means the value passes.
type rule func(value string) (Reason, string)

var rules = map[Field]rule{
	FieldName:    checkName,
	FieldEmail:   checkEmail,
	FieldPhone:   checkPhone,
	FieldMessage: checkMessage,
}

// Validate runs every rule against v.  An empty map means every field is
// currently valid.
func Validate(v Fields) ErrorMap {
	errs := make(ErrorMap)
	for _, f := range AllFields {
		if reason, msg := rules[f](v.Get(f)); reason != "" {
			errs[f] = FieldError{Field: f, Reason: reason, Message: msg}
		}
	}
	return errs
}

func checkName(s string) (Reason, string) {
	if strings.TrimSpace(s) == "" {
		return ReasonRequired, msgNameRequired
	}
	return "", ""
}

func checkEmail(s string) (Reason, string) {
	if strings.TrimSpace(s) == "" {
		return ReasonRequired, msgEmailRequired
	}
	if !emailShape.MatchString(s) {
		return ReasonInvalidFormat, msgEmailInvalid
	}
	return "", ""
}

func checkPhone(s string) (Reason, string) {
	if s == "" {
		return "", ""
	}
	if !phoneShape.MatchString(NormalizePhone(s)) {
		return ReasonInvalidFormat, msgPhoneInvalid
	}
	return "", ""
}

func checkMessage(s string) (Reason, string) {
	t := strings.TrimSpace(s)
	if t == "" {
		return ReasonRequired, msgMessageRequired
	}
	if utf8.RuneCountInString(t) < MinMessageLength {
		return ReasonTooShort, msgMessageShort
	}
	return "", ""
}

// NormalizePhone removes every whitespace rune, so "+371 255 695 75"
// becomes "+37125569575".
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
