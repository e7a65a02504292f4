// internal/contact/fields.go
//
// Serenity – Contact form: field values and error map.
//
// Context
//   The contact form has four inputs.  Fields holds their current values and
//   ErrorMap holds the known-invalid subset, keyed by Field.  Both are plain
//   values; the Controller owns the live copies and hands out clones.
//
//------------------------------------------------------------------------------

package contact

import "fmt"

// Field names a single input on the contact form.  The string value is the
// HTML input name and the JSON key.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldPhone   Field = "phone"
	FieldMessage Field = "message"
)

// AllFields lists every field in display order.
var AllFields = []Field{FieldName, FieldEmail, FieldPhone, FieldMessage}

// ParseField maps an input name to a Field.
func ParseField(s string) (Field, error) {
	for _, f := range AllFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Fields is one snapshot of the form values.
type Fields struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Get returns the value of f.  Unknown fields read as empty.
func (v Fields) Get(f Field) string {
	switch f {
	case FieldName:
		return v.Name
	case FieldEmail:
		return v.Email
	case FieldPhone:
		return v.Phone
	case FieldMessage:
		return v.Message
	}
	return ""
}

// set stores value under f and reports whether f is known.
func (v *Fields) set(f Field, value string) bool {
	switch f {
	case FieldName:
		v.Name = value
	case FieldEmail:
		v.Email = value
	case FieldPhone:
		v.Phone = value
	case FieldMessage:
		v.Message = value
	default:
		return false
	}
	return true
}

// IsZero reports whether every field is empty.
func (v Fields) IsZero() bool { return v == Fields{} }

// Map returns the values keyed by input name, e.g. for form prefill.
func (v Fields) Map() map[string]string {
	out := make(map[string]string, len(AllFields))
	for _, f := range AllFields {
		out[string(f)] = v.Get(f)
	}
	return out
}

// FieldsFromMap is the inverse of Map.  Unknown keys are ignored.
func FieldsFromMap(m map[string]string) Fields {
	var v Fields
	for _, f := range AllFields {
		v.set(f, m[string(f)])
	}
	return v
}

// FieldError is one entry of an ErrorMap.
type FieldError struct {
	Field   Field  `json:"field"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// ErrorMap holds the fields whose last validation failed.  A missing key
// means "no known error", not "known valid".
type ErrorMap map[Field]FieldError

// Has reports whether f currently carries an error.
func (m ErrorMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Clone returns an independent copy.  A nil map clones to an empty map.
func (m ErrorMap) Clone() ErrorMap {
	out := make(ErrorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Messages flattens the map to input name → message for templates.
func (m ErrorMap) Messages() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = v.Message
	}
	return out
}
