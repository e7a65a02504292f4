// internal/form/submit.go
//
// Serenity – Forms subsystem: consolidated submit helper.
//
// Context
//   Handlers want one call that parses the POST body, runs the form-level
//   checks, and hands back the raw values for the contact controller.
//   Field rules are deliberately NOT applied here; the controller owns them
//   so the same messages reach HTML and JSON clients.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"net/http"
	"time"

	"github.com/yanizio/serenity/internal/contact"
)

// ParseSubmission parses r for formID, verifies the CSRF token against sid,
// and rejects submissions made sooner than minFill after render.  A
// *FormError means the visitor should reload; any other error is a system
// failure.
func ParseSubmission(formID string, r *http.Request, sid string, minFill time.Duration) (contact.Fields, error) {
	fd, ok := GetFormDef(formID)
	if !ok {
		return contact.Fields{}, fmt.Errorf("ParseSubmission: unknown form %q", formID)
	}
	if err := r.ParseForm(); err != nil {
		return contact.Fields{}, err
	}

	token := r.PostForm.Get("csrf_token")
	if err := checkCSRF(token, sid); err != nil {
		return contact.Fields{}, err
	}
	if err := checkTiming(token, minFill, time.Now()); err != nil {
		return contact.Fields{}, err
	}

	vals := make(map[string]string, len(fd.Fields))
	for _, f := range fd.Fields {
		vals[f.Name] = clamp(r.PostForm.Get(f.Name), f.MaxLength)
	}
	return contact.FieldsFromMap(vals), nil
}

// Clamp applies the declared maxlength of field name in formID.  JSON
// handlers use it for single-field edits.
func Clamp(formID, name, value string) string {
	fd, ok := GetFormDef(formID)
	if !ok {
		return value
	}
	for _, f := range fd.Fields {
		if f.Name == name {
			return clamp(value, f.MaxLength)
		}
	}
	return value
}
