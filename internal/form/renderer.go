// internal/form/renderer.go
//
// Serenity – Forms subsystem: HTML renderer.
//
// Context
//   Given a parsed FormDef (from definition.go) this file converts the
//   definition into safe, accessible HTML markup.  The renderer applies
//   labels, placeholders, and autocomplete hints, injects the CSRF token,
//   and honours pre-fill data, field errors, a form-level notice, and the
//   busy state reported by the contact controller.
//
// Workflow
//   •  RenderForm looks up the FormDef by ID and writes each field via
//      writeField.
//   •  A field with an error gets aria-invalid and an inline message that
//      aria-describedby points at.
//   •  Busy wraps every control in a disabled <fieldset> and swaps the
//      button label, so a second submit cannot be started from the page.
//   •  The caller receives template.HTML so the surrounding template does
//      not double-escape the markup.
//
// Style
//   Output HTML is plain; each input gets id="fld-{name}" and is wrapped in
//   <div class="form-field"> for consistent styling.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
)

// RenderOptions bundles parameters influencing HTML output.
type RenderOptions struct {
	// Action is the POST target.  Empty means the current URL.
	Action string
	// Prefill provides field values keyed by field name.
	Prefill map[string]string
	// Errors provides inline messages keyed by field name.
	Errors map[string]string
	// Notice is a form-level message shown above the fields.
	Notice string
	// Busy renders the form disabled with the busy button label.
	Busy bool
	// CSRFToken is embedded as a hidden input.  See GenerateToken.
	CSRFToken string
}

// RenderForm returns the HTML markup for the specified form ID.
func RenderForm(formID string, opts RenderOptions) (template.HTML, error) {
	fd, ok := GetFormDef(formID)
	if !ok {
		return "", fmt.Errorf("RenderForm: unknown form %q", formID)
	}

	var buf bytes.Buffer
	buf.WriteString(`<form class="serenity-form" method="post" novalidate`)
	if opts.Action != "" {
		buf.WriteString(` action="` + html.EscapeString(opts.Action) + `"`)
	}
	if opts.Busy {
		buf.WriteString(` aria-busy="true"`)
	}
	buf.WriteString(">\n")

	if fd.Title != "" {
		buf.WriteString(`<h2>` + html.EscapeString(fd.Title) + `</h2>` + "\n")
	}
	if opts.Notice != "" {
		buf.WriteString(`<div class="form-notice" role="alert">` + html.EscapeString(opts.Notice) + `</div>` + "\n")
	}

	if opts.Busy {
		buf.WriteString(`<fieldset disabled>` + "\n")
	} else {
		buf.WriteString(`<fieldset>` + "\n")
	}

	for i := range fd.Fields {
		f := &fd.Fields[i]
		writeField(&buf, f, opts.Prefill[f.Name], opts.Errors[f.Name])
	}

	// Hidden meta inputs.
	buf.WriteString(`<input type="hidden" name="csrf_token" value="` + html.EscapeString(opts.CSRFToken) + `">` + "\n")

	if opts.Busy {
		buf.WriteString(`<button type="submit" disabled><span class="spinner" aria-hidden="true"></span>` +
			html.EscapeString(fd.BusyLabel) + `</button>` + "\n")
	} else {
		buf.WriteString(`<button type="submit">` + html.EscapeString(fd.SubmitLabel) + `</button>` + "\n")
	}

	buf.WriteString("</fieldset>\n</form>")
	return template.HTML(buf.String()), nil
}

// writeField emits HTML for an individual field into buf.  Each field is
// wrapped in a <div class="form-field">.
func writeField(buf *bytes.Buffer, f *FieldDef, val, errMsg string) {
	name := html.EscapeString(f.Name)
	id := "fld-" + name
	errID := "err-" + name

	if errMsg != "" {
		buf.WriteString(`<div class="form-field has-error">` + "\n")
	} else {
		buf.WriteString(`<div class="form-field">` + "\n")
	}

	// Label first (for accessibility)
	buf.WriteString(`<label for="` + id + `">` + html.EscapeString(f.Label))
	if f.Required {
		buf.WriteString(` <span class="req" aria-hidden="true">*</span>`)
	}
	buf.WriteString(`</label>` + "\n")

	var attrs bytes.Buffer
	attrs.WriteString(`id="` + id + `" name="` + name + `"`)
	if f.Placeholder != "" {
		attrs.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
	}
	if f.Autocomplete != "" {
		attrs.WriteString(` autocomplete="` + html.EscapeString(f.Autocomplete) + `"`)
	}
	if f.MaxLength > 0 {
		attrs.WriteString(` maxlength="` + strconv.Itoa(f.MaxLength) + `"`)
	}
	if f.Pattern != "" {
		attrs.WriteString(` pattern="` + html.EscapeString(f.Pattern) + `"`)
	}
	if f.Required {
		attrs.WriteString(` aria-required="true"`)
	}
	if errMsg != "" {
		attrs.WriteString(` aria-invalid="true" aria-describedby="` + errID + `"`)
	}

	switch f.Type {
	case "textarea":
		buf.WriteString(`<textarea ` + attrs.String() + ` rows="` + strconv.Itoa(f.Rows) + `">`)
		buf.WriteString(html.EscapeString(val))
		buf.WriteString(`</textarea>` + "\n")
	default:
		buf.WriteString(`<input ` + attrs.String() + ` type="` + f.Type + `"`)
		if val != "" {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}
		buf.WriteString(`>` + "\n")
	}

	// Error span is always present so aria-live announces later messages.
	buf.WriteString(`<span class="error" id="` + errID + `" aria-live="polite">` + html.EscapeString(errMsg) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
}
