// internal/form/definition.go
//
// Serenity – Forms subsystem: YAML definition loader.
//
// Context
//   Each HTML form is declared in a YAML file.  This file defines the form’s
//   identifier, title, submit labels, and fields.  At application start the
//   contact component registers its embedded “forms/*.yaml”, then
//   RegisterForms walks “<root>/components/*/forms/” so a deployment can
//   override copy (labels, placeholders) without a rebuild.  Renderer and
//   submit helpers fetch definitions from this registry by ID, guaranteeing
//   a single source of truth.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → FieldDef.
//   •  ParseFormDef parses one YAML document and validates structural rules.
//   •  RegisterFS walks an fs.FS, loads every YAML, and adds it to the
//      registry.  Later registrations override earlier ones by ID.
//   •  GetFormDef offers safe, read-only access to a parsed form by ID.
//
// Style
//   Comments follow the house guide: full sentences, two spaces after
//   periods, Oxford commas, and clear roles.  Helper comments use short noun
//   phrases.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef represents one form definition loaded from YAML.
//
// The form is uniquely identified by ID which should be namespaced by
// component, e.g. “contact/contact”.
type FormDef struct {
	ID          string     `yaml:"id"`           // Component-scoped identifier.
	Title       string     `yaml:"title"`        // Display heading, optional.
	SubmitLabel string     `yaml:"submit_label"` // Button text when idle.
	BusyLabel   string     `yaml:"busy_label"`   // Button text while sending.
	Fields      []FieldDef `yaml:"fields"`       // Display order.
}

// FieldDef describes a single input control on the form.  Server-side rules
// live in internal/contact; attributes here are client hints only.
type FieldDef struct {
	Name         string `yaml:"name"`         // Submission key.  Required.
	Label        string `yaml:"label"`        // Human-readable label.  Required.
	Type         string `yaml:"type"`         // text, email, tel, or textarea.
	Placeholder  string `yaml:"placeholder"`  // Optional placeholder text.
	Required     bool   `yaml:"required"`     // Shows the marker and sets aria-required.
	Rows         int    `yaml:"rows"`         // Textarea height.
	MaxLength    int    `yaml:"maxlength"`    // ≥ 0, 0 means unset.  Enforced on parse.
	Autocomplete string `yaml:"autocomplete"` // HTML autocomplete token.
	Pattern      string `yaml:"pattern"`      // Regex hint for the browser.
}

var fieldTypes = map[string]bool{
	"text":     true,
	"email":    true,
	"tel":      true,
	"textarea": true,
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// registry maps compositeID (“comp/form”) → *FormDef.  Guarded by mutex.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*FormDef)
)

// GetFormDef returns a parsed FormDef by composite ID (“component/form”).
// The boolean is false when the ID is unknown.
func GetFormDef(id string) (*FormDef, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fd, ok := registry[id]
	return fd, ok
}

// Register inserts or overrides fd.  Caller must ensure fd passed
// validation, which ParseFormDef guarantees.
func Register(fd *FormDef) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[fd.ID]; exists {
		zap.S().Infow("form definition overridden", "form", fd.ID)
	}
	registry[fd.ID] = fd
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// ParseFormDef parses one YAML document.  src names the origin in errors.
// It NEVER mutates the global registry.
func ParseFormDef(raw []byte, src string) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", src, err)
	}
	if err := validateFormDef(&fd, src); err != nil {
		return nil, err
	}
	return &fd, nil
}

// LoadFormDef reads and parses one YAML file from disk.
func LoadFormDef(path string) (*FormDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", path, err)
	}
	return ParseFormDef(raw, path)
}

// RegisterFS loads every “*.yaml” below root in fsys.  Components call it
// with their embedded forms directory.
func RegisterFS(fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		raw, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		fd, err := ParseFormDef(raw, path)
		if err != nil {
			return err // fail fast so issues surface loudly.
		}
		Register(fd)
		return nil
	})
}

// RegisterForms walks “components/” under each base directory, in order, so
// later directories win.  A missing directory is not an error.
//
// Example:
//
//	err := form.RegisterForms([]string{cfg.Paths.Root})
func RegisterForms(baseDirs []string) error {
	if len(baseDirs) == 0 {
		return errors.New("RegisterForms: no base directories provided")
	}
	for _, base := range baseDirs {
		err := RegisterFS(os.DirFS(base), "components")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("forms under %s: %w", filepath.Join(base, "components"), err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

// validateFormDef enforces structural rules that cannot be expressed via YAML
// tags alone.  It returns a descriptive error referencing the offending file.
func validateFormDef(fd *FormDef, src string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", src)
	}
	if len(fd.Fields) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields'", src)
	}
	if fd.SubmitLabel == "" {
		fd.SubmitLabel = "Send"
	}
	if fd.BusyLabel == "" {
		fd.BusyLabel = "Sending..."
	}

	seen := make(map[string]struct{}, len(fd.Fields))
	for i := range fd.Fields {
		f := &fd.Fields[i]
		if err := validateField(f, src); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", src, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// validateField confirms that essential attributes are present and sane.
func validateField(f *FieldDef, src string) error {
	if f.Name == "" {
		return fmt.Errorf("form %s: field missing 'name'", src)
	}
	if f.Label == "" {
		return fmt.Errorf("form %s: field '%s' missing 'label'", src, f.Name)
	}
	if !fieldTypes[f.Type] {
		return fmt.Errorf("form %s: field '%s' has unsupported type %q", src, f.Name, f.Type)
	}
	if f.Pattern != "" {
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("form %s: field '%s' invalid regex pattern: %v", src, f.Name, err)
		}
	}
	if f.MaxLength < 0 || f.Rows < 0 {
		return fmt.Errorf("form %s: field '%s' maxlength/rows cannot be negative", src, f.Name)
	}
	if f.Type == "textarea" && f.Rows == 0 {
		f.Rows = 5
	}
	return nil
}
