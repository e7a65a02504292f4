// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, so the binary never runs
// with partial, malformed, or missing configuration.
//
// Custom rules
// ------------
//   • delivery_mode  – one of the backends internal/delivery knows.
//   • sql_ident      – a bare SQL identifier, safe to splice into a query.
//   • Delivery struct rule – each listed mode has the settings it needs
//     (webhook → url, queue → region + queue_url, store → dsn).
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Delivery modes understood by internal/delivery.
const (
	ModeSimulate = "simulate"
	ModeWebhook  = "webhook"
	ModeQueue    = "queue"
	ModeStore    = "store"
)

var sqlIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("delivery_mode", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case ModeSimulate, ModeWebhook, ModeQueue, ModeStore:
			return true
		}
		return false
	})
	_ = val.RegisterValidation("sql_ident", func(fl validator.FieldLevel) bool {
		return sqlIdent.MatchString(fl.Field().String())
	})
	val.RegisterStructValidation(deliveryRules, Delivery{})
	return val
}

// deliveryRules checks that every enabled backend is configured.
func deliveryRules(sl validator.StructLevel) {
	d := sl.Current().Interface().(Delivery)
	if d.HasMode(ModeWebhook) && d.Webhook.URL == "" {
		sl.ReportError(d.Webhook.URL, "Webhook.URL", "URL", "required_with_mode", ModeWebhook)
	}
	if d.HasMode(ModeQueue) {
		if d.Queue.Region == "" {
			sl.ReportError(d.Queue.Region, "Queue.Region", "Region", "required_with_mode", ModeQueue)
		}
		if d.Queue.QueueURL == "" {
			sl.ReportError(d.Queue.QueueURL, "Queue.QueueURL", "QueueURL", "required_with_mode", ModeQueue)
		}
	}
	if d.HasMode(ModeStore) && d.Store.DSN == "" {
		sl.ReportError(d.Store.DSN, "Store.DSN", "DSN", "required_with_mode", ModeStore)
	}
}

//
// public API
//

// validateStruct returns the validation errors, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
