// internal/config/secrets.go
//
// Vault reference resolution.
//
// Context
// -------
// Secrets may be written in YAML or env as `vault:<mount>/<path>#<key>`,
// e.g. `vault:secret/serenity/webhook#token`.  ResolveSecrets swaps each
// reference for the plain value before any component reads the Config.
// The resolver is an interface so tests and Vault-less deployments need
// no Vault client.
//
// Notes
// -----
//   • Only the fields listed in secretFields are considered.
//   • Oxford commas, two spaces after periods.

package config

import (
	"context"
	"fmt"
	"strings"
)

// VaultPrefix marks a value that must be fetched from Vault.
const VaultPrefix = "vault:"

// Resolver fetches the secret a `vault:` reference points to.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// IsVaultRef reports whether s is a Vault reference.
func IsVaultRef(s string) bool { return strings.HasPrefix(s, VaultPrefix) }

func secretFields(c *Config) map[string]*string {
	return map[string]*string{
		"contact.csrf_key":       &c.Contact.CSRFKey,
		"delivery.webhook.token": &c.Delivery.Webhook.Token,
		"delivery.store.dsn":     &c.Delivery.Store.DSN,
	}
}

// ResolveSecrets replaces every Vault reference in c.  A reference with no
// resolver configured is an error, so the binary never runs with a literal
// "vault:" string as a password.
func ResolveSecrets(ctx context.Context, c *Config, r Resolver) error {
	for name, ptr := range secretFields(c) {
		if !IsVaultRef(*ptr) {
			continue
		}
		if r == nil {
			return fmt.Errorf("config %s: vault reference but vault is disabled", name)
		}
		val, err := r.Resolve(ctx, *ptr)
		if err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
		*ptr = val
	}
	return nil
}
