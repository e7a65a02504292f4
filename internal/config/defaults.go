package config

// defaults is the lowest configuration layer.  Keys use the koanf "."
// path; values use the types the YAML parser would produce.
func defaults() map[string]any {
	return map[string]any{
		"http.listen_addr":   ":8080",
		"http.force_https":   false,
		"http.trust_proxy":   false,
		"http.read_timeout":  "10s",
		"http.write_timeout": "15s",
		"http.idle_timeout":  "60s",

		"log.dir":   "logs",
		"log.level": "info",

		"contact.timeout":         "30s",
		"contact.idle_ttl":        "30m",
		"contact.max_sessions":    10000,
		"contact.min_fill_time":   "2s",
		"contact.secure_cookie":   false,
		"contact.rate_per_minute": 6.0,
		"contact.rate_burst":      3,

		"delivery.modes":                 []string{ModeSimulate},
		"delivery.simulate.min_delay":    "1200ms",
		"delivery.simulate.max_delay":    "2s",
		"delivery.simulate.failure_rate": 0.0,
		"delivery.store.table":           "contact_submission",

		"vault.enabled":   false,
		"vault.cache_ttl": "5m",
	}
}
