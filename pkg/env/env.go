// Package env reads process settings that are needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable the services read.
const Prefix = "JEBDEKHO_"

// Get returns JEBDEKHO_<key> when set, then the bare key, then fallback.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + strings.TrimPrefix(key, Prefix), key} {
		if val, ok := os.LookupEnv(name); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return fallback
}
