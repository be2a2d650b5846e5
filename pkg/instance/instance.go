// Package instance names the running process so relay brokers can skip
// events they published themselves.
package instance

import (
	"os"

	"github.com/google/uuid"
)

var fallbackID = "api-" + uuid.NewString()[:8]

// GetID returns JEBDEKHO_INSTANCE_ID, else the hostname, else a random id
// fixed for the life of the process.
func GetID() string {
	if id := os.Getenv("JEBDEKHO_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
