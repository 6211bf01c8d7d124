package env

import (
	"os"
	"strings"
)

const prefix = "CASTMENU_"

// Get returns the value of the given environment variable or a fallback.
// The prefixed form (CASTMENU_<key>) wins over the bare key.
func Get(key, fallback string) string {
	if !strings.HasPrefix(key, prefix) {
		if val := os.Getenv(prefix + key); val != "" {
			return val
		}
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
