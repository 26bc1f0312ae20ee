package featureflags

import (
	"os"
	"strings"
)

// Known flags
const (
	// DueReminders enables the background worker that reports hearing
	// tests approaching their next due date.
	DueReminders = "due_reminders"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
