package domain

// User represents a credentialed system user (a tester or administrator)
type User struct {
	ID           string // Stable unique ID
	Username     string // Unique login name (email-shaped by convention)
	PasswordHash string // Bcrypt hashed password (never returned in API)
	Name         string // Display name
	Role         string // e.g. certified_tester
}

// Tenant represents an organizational customer boundary.
// All groups and profiles belong to exactly one tenant.
type Tenant struct {
	ID       string // Stable, globally unique
	Name     string
	Industry string
	Active   bool
}
