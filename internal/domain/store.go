package domain

import "context"

// Store is the capability interface over all hearing-test data. The
// in-memory implementation is the default; a persistent implementation can
// replace it without touching handlers. Every method is synchronous and
// either succeeds or fails deterministically; there are no retries.
type Store interface {
	// Users (seeded, immutable afterwards)
	GetUser(id string) (*User, error)
	GetUserByUsername(username string) (*User, error)

	// Tenants and the immutable user-to-tenant membership mapping
	GetTenant(id string) (*Tenant, error)
	// ListTenantsForUser returns tenants in membership insertion order.
	ListTenantsForUser(userID string) ([]*Tenant, error)
	TenantMemberships(userID string) ([]string, error)

	// Groups
	GetGroup(id string) (*Group, error)
	ListGroups(tenantID string) ([]*Group, error)

	// Profiles
	ListProfiles(tenantID, groupID string) ([]*Profile, error)
	// GetProfile returns ErrNotFound both for an unknown id and for an id
	// that exists under a different tenant; the two cases are
	// indistinguishable so cross-tenant existence never leaks.
	GetProfile(tenantID, profileID string) (*Profile, error)
	// SearchProfiles matches query case-insensitively as a substring of
	// first name, last name, employee ID, department, or "first last".
	SearchProfiles(tenantID, query string) ([]*Profile, error)
	// CreateProfile assigns a fresh ID and stores the profile. The
	// referenced tenant and group must exist and be consistent.
	CreateProfile(profile *Profile) error

	// Test paths
	GetTestPath(profileID string) (*TestPath, error)

	// Hearing tests
	// CreateHearingTest assigns a fresh ID, computes NextTestDue as exactly
	// 365 days after the creation instant (date-only), and stores the record.
	CreateHearingTest(test *HearingTest) error
	ListHearingTests(profileID string) ([]*HearingTest, error)
	// ListTestsDueBy returns tests whose NextTestDue falls on or before
	// the cutoff date (YYYY-MM-DD).
	ListTestsDueBy(cutoff string) ([]*HearingTest, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
