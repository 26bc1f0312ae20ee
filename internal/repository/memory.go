package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/audiometry/internal/domain"
)

// nextTestInterval is how far after a submitted test the next one is due
const nextTestInterval = 365 * 24 * time.Hour

// MemoryStore implements domain.Store with all tables in process memory.
// It is constructed once at startup and passed by handle to the handlers;
// tests get isolation by constructing fresh instances. Maps are paired with
// insertion-order slices so list and search results are deterministic.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[string]*domain.User
	tenants      map[string]*domain.Tenant
	groups       map[string]*domain.Group
	profiles     map[string]*domain.Profile
	testPaths    map[string]*domain.TestPath
	hearingTests map[string]*domain.HearingTest

	userOrder    []string
	groupOrder   []string
	profileOrder []string
	testOrder    []string

	// userID -> tenant IDs, membership insertion order preserved
	memberships map[string][]string

	now    func() time.Time
	logger *slog.Logger
}

// NewMemoryStore creates an empty store. Callers seed it explicitly.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		users:        make(map[string]*domain.User),
		tenants:      make(map[string]*domain.Tenant),
		groups:       make(map[string]*domain.Group),
		profiles:     make(map[string]*domain.Profile),
		testPaths:    make(map[string]*domain.TestPath),
		hearingTests: make(map[string]*domain.HearingTest),
		memberships:  make(map[string][]string),
		now:          time.Now,
		logger:       logger,
	}
}

// SetClock overrides the store's clock, used by tests to pin NextTestDue
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// GetUser retrieves a user by ID
func (s *MemoryStore) GetUser(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by exact username match
func (s *MemoryStore) GetUserByUsername(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.userOrder {
		if s.users[id].Username == username {
			return s.users[id], nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
}

// GetTenant retrieves a tenant by ID
func (s *MemoryStore) GetTenant(id string) (*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

// ListTenantsForUser returns the tenants the user is a member of, in
// membership insertion order. Memberships referencing unknown tenants are
// skipped.
func (s *MemoryStore) ListTenantsForUser(userID string) ([]*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Tenant, 0, len(s.memberships[userID]))
	for _, tid := range s.memberships[userID] {
		if t, ok := s.tenants[tid]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// TenantMemberships returns the tenant IDs the user belongs to
func (s *MemoryStore) TenantMemberships(userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.memberships[userID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// GetGroup retrieves a group by ID
func (s *MemoryStore) GetGroup(id string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
	}
	return g, nil
}

// ListGroups returns all groups owned by the tenant
func (s *MemoryStore) ListGroups(tenantID string) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Group{}
	for _, id := range s.groupOrder {
		if g := s.groups[id]; g.TenantID == tenantID {
			out = append(out, g)
		}
	}
	return out, nil
}

// ListProfiles returns the profiles in a group, scoped to the tenant
func (s *MemoryStore) ListProfiles(tenantID, groupID string) ([]*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Profile{}
	for _, id := range s.profileOrder {
		if p := s.profiles[id]; p.TenantID == tenantID && p.GroupID == groupID {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetProfile retrieves a profile by ID under the given tenant. An unknown
// ID and a tenant mismatch both return ErrNotFound.
func (s *MemoryStore) GetProfile(tenantID, profileID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileID]
	if !ok || p.TenantID != tenantID {
		return nil, fmt.Errorf("profile %s: %w", profileID, domain.ErrNotFound)
	}
	return p, nil
}

// SearchProfiles performs a case-insensitive substring match over first
// name, last name, employee ID, department, and "first last" within one
// tenant. A full scan is fine at this data volume.
func (s *MemoryStore) SearchProfiles(tenantID, query string) ([]*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	out := []*domain.Profile{}
	for _, id := range s.profileOrder {
		p := s.profiles[id]
		if p.TenantID != tenantID {
			continue
		}
		if profileMatches(p, q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func profileMatches(p *domain.Profile, q string) bool {
	fields := []string{
		strings.ToLower(p.FirstName),
		strings.ToLower(p.LastName),
		strings.ToLower(p.EmployeeID),
		strings.ToLower(p.Department),
		strings.ToLower(p.FirstName + " " + p.LastName),
	}
	for _, f := range fields {
		if strings.Contains(f, q) {
			return true
		}
	}
	return false
}

// CreateProfile assigns a fresh ID and stores the profile after checking
// that the referenced tenant and group exist and are consistent.
func (s *MemoryStore) CreateProfile(profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[profile.TenantID]; !ok {
		return fmt.Errorf("tenant %s: %w", profile.TenantID, domain.ErrNotFound)
	}
	g, ok := s.groups[profile.GroupID]
	if !ok || g.TenantID != profile.TenantID {
		return fmt.Errorf("group %s under tenant %s: %w", profile.GroupID, profile.TenantID, domain.ErrNotFound)
	}
	profile.ID = "emp-" + uuid.NewString()
	s.profiles[profile.ID] = profile
	s.profileOrder = append(s.profileOrder, profile.ID)
	s.logger.Debug("profile created",
		slog.String("profile_id", profile.ID),
		slog.String("tenant_id", profile.TenantID),
	)
	return nil
}

// GetTestPath retrieves the test path assigned to a profile, if any
func (s *MemoryStore) GetTestPath(profileID string) (*domain.TestPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, path := range s.testPaths {
		if path.ProfileID == profileID {
			return path, nil
		}
	}
	return nil, fmt.Errorf("test path for profile %s: %w", profileID, domain.ErrNotFound)
}

// CreateHearingTest assigns a fresh ID, computes NextTestDue as the
// creation instant plus 365 days (date-only), and stores the test.
func (s *MemoryStore) CreateHearingTest(test *domain.HearingTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	test.ID = "test-" + uuid.NewString()
	test.NextTestDue = s.now().Add(nextTestInterval).Format("2006-01-02")
	s.hearingTests[test.ID] = test
	s.testOrder = append(s.testOrder, test.ID)
	s.logger.Debug("hearing test stored",
		slog.String("test_id", test.ID),
		slog.String("profile_id", test.ProfileID),
		slog.String("next_test_due", test.NextTestDue),
	)
	return nil
}

// ListHearingTests returns all submitted tests for a profile in insertion order
func (s *MemoryStore) ListHearingTests(profileID string) ([]*domain.HearingTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.HearingTest{}
	for _, id := range s.testOrder {
		if t := s.hearingTests[id]; t.ProfileID == profileID {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListTestsDueBy returns tests whose NextTestDue is on or before the
// cutoff. Date-only strings compare correctly as plain strings.
func (s *MemoryStore) ListTestsDueBy(cutoff string) ([]*domain.HearingTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.HearingTest{}
	for _, id := range s.testOrder {
		if t := s.hearingTests[id]; t.NextTestDue != "" && t.NextTestDue <= cutoff {
			out = append(out, t)
		}
	}
	return out, nil
}

// Ping always succeeds; the store lives in process memory
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// AddUser inserts a user at seed time
func (s *MemoryStore) AddUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
}

// AddTenant inserts a tenant at seed time
func (s *MemoryStore) AddTenant(t *domain.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

// AddMembership associates a user with a tenant at seed time
func (s *MemoryStore) AddMembership(userID, tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[userID] = append(s.memberships[userID], tenantID)
}

// AddGroup inserts a group at seed time
func (s *MemoryStore) AddGroup(g *domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	s.groupOrder = append(s.groupOrder, g.ID)
}

// AddProfile inserts a profile at seed time with a caller-chosen ID
func (s *MemoryStore) AddProfile(p *domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
	s.profileOrder = append(s.profileOrder, p.ID)
}

// AddTestPath inserts a test path at seed time
func (s *MemoryStore) AddTestPath(tp *domain.TestPath) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.testPaths[tp.ID] = tp
}
