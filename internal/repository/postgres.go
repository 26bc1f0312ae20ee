package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/audiometry/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// PostgresStore implements domain.Store on PostgreSQL. The HTTP layer never
// sees the difference between this and the memory store.
type PostgresStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// NewPostgresStore creates a store over an existing connection pool,
// creating the schema when it is missing.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PostgresStore{db: db, now: time.Now, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tenants (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			industry TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS user_tenants (
			user_id TEXT NOT NULL REFERENCES users(id),
			tenant_id TEXT NOT NULL REFERENCES tenants(id),
			position INT NOT NULL,
			PRIMARY KEY (user_id, tenant_id)
		)`,
		`CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES tenants(id),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			employee_count INT NOT NULL DEFAULT 0,
			risk_level TEXT NOT NULL DEFAULT 'low',
			position SERIAL
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES tenants(id),
			group_id TEXT NOT NULL REFERENCES groups(id),
			employee_id TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			date_of_birth TEXT NOT NULL,
			department TEXT NOT NULL,
			last_test_date TEXT NOT NULL DEFAULT '',
			position SERIAL
		)`,
		`CREATE TABLE IF NOT EXISTS test_paths (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL REFERENCES profiles(id),
			steps JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hearing_tests (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES tenants(id),
			profile_id TEXT NOT NULL REFERENCES profiles(id),
			test_date TIMESTAMPTZ NOT NULL,
			tester_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			test_type TEXT NOT NULL DEFAULT 'audiometry',
			results JSONB NOT NULL,
			next_test_due TEXT NOT NULL,
			position SERIAL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SeedIfEmpty loads the demo dataset when the users table has no rows
func (s *PostgresStore) SeedIfEmpty() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback()

	for _, t := range seedTenants {
		if _, err := tx.Exec(`INSERT INTO tenants (id, name, industry, active) VALUES ($1,$2,$3,$4)`,
			t.ID, t.Name, t.Industry, t.Active); err != nil {
			return fmt.Errorf("seed tenant %s: %w", t.ID, err)
		}
	}
	for _, su := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password for %s: %w", su.username, err)
		}
		if _, err := tx.Exec(`INSERT INTO users (id, username, password_hash, name, role) VALUES ($1,$2,$3,$4,$5)`,
			su.id, su.username, string(hash), su.name, su.role); err != nil {
			return fmt.Errorf("seed user %s: %w", su.id, err)
		}
		for i, tid := range su.tenants {
			if _, err := tx.Exec(`INSERT INTO user_tenants (user_id, tenant_id, position) VALUES ($1,$2,$3)`,
				su.id, tid, i); err != nil {
				return fmt.Errorf("seed membership %s/%s: %w", su.id, tid, err)
			}
		}
	}
	for _, g := range seedGroups {
		if _, err := tx.Exec(`INSERT INTO groups (id, tenant_id, name, description, employee_count, risk_level) VALUES ($1,$2,$3,$4,$5,$6)`,
			g.ID, g.TenantID, g.Name, g.Description, g.EmployeeCount, g.RiskLevel); err != nil {
			return fmt.Errorf("seed group %s: %w", g.ID, err)
		}
	}
	for _, p := range seedProfiles {
		if _, err := tx.Exec(`INSERT INTO profiles (id, tenant_id, group_id, employee_id, first_name, last_name, date_of_birth, department, last_test_date) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			p.ID, p.TenantID, p.GroupID, p.EmployeeID, p.FirstName, p.LastName, p.DateOfBirth, p.Department, p.LastTestDate); err != nil {
			return fmt.Errorf("seed profile %s: %w", p.ID, err)
		}
	}
	for _, tp := range seedTestPaths {
		steps, err := json.Marshal(tp.Steps)
		if err != nil {
			return fmt.Errorf("marshal steps for %s: %w", tp.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO test_paths (id, profile_id, steps) VALUES ($1,$2,$3)`,
			tp.ID, tp.ProfileID, steps); err != nil {
			return fmt.Errorf("seed test path %s: %w", tp.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	s.logger.Info("seeded demo dataset into postgres")
	return nil
}

// GetUser retrieves a user by ID
func (s *PostgresStore) GetUser(id string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, username, password_hash, name, role FROM users WHERE id = $1`, id))
}

// GetUserByUsername retrieves a user by exact username match
func (s *PostgresStore) GetUserByUsername(username string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, username, password_hash, name, role FROM users WHERE username = $1`, username))
}

func (s *PostgresStore) scanUser(row *sql.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// GetTenant retrieves a tenant by ID
func (s *PostgresStore) GetTenant(id string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	err := s.db.QueryRow(`SELECT id, name, industry, active FROM tenants WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Industry, &t.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("query tenant: %w", err)
	}
	return t, nil
}

// ListTenantsForUser returns tenants in membership insertion order
func (s *PostgresStore) ListTenantsForUser(userID string) ([]*domain.Tenant, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.industry, t.active
		FROM tenants t
		JOIN user_tenants ut ON ut.tenant_id = t.id
		WHERE ut.user_id = $1
		ORDER BY ut.position`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	out := []*domain.Tenant{}
	for rows.Next() {
		t := &domain.Tenant{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Industry, &t.Active); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TenantMemberships returns the tenant IDs the user belongs to
func (s *PostgresStore) TenantMemberships(userID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT tenant_id FROM user_tenants WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetGroup retrieves a group by ID
func (s *PostgresStore) GetGroup(id string) (*domain.Group, error) {
	g := &domain.Group{}
	err := s.db.QueryRow(
		`SELECT id, tenant_id, name, description, employee_count, risk_level FROM groups WHERE id = $1`, id).
		Scan(&g.ID, &g.TenantID, &g.Name, &g.Description, &g.EmployeeCount, &g.RiskLevel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("query group: %w", err)
	}
	return g, nil
}

// ListGroups returns all groups owned by the tenant
func (s *PostgresStore) ListGroups(tenantID string) ([]*domain.Group, error) {
	rows, err := s.db.Query(`
		SELECT id, tenant_id, name, description, employee_count, risk_level
		FROM groups WHERE tenant_id = $1 ORDER BY position`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	out := []*domain.Group{}
	for rows.Next() {
		g := &domain.Group{}
		if err := rows.Scan(&g.ID, &g.TenantID, &g.Name, &g.Description, &g.EmployeeCount, &g.RiskLevel); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListProfiles returns the profiles in a group, scoped to the tenant
func (s *PostgresStore) ListProfiles(tenantID, groupID string) ([]*domain.Profile, error) {
	rows, err := s.db.Query(`
		SELECT id, tenant_id, group_id, employee_id, first_name, last_name, date_of_birth, department, last_test_date
		FROM profiles WHERE tenant_id = $1 AND group_id = $2 ORDER BY position`, tenantID, groupID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

// GetProfile retrieves a profile under the tenant; unknown ID and tenant
// mismatch are indistinguishable
func (s *PostgresStore) GetProfile(tenantID, profileID string) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := s.db.QueryRow(`
		SELECT id, tenant_id, group_id, employee_id, first_name, last_name, date_of_birth, department, last_test_date
		FROM profiles WHERE id = $1 AND tenant_id = $2`, profileID, tenantID).
		Scan(&p.ID, &p.TenantID, &p.GroupID, &p.EmployeeID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Department, &p.LastTestDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", profileID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

// SearchProfiles matches the query case-insensitively against name,
// employee ID, department, and the concatenated full name
func (s *PostgresStore) SearchProfiles(tenantID, query string) ([]*domain.Profile, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT id, tenant_id, group_id, employee_id, first_name, last_name, date_of_birth, department, last_test_date
		FROM profiles
		WHERE tenant_id = $1 AND (
			first_name ILIKE $2 OR last_name ILIKE $2 OR employee_id ILIKE $2
			OR department ILIKE $2 OR (first_name || ' ' || last_name) ILIKE $2
		)
		ORDER BY position`, tenantID, pattern)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func scanProfiles(rows *sql.Rows) ([]*domain.Profile, error) {
	out := []*domain.Profile{}
	for rows.Next() {
		p := &domain.Profile{}
		if err := rows.Scan(&p.ID, &p.TenantID, &p.GroupID, &p.EmployeeID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Department, &p.LastTestDate); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateProfile assigns a fresh ID and inserts the profile. The foreign key
// constraints enforce the tenant/group references; group-tenant consistency
// is checked explicitly.
func (s *PostgresStore) CreateProfile(profile *domain.Profile) error {
	g, err := s.GetGroup(profile.GroupID)
	if err != nil {
		return err
	}
	if g.TenantID != profile.TenantID {
		return fmt.Errorf("group %s under tenant %s: %w", profile.GroupID, profile.TenantID, domain.ErrNotFound)
	}
	profile.ID = "emp-" + uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO profiles (id, tenant_id, group_id, employee_id, first_name, last_name, date_of_birth, department, last_test_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		profile.ID, profile.TenantID, profile.GroupID, profile.EmployeeID,
		profile.FirstName, profile.LastName, profile.DateOfBirth, profile.Department, profile.LastTestDate)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// GetTestPath retrieves the test path assigned to a profile
func (s *PostgresStore) GetTestPath(profileID string) (*domain.TestPath, error) {
	tp := &domain.TestPath{}
	var steps []byte
	err := s.db.QueryRow(
		`SELECT id, profile_id, steps FROM test_paths WHERE profile_id = $1`, profileID).
		Scan(&tp.ID, &tp.ProfileID, &steps)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("test path for profile %s: %w", profileID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("query test path: %w", err)
	}
	if err := json.Unmarshal(steps, &tp.Steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	return tp, nil
}

// CreateHearingTest assigns a fresh ID, computes NextTestDue, and inserts
// the record
func (s *PostgresStore) CreateHearingTest(test *domain.HearingTest) error {
	test.ID = "test-" + uuid.NewString()
	test.NextTestDue = s.now().Add(nextTestInterval).Format("2006-01-02")
	results, err := json.Marshal(test.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO hearing_tests (id, tenant_id, profile_id, test_date, tester_id, device_id, test_type, results, next_test_due)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		test.ID, test.TenantID, test.ProfileID, test.TestDate,
		test.TesterID, test.DeviceID, test.TestType, results, test.NextTestDue)
	if err != nil {
		return fmt.Errorf("insert hearing test: %w", err)
	}
	return nil
}

// ListHearingTests returns all submitted tests for a profile
func (s *PostgresStore) ListHearingTests(profileID string) ([]*domain.HearingTest, error) {
	rows, err := s.db.Query(`
		SELECT id, tenant_id, profile_id, test_date, tester_id, device_id, test_type, results, next_test_due
		FROM hearing_tests WHERE profile_id = $1 ORDER BY position`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list hearing tests: %w", err)
	}
	defer rows.Close()
	return scanHearingTests(rows)
}

// ListTestsDueBy returns tests due on or before the cutoff date
func (s *PostgresStore) ListTestsDueBy(cutoff string) ([]*domain.HearingTest, error) {
	rows, err := s.db.Query(`
		SELECT id, tenant_id, profile_id, test_date, tester_id, device_id, test_type, results, next_test_due
		FROM hearing_tests WHERE next_test_due <= $1 ORDER BY position`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list due tests: %w", err)
	}
	defer rows.Close()
	return scanHearingTests(rows)
}

func scanHearingTests(rows *sql.Rows) ([]*domain.HearingTest, error) {
	out := []*domain.HearingTest{}
	for rows.Next() {
		t := &domain.HearingTest{}
		var results []byte
		if err := rows.Scan(&t.ID, &t.TenantID, &t.ProfileID, &t.TestDate, &t.TesterID, &t.DeviceID, &t.TestType, &results, &t.NextTestDue); err != nil {
			return nil, fmt.Errorf("scan hearing test: %w", err)
		}
		if err := json.Unmarshal(results, &t.Results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
