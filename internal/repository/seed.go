package repository

import (
	"fmt"
	"log/slog"

	"github.com/yourorg/audiometry/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// seedUser carries the demo credentials before hashing
type seedUser struct {
	id       string
	username string
	password string
	name     string
	role     string
	tenants  []string
}

var seedUsers = []seedUser{
	{
		id:       "tester-001",
		username: "admin@hearingtest.com",
		password: "SecurePass123!",
		name:     "Dr. Sarah Johnson",
		role:     "certified_tester",
		tenants:  []string{"acme-corp", "tech-solutions"},
	},
	{
		id:       "tester-002",
		username: "audit@hearingtest.com",
		password: "AuditPass456!",
		name:     "Mark Reyes",
		role:     "certified_tester",
		tenants:  []string{"acme-corp"},
	},
}

var seedTenants = []*domain.Tenant{
	{ID: "acme-corp", Name: "ACME Corporation", Industry: "Manufacturing", Active: true},
	{ID: "tech-solutions", Name: "Tech Solutions Inc", Industry: "Technology", Active: true},
}

var seedGroups = []*domain.Group{
	{ID: "factory-floor", TenantID: "acme-corp", Name: "Factory Floor Workers", Description: "High noise exposure employees", EmployeeCount: 45, RiskLevel: "high"},
	{ID: "office-staff", TenantID: "acme-corp", Name: "Office Staff", Description: "Administrative personnel", EmployeeCount: 23, RiskLevel: "low"},
	{ID: "developers", TenantID: "tech-solutions", Name: "Software Developers", Description: "Development team members", EmployeeCount: 30, RiskLevel: "low"},
}

var seedProfiles = []*domain.Profile{
	{ID: "emp-001", TenantID: "acme-corp", GroupID: "factory-floor", EmployeeID: "E12345", FirstName: "John", LastName: "Smith", DateOfBirth: "1985-06-15", Department: "Manufacturing", LastTestDate: "2023-12-01"},
	{ID: "emp-002", TenantID: "acme-corp", GroupID: "factory-floor", EmployeeID: "E12346", FirstName: "Maria", LastName: "Rodriguez", DateOfBirth: "1990-03-22", Department: "Manufacturing", LastTestDate: "2023-11-15"},
	{ID: "emp-003", TenantID: "acme-corp", GroupID: "office-staff", EmployeeID: "E12347", FirstName: "David", LastName: "Chen", DateOfBirth: "1988-09-10", Department: "Administration", LastTestDate: "2024-01-05"},
}

var seedTestPaths = []*domain.TestPath{
	{
		ID:        "path-001",
		ProfileID: "emp-001",
		Steps: []domain.TestStep{
			{Step: 1, FrequencyHz: 500, DecibelDB: 25, Ear: domain.EarLeft},
			{Step: 2, FrequencyHz: 1000, DecibelDB: 25, Ear: domain.EarLeft},
			{Step: 3, FrequencyHz: 2000, DecibelDB: 25, Ear: domain.EarLeft},
			{Step: 4, FrequencyHz: 4000, DecibelDB: 25, Ear: domain.EarLeft},
			{Step: 5, FrequencyHz: 500, DecibelDB: 25, Ear: domain.EarRight},
			{Step: 6, FrequencyHz: 1000, DecibelDB: 25, Ear: domain.EarRight},
			{Step: 7, FrequencyHz: 2000, DecibelDB: 25, Ear: domain.EarRight},
			{Step: 8, FrequencyHz: 4000, DecibelDB: 25, Ear: domain.EarRight},
		},
	},
}

// SeedDemoData loads the demo dataset into a memory store. Passwords are
// bcrypt-hashed here rather than stored in the clear.
func SeedDemoData(s *MemoryStore) error {
	for _, t := range seedTenants {
		s.AddTenant(t)
	}
	for _, su := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password for %s: %w", su.username, err)
		}
		s.AddUser(&domain.User{
			ID:           su.id,
			Username:     su.username,
			PasswordHash: string(hash),
			Name:         su.name,
			Role:         su.role,
		})
		for _, tid := range su.tenants {
			s.AddMembership(su.id, tid)
		}
	}
	for _, g := range seedGroups {
		s.AddGroup(g)
	}
	for _, p := range seedProfiles {
		s.AddProfile(p)
	}
	for _, tp := range seedTestPaths {
		s.AddTestPath(tp)
	}
	return nil
}

// NewDemoStore constructs a memory store preloaded with the demo dataset.
// Main and the end-to-end tests share this path.
func NewDemoStore(logger *slog.Logger) (*MemoryStore, error) {
	s := NewMemoryStore(logger)
	if err := SeedDemoData(s); err != nil {
		return nil, err
	}
	return s, nil
}
