package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/audiometry/internal/domain"
)

func newSeededStore(t *testing.T) *MemoryStore {
	t.Helper()
	s, err := NewDemoStore(nil)
	require.NoError(t, err)
	return s
}

func TestGetUserByUsername(t *testing.T) {
	s := newSeededStore(t)

	u, err := s.GetUserByUsername("admin@hearingtest.com")
	require.NoError(t, err)
	assert.Equal(t, "tester-001", u.ID)
	assert.Equal(t, "Dr. Sarah Johnson", u.Name)
	assert.Equal(t, "certified_tester", u.Role)

	_, err = s.GetUserByUsername("nobody@hearingtest.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListTenantsForUserPreservesMembershipOrder(t *testing.T) {
	s := newSeededStore(t)

	tenants, err := s.ListTenantsForUser("tester-001")
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "acme-corp", tenants[0].ID)
	assert.Equal(t, "tech-solutions", tenants[1].ID)

	tenants, err = s.ListTenantsForUser("tester-002")
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, "acme-corp", tenants[0].ID)
}

func TestListGroupsScopedToTenant(t *testing.T) {
	s := newSeededStore(t)

	groups, err := s.ListGroups("acme-corp")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "factory-floor", groups[0].ID)
	assert.Equal(t, "office-staff", groups[1].ID)

	groups, err = s.ListGroups("tech-solutions")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "developers", groups[0].ID)
}

func TestGetProfileTenantMismatchLooksLikeNotFound(t *testing.T) {
	s := newSeededStore(t)

	_, errUnknown := s.GetProfile("acme-corp", "emp-999")
	_, errMismatch := s.GetProfile("tech-solutions", "emp-001")

	assert.True(t, errors.Is(errUnknown, domain.ErrNotFound))
	assert.True(t, errors.Is(errMismatch, domain.ErrNotFound))
}

func TestSearchProfiles(t *testing.T) {
	s := newSeededStore(t)

	cases := []struct {
		name   string
		tenant string
		query  string
		want   []string
	}{
		{"first name", "acme-corp", "john", []string{"emp-001"}},
		{"case insensitive", "acme-corp", "JOHN", []string{"emp-001"}},
		{"employee id", "acme-corp", "E12346", []string{"emp-002"}},
		{"department", "acme-corp", "manufactur", []string{"emp-001", "emp-002"}},
		{"full name", "acme-corp", "maria rodriguez", []string{"emp-002"}},
		{"wrong tenant", "tech-solutions", "john", []string{}},
		{"no match", "acme-corp", "zzz", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.SearchProfiles(tc.tenant, tc.query)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestCreateProfileReferentialChecks(t *testing.T) {
	s := newSeededStore(t)

	err := s.CreateProfile(&domain.Profile{
		TenantID: "acme-corp", GroupID: "no-such-group",
		EmployeeID: "E99999", FirstName: "New", LastName: "Hire",
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// group exists but belongs to another tenant
	err = s.CreateProfile(&domain.Profile{
		TenantID: "acme-corp", GroupID: "developers",
		EmployeeID: "E99999", FirstName: "New", LastName: "Hire",
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	p := &domain.Profile{
		TenantID: "acme-corp", GroupID: "office-staff",
		EmployeeID: "E99999", FirstName: "New", LastName: "Hire",
	}
	require.NoError(t, s.CreateProfile(p))
	assert.NotEmpty(t, p.ID)

	got, err := s.GetProfile("acme-corp", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "E99999", got.EmployeeID)
}

func TestCreateHearingTestNextTestDue(t *testing.T) {
	s := newSeededStore(t)
	fixed := time.Date(2024, time.March, 1, 10, 30, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })

	test := &domain.HearingTest{
		ProfileID: "emp-001",
		TenantID:  "acme-corp",
		TesterID:  "tester-001",
		DeviceID:  "device-123",
		TestType:  "audiometry",
		TestDate:  fixed,
		Results: []domain.TestResult{
			{Step: 1, FrequencyHz: 500, DecibelDB: 25, Ear: domain.EarLeft, Response: domain.ResponseHeard},
		},
	}
	require.NoError(t, s.CreateHearingTest(test))
	assert.NotEmpty(t, test.ID)
	assert.Equal(t, "2025-03-01", test.NextTestDue)

	listed, err := s.ListHearingTests("emp-001")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, test.ID, listed[0].ID)
}

func TestListTestsDueBy(t *testing.T) {
	s := newSeededStore(t)

	early := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	s.SetClock(func() time.Time { return early })
	first := &domain.HearingTest{ProfileID: "emp-001", TenantID: "acme-corp", TesterID: "tester-001", DeviceID: "d1", TestType: "audiometry", TestDate: early}
	require.NoError(t, s.CreateHearingTest(first))

	s.SetClock(func() time.Time { return late })
	second := &domain.HearingTest{ProfileID: "emp-002", TenantID: "acme-corp", TesterID: "tester-001", DeviceID: "d1", TestType: "audiometry", TestDate: late}
	require.NoError(t, s.CreateHearingTest(second))

	due, err := s.ListTestsDueBy("2025-01-15")
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, first.ID, due[0].ID)

	due, err = s.ListTestsDueBy("2025-12-31")
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestGetTestPath(t *testing.T) {
	s := newSeededStore(t)

	path, err := s.GetTestPath("emp-001")
	require.NoError(t, err)
	assert.Equal(t, "path-001", path.ID)
	assert.Len(t, path.Steps, 8)

	_, err = s.GetTestPath("emp-002")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
