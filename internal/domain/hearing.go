package domain

import "time"

// Ear and response values allowed in test paths and results
const (
	EarLeft  = "left"
	EarRight = "right"
	EarBoth  = "both"

	ResponseHeard    = "heard"
	ResponseNotHeard = "not_heard"
)

// ValidEar reports whether e is one of the allowed ear values
func ValidEar(e string) bool {
	return e == EarLeft || e == EarRight || e == EarBoth
}

// ValidResponse reports whether r is one of the allowed response values
func ValidResponse(r string) bool {
	return r == ResponseHeard || r == ResponseNotHeard
}

// Group is a named cohort of employees within a tenant
type Group struct {
	ID            string
	TenantID      string
	Name          string
	Description   string
	EmployeeCount int
	RiskLevel     string // low, medium, high
}

// Profile is an employee record subject to hearing testing
type Profile struct {
	ID           string
	TenantID     string
	GroupID      string
	EmployeeID   string
	FirstName    string
	LastName     string
	DateOfBirth  string // YYYY-MM-DD
	Department   string
	LastTestDate string // YYYY-MM-DD, empty if never tested
}

// TestStep is one prescribed frequency/decibel presentation
type TestStep struct {
	Step        int    `json:"step"`
	FrequencyHz int    `json:"frequency_hz"`
	DecibelDB   int    `json:"decibel_db"`
	Ear         string `json:"ear"`
}

// TestPath is the ordered sequence of steps a profile's test should follow.
// Step numbers are unique within a path.
type TestPath struct {
	ID        string
	ProfileID string
	Steps     []TestStep
}

// TestResult is one submitted step outcome
type TestResult struct {
	Step        int    `json:"step"`
	FrequencyHz int    `json:"frequency_hz"`
	DecibelDB   int    `json:"decibel_db"`
	Ear         string `json:"ear"`
	Response    string `json:"response"`
}

// HearingTest is a submitted record of results for a profile
type HearingTest struct {
	ID          string
	TenantID    string
	ProfileID   string
	TestDate    time.Time
	TesterID    string
	DeviceID    string
	TestType    string
	Results     []TestResult
	NextTestDue string // YYYY-MM-DD, creation time + 365 days
}
