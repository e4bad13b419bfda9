package models

import "time"

// Finding kinds produced by the advisor.
const (
	FindingContinuousUsage = "continuous_usage"
	FindingPeakUsage       = "peak_usage"
	FindingStandbyDrain    = "standby_drain"
)

// AdvisorFinding is one detected usage pattern.
type AdvisorFinding struct {
	Kind  string    `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Value float64   `json:"value"`
}

// Recommendation is a saving tip matched to a finding kind.
type Recommendation struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AdvisorReport is a consolidated view of findings and recommendations
// for a customer. Note: no transport (json/http) concerns beyond tags.
type AdvisorReport struct {
	CustomerID      int64            `json:"customer_id"`
	Findings        []AdvisorFinding `json:"findings"`
	Recommendations []Recommendation `json:"recommendations"`
}
