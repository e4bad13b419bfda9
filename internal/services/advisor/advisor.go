package advisor

import (
    "GridPulse/internal/domain/models"
)

// Policy holds the thresholds the advisor applies. Hour bounds are UTC,
// window [PeakStartHour, PeakEndHour).
type Policy struct {
    ActiveThreshold  float64
    StandbyThreshold float64
    MinRunLength     int
    PeakStartHour    int
    PeakEndHour      int
    PeakShare        float64
}

// DefaultPolicy mirrors a typical residential profile.
func DefaultPolicy() Policy {
    return Policy{
        ActiveThreshold:  1.0,
        StandbyThreshold: 0.05,
        MinRunLength:     6,
        PeakStartHour:    11,
        PeakEndHour:      16,
        PeakShare:        0.4,
    }
}

// RuleAdvisor detects usage patterns in a window of records and pairs each
// finding kind with a message from a rule table.
type RuleAdvisor struct {
    policy Policy
    rules  map[string]string
}

func New(policy Policy, rules map[string]string) *RuleAdvisor {
    if rules == nil {
        rules = DefaultRules()
    }
    return &RuleAdvisor{policy: policy, rules: rules}
}

// Advise runs all detectors over records, which must be in ascending
// timestamp order (the stored scan order).
func (a *RuleAdvisor) Advise(customerID int64, records []*models.MeterRecord) models.AdvisorReport {
    report := models.AdvisorReport{
        CustomerID:      customerID,
        Findings:        []models.AdvisorFinding{},
        Recommendations: []models.Recommendation{},
    }
    if len(records) == 0 {
        return report
    }

    findings := detectRuns(records, a.policy)
    if f, ok := detectPeakUsage(records, a.policy); ok {
        findings = append(findings, f)
    }
    if f, ok := detectStandbyDrain(records, a.policy); ok {
        findings = append(findings, f)
    }
    report.Findings = findings

    seen := make(map[string]bool)
    for _, f := range findings {
        if seen[f.Kind] {
            continue
        }
        seen[f.Kind] = true
        if msg, ok := a.rules[f.Kind]; ok {
            report.Recommendations = append(report.Recommendations, models.Recommendation{
                Kind:    f.Kind,
                Message: msg,
            })
        }
    }
    return report
}
