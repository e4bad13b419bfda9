package advisor

import (
    "testing"
    "time"

    "GridPulse/internal/domain/models"
)

func hourly(start time.Time, kwhs []float64) []*models.MeterRecord {
    recs := make([]*models.MeterRecord, 0, len(kwhs))
    for i, k := range kwhs {
        recs = append(recs, &models.MeterRecord{
            Reading: models.Reading{
                CustomerID: 1,
                Timestamp:  start.Add(time.Duration(i) * time.Hour),
                Kwh:        k,
            },
        })
    }
    return recs
}

func hasFinding(r models.AdvisorReport, kind string) bool {
    for _, f := range r.Findings {
        if f.Kind == kind {
            return true
        }
    }
    return false
}

func TestAdviseEmpty(t *testing.T) {
    a := New(DefaultPolicy(), nil)
    report := a.Advise(1, nil)
    if report.CustomerID != 1 {
        t.Fatalf("expected customer echoed, got %d", report.CustomerID)
    }
    if len(report.Findings) != 0 || len(report.Recommendations) != 0 {
        t.Fatalf("expected empty report, got %+v", report)
    }
}

func TestAdviseContinuousUsage(t *testing.T) {
    start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
    // 6 consecutive hours above the 1.0 active threshold
    recs := hourly(start, []float64{0.2, 1.5, 1.5, 1.5, 1.5, 1.5, 1.5, 0.2})

    a := New(DefaultPolicy(), nil)
    report := a.Advise(1, recs)
    if !hasFinding(report, models.FindingContinuousUsage) {
        t.Fatalf("expected continuous usage finding, got %+v", report.Findings)
    }
    for _, f := range report.Findings {
        if f.Kind != models.FindingContinuousUsage {
            continue
        }
        if f.Value != 9.0 {
            t.Fatalf("expected run total 9.0, got %v", f.Value)
        }
        if !f.Start.Equal(start.Add(1 * time.Hour)) || !f.End.Equal(start.Add(6 * time.Hour)) {
            t.Fatalf("unexpected run bounds %v..%v", f.Start, f.End)
        }
    }
    if len(report.Recommendations) == 0 {
        t.Fatalf("expected a recommendation for the finding")
    }
}

func TestAdviseShortRunIgnored(t *testing.T) {
    start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
    recs := hourly(start, []float64{1.5, 1.5, 1.5, 0.2, 0.2, 0.2})

    a := New(DefaultPolicy(), nil)
    report := a.Advise(1, recs)
    if hasFinding(report, models.FindingContinuousUsage) {
        t.Fatalf("3-sample run must not trigger with MinRunLength 6")
    }
}

func TestAdvisePeakUsage(t *testing.T) {
    // All consumption inside the 11-16 UTC window
    start := time.Date(2025, 9, 1, 11, 0, 0, 0, time.UTC)
    recs := hourly(start, []float64{0.5, 0.5, 0.5})

    a := New(DefaultPolicy(), nil)
    report := a.Advise(1, recs)
    if !hasFinding(report, models.FindingPeakUsage) {
        t.Fatalf("expected peak usage finding, got %+v", report.Findings)
    }
}

func TestAdviseNoPeakBelowShare(t *testing.T) {
    // All samples fall before the peak window opens
    start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
    recs := hourly(start, []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5})

    a := New(DefaultPolicy(), nil)
    report := a.Advise(1, recs)
    if hasFinding(report, models.FindingPeakUsage) {
        t.Fatalf("peak share below policy must not trigger")
    }
}

func TestAdviseStandbyDrain(t *testing.T) {
    start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
    recs := hourly(start, []float64{0.01, 0.02, 0.01, 0.02, 0.01, 0.02})

    a := New(DefaultPolicy(), nil)
    report := a.Advise(1, recs)
    if !hasFinding(report, models.FindingStandbyDrain) {
        t.Fatalf("expected standby drain finding, got %+v", report.Findings)
    }
}

func TestRecommendationsDeduped(t *testing.T) {
    start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
    // Two separate qualifying runs produce two findings of the same kind
    kwhs := []float64{
        1.5, 1.5, 1.5, 1.5, 1.5, 1.5,
        0.2,
        1.5, 1.5, 1.5, 1.5, 1.5, 1.5,
    }
    recs := hourly(start, kwhs)

    a := New(DefaultPolicy(), nil)
    report := a.Advise(1, recs)

    runs := 0
    for _, f := range report.Findings {
        if f.Kind == models.FindingContinuousUsage {
            runs++
        }
    }
    if runs != 2 {
        t.Fatalf("expected 2 run findings, got %d", runs)
    }
    seen := 0
    for _, r := range report.Recommendations {
        if r.Kind == models.FindingContinuousUsage {
            seen++
        }
    }
    if seen != 1 {
        t.Fatalf("expected one deduped recommendation, got %d", seen)
    }
}
