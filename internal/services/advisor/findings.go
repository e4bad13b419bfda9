package advisor

import (
    "GridPulse/internal/domain/models"
)

// detectRuns finds stretches of consecutive samples above the active
// threshold. A run shorter than MinRunLength is ignored.
func detectRuns(records []*models.MeterRecord, p Policy) []models.AdvisorFinding {
    findings := []models.AdvisorFinding{}

    runStart := -1
    runKwh := 0.0
    flush := func(endIdx int) {
        if runStart < 0 {
            return
        }
        length := endIdx - runStart
        if length >= p.MinRunLength {
            findings = append(findings, models.AdvisorFinding{
                Kind:  models.FindingContinuousUsage,
                Start: records[runStart].Reading.Timestamp,
                End:   records[endIdx-1].Reading.Timestamp,
                Value: runKwh,
            })
        }
        runStart = -1
        runKwh = 0
    }

    for i, rec := range records {
        if rec.Reading.Kwh > p.ActiveThreshold {
            if runStart < 0 {
                runStart = i
            }
            runKwh += rec.Reading.Kwh
            continue
        }
        flush(i)
    }
    flush(len(records))

    return findings
}

// detectPeakUsage reports when the share of consumption inside the peak
// hour window exceeds the policy share.
func detectPeakUsage(records []*models.MeterRecord, p Policy) (models.AdvisorFinding, bool) {
    total := 0.0
    peak := 0.0
    for _, rec := range records {
        total += rec.Reading.Kwh
        h := rec.Reading.Timestamp.Hour()
        if h >= p.PeakStartHour && h < p.PeakEndHour {
            peak += rec.Reading.Kwh
        }
    }
    if total <= 0 {
        return models.AdvisorFinding{}, false
    }
    share := peak / total
    if share < p.PeakShare {
        return models.AdvisorFinding{}, false
    }
    return models.AdvisorFinding{
        Kind:  models.FindingPeakUsage,
        Start: records[0].Reading.Timestamp,
        End:   records[len(records)-1].Reading.Timestamp,
        Value: share,
    }, true
}

// detectStandbyDrain reports persistent low but nonzero draw.
func detectStandbyDrain(records []*models.MeterRecord, p Policy) (models.AdvisorFinding, bool) {
    count := 0
    drain := 0.0
    for _, rec := range records {
        kwh := rec.Reading.Kwh
        if kwh > 0 && kwh < p.StandbyThreshold {
            count++
            drain += kwh
        }
    }
    if count < p.MinRunLength {
        return models.AdvisorFinding{}, false
    }
    return models.AdvisorFinding{
        Kind:  models.FindingStandbyDrain,
        Start: records[0].Reading.Timestamp,
        End:   records[len(records)-1].Reading.Timestamp,
        Value: drain,
    }, true
}
