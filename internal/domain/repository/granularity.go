package repository

import "time"

// Granularity represents aggregation period resolution.
type Granularity string

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// IsValidGranularity returns true if g is a supported granularity.
func IsValidGranularity(g Granularity) bool {
	switch g {
	case Daily, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// DefaultGranularity returns the default granularity.
func DefaultGranularity() Granularity { return Daily }

// NormalizeGranularity converts raw string to a valid granularity (or default).
func NormalizeGranularity(s string) Granularity {
	if s == "" {
		return DefaultGranularity()
	}
	g := Granularity(s)
	if IsValidGranularity(g) {
		return g
	}
	return DefaultGranularity()
}

// TruncatePeriod returns the UTC start of the period containing t.
func TruncatePeriod(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	switch g {
	case Yearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// NextPeriod returns the start of the period following the one starting at p.
func NextPeriod(p time.Time, g Granularity) time.Time {
	switch g {
	case Yearly:
		return p.AddDate(1, 0, 0)
	case Monthly:
		return p.AddDate(0, 1, 0)
	default:
		return p.AddDate(0, 0, 1)
	}
}

// PeriodLabel formats a period start per granularity.
func PeriodLabel(p time.Time, g Granularity) string {
	switch g {
	case Yearly:
		return p.Format("2006")
	case Monthly:
		return p.Format("2006-01")
	default:
		return p.Format("2006-01-02")
	}
}
