package repository

import (
	"testing"
	"time"
)

func TestNormalizeGranularity(t *testing.T) {
	if g := NormalizeGranularity(""); g != Daily {
		t.Fatalf("empty should default to daily, got %s", g)
	}
	if g := NormalizeGranularity("monthly"); g != Monthly {
		t.Fatalf("expected monthly, got %s", g)
	}
	if g := NormalizeGranularity("weekly"); g != Daily {
		t.Fatalf("unknown should default to daily, got %s", g)
	}
}

func TestTruncatePeriod(t *testing.T) {
	ts := time.Date(2025, 9, 15, 13, 45, 12, 0, time.UTC)

	if got := TruncatePeriod(ts, Daily); !got.Equal(time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("daily truncate wrong: %v", got)
	}
	if got := TruncatePeriod(ts, Monthly); !got.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monthly truncate wrong: %v", got)
	}
	if got := TruncatePeriod(ts, Yearly); !got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("yearly truncate wrong: %v", got)
	}
}

func TestTruncatePeriodConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("plus5", 5*3600)
	// 02:30 on Jan 1 at +05:00 is still Dec 31 in UTC
	ts := time.Date(2026, 1, 1, 2, 30, 0, 0, loc)
	got := TruncatePeriod(ts, Daily)
	want := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNextPeriodBoundaries(t *testing.T) {
	dec := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	if got := NextPeriod(dec, Monthly); !got.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monthly rollover wrong: %v", got)
	}
	lastDay := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	if got := NextPeriod(lastDay, Daily); !got.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("daily rollover wrong: %v", got)
	}
	if got := NextPeriod(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Yearly); !got.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("yearly rollover wrong: %v", got)
	}
}

func TestPeriodLabels(t *testing.T) {
	p := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	if got := PeriodLabel(p, Monthly); got != "2025-09" {
		t.Fatalf("monthly label wrong: %s", got)
	}
	if got := PeriodLabel(p, Daily); got != "2025-09-01" {
		t.Fatalf("daily label wrong: %s", got)
	}
	if got := PeriodLabel(p, Yearly); got != "2025" {
		t.Fatalf("yearly label wrong: %s", got)
	}
}
