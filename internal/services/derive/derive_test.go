package derive

import (
    "errors"
    "math"
    "testing"
    "time"

    "GridPulse/internal/domain/models"
)

func testTariff() Tariff {
    return Tariff{FlatRate: 0.18, SpikeThreshold: 5.0}
}

func TestDeriveCost(t *testing.T) {
    d := NewTariffDeriver(testTariff())
    out := d.Derive(models.Reading{CustomerID: 1, Kwh: 3.0})
    if out.Cost != 0.54 {
        t.Fatalf("expected cost 0.54, got %v", out.Cost)
    }
    if out.Anomaly {
        t.Fatalf("3.0 kwh should not be anomalous")
    }
    if out.AnomalyNote != "" {
        t.Fatalf("unexpected note %q", out.AnomalyNote)
    }
}

func TestDeriveCostRounding(t *testing.T) {
    d := NewTariffDeriver(testTariff())
    // 0.123 * 0.18 = 0.02214 rounds to 0.0221
    out := d.Derive(models.Reading{CustomerID: 1, Kwh: 0.123})
    if out.Cost != 0.0221 {
        t.Fatalf("expected cost 0.0221, got %v", out.Cost)
    }
}

func TestDeriveSpike(t *testing.T) {
    d := NewTariffDeriver(testTariff())
    out := d.Derive(models.Reading{CustomerID: 1, Kwh: 6.0})
    if !out.Anomaly {
        t.Fatalf("6.0 kwh should be anomalous")
    }
    if out.AnomalyNote != SpikeNote {
        t.Fatalf("expected note %q, got %q", SpikeNote, out.AnomalyNote)
    }
}

func TestDeriveThresholdExclusive(t *testing.T) {
    d := NewTariffDeriver(testTariff())
    out := d.Derive(models.Reading{CustomerID: 1, Kwh: 5.0})
    if out.Anomaly {
        t.Fatalf("exactly 5.0 kwh should not be anomalous")
    }
}

func TestDeriveCostLinearity(t *testing.T) {
    d := NewTariffDeriver(testTariff())
    // Doubling consumption doubles cost, up to the 4-decimal rounding.
    // Each result rounds independently, so the doubled side can drift by
    // half a unit and the single side by a full doubled half-unit.
    const tolerance = 1.5e-4
    for _, kwh := range []float64{0.7, 1.11, 2.345, 3.3335} {
        single := d.Derive(models.Reading{CustomerID: 1, Kwh: kwh})
        double := d.Derive(models.Reading{CustomerID: 1, Kwh: 2 * kwh})
        if diff := math.Abs(double.Cost - 2*single.Cost); diff > tolerance {
            t.Fatalf("kwh %v: cost %v vs doubled %v, diff %v", kwh, single.Cost, double.Cost, diff)
        }
    }
}

func TestDeriveDeterministic(t *testing.T) {
    d := NewTariffDeriver(testTariff())
    r := models.Reading{CustomerID: 7, Kwh: 2.345}
    a := d.Derive(r)
    b := d.Derive(r)
    if a != b {
        t.Fatalf("expected identical outputs, got %+v and %+v", a, b)
    }
}

func TestValidateNormalizesUTC(t *testing.T) {
    v := NewValidator()
    got, err := v.Validate(&models.RawReading{
        CustomerID: 1,
        Timestamp:  "2025-06-01T12:00:00+02:00",
        Kwh:        1.5,
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if got.Timestamp.Location() != time.UTC {
        t.Fatalf("expected UTC timestamp, got %v", got.Timestamp.Location())
    }
    if got.Timestamp.Hour() != 10 {
        t.Fatalf("expected 10:00 UTC, got %v", got.Timestamp)
    }
}

func TestValidateUnixSeconds(t *testing.T) {
    v := NewValidator()
    got, err := v.Validate(&models.RawReading{CustomerID: 1, Timestamp: "1750000000", Kwh: 0.2})
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if got.Timestamp.Unix() != 1750000000 {
        t.Fatalf("unexpected unix %v", got.Timestamp.Unix())
    }
}

func TestValidateMalformedTimestamp(t *testing.T) {
    v := NewValidator()
    _, err := v.Validate(&models.RawReading{CustomerID: 1, Timestamp: "not-a-time", Kwh: 1})
    if !errors.Is(err, models.ErrMalformedTimestamp) {
        t.Fatalf("expected ErrMalformedTimestamp, got %v", err)
    }
}

func TestValidateRejectsBadReadings(t *testing.T) {
    v := NewValidator()
    badVolt := -1.0
    badAmp := math.NaN()
    cases := []*models.RawReading{
        {CustomerID: 0, Timestamp: "2025-06-01T00:00:00Z", Kwh: 1},
        {CustomerID: -3, Timestamp: "2025-06-01T00:00:00Z", Kwh: 1},
        {CustomerID: 1, Timestamp: "2025-06-01T00:00:00Z", Kwh: -0.1},
        {CustomerID: 1, Timestamp: "2025-06-01T00:00:00Z", Kwh: 1, Voltage: &badVolt},
        {CustomerID: 1, Timestamp: "2025-06-01T00:00:00Z", Kwh: 1, Current: &badAmp},
        nil,
    }
    for i, raw := range cases {
        if _, err := v.Validate(raw); !errors.Is(err, models.ErrInvalidReading) {
            t.Fatalf("case %d: expected ErrInvalidReading, got %v", i, err)
        }
    }
}

func TestValidateCarriesElectricalAttributes(t *testing.T) {
    v := NewValidator()
    voltage, current := 230.2, 5.1

    got, err := v.Validate(&models.RawReading{
        CustomerID: 1,
        Timestamp:  "2025-06-01T00:00:00Z",
        Kwh:        1.2,
        Voltage:    &voltage,
        Current:    &current,
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if got.Voltage == nil || *got.Voltage != 230.2 {
        t.Fatalf("voltage not carried: %+v", got.Voltage)
    }
    if got.Current == nil || *got.Current != 5.1 {
        t.Fatalf("current not carried: %+v", got.Current)
    }

    // Absent attributes stay absent
    got, err = v.Validate(&models.RawReading{CustomerID: 1, Timestamp: "2025-06-01T00:00:00Z", Kwh: 1.2})
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if got.Voltage != nil || got.Current != nil {
        t.Fatalf("expected nil attributes, got %+v / %+v", got.Voltage, got.Current)
    }
}
