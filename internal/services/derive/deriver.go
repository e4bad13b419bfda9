package derive

import (
    "math"

    "GridPulse/internal/domain/models"
)

// SpikeNote is the note attached to anomalous readings.
const SpikeNote = "High usage spike"

// Tariff holds the pricing plan applied at derivation time.
type Tariff struct {
    FlatRate       float64
    SpikeThreshold float64
}

// TariffDeriver computes cost and anomaly flags from a flat tariff.
// Derive is pure; two calls with the same reading always agree.
type TariffDeriver struct {
    tariff Tariff
}

func NewTariffDeriver(t Tariff) *TariffDeriver {
    return &TariffDeriver{tariff: t}
}

func (d *TariffDeriver) Derive(r models.Reading) models.DerivedOutput {
    out := models.DerivedOutput{
        Cost: round4(r.Kwh * d.tariff.FlatRate),
    }
    if r.Kwh > d.tariff.SpikeThreshold {
        out.Anomaly = true
        out.AnomalyNote = SpikeNote
    }
    return out
}

// round4 rounds to 4 decimal places, half away from zero.
func round4(v float64) float64 {
    return math.Round(v*10000) / 10000
}
