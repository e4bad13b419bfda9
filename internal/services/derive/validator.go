package derive

import (
    "fmt"
    "math"

    "GridPulse/internal/domain/models"
    "GridPulse/pkg/util"
)

// Validator normalizes raw readings into UTC Readings. It holds no state
// and is safe for concurrent use.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// Validate checks identity, timestamp and consumption. It never touches
// storage; a reading that fails here is rejected before any write.
func (v *Validator) Validate(raw *models.RawReading) (models.Reading, error) {
    if raw == nil {
        return models.Reading{}, models.ErrInvalidReading
    }
    if raw.CustomerID < 1 {
        return models.Reading{}, fmt.Errorf("%w: customer_id %d", models.ErrInvalidReading, raw.CustomerID)
    }
    if math.IsNaN(raw.Kwh) || math.IsInf(raw.Kwh, 0) || raw.Kwh < 0 {
        return models.Reading{}, fmt.Errorf("%w: kwh %v", models.ErrInvalidReading, raw.Kwh)
    }
    if err := checkOptional("voltage", raw.Voltage); err != nil {
        return models.Reading{}, err
    }
    if err := checkOptional("current", raw.Current); err != nil {
        return models.Reading{}, err
    }
    ts, ok := util.ParseTime(raw.Timestamp)
    if !ok {
        return models.Reading{}, fmt.Errorf("%w: %q", models.ErrMalformedTimestamp, raw.Timestamp)
    }
    return models.Reading{
        CustomerID: raw.CustomerID,
        Timestamp:  ts.UTC(),
        Kwh:        raw.Kwh,
        Voltage:    raw.Voltage,
        Current:    raw.Current,
    }, nil
}

// checkOptional validates an optional electrical attribute. Absent is fine;
// present values must be finite and non-negative.
func checkOptional(name string, v *float64) error {
    if v == nil {
        return nil
    }
    if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
        return fmt.Errorf("%w: %s %v", models.ErrInvalidReading, name, *v)
    }
    return nil
}
