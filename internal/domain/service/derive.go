package service

import (
	"GridPulse/internal/domain/models"
)

// ReadingValidator checks a raw reading and normalizes it to a UTC Reading.
type ReadingValidator interface {
	Validate(raw *models.RawReading) (models.Reading, error)
}

// Deriver computes per-reading derived values. Implementations must be
// deterministic and safe for concurrent use.
type Deriver interface {
	Derive(r models.Reading) models.DerivedOutput
}

// Advisor inspects a window of stored records and produces findings with
// matching recommendations.
type Advisor interface {
	Advise(customerID int64, records []*models.MeterRecord) models.AdvisorReport
}
