package models

import (
	"errors"
	"time"
)

// Validation errors returned before anything touches storage.
var (
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrInvalidReading     = errors.New("invalid reading")
)

// RawReading is a reading as it arrives from the edge, timestamp still
// unparsed. Voltage and current are optional; meters that do not report
// them leave the pointers nil.
type RawReading struct {
	CustomerID int64
	Timestamp  string
	Kwh        float64
	Voltage    *float64
	Current    *float64
}

// Reading is a validated meter sample. Timestamp is always UTC.
type Reading struct {
	CustomerID int64
	Timestamp  time.Time
	Kwh        float64
	Voltage    *float64
	Current    *float64
}

// DerivedOutput holds values computed from a reading at ingest time.
// AnomalyNote is empty when the reading is not anomalous.
type DerivedOutput struct {
	Cost        float64
	Anomaly     bool
	AnomalyNote string
}

// MeterRecord is the stored unit: a reading together with its derived output.
// The two are written in one operation and never observed apart. Source
// names the ingestion path that persisted the record.
type MeterRecord struct {
	Reading Reading
	Derived DerivedOutput
	Source  string
}

// Payment is a customer payment against their balance.
type Payment struct {
	CustomerID int64     `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

// UsageBucket is one aggregation period with summed usage and cost.
type UsageBucket struct {
	Period time.Time `json:"period"`
	Label  string    `json:"label"`
	Kwh    float64   `json:"kwh"`
	Cost   float64   `json:"cost"`
}

// BillingStatement is the current billing position for a customer.
// DueDate is nil when there is no billable usage.
type BillingStatement struct {
	CustomerID  int64      `json:"customer_id"`
	PeriodLabel string     `json:"period,omitempty"`
	UsageKwh    float64    `json:"usage_kwh"`
	UsageCost   float64    `json:"usage_cost"`
	Paid        float64    `json:"paid"`
	AmountDue   float64    `json:"amount_due"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	LastPayment *Payment   `json:"last_payment,omitempty"`
}
