package models

// Requests for meter HTTP endpoints. Defined in domain for consistency and reuse.

type IngestRequest struct {
	CustomerID int64    `json:"customer_id" validate:"required,gte=1"`
	Timestamp  string   `json:"timestamp" validate:"required"`
	Kwh        float64  `json:"kwh" validate:"gte=0"`
	Voltage    *float64 `json:"voltage" validate:"omitempty,gte=0"`
	Current    *float64 `json:"current" validate:"omitempty,gte=0"`
}

type LatestRequest struct {
	CustomerID int64 `query:"customer_id" json:"customer_id" validate:"required,gte=1"`
}

type AnalyticsRequest struct {
	CustomerID  int64  `query:"customer_id" json:"customer_id" validate:"required,gte=1"`
	Granularity string `query:"granularity" json:"granularity" default:"daily" validate:"oneof=daily monthly yearly"`
	From        string `query:"from" json:"from"`
	To          string `query:"to" json:"to"`
}

type BillingRequest struct {
	CustomerID int64 `query:"customer_id" json:"customer_id" validate:"required,gte=1"`
}

type PaymentRequest struct {
	CustomerID int64   `json:"customer_id" validate:"required,gte=1"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Timestamp  string  `json:"timestamp"`
}

type AdvisorRequest struct {
	CustomerID int64 `query:"customer_id" json:"customer_id" validate:"required,gte=1"`
	Days       int   `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
}
