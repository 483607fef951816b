package models

import "time"

type SurchargeReason string

const (
	ReasonPremium SurchargeReason = "premium"
	ReasonWeekend SurchargeReason = "weekend"
	ReasonSameDay SurchargeReason = "same_day"
	ReasonNextDay SurchargeReason = "next_day"
	ReasonHoliday SurchargeReason = "holiday"
)

type Surcharge struct {
	Reason     SurchargeReason `json:"reason"`
	Multiplier float64         `json:"multiplier"`
}

// PriceQuote is derived from a Service and a BookingSelection and never stored by the engine.
type PriceQuote struct {
	ServiceID         string          `json:"service_id"`
	Category          ServiceCategory `json:"category"`
	Units             int             `json:"units"`
	ScheduledAt       time.Time       `json:"scheduled_at"`
	DaysUntilService  int             `json:"days_until_service"`
	BasePrice         float64         `json:"base_price"`
	AppliedSurcharges []Surcharge     `json:"applied_surcharges"`
	FinalPrice        float64         `json:"final_price"`
}

// Multiplier is the product of all applied surcharges.
func (q PriceQuote) Multiplier() float64 {
	m := 1.0
	for _, s := range q.AppliedSurcharges {
		m *= s.Multiplier
	}
	return m
}

func (q PriceQuote) HasSurcharge(reason SurchargeReason) bool {
	for _, s := range q.AppliedSurcharges {
		if s.Reason == reason {
			return true
		}
	}
	return false
}

// QuoteRecord is a submitted quote kept in the local ledger.
type QuoteRecord struct {
	ID             int64           `json:"id"`
	IdempotencyKey string          `json:"idempotency_key"`
	JobID          string          `json:"job_id"`
	ServiceID      string          `json:"service_id"`
	Category       ServiceCategory `json:"category"`
	BasePrice      float64         `json:"base_price"`
	Surcharges     []Surcharge     `json:"surcharges"`
	FinalPrice     float64         `json:"final_price"`
	ScheduledAt    time.Time       `json:"scheduled_at"`
	CreatedAt      time.Time       `json:"created_at"`
}
