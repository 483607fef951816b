package pricing

import (
	"time"

	"tasker/internal/models"
)

const (
	RulePremium  = "premium"
	RuleWeekend  = "weekend"
	RuleLeadTime = "lead_time"
	RuleHoliday  = "holiday"
)

// DefaultOrder is the order surcharges are multiplied in.
var DefaultOrder = []string{RulePremium, RuleWeekend, RuleLeadTime, RuleHoliday}

// QuoteContext is what a surcharge rule sees of the booking.
type QuoteContext struct {
	Category         models.ServiceCategory
	Selection        models.BookingSelection
	Date             time.Time
	DaysUntilService int
}

// Rule yields at most one multiplicative surcharge.
type Rule interface {
	Name() string
	Apply(q QuoteContext) (models.Surcharge, bool)
}

type premiumRule struct{ multiplier float64 }

func (premiumRule) Name() string { return RulePremium }

func (r premiumRule) Apply(q QuoteContext) (models.Surcharge, bool) {
	if q.Category != models.CategoryCleaning || !q.Selection.AddOns.Premium {
		return models.Surcharge{}, false
	}
	return models.Surcharge{Reason: models.ReasonPremium, Multiplier: r.multiplier}, true
}

type weekendRule struct{ multiplier float64 }

func (weekendRule) Name() string { return RuleWeekend }

func (r weekendRule) Apply(q QuoteContext) (models.Surcharge, bool) {
	switch q.Date.Weekday() {
	case time.Saturday, time.Sunday:
		return models.Surcharge{Reason: models.ReasonWeekend, Multiplier: r.multiplier}, true
	}
	return models.Surcharge{}, false
}

type leadTimeRule struct {
	sameDay float64
	nextDay float64
}

func (leadTimeRule) Name() string { return RuleLeadTime }

func (r leadTimeRule) Apply(q QuoteContext) (models.Surcharge, bool) {
	switch {
	case q.DaysUntilService <= 0:
		return models.Surcharge{Reason: models.ReasonSameDay, Multiplier: r.sameDay}, true
	case q.DaysUntilService == 1:
		return models.Surcharge{Reason: models.ReasonNextDay, Multiplier: r.nextDay}, true
	}
	return models.Surcharge{}, false
}

type holidayRule struct {
	multiplier float64
	calendar   *Calendar
}

func (holidayRule) Name() string { return RuleHoliday }

func (r holidayRule) Apply(q QuoteContext) (models.Surcharge, bool) {
	if !r.calendar.IsHoliday(q.Date) {
		return models.Surcharge{}, false
	}
	return models.Surcharge{Reason: models.ReasonHoliday, Multiplier: r.multiplier}, true
}
