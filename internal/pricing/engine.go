// Package pricing computes booking quotes from backend service pricing and a selection.
//
// A quote is the category base total followed by multiplicative surcharges applied in
// a fixed order (premium, weekend, lead time, holiday by default).
package pricing

import (
	"fmt"
	"math"
	"time"

	"tasker/internal/domain"
	"tasker/internal/models"
)

type Config struct {
	PremiumMultiplier float64
	WeekendMultiplier float64
	SameDayMultiplier float64
	NextDayMultiplier float64
	HolidayMultiplier float64
	GasRefillFee      float64
	DrumRemovalFee    float64
	Order             []string
	Calendar          *Calendar
	Location          *time.Location
}

func DefaultConfig() Config {
	return Config{
		PremiumMultiplier: 1.3,
		WeekendMultiplier: 1.2,
		SameDayMultiplier: 1.5,
		NextDayMultiplier: 1.2,
		HolidayMultiplier: 1.3,
		GasRefillFee:      models.GasRefillFee,
		DrumRemovalFee:    models.DrumRemovalFee,
		Order:             append([]string(nil), DefaultOrder...),
		Calendar:          DefaultCalendar(),
		Location:          time.UTC,
	}
}

// Engine is stateless apart from its configuration; it is safe for concurrent use.
type Engine struct {
	cfg   Config
	rules []Rule
	now   func() time.Time
}

func NewEngine(cfg Config) (*Engine, error) {
	multipliers := map[string]float64{
		"premium":  cfg.PremiumMultiplier,
		"weekend":  cfg.WeekendMultiplier,
		"same_day": cfg.SameDayMultiplier,
		"next_day": cfg.NextDayMultiplier,
		"holiday":  cfg.HolidayMultiplier,
	}
	for name, m := range multipliers {
		if m < 1 {
			return nil, fmt.Errorf("%s multiplier must be >= 1, got %v", name, m)
		}
	}
	if cfg.GasRefillFee < 0 || cfg.DrumRemovalFee < 0 {
		return nil, fmt.Errorf("add-on fees must not be negative")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Calendar == nil {
		cfg.Calendar = DefaultCalendar()
	}
	if len(cfg.Order) == 0 {
		cfg.Order = append([]string(nil), DefaultOrder...)
	}

	available := map[string]Rule{
		RulePremium:  premiumRule{multiplier: cfg.PremiumMultiplier},
		RuleWeekend:  weekendRule{multiplier: cfg.WeekendMultiplier},
		RuleLeadTime: leadTimeRule{sameDay: cfg.SameDayMultiplier, nextDay: cfg.NextDayMultiplier},
		RuleHoliday:  holidayRule{multiplier: cfg.HolidayMultiplier, calendar: cfg.Calendar},
	}
	rules := make([]Rule, 0, len(cfg.Order))
	seen := make(map[string]bool, len(cfg.Order))
	for _, name := range cfg.Order {
		rule, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("unknown surcharge rule %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("surcharge rule %q listed twice", name)
		}
		seen[name] = true
		rules = append(rules, rule)
	}

	return &Engine{cfg: cfg, rules: rules, now: time.Now}, nil
}

// WithClock returns a copy of the engine reading "now" from clock.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	cp := *e
	cp.now = clock
	return &cp
}

func (e *Engine) Location() *time.Location {
	return e.cfg.Location
}

// RuleNames returns the surcharge rules in application order.
func (e *Engine) RuleNames() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// ComputeQuote quotes the selection against the engine clock.
func (e *Engine) ComputeQuote(service models.Service, sel models.BookingSelection) (models.PriceQuote, error) {
	return e.Quote(service, sel, e.now())
}

// Quote is the pure form of ComputeQuote: the same inputs always give the same quote.
func (e *Engine) Quote(service models.Service, sel models.BookingSelection, now time.Time) (models.PriceQuote, error) {
	if !service.Category.IsValid() {
		return models.PriceQuote{}, domain.MissingPricingData("service %q has no pricing category", service.ID)
	}
	if sel.ScheduledDate.IsZero() {
		return models.PriceQuote{}, domain.InvalidSelection("scheduled date is required")
	}
	scheduledAt, err := sel.ScheduledAt(e.cfg.Location)
	if err != nil {
		return models.PriceQuote{}, domain.InvalidSelection("%v", err)
	}

	base, units, err := e.baseTotal(service, sel)
	if err != nil {
		return models.PriceQuote{}, err
	}

	y, m, d := sel.ScheduledDate.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	qctx := QuoteContext{
		Category:         service.Category,
		Selection:        sel,
		Date:             date,
		DaysUntilService: daysBetween(now.In(e.cfg.Location), date),
	}

	running := base
	surcharges := make([]models.Surcharge, 0, len(e.rules))
	for _, rule := range e.rules {
		s, ok := rule.Apply(qctx)
		if !ok {
			continue
		}
		running *= s.Multiplier
		surcharges = append(surcharges, s)
	}

	return models.PriceQuote{
		ServiceID:         service.ID,
		Category:          service.Category,
		Units:             units,
		ScheduledAt:       scheduledAt,
		DaysUntilService:  qctx.DaysUntilService,
		BasePrice:         base,
		AppliedSurcharges: surcharges,
		FinalPrice:        math.Round(running),
	}, nil
}

// baseTotal returns the pre-surcharge total and the billed units (hours, units or machines).
func (e *Engine) baseTotal(service models.Service, sel models.BookingSelection) (float64, int, error) {
	switch service.Category {
	case models.CategoryCleaning:
		if sel.Quantity != 0 || len(sel.Machines) > 0 {
			return 0, 0, domain.InvalidSelection("house cleaning is billed by duration only")
		}
		if sel.AddOns.GasRefill {
			return 0, 0, domain.InvalidSelection("gas refill is only available for air conditioner service")
		}
		if sel.DurationHours < 1 {
			return 0, 0, domain.InvalidSelection("duration_hours must be at least 1, got %d", sel.DurationHours)
		}
		base, perHour, err := hourlyPricing(service)
		if err != nil {
			return 0, 0, err
		}
		return base + perHour*float64(sel.DurationHours), sel.DurationHours, nil

	case models.CategoryAirConditioner:
		if sel.DurationHours != 0 || len(sel.Machines) > 0 {
			return 0, 0, domain.InvalidSelection("air conditioner service is billed by quantity only")
		}
		if sel.AddOns.Premium {
			return 0, 0, domain.InvalidSelection("premium is only available for house cleaning")
		}
		if sel.Quantity < 1 {
			return 0, 0, domain.InvalidSelection("quantity must be at least 1, got %d", sel.Quantity)
		}
		base, perUnit, err := hourlyPricing(service)
		if err != nil {
			return 0, 0, err
		}
		total := base + perUnit*float64(sel.Quantity)
		if sel.AddOns.GasRefill {
			total += e.cfg.GasRefillFee
		}
		return total, sel.Quantity, nil

	case models.CategoryWashingMachine:
		if sel.DurationHours != 0 || sel.Quantity != 0 {
			return 0, 0, domain.InvalidSelection("washing machine service is billed per machine")
		}
		if sel.AddOns.Premium || sel.AddOns.GasRefill {
			return 0, 0, domain.InvalidSelection("premium and gas refill are not available for washing machine service")
		}
		if len(sel.Machines) == 0 {
			return 0, 0, domain.InvalidSelection("at least one machine is required")
		}
		var total float64
		for i, machine := range sel.Machines {
			unit, err := machinePrice(service, machine.Type)
			if err != nil {
				return 0, 0, fmt.Errorf("machine %d: %w", i+1, err)
			}
			total += unit
			if machine.DrumRemoval {
				total += e.cfg.DrumRemovalFee
			}
		}
		return total, len(sel.Machines), nil
	}
	return 0, 0, domain.MissingPricingData("unsupported category %q", service.Category)
}

func hourlyPricing(service models.Service) (float64, float64, error) {
	base, err := requirePrice(service.ID, "base_price", service.BasePrice)
	if err != nil {
		return 0, 0, err
	}
	perHour, err := requirePrice(service.ID, "price_per_hour", service.PricePerHour)
	if err != nil {
		return 0, 0, err
	}
	return base, perHour, nil
}

func machinePrice(service models.Service, t models.MachineType) (float64, error) {
	switch t {
	case models.MachineTopLoad:
		return requirePrice(service.ID, "top_load", service.TopLoadPrice)
	case models.MachineFrontLoad:
		return requirePrice(service.ID, "front_load", service.FrontLoadPrice)
	}
	return 0, domain.InvalidSelection("unknown machine type %q", t)
}

func requirePrice(serviceID, field string, v *float64) (float64, error) {
	if v == nil {
		return 0, domain.MissingPricingData("service %q has no %s", serviceID, field)
	}
	if *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, domain.MissingPricingData("service %q has invalid %s %v", serviceID, field, *v)
	}
	return *v, nil
}
