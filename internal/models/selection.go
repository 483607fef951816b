package models

import (
	"fmt"
	"strings"
	"time"
)

type MachineType string

const (
	MachineTopLoad   MachineType = "top_load"
	MachineFrontLoad MachineType = "front_load"
)

func (t MachineType) IsValid() bool {
	return t == MachineTopLoad || t == MachineFrontLoad
}

// WashingMachine is one line of the washing-machine cart.
type WashingMachine struct {
	Type        MachineType `json:"type" validate:"required,oneof=top_load front_load"`
	DrumRemoval bool        `json:"drum_removal"`
}

type AddOns struct {
	Premium   bool `json:"premium"`
	GasRefill bool `json:"gas_refill"`
}

type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// BookingSelection is the immutable snapshot of everything the booking screens collected.
type BookingSelection struct {
	ServiceID     string           `json:"service_id"`
	ScheduledDate time.Time        `json:"scheduled_date"`
	ScheduledTime TimeOfDay        `json:"scheduled_time"`
	DurationHours int              `json:"duration_hours,omitempty"`
	Quantity      int              `json:"quantity,omitempty"`
	Machines      []WashingMachine `json:"machines,omitempty"`
	AddOns        AddOns           `json:"add_ons"`
	Address       string           `json:"address,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	WeeklyRepeat  bool             `json:"weekly_repeat,omitempty"`
}

// ScheduledAt resolves date and time of day into a single instant in loc.
func (s BookingSelection) ScheduledAt(loc *time.Location) (time.Time, error) {
	if s.ScheduledDate.IsZero() {
		return time.Time{}, fmt.Errorf("scheduled date is required")
	}
	if s.ScheduledTime.Hour < 0 || s.ScheduledTime.Hour > 23 || s.ScheduledTime.Minute < 0 || s.ScheduledTime.Minute > 59 {
		return time.Time{}, fmt.Errorf("invalid time of day %s", s.ScheduledTime)
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := s.ScheduledDate.Date()
	return time.Date(y, m, d, s.ScheduledTime.Hour, s.ScheduledTime.Minute, 0, 0, loc), nil
}

// SelectionInput is the wire form of a BookingSelection as the screens send it.
type SelectionInput struct {
	ServiceID     string           `json:"service_id" validate:"required"`
	ScheduledDate string           `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	ScheduledTime string           `json:"scheduled_time" validate:"omitempty,datetime=15:04"`
	DurationHours int              `json:"duration_hours,omitempty" validate:"gte=0,lte=24"`
	Quantity      int              `json:"quantity,omitempty" validate:"gte=0,lte=50"`
	Machines      []WashingMachine `json:"machines,omitempty" validate:"omitempty,max=20,dive"`
	AddOns        AddOns           `json:"add_ons"`
	Address       string           `json:"address,omitempty" validate:"max=500"`
	Notes         string           `json:"notes,omitempty" validate:"max=1000"`
	WeeklyRepeat  bool             `json:"weekly_repeat,omitempty"`
}

// Parse converts the wire form into a BookingSelection. Dates are read in loc.
// An empty time of day defaults to 08:00.
func (in SelectionInput) Parse(loc *time.Location) (BookingSelection, error) {
	if loc == nil {
		loc = time.UTC
	}
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(in.ScheduledDate), loc)
	if err != nil {
		return BookingSelection{}, fmt.Errorf("invalid scheduled_date %q: %w", in.ScheduledDate, err)
	}

	tod := TimeOfDay{Hour: 8}
	if raw := strings.TrimSpace(in.ScheduledTime); raw != "" {
		t, err := time.Parse(TimeOfDayLayout, raw)
		if err != nil {
			return BookingSelection{}, fmt.Errorf("invalid scheduled_time %q: %w", in.ScheduledTime, err)
		}
		tod = TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
	}

	return BookingSelection{
		ServiceID:     strings.TrimSpace(in.ServiceID),
		ScheduledDate: date,
		ScheduledTime: tod,
		DurationHours: in.DurationHours,
		Quantity:      in.Quantity,
		Machines:      append([]WashingMachine(nil), in.Machines...),
		AddOns:        in.AddOns,
		Address:       strings.TrimSpace(in.Address),
		Notes:         strings.TrimSpace(in.Notes),
		WeeklyRepeat:  in.WeeklyRepeat,
	}, nil
}

const (
	StepService = "select_service"
	StepPackage = "select_package"
	StepAddress = "select_address"
	StepTime    = "select_time"
	StepConfirm = "confirmation"
)

// Draft holds a selection in progress between screens, keyed by session.
type Draft struct {
	SessionKey string         `json:"session_key"`
	Step       string         `json:"step"`
	Selection  SelectionInput `json:"selection"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
