package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrMissingPricingData = errors.New("missing pricing data")
	ErrUnknownService     = errors.New("unknown service")
	ErrGuardViolation     = errors.New("guard violation")
	ErrAlreadyRated       = errors.New("job already rated")
	ErrBackend            = errors.New("backend error")
	ErrJobNotFound        = errors.New("job not found")
	ErrRateLimited        = errors.New("too many requests")
	ErrPastSchedule       = errors.New("scheduled time is in the past")
	ErrDateTooFar         = errors.New("scheduled date is too far in the future")
)

// InvalidSelection wraps ErrInvalidSelection with a detail message.
func InvalidSelection(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSelection, fmt.Sprintf(format, args...))
}

// MissingPricingData wraps ErrMissingPricingData with a detail message.
func MissingPricingData(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMissingPricingData, fmt.Sprintf(format, args...))
}
