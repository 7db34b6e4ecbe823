package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the valuation engine.
//
// Soft failures (ErrDataUnavailable, ErrInsufficientData) are handled locally:
// the affected input is replaced by a documented default from DefaultAssumptions,
// the substitution is logged, and computation continues. They never reach the
// caller raw.
//
// Hard failures (ErrInvalidAssumption, ErrConfiguration) abort the computation
// path and surface to the caller. A mathematically undefined configuration must
// never be silently computed through.
var (
	ErrDataUnavailable   = errors.New("data unavailable")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrInvalidAssumption = errors.New("invalid assumption")
	ErrConfiguration     = errors.New("configuration error")
)

// DataUnavailablef wraps ErrDataUnavailable with context.
func DataUnavailablef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataUnavailable, fmt.Sprintf(format, args...))
}

// InsufficientDataf wraps ErrInsufficientData with context.
func InsufficientDataf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, fmt.Sprintf(format, args...))
}

// InvalidAssumptionf wraps ErrInvalidAssumption with context.
func InvalidAssumptionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAssumption, fmt.Sprintf(format, args...))
}

// Configurationf wraps ErrConfiguration with context.
func Configurationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
