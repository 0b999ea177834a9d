package spread

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Match them with errors.Is.
var (
	// ErrConfiguration marks a missing or invalid scalar parameter.
	ErrConfiguration = errors.New("spread: configuration error")
	// ErrUnboundedState marks required rasters that are unset, mismatched in
	// size, or hold inconsistent host counts.
	ErrUnboundedState = errors.New("spread: rasters unset or inconsistent")
	// ErrStepExhausted is returned by RunStep once every configured step ran.
	ErrStepExhausted = errors.New("spread: all steps already executed")
	// ErrMissingWeatherData marks absent or unusable weather/temperature data
	// for the current step.
	ErrMissingWeatherData = errors.New("spread: weather data missing for step")
	// ErrRastersLocked is returned when rasters are reassigned after stepping began.
	ErrRastersLocked = errors.New("spread: rasters cannot be reassigned after stepping began")
)

// StepError wraps a failure with the step index at which it was detected.
// Rasters are untouched when a StepError is returned.
type StepError struct {
	Step int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
