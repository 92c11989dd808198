package steppers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/softmech/rodsim/internal/simulation"
)

var (
	ErrUnknownStepper = errors.New("steppers: unknown stepper")
	ErrFinalTime      = errors.New("steppers: final time must be positive and finite")
	ErrTotalSteps     = errors.New("steppers: total steps must be positive")
	ErrDiverged       = errors.New("steppers: state is no longer finite")
)

// StepError reports where an integration run stopped.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("steppers: step %d at t=%g: %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type integrateConfig struct {
	checkEvery int
	progress   func(step int, time float64)
}

// IntegrateOption configures an Integrate run.
type IntegrateOption func(*integrateConfig)

// WithFinitenessCheck validates block positions and velocities every n
// steps and stops the run with ErrDiverged when a value goes NaN or
// infinite. n <= 0 disables the check.
func WithFinitenessCheck(n int) IntegrateOption {
	return func(cfg *integrateConfig) { cfg.checkEvery = n }
}

// WithProgress calls fn after every completed step.
func WithProgress(fn func(step int, time float64)) IntegrateOption {
	return func(cfg *integrateConfig) { cfg.progress = fn }
}

// Integrate advances a finalized collection from t=0 to finalTime in
// totalSteps equal steps. It stops early on context cancellation or
// divergence, returning the time reached together with a *StepError
// locating the failure.
func Integrate(ctx context.Context, stepper Stepper, c simulation.Collection, finalTime float64, totalSteps int, opts ...IntegrateOption) (float64, error) {
	if !(finalTime > 0) || finalTime > 1e300 {
		return 0, fmt.Errorf("%w: got %g", ErrFinalTime, finalTime)
	}
	if totalSteps <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrTotalSteps, totalSteps)
	}
	if !c.Finalized() {
		return 0, fmt.Errorf("steppers: %w", simulation.ErrNotFinalized)
	}
	var cfg integrateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	dt := finalTime / float64(totalSteps)
	time := 0.0
	for step := 1; step <= totalSteps; step++ {
		if err := ctx.Err(); err != nil {
			return time, &StepError{Step: step, Time: time, Err: err}
		}
		time = stepper.Step(c, time, dt)
		if cfg.checkEvery > 0 && step%cfg.checkEvery == 0 {
			if err := checkFinite(c); err != nil {
				return time, &StepError{Step: step, Time: time, Err: err}
			}
		}
		if cfg.progress != nil {
			cfg.progress(step, time)
		}
	}
	return time, nil
}

func checkFinite(c simulation.Collection) error {
	for bi, b := range c.Blocks() {
		for ni, p := range b.Positions() {
			if !p.IsFinite() {
				return fmt.Errorf("%w: block %d node %d position", ErrDiverged, bi, ni)
			}
		}
		for ni, v := range b.Velocities() {
			if !v.IsFinite() {
				return fmt.Errorf("%w: block %d node %d velocity", ErrDiverged, bi, ni)
			}
		}
	}
	return nil
}

// New returns the stepper registered under name. Matching is
// case-insensitive; "verlet" is accepted as shorthand.
func New(name string) (Stepper, error) {
	switch strings.ToLower(name) {
	case "position-verlet", "verlet":
		return PositionVerlet(), nil
	case "pefrl":
		return PEFRL(), nil
	}
	return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownStepper, name, strings.Join(Names(), ", "))
}

// Names lists the registered scheme names.
func Names() []string { return []string{"pefrl", "position-verlet"} }
