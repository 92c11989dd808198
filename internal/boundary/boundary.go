// Package boundary provides boundary-condition kernels: pose clamps and
// rate dampers that the constraints module enforces between sub-steps.
package boundary

import (
	"errors"
	"fmt"
	"math"

	"github.com/softmech/rodsim/internal/linalg"
	"github.com/softmech/rodsim/internal/simulation"
)

// ErrBadBoundary reports invalid boundary-condition parameters.
var ErrBadBoundary = errors.New("boundary: bad parameters")

// Free leaves the system unconstrained. Declaring it keeps the boundary
// condition explicit in scenario files.
func Free() simulation.ConstraintFactory {
	return func(simulation.System) (simulation.Constraint, error) {
		return free{}, nil
	}
}

type free struct{}

func (free) ConstrainValues(simulation.System, float64) {}
func (free) ConstrainRates(simulation.System, float64)  {}

// ClampEnd fixes the first node and, when the system carries director
// frames, the first element to the pose they hold at finalize time.
func ClampEnd() simulation.ConstraintFactory {
	return func(s simulation.System) (simulation.Constraint, error) {
		if s.NodeCount() < 1 {
			return nil, fmt.Errorf("%w: clamp needs at least one node", ErrBadBoundary)
		}
		c := &clampEnd{position: s.Positions()[0]}
		if dirs := s.Directors(); len(dirs) > 0 {
			c.hasFrame = true
			c.director = dirs[0]
		}
		return c, nil
	}
}

type clampEnd struct {
	position linalg.Vec3
	director linalg.Mat3
	hasFrame bool
}

func (c *clampEnd) ConstrainValues(s simulation.System, _ float64) {
	s.Positions()[0] = c.position
	if c.hasFrame {
		s.Directors()[0] = c.director
	}
}

func (c *clampEnd) ConstrainRates(s simulation.System, _ float64) {
	s.Velocities()[0] = linalg.Vec3{}
	if c.hasFrame {
		s.AngularVelocities()[0] = linalg.Vec3{}
	}
}

// ExponentialDamper scales every translational and angular rate by
// exp(-gamma*dt) at each rates pass. With the position Verlet stepper
// that is once per time step.
func ExponentialDamper(gamma, dt float64) simulation.ConstraintFactory {
	return func(simulation.System) (simulation.Constraint, error) {
		if gamma < 0 {
			return nil, fmt.Errorf("%w: damping rate %g is negative", ErrBadBoundary, gamma)
		}
		if dt <= 0 {
			return nil, fmt.Errorf("%w: damper time step %g must be positive", ErrBadBoundary, dt)
		}
		return &damper{factor: math.Exp(-gamma * dt)}, nil
	}
}

type damper struct {
	factor float64
}

func (*damper) ConstrainValues(simulation.System, float64) {}

func (d *damper) ConstrainRates(s simulation.System, _ float64) {
	vel := s.Velocities()
	for i := range vel {
		vel[i] = vel[i].Scale(d.factor)
	}
	omega := s.AngularVelocities()
	for i := range omega {
		omega[i] = omega[i].Scale(d.factor)
	}
}
