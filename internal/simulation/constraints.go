package simulation

import "fmt"

// ConstraintHandle is one declared boundary condition on a single system.
type ConstraintHandle struct {
	sysIdx  int
	factory ConstraintFactory
}

// Using binds the constraint factory. The factory receives the
// constrained system at finalize, so it can capture reference poses.
func (h *ConstraintHandle) Using(factory ConstraintFactory) *ConstraintHandle {
	h.factory = factory
	return h
}

// Constraints is the feature module that enforces boundary conditions
// between sub-steps.
type Constraints struct {
	sim      *Simulator
	declared []*ConstraintHandle
}

// NewConstraints installs the constraints module on sim.
func NewConstraints(sim *Simulator) (*Constraints, error) {
	c := &Constraints{sim: sim}
	if err := sim.installModule("constraints", c.finalize); err != nil {
		return nil, err
	}
	return c, nil
}

// Constrain declares a boundary condition on a system.
func (c *Constraints) Constrain(ref any) (*ConstraintHandle, error) {
	if c.sim.finalized {
		return nil, ErrFinalized
	}
	idx, err := c.sim.Index(ref)
	if err != nil {
		return nil, fmt.Errorf("constraints: %w", err)
	}
	h := &ConstraintHandle{sysIdx: idx}
	c.declared = append(c.declared, h)
	return h, nil
}

func (c *Constraints) finalize(*Report) error {
	for _, h := range c.declared {
		if h.factory == nil {
			return fmt.Errorf("%w: constraint on system %d (did you forget to call Using?)",
				ErrNoAlgorithm, h.sysIdx)
		}
		target := c.sim.systems[h.sysIdx]
		constraint, err := h.factory(target)
		if err != nil {
			return fmt.Errorf("%w: constraint on system %d: %v", ErrConstruction, h.sysIdx, err)
		}
		c.sim.constrainValues.Append(func(time float64) { constraint.ConstrainValues(target, time) })
		c.sim.constrainRates.Append(func(time float64) { constraint.ConstrainRates(target, time) })
	}
	return nil
}
