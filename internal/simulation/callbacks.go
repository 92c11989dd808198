package simulation

import "fmt"

// CallbackHandle is one declared observer on a single system.
type CallbackHandle struct {
	sysIdx  int
	factory CallbackFactory
}

// Using binds the observer factory. The last call before finalize wins.
func (h *CallbackHandle) Using(factory CallbackFactory) *CallbackHandle {
	h.factory = factory
	return h
}

// Callbacks is the feature module that hands system snapshots to
// observers after completed steps.
type Callbacks struct {
	sim      *Simulator
	declared []*CallbackHandle
}

// NewCallbacks installs the callbacks module on sim.
func NewCallbacks(sim *Simulator) (*Callbacks, error) {
	c := &Callbacks{sim: sim}
	if err := sim.installModule("callbacks", c.finalize); err != nil {
		return nil, err
	}
	return c, nil
}

// ObserveOf declares an observer of a system.
func (c *Callbacks) ObserveOf(ref any) (*CallbackHandle, error) {
	if c.sim.finalized {
		return nil, ErrFinalized
	}
	idx, err := c.sim.Index(ref)
	if err != nil {
		return nil, fmt.Errorf("callbacks: %w", err)
	}
	h := &CallbackHandle{sysIdx: idx}
	c.declared = append(c.declared, h)
	return h, nil
}

func (c *Callbacks) finalize(*Report) error {
	for _, h := range c.declared {
		if h.factory == nil {
			return fmt.Errorf("%w: callback on system %d (did you forget to call Using?)",
				ErrNoAlgorithm, h.sysIdx)
		}
		observer, err := h.factory()
		if err != nil {
			return fmt.Errorf("%w: callback on system %d: %v", ErrConstruction, h.sysIdx, err)
		}
		target := c.sim.systems[h.sysIdx]
		c.sim.callbacks.Append(func(time float64, step int) { observer.OnStep(target, time, step) })
	}
	return nil
}
