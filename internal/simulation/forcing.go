package simulation

import "fmt"

// ForcingHandle is one declared external force law on a single system.
type ForcingHandle struct {
	sysIdx  int
	factory ForcingFactory
}

// Using binds the force-law factory. The last call before finalize wins.
func (h *ForcingHandle) Using(factory ForcingFactory) *ForcingHandle {
	h.factory = factory
	return h
}

// Forcing is the feature module that applies external loads during
// synchronize.
type Forcing struct {
	sim      *Simulator
	declared []*ForcingHandle
}

// NewForcing installs the forcing module on sim.
func NewForcing(sim *Simulator) (*Forcing, error) {
	f := &Forcing{sim: sim}
	if err := sim.installModule("forcing", f.finalize); err != nil {
		return nil, err
	}
	return f, nil
}

// AddTo declares an external force law on a system and reserves its
// synchronize position.
func (f *Forcing) AddTo(ref any) (*ForcingHandle, error) {
	if f.sim.finalized {
		return nil, ErrFinalized
	}
	idx, err := f.sim.Index(ref)
	if err != nil {
		return nil, fmt.Errorf("forcing: %w", err)
	}
	h := &ForcingHandle{sysIdx: idx}
	if err := f.sim.synchronize.Reserve(h); err != nil {
		return nil, fmt.Errorf("forcing: %w", err)
	}
	f.declared = append(f.declared, h)
	return h, nil
}

// finalize fills each reserved slot with two operators under the same
// owner: forces first, torques second.
func (f *Forcing) finalize(*Report) error {
	for _, h := range f.declared {
		if h.factory == nil {
			return fmt.Errorf("%w: forcing on system %d (did you forget to call Using?)",
				ErrNoAlgorithm, h.sysIdx)
		}
		forcer, err := h.factory()
		if err != nil {
			return fmt.Errorf("%w: forcing on system %d: %v", ErrConstruction, h.sysIdx, err)
		}
		target := f.sim.systems[h.sysIdx]
		applyForces := func(time float64) { forcer.ApplyForces(target, time) }
		applyTorques := func(time float64) { forcer.ApplyTorques(target, time) }
		if err := f.sim.synchronize.Add(h, applyForces, applyTorques); err != nil {
			return fmt.Errorf("forcing: %w", err)
		}
	}
	return nil
}
