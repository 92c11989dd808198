package simulation

import "fmt"

// ContactHandle is one declared contact pair. Using binds the algorithm
// factory; construction itself waits until finalize.
type ContactHandle struct {
	first, second int
	factory       ContactFactory
}

// Using binds the algorithm that will resolve this pair. Calling it again
// replaces the previous binding; the last call before finalize wins.
func (h *ContactHandle) Using(factory ContactFactory) *ContactHandle {
	h.factory = factory
	return h
}

// Pair returns the resolved system indices of the declaration.
func (h *ContactHandle) Pair() (first, second int) { return h.first, h.second }

// Contact is the feature module that detects and resolves contact between
// system pairs during synchronize.
type Contact struct {
	sim      *Simulator
	declared []*ContactHandle
}

// NewContact installs the contact module on sim.
func NewContact(sim *Simulator) (*Contact, error) {
	c := &Contact{sim: sim}
	if err := sim.installModule("contact", c.finalize); err != nil {
		return nil, err
	}
	return c, nil
}

// DetectBetween declares contact between two systems, referenced either
// directly or by index. Both references resolve immediately, and the
// declaration reserves its position among the synchronize operators right
// away: where a contact acts relative to forcing and joints is decided by
// declaration order, not by when finalize fills the slot in.
func (c *Contact) DetectBetween(first, second any) (*ContactHandle, error) {
	if c.sim.finalized {
		return nil, ErrFinalized
	}
	firstIdx, err := c.sim.Index(first)
	if err != nil {
		return nil, fmt.Errorf("contact: first system: %w", err)
	}
	secondIdx, err := c.sim.Index(second)
	if err != nil {
		return nil, fmt.Errorf("contact: second system: %w", err)
	}
	h := &ContactHandle{first: firstIdx, second: secondIdx}
	if err := c.sim.synchronize.Reserve(h); err != nil {
		return nil, fmt.Errorf("contact: %w", err)
	}
	c.declared = append(c.declared, h)
	return h, nil
}

// finalize materializes every declaration in order: construct the
// algorithm, validate the pair against it, and fill the reserved
// synchronize slot with the bound operator. The operator captures
// indices, not pointers, so it reads whatever occupies those positions
// at call time.
func (c *Contact) finalize(r *Report) error {
	for _, h := range c.declared {
		if h.factory == nil {
			return fmt.Errorf("%w: contact between systems %d and %d (did you forget to call Using?)",
				ErrNoAlgorithm, h.first, h.second)
		}
		kernel, err := h.factory()
		if err != nil {
			return fmt.Errorf("%w: contact between systems %d and %d: %v",
				ErrConstruction, h.first, h.second, err)
		}
		if err := kernel.CheckCompatibility(c.sim.systems[h.first], c.sim.systems[h.second]); err != nil {
			return fmt.Errorf("%w: contact between systems %d and %d: %v",
				ErrIncompatible, h.first, h.second, err)
		}

		sim, first, second := c.sim, h.first, h.second
		apply := func(time float64) {
			kernel.Apply(sim.systems[first], sim.systems[second])
		}
		if err := c.sim.synchronize.Add(h, apply); err != nil {
			return fmt.Errorf("contact: %w", err)
		}

		if lo, ok := kernel.(LastOnly); ok && lo.LastOnly() && !c.sim.synchronize.IsLast(h) {
			r.Warnf("contact",
				"algorithm for systems %d and %d expects the final synchronized loads but other synchronize operators were declared after it",
				h.first, h.second)
		}
	}
	return nil
}
