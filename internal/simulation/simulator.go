package simulation

import (
	"fmt"

	"github.com/softmech/rodsim/internal/ops"
)

// Feature-group operator shapes. Synchronize and the two constrain groups
// take the current simulation time; callbacks also receive the completed
// step count; finalize operators run once and may fail.
type (
	timeOp     = func(time float64)
	stepOp     = func(time float64, step int)
	finalizeOp = func(r *Report) error
)

// Simulator owns the ordered system sequence and the feature groups that
// modules populate. It is mutable until Finalize, then stepped through
// the [Collection] interface.
type Simulator struct {
	systems []System
	blocks  []System

	synchronize     ops.Group[timeOp]
	constrainValues ops.Group[timeOp]
	constrainRates  ops.Group[timeOp]
	callbacks       ops.Group[stepOp]
	finalizeOps     ops.Group[finalizeOp]

	allowed   []TypeRule
	modules   map[string]struct{}
	aggregate Aggregator
	finalized bool
}

// Option configures a Simulator at construction.
type Option func(*Simulator)

// WithAggregator replaces the identity aggregation with a packing
// collaborator, typically block.Aggregate.
func WithAggregator(agg Aggregator) Option {
	return func(s *Simulator) {
		if agg != nil {
			s.aggregate = agg
		}
	}
}

// New returns an empty simulator accepting rod, rigid-body and surface
// systems.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		allowed:   defaultTypeRules(),
		modules:   make(map[string]struct{}),
		aggregate: identityAggregate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultTypeRules() []TypeRule {
	return []TypeRule{
		func(s System) bool { _, ok := s.(Rod); return ok },
		func(s System) bool { _, ok := s.(RigidBody); return ok },
		func(s System) bool { _, ok := s.(Surface); return ok },
	}
}

// identityAggregate steps every dynamic system unpacked. Surfaces are
// static and excluded.
func identityAggregate(systems []System) ([]System, error) {
	blocks := make([]System, 0, len(systems))
	for _, sys := range systems {
		if _, static := sys.(Surface); static {
			continue
		}
		blocks = append(blocks, sys)
	}
	return blocks, nil
}

// ExtendAllowedTypes adds rules to the accepted system families.
func (s *Simulator) ExtendAllowedTypes(rules ...TypeRule) error {
	if s.finalized {
		return ErrFinalized
	}
	s.allowed = append(s.allowed, rules...)
	return nil
}

// OverrideAllowedTypes replaces the accepted system families.
func (s *Simulator) OverrideAllowedTypes(rules ...TypeRule) error {
	if s.finalized {
		return ErrFinalized
	}
	s.allowed = append([]TypeRule(nil), rules...)
	return nil
}

// Append validates sys against the allowed-type rules and any module
// prerequisites it declares, then adds it to the end of the sequence.
func (s *Simulator) Append(sys System) error {
	if s.finalized {
		return ErrFinalized
	}
	if err := s.checkType(sys); err != nil {
		return err
	}
	if req, ok := sys.(RequiresModules); ok {
		for _, name := range req.RequisiteModules() {
			if _, installed := s.modules[name]; !installed {
				return fmt.Errorf("%w: %q (install it before appending the system)", ErrMissingModule, name)
			}
		}
	}
	s.systems = append(s.systems, sys)
	return nil
}

func (s *Simulator) checkType(sys System) error {
	for _, rule := range s.allowed {
		if rule(sys) {
			return nil
		}
	}
	return fmt.Errorf("%w: %T", ErrSystemType, sys)
}

// Len returns the number of registered systems, finalize-appended blocks
// included.
func (s *Simulator) Len() int { return len(s.systems) }

// At returns the system at position i.
func (s *Simulator) At(i int) (System, error) {
	if i < 0 || i >= len(s.systems) {
		return nil, fmt.Errorf("%w: %d with %d systems", ErrIndexRange, i, len(s.systems))
	}
	return s.systems[i], nil
}

// Replace swaps the system at position i. The replacement passes the same
// validation as Append.
func (s *Simulator) Replace(i int, sys System) error {
	if s.finalized {
		return ErrFinalized
	}
	if i < 0 || i >= len(s.systems) {
		return fmt.Errorf("%w: %d with %d systems", ErrIndexRange, i, len(s.systems))
	}
	if err := s.checkType(sys); err != nil {
		return err
	}
	s.systems[i] = sys
	return nil
}

// Remove deletes the system at position i. Later systems shift down, so
// previously resolved indices become stale; remove before declaring
// features against indices.
func (s *Simulator) Remove(i int) error {
	if s.finalized {
		return ErrFinalized
	}
	if i < 0 || i >= len(s.systems) {
		return fmt.Errorf("%w: %d with %d systems", ErrIndexRange, i, len(s.systems))
	}
	s.systems = append(s.systems[:i], s.systems[i+1:]...)
	return nil
}

// Index resolves a system reference to its position. The reference is
// either a registered System (matched by identity) or an int position,
// negative counting from the end. Index is the left inverse of Append
// for every registered system.
func (s *Simulator) Index(ref any) (int, error) {
	switch v := ref.(type) {
	case int:
		n := len(s.systems)
		idx := v
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return 0, fmt.Errorf("%w: %d with %d systems", ErrIndexRange, v, n)
		}
		return idx, nil
	case System:
		for i, sys := range s.systems {
			if sys == v {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: %T (did you append it to the simulator?)", ErrSystemNotFound, v)
	default:
		return 0, fmt.Errorf("%w: got %T", ErrBadReference, ref)
	}
}

// installModule registers a feature module's name and finalize operator.
// Called by module constructors.
func (s *Simulator) installModule(name string, fin finalizeOp) error {
	if s.finalized {
		return ErrFinalized
	}
	s.modules[name] = struct{}{}
	s.finalizeOps.Append(fin)
	return nil
}

// HasModule reports whether a feature module is installed.
func (s *Simulator) HasModule(name string) bool {
	_, ok := s.modules[name]
	return ok
}

// Finalize freezes the simulator: systems are aggregated into blocks,
// each new block joins the sequence as a pseudo-entity, and every module
// materializes its declarations in installation order. Warnings land in
// the returned report. A failed finalize leaves the simulator
// unfinalized and unusable; the first error wins and nothing is rolled
// back. Finalizing twice fails with ErrFinalized and changes nothing.
func (s *Simulator) Finalize() (*Report, error) {
	if s.finalized {
		return nil, ErrFinalized
	}
	blocks, err := s.aggregate(s.systems)
	if err != nil {
		return nil, fmt.Errorf("simulation: aggregation failed: %w", err)
	}
	s.blocks = blocks
	for _, b := range blocks {
		if !s.contains(b) {
			s.systems = append(s.systems, b)
		}
	}

	report := &Report{}
	var firstErr error
	s.finalizeOps.ForEach(func(fin finalizeOp) {
		if firstErr != nil {
			return
		}
		firstErr = fin(report)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	s.finalizeOps.Clear()
	s.finalized = true
	return report, nil
}

func (s *Simulator) contains(sys System) bool {
	for _, have := range s.systems {
		if have == sys {
			return true
		}
	}
	return false
}

// Finalized reports whether Finalize completed.
func (s *Simulator) Finalized() bool { return s.finalized }

// Blocks returns the aggregated pseudo-entities a stepper advances.
func (s *Simulator) Blocks() []System { return s.blocks }

// Synchronize runs every synchronize operator: external force laws,
// joints and contacts, in declaration order.
func (s *Simulator) Synchronize(time float64) {
	s.synchronize.ForEach(func(op timeOp) { op(time) })
}

// ConstrainValues runs the value constraints (positions, directors).
func (s *Simulator) ConstrainValues(time float64) {
	s.constrainValues.ForEach(func(op timeOp) { op(time) })
}

// ConstrainRates runs the rate constraints (velocities, angular
// velocities).
func (s *Simulator) ConstrainRates(time float64) {
	s.constrainRates.ForEach(func(op timeOp) { op(time) })
}

// ApplyCallbacks runs the observers for a completed step.
func (s *Simulator) ApplyCallbacks(time float64, step int) {
	s.callbacks.ForEach(func(op stepOp) { op(time, step) })
}
