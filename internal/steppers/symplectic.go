package steppers

import (
	"fmt"
	"math"

	"github.com/softmech/rodsim/internal/simulation"
)

// Stepper advances a finalized collection by one time step.
type Stepper interface {
	// Name identifies the scheme in registries, flags and run metadata.
	Name() string
	// Stages returns the number of kinematic sub-steps per Step call.
	Stages() int
	// Step advances the collection from time by dt and returns the new
	// time, which accumulates stage by stage rather than as time+dt so
	// repeated stepping reproduces the scheme's own rounding.
	Step(c simulation.Collection, time, dt float64) float64
}

// subStep is one declared half-scheme entry: a kinematic or dynamic
// update with its dt coefficient.
type subStep struct {
	kinematic bool
	coeff     float64
}

// stage pairs one kinematic sub-step with the dynamic sub-step that
// follows it. The final stage of a scheme has no dynamic part.
type stage struct {
	prefactor float64
	kinematic float64
	dynamic   float64
}

type symplectic struct {
	name   string
	stages []stage
}

// newSymplectic mirrors a declared half-scheme into a time-symmetric
// stage sequence: sub-steps are extended with their own reversal minus
// the pivot, the classic palindrome construction, and prefactors are
// reflected out until every kinematic sub-step has one. The declared
// list must alternate kinematic and dynamic sub-steps starting
// kinematic. Violations are programmer errors in a scheme definition
// and panic.
func newSymplectic(name string, declared []subStep, prefactors []float64) *symplectic {
	ops := mirrorSubSteps(declared)
	prefacs := mirrorPrefactors(prefactors, (len(ops)+1)/2)

	if len(ops) != 2*len(prefacs)-1 {
		panic(fmt.Sprintf("steppers: %s: %d mirrored sub-steps need %d prefactors, have %d",
			name, len(ops), (len(ops)+1)/2, len(prefacs)))
	}
	for i, op := range ops {
		if wantKinematic := i%2 == 0; op.kinematic != wantKinematic {
			panic(fmt.Sprintf("steppers: %s: sub-step %d must alternate kinematic/dynamic", name, i))
		}
	}

	stages := make([]stage, len(prefacs))
	for i := range stages {
		st := stage{prefactor: prefacs[i], kinematic: ops[2*i].coeff}
		if 2*i+1 < len(ops) {
			st.dynamic = ops[2*i+1].coeff
		}
		stages[i] = st
	}
	return &symplectic{name: name, stages: stages}
}

func mirrorSubSteps(declared []subStep) []subStep {
	out := make([]subStep, 0, 2*len(declared)-1)
	out = append(out, declared...)
	for i := len(declared) - 2; i >= 0; i-- {
		out = append(out, declared[i])
	}
	return out
}

// mirrorPrefactors reflects the declared prefactors to exactly one per
// stage. A half-scheme ending on a dynamic sub-step repeats all of its
// prefactors; one ending on a kinematic sub-step repeats all but the
// pivot.
func mirrorPrefactors(declared []float64, stages int) []float64 {
	out := make([]float64, 0, stages)
	out = append(out, declared...)
	for i := min(stages-len(declared), len(declared)) - 1; i >= 0; i-- {
		out = append(out, declared[i])
	}
	return out
}

func (s *symplectic) Name() string { return s.name }

func (s *symplectic) Stages() int { return len(s.stages) }

// Step runs the stage sequence. Every stage but the last is a full
// kinematic-dynamic pair: move the blocks, advance time, enforce value
// constraints, recompute internal loads, synchronize external loads,
// kick the rates, enforce rate constraints. The last stage is kinematic
// only. Observers then see the completed step, and the external load
// accumulators are zeroed for the next one.
func (s *symplectic) Step(c simulation.Collection, time, dt float64) float64 {
	blocks := c.Blocks()
	last := len(s.stages) - 1
	for i, st := range s.stages {
		for _, b := range blocks {
			b.KinematicStep(time, st.kinematic*dt)
		}
		time += st.prefactor * dt
		c.ConstrainValues(time)
		if i == last {
			break
		}
		for _, b := range blocks {
			b.ComputeInternalForcesAndTorques(time)
		}
		c.Synchronize(time)
		for _, b := range blocks {
			b.DynamicStep(time, st.dynamic*dt)
		}
		c.ConstrainRates(time)
	}
	c.ApplyCallbacks(time, int(math.Round(time/dt)))
	for _, b := range blocks {
		b.ResetExternalForcesAndTorques(time)
	}
	return time
}

// PositionVerlet returns the second-order drift-kick-drift scheme: one
// dynamic kick per step between two half-length drifts.
func PositionVerlet() Stepper {
	declared := []subStep{
		{kinematic: true, coeff: 0.5},
		{kinematic: false, coeff: 1.0},
	}
	return newSymplectic("position-verlet", declared, []float64{0.5})
}

// Extended Forest-Ruth coefficients (Omelyan, Mryglod and Folk).
const (
	pefrlXi     = 0.1786178958448091
	pefrlLambda = -0.2123418310626054
	pefrlChi    = -0.06626458266981849
)

// PEFRL returns the fourth-order position-extended Forest-Ruth scheme:
// five drifts and four kicks per step. Roughly four times the work of
// position Verlet per step for two orders better energy behaviour.
func PEFRL() Stepper {
	lambdaDash := 0.5 * (1.0 - 2.0*pefrlLambda)
	xiChiDash := 1.0 - 2.0*(pefrlXi+pefrlChi)
	declared := []subStep{
		{kinematic: true, coeff: pefrlXi},
		{kinematic: false, coeff: lambdaDash},
		{kinematic: true, coeff: pefrlChi},
		{kinematic: false, coeff: pefrlLambda},
		{kinematic: true, coeff: xiChiDash},
	}
	return newSymplectic("pefrl", declared, []float64{pefrlXi, pefrlChi, xiChiDash})
}
