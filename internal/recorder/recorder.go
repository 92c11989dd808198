// Package recorder captures periodic state snapshots through the
// callbacks module.
package recorder

import (
	"github.com/softmech/rodsim/internal/linalg"
	"github.com/softmech/rodsim/internal/simulation"
)

// Snapshot is one recorded state of a single system.
type Snapshot struct {
	Time                 float64
	Step                 int
	Positions            []linalg.Vec3
	Velocities           []linalg.Vec3
	CenterOfMassVelocity linalg.Vec3
}

// Recorder keeps periodic snapshots of the system it observes, one per
// sampling interval. Positions and velocities are deep-copied, so
// snapshots stay valid as the simulation advances.
type Recorder struct {
	every     int
	snapshots []Snapshot
}

// New returns a recorder sampling every every-th step. Values below one
// record every step.
func New(every int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{every: every}
}

func (r *Recorder) OnStep(s simulation.System, time float64, step int) {
	if step%r.every != 0 {
		return
	}
	r.snapshots = append(r.snapshots, Snapshot{
		Time:                 time,
		Step:                 step,
		Positions:            append([]linalg.Vec3(nil), s.Positions()...),
		Velocities:           append([]linalg.Vec3(nil), s.Velocities()...),
		CenterOfMassVelocity: s.VelocityCenterOfMass(),
	})
}

// Factory adapts the recorder for CallbackHandle.Using. Every handle
// bound to it feeds the same snapshot sequence.
func (r *Recorder) Factory() simulation.CallbackFactory {
	return func() (simulation.Observer, error) { return r, nil }
}

func (r *Recorder) Snapshots() []Snapshot {
	return r.snapshots
}

func (r *Recorder) Len() int {
	return len(r.snapshots)
}

// Times returns the sample times in recording order.
func (r *Recorder) Times() []float64 {
	times := make([]float64, len(r.snapshots))
	for i, snap := range r.snapshots {
		times[i] = snap.Time
	}
	return times
}
