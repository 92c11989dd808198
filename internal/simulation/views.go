package simulation

import "github.com/softmech/rodsim/internal/linalg"

// StateViews is a system's complete state storage: node-indexed arrays
// (positions through external forces) and element-indexed arrays
// (directors through inverse inertias). For single-node bodies the two
// index spaces coincide.
//
// After block packing these slices alias the block's contiguous arrays,
// so mutation through the member and through the block is the same
// mutation.
type StateViews struct {
	Positions      []linalg.Vec3
	Velocities     []linalg.Vec3
	Masses         []float64
	InverseMasses  []float64
	InternalForces []linalg.Vec3
	ExternalForces []linalg.Vec3

	Directors         []linalg.Mat3
	AngularVelocities []linalg.Vec3
	InternalTorques   []linalg.Vec3
	ExternalTorques   []linalg.Vec3
	InverseInertias   []linalg.Vec3
}

// Nodes returns the node count of the views.
func (v StateViews) Nodes() int { return len(v.Positions) }

// Elements returns the element count of the views.
func (v StateViews) Elements() int { return len(v.Directors) }

// Packable systems can hand their state to an aggregated block and adopt
// views into the block's arrays in its place.
type Packable interface {
	System
	// StateViews returns the system's current storage.
	StateViews() StateViews
	// Rebind swaps the system's storage for the given views. Every slice
	// must match the system's own node and element counts.
	Rebind(StateViews) error
}
