package simulation

import "github.com/softmech/rodsim/internal/linalg"

// System is the capability contract every simulated object satisfies.
// Slice accessors return live views: mutating the returned slices mutates
// the system state, which is how force laws accumulate external loads.
// Torques and angular velocities are expressed in each element's material
// frame; everything else is in the lab frame.
type System interface {
	NodeCount() int
	Positions() []linalg.Vec3
	Velocities() []linalg.Vec3
	Directors() []linalg.Mat3
	AngularVelocities() []linalg.Vec3
	Masses() []float64
	ExternalForces() []linalg.Vec3
	ExternalTorques() []linalg.Vec3

	// ComputeInternalForcesAndTorques refreshes the internal load state
	// from the current configuration.
	ComputeInternalForcesAndTorques(time float64)
	// ResetExternalForcesAndTorques zeroes the external accumulators.
	ResetExternalForcesAndTorques(time float64)

	// KinematicStep advances positions by prefac times velocities and
	// rotates directors by the angular velocities.
	KinematicStep(time, prefac float64)
	// DynamicStep advances velocities and angular velocities by prefac
	// times the accelerations implied by the current loads.
	DynamicStep(time, prefac float64)

	VelocityCenterOfMass() linalg.Vec3
}

// Rod marks slender systems discretized into elements along a centerline.
type Rod interface {
	System
	ElementCount() int
	RestLengths() []float64
	Radii() []float64
}

// RigidBody marks single-body systems with a bounding radius.
type RigidBody interface {
	System
	Radius() float64
}

// Surface marks static boundary geometry. Surfaces join the registry for
// contact pairing but are never aggregated or stepped.
type Surface interface {
	System
	SurfaceNormal() linalg.Vec3
	SurfaceOrigin() linalg.Vec3
}

// TypeRule reports whether a system belongs to an accepted family.
type TypeRule func(System) bool

// RequiresModules is implemented by systems that depend on feature
// modules. Append rejects the system unless every named module is
// installed first.
type RequiresModules interface {
	RequisiteModules() []string
}

// Aggregator packs registered systems into step-ready blocks at finalize
// time. Returned blocks become pseudo-entities of the registry; an
// aggregator may return a registered system itself to have it stepped
// unpacked.
type Aggregator func(systems []System) ([]System, error)

// Collection is the face of the registry a time stepper drives.
type Collection interface {
	Blocks() []System
	Synchronize(time float64)
	ConstrainValues(time float64)
	ConstrainRates(time float64)
	ApplyCallbacks(time float64, step int)
	Finalized() bool
}

// Forcer applies external loads to a single system. Both methods run
// during synchronize, forces before torques.
type Forcer interface {
	ApplyForces(s System, time float64)
	ApplyTorques(s System, time float64)
}

// Constraint enforces boundary conditions on a single system: values
// after every kinematic sub-step, rates after every dynamic sub-step.
type Constraint interface {
	ConstrainValues(s System, time float64)
	ConstrainRates(s System, time float64)
}

// Observer receives a system snapshot between completed steps.
type Observer interface {
	OnStep(s System, time float64, step int)
}

// ContactForce applies pairwise contact loads. Apply sees the current
// state only; contact laws are time-independent.
type ContactForce interface {
	Apply(first, second System)
	CheckCompatibility(first, second System) error
}

// Joint couples two systems at one node each.
type Joint interface {
	ApplyForces(first, second System, firstNode, secondNode int, time float64)
	ApplyTorques(first, second System, firstNode, secondNode int, time float64)
}

// LastOnly marks contact algorithms that read the already-accumulated
// external loads and therefore assume nothing mutates forces after them.
type LastOnly interface {
	LastOnly() bool
}

// Factories defer algorithm construction to finalize time, when indices
// are resolved and argument errors can surface as construction errors.
type (
	ForcingFactory    func() (Forcer, error)
	ConstraintFactory func(s System) (Constraint, error)
	CallbackFactory   func() (Observer, error)
	ContactFactory    func() (ContactForce, error)
	JointFactory      func() (Joint, error)
)
