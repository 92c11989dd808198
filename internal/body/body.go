// Package body provides rigid simulated entities: spheres that translate
// and spin as single nodes, and static planes that only take part in
// contact.
package body

import (
	"errors"
	"fmt"
	"math"

	"github.com/softmech/rodsim/internal/linalg"
	"github.com/softmech/rodsim/internal/simulation"
)

var ErrBadBody = errors.New("body: invalid body")

// Sphere is a uniform rigid ball: one node, one director frame.
type Sphere struct {
	radius  float64
	inertia linalg.Vec3
	state   simulation.StateViews
}

// NewSphere returns a sphere of the given radius and density centered at
// center, at rest.
func NewSphere(center linalg.Vec3, radius, density float64) (*Sphere, error) {
	if !(radius > 0) {
		return nil, fmt.Errorf("%w: radius must be positive, got %g", ErrBadBody, radius)
	}
	if !(density > 0) {
		return nil, fmt.Errorf("%w: density must be positive, got %g", ErrBadBody, density)
	}
	mass := density * 4.0 / 3.0 * math.Pi * math.Pow(radius, 3)
	moment := 0.4 * mass * radius * radius

	s := &Sphere{
		radius:  radius,
		inertia: linalg.Vec3{X: moment, Y: moment, Z: moment},
	}
	s.state = simulation.StateViews{
		Positions:         []linalg.Vec3{center},
		Velocities:        make([]linalg.Vec3, 1),
		Masses:            []float64{mass},
		InverseMasses:     []float64{1 / mass},
		InternalForces:    make([]linalg.Vec3, 1),
		ExternalForces:    make([]linalg.Vec3, 1),
		Directors:         []linalg.Mat3{linalg.Identity()},
		AngularVelocities: make([]linalg.Vec3, 1),
		InternalTorques:   make([]linalg.Vec3, 1),
		ExternalTorques:   make([]linalg.Vec3, 1),
		InverseInertias:   []linalg.Vec3{{X: 1 / moment, Y: 1 / moment, Z: 1 / moment}},
	}
	return s, nil
}

// Radius returns the sphere radius.
func (s *Sphere) Radius() float64 { return s.radius }

// Mass returns the sphere mass.
func (s *Sphere) Mass() float64 { return s.state.Masses[0] }

// InertiaDiagonals returns the principal rotational inertia.
func (s *Sphere) InertiaDiagonals() []linalg.Vec3 { return []linalg.Vec3{s.inertia} }

func (s *Sphere) NodeCount() int                   { return 1 }
func (s *Sphere) Positions() []linalg.Vec3         { return s.state.Positions }
func (s *Sphere) Velocities() []linalg.Vec3        { return s.state.Velocities }
func (s *Sphere) Directors() []linalg.Mat3         { return s.state.Directors }
func (s *Sphere) AngularVelocities() []linalg.Vec3 { return s.state.AngularVelocities }
func (s *Sphere) Masses() []float64                { return s.state.Masses }
func (s *Sphere) ExternalForces() []linalg.Vec3    { return s.state.ExternalForces }
func (s *Sphere) ExternalTorques() []linalg.Vec3   { return s.state.ExternalTorques }

// ComputeInternalForcesAndTorques clears the internal accumulators; a
// rigid body has no internal mechanics.
func (s *Sphere) ComputeInternalForcesAndTorques(float64) {
	s.state.InternalForces[0] = linalg.Vec3{}
	s.state.InternalTorques[0] = linalg.Vec3{}
}

func (s *Sphere) ResetExternalForcesAndTorques(float64) {
	s.state.ExternalForces[0] = linalg.Vec3{}
	s.state.ExternalTorques[0] = linalg.Vec3{}
}

func (s *Sphere) KinematicStep(_, prefac float64) {
	s.state.Positions[0] = s.state.Positions[0].Add(s.state.Velocities[0].Scale(prefac))
	spin := linalg.ExpSO3(s.state.AngularVelocities[0].Scale(-prefac))
	s.state.Directors[0] = spin.Mul(s.state.Directors[0])
}

func (s *Sphere) DynamicStep(_, prefac float64) {
	load := s.state.InternalForces[0].Add(s.state.ExternalForces[0])
	s.state.Velocities[0] = s.state.Velocities[0].Add(load.Scale(prefac * s.state.InverseMasses[0]))
	twist := s.state.InternalTorques[0].Add(s.state.ExternalTorques[0])
	s.state.AngularVelocities[0] = s.state.AngularVelocities[0].
		Add(s.state.InverseInertias[0].Mul(twist).Scale(prefac))
}

func (s *Sphere) VelocityCenterOfMass() linalg.Vec3 { return s.state.Velocities[0] }

// StateViews returns the sphere's state storage.
func (s *Sphere) StateViews() simulation.StateViews { return s.state }

// Rebind swaps the sphere's storage for views into a block's arrays.
func (s *Sphere) Rebind(v simulation.StateViews) error {
	if v.Nodes() != 1 || v.Elements() != 1 {
		return fmt.Errorf("body: rebind with %d nodes and %d elements, want 1 and 1",
			v.Nodes(), v.Elements())
	}
	s.state = v
	return nil
}

// Plane is an infinite static surface. It satisfies the system contract
// with empty state so it can sit in the registry, but it never moves and
// is excluded from aggregation.
type Plane struct {
	origin linalg.Vec3
	normal linalg.Vec3
}

// NewPlane returns the plane through origin with the given outward
// normal.
func NewPlane(origin, normal linalg.Vec3) (*Plane, error) {
	if normal.Norm() < 1e-14 {
		return nil, fmt.Errorf("%w: plane normal must be nonzero", ErrBadBody)
	}
	return &Plane{origin: origin, normal: normal.Normalized()}, nil
}

// SurfaceNormal returns the unit outward normal.
func (p *Plane) SurfaceNormal() linalg.Vec3 { return p.normal }

// SurfaceOrigin returns a point on the plane.
func (p *Plane) SurfaceOrigin() linalg.Vec3 { return p.origin }

func (p *Plane) NodeCount() int                        { return 0 }
func (p *Plane) Positions() []linalg.Vec3              { return nil }
func (p *Plane) Velocities() []linalg.Vec3             { return nil }
func (p *Plane) Directors() []linalg.Mat3              { return nil }
func (p *Plane) AngularVelocities() []linalg.Vec3      { return nil }
func (p *Plane) Masses() []float64                     { return nil }
func (p *Plane) ExternalForces() []linalg.Vec3         { return nil }
func (p *Plane) ExternalTorques() []linalg.Vec3        { return nil }
func (p *Plane) ComputeInternalForcesAndTorques(float64) {}
func (p *Plane) ResetExternalForcesAndTorques(float64)   {}
func (p *Plane) KinematicStep(_, _ float64)              {}
func (p *Plane) DynamicStep(_, _ float64)                {}
func (p *Plane) VelocityCenterOfMass() linalg.Vec3       { return linalg.Vec3{} }
