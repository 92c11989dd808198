// Package contact provides pairwise contact kernels: penalty repulsion
// with velocity dissipation between spheres and against planes, and a
// frictional plane variant that must run after every other load source.
package contact

import (
	"errors"
	"fmt"
	"math"

	"github.com/softmech/rodsim/internal/simulation"
)

// ErrBadContact reports invalid contact parameters.
var ErrBadContact = errors.New("contact: bad parameters")

// slipTolerance separates sticking nodes from sliding ones.
const slipTolerance = 1e-8

// minSeparation guards the contact normal against coincident centers.
const minSeparation = 1e-12

func checkGains(k, nu float64) error {
	if k <= 0 {
		return fmt.Errorf("%w: stiffness %g must be positive", ErrBadContact, k)
	}
	if nu < 0 {
		return fmt.Errorf("%w: dissipation %g is negative", ErrBadContact, nu)
	}
	return nil
}

// SphereSphere resolves overlap between two rigid spheres with a linear
// penalty force plus normal-velocity dissipation. The loads on the pair
// are equal and opposite.
func SphereSphere(k, nu float64) simulation.ContactFactory {
	return func() (simulation.ContactForce, error) {
		if err := checkGains(k, nu); err != nil {
			return nil, err
		}
		return &sphereSphere{k: k, nu: nu}, nil
	}
}

type sphereSphere struct {
	k, nu float64
}

func (*sphereSphere) CheckCompatibility(first, second simulation.System) error {
	if _, ok := first.(simulation.RigidBody); !ok {
		return errors.New("first system is not a rigid body")
	}
	if _, ok := second.(simulation.RigidBody); !ok {
		return errors.New("second system is not a rigid body")
	}
	return nil
}

func (c *sphereSphere) Apply(first, second simulation.System) {
	a := first.(simulation.RigidBody)
	b := second.(simulation.RigidBody)

	span := b.Positions()[0].Sub(a.Positions()[0])
	dist := span.Norm()
	overlap := a.Radius() + b.Radius() - dist
	if overlap <= 0 || dist < minSeparation {
		return
	}
	normal := span.Scale(1 / dist)
	closing := b.Velocities()[0].Sub(a.Velocities()[0]).Dot(normal)
	magnitude := c.k*overlap - c.nu*closing
	if magnitude <= 0 {
		return
	}
	push := normal.Scale(magnitude)
	a.ExternalForces()[0] = a.ExternalForces()[0].Sub(push)
	b.ExternalForces()[0] = b.ExternalForces()[0].Add(push)
}

// SpherePlane pushes a penetrating sphere out of a static plane with the
// same penalty-plus-dissipation law. The plane takes no reaction.
func SpherePlane(k, nu float64) simulation.ContactFactory {
	return func() (simulation.ContactForce, error) {
		if err := checkGains(k, nu); err != nil {
			return nil, err
		}
		return &spherePlane{k: k, nu: nu}, nil
	}
}

type spherePlane struct {
	k, nu float64
}

func (*spherePlane) CheckCompatibility(first, second simulation.System) error {
	if _, ok := first.(simulation.RigidBody); !ok {
		return errors.New("first system is not a rigid body")
	}
	if _, ok := second.(simulation.Surface); !ok {
		return errors.New("second system is not a surface")
	}
	return nil
}

func (c *spherePlane) Apply(first, second simulation.System) {
	s := first.(simulation.RigidBody)
	p := second.(simulation.Surface)

	normal := p.SurfaceNormal()
	gap := s.Positions()[0].Sub(p.SurfaceOrigin()).Dot(normal) - s.Radius()
	if gap >= 0 {
		return
	}
	approach := s.Velocities()[0].Dot(normal)
	magnitude := -c.k*gap - c.nu*approach
	if magnitude <= 0 {
		return
	}
	s.ExternalForces()[0] = s.ExternalForces()[0].Add(normal.Scale(magnitude))
}

// RodPlane resolves rod nodes against a static plane, one penalty force
// per penetrating node.
func RodPlane(k, nu float64) simulation.ContactFactory {
	return func() (simulation.ContactForce, error) {
		if err := checkGains(k, nu); err != nil {
			return nil, err
		}
		return &rodPlane{k: k, nu: nu}, nil
	}
}

type rodPlane struct {
	k, nu float64
}

func (*rodPlane) CheckCompatibility(first, second simulation.System) error {
	if _, ok := first.(simulation.Rod); !ok {
		return errors.New("first system is not a rod")
	}
	if _, ok := second.(simulation.Surface); !ok {
		return errors.New("second system is not a surface")
	}
	return nil
}

func (c *rodPlane) Apply(first, second simulation.System) {
	c.applyNormal(first.(simulation.Rod), second.(simulation.Surface), nil)
}

// applyNormal pushes penetrating nodes out along the surface normal.
// When out is non-nil it receives the normal force magnitude per node.
func (c *rodPlane) applyNormal(r simulation.Rod, p simulation.Surface, out []float64) {
	normal := p.SurfaceNormal()
	origin := p.SurfaceOrigin()
	radii := r.Radii()
	forces := r.ExternalForces()
	for i, pos := range r.Positions() {
		radius := radii[min(i, len(radii)-1)]
		gap := pos.Sub(origin).Dot(normal) - radius
		if gap >= 0 {
			continue
		}
		approach := r.Velocities()[i].Dot(normal)
		magnitude := -c.k*gap - c.nu*approach
		if magnitude <= 0 {
			continue
		}
		forces[i] = forces[i].Add(normal.Scale(magnitude))
		if out != nil {
			out[i] = magnitude
		}
	}
}

// RodPlaneFriction adds Coulomb friction on top of the rod-plane penalty
// response. Sliding nodes feel kinetic friction opposing the tangential
// velocity; sticking nodes have their accumulated tangential load
// cancelled up to the static limit, which is why this kernel must be the
// last synchronize operator.
func RodPlaneFriction(k, nu, muStatic, muKinetic float64) simulation.ContactFactory {
	return func() (simulation.ContactForce, error) {
		if err := checkGains(k, nu); err != nil {
			return nil, err
		}
		if muStatic < 0 || muKinetic < 0 {
			return nil, fmt.Errorf("%w: friction coefficients must not be negative", ErrBadContact)
		}
		if muKinetic > muStatic {
			return nil, fmt.Errorf("%w: kinetic friction %g exceeds static friction %g",
				ErrBadContact, muKinetic, muStatic)
		}
		return &rodPlaneFriction{
			rodPlane:  rodPlane{k: k, nu: nu},
			muStatic:  muStatic,
			muKinetic: muKinetic,
		}, nil
	}
}

type rodPlaneFriction struct {
	rodPlane
	muStatic, muKinetic float64
	normal              []float64
}

// LastOnly marks that the sticking branch reads the fully accumulated
// external forces: loads added after this kernel would not be opposed.
func (*rodPlaneFriction) LastOnly() bool { return true }

func (c *rodPlaneFriction) Apply(first, second simulation.System) {
	r := first.(simulation.Rod)
	p := second.(simulation.Surface)

	if len(c.normal) != r.NodeCount() {
		c.normal = make([]float64, r.NodeCount())
	}
	for i := range c.normal {
		c.normal[i] = 0
	}
	c.applyNormal(r, p, c.normal)

	normal := p.SurfaceNormal()
	forces := r.ExternalForces()
	for i, load := range c.normal {
		if load == 0 {
			continue
		}
		v := r.Velocities()[i]
		tangential := v.Sub(normal.Scale(v.Dot(normal)))
		speed := tangential.Norm()
		if speed > slipTolerance {
			forces[i] = forces[i].Sub(tangential.Scale(c.muKinetic * load / speed))
			continue
		}
		inPlane := forces[i].Sub(normal.Scale(forces[i].Dot(normal)))
		drive := inPlane.Norm()
		if drive < minSeparation {
			continue
		}
		hold := math.Min(drive, c.muStatic*load)
		forces[i] = forces[i].Sub(inPlane.Scale(hold / drive))
	}
}
