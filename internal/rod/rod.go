// Package rod implements a discrete Kirchhoff-type elastic rod: n+1
// nodes carrying position, velocity and mass, and n elements carrying an
// orthonormal director frame, angular velocity and rotational inertia.
// Internal loads are axial stretching, a tangent-director alignment
// couple, and bending/twist between adjacent frames.
package rod

import (
	"errors"
	"fmt"
	"math"

	"github.com/softmech/rodsim/internal/linalg"
	"github.com/softmech/rodsim/internal/simulation"
)

var ErrBadSpec = errors.New("rod: invalid spec")

// Spec describes a straight uniform rod before discretization.
type Spec struct {
	Elements  int         `yaml:"elements" json:"elements"`
	Start     linalg.Vec3 `yaml:"start" json:"start"`
	Direction linalg.Vec3 `yaml:"direction" json:"direction"`
	Normal    linalg.Vec3 `yaml:"normal" json:"normal"`
	Length    float64     `yaml:"length" json:"length"`
	Radius    float64     `yaml:"radius" json:"radius"`
	Density   float64     `yaml:"density" json:"density"`
	Young     float64     `yaml:"young" json:"young"`
	Shear     float64     `yaml:"shear" json:"shear"`
}

// Validate checks the spec for a constructible rod.
func (s Spec) Validate() error {
	switch {
	case s.Elements < 1:
		return fmt.Errorf("%w: need at least 1 element, got %d", ErrBadSpec, s.Elements)
	case !(s.Length > 0):
		return fmt.Errorf("%w: length must be positive, got %g", ErrBadSpec, s.Length)
	case !(s.Radius > 0):
		return fmt.Errorf("%w: radius must be positive, got %g", ErrBadSpec, s.Radius)
	case !(s.Density > 0):
		return fmt.Errorf("%w: density must be positive, got %g", ErrBadSpec, s.Density)
	case !(s.Young > 0):
		return fmt.Errorf("%w: Young's modulus must be positive, got %g", ErrBadSpec, s.Young)
	case !(s.Shear > 0):
		return fmt.Errorf("%w: shear modulus must be positive, got %g", ErrBadSpec, s.Shear)
	}
	if _, err := linalg.Frame(s.Direction, s.Normal); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSpec, err)
	}
	return nil
}

// Rod is a simulated elastic rod. Construct with [NewStraight].
type Rod struct {
	spec     Spec
	elements int

	// reference geometry and rigidities, fixed after construction
	restLength []float64     // per element
	radius     []float64     // per element
	axial      []float64     // E*A per element
	alignKappa []float64     // tangent-director coupling per element
	bendStiff  []linalg.Vec3 // (EI, EI, GJ) per interior joint
	voronoi    []float64     // rest length per interior joint
	inertia    []linalg.Vec3 // principal rotational inertia per element

	state simulation.StateViews

	// current geometry, refreshed by ComputeInternalForcesAndTorques
	lengths  []float64
	tangents []linalg.Vec3
}

// NewStraight discretizes a straight rod from its spec. Nodes are spaced
// uniformly along the direction axis; every element frame starts at the
// orthonormal frame built from direction and normal.
func NewStraight(spec Spec) (*Rod, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	frame, err := linalg.Frame(spec.Direction, spec.Normal)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSpec, err)
	}

	n := spec.Elements
	nodes := n + 1
	ds := spec.Length / float64(n)
	axis := frame.Row(2)

	area := math.Pi * spec.Radius * spec.Radius
	second := math.Pi * math.Pow(spec.Radius, 4) / 4

	r := &Rod{
		spec:       spec,
		elements:   n,
		restLength: make([]float64, n),
		radius:     make([]float64, n),
		axial:      make([]float64, n),
		alignKappa: make([]float64, n),
		bendStiff:  make([]linalg.Vec3, max(n-1, 0)),
		voronoi:    make([]float64, max(n-1, 0)),
		inertia:    make([]linalg.Vec3, n),
		lengths:    make([]float64, n),
		tangents:   make([]linalg.Vec3, n),
	}
	r.state = simulation.StateViews{
		Positions:         make([]linalg.Vec3, nodes),
		Velocities:        make([]linalg.Vec3, nodes),
		Masses:            make([]float64, nodes),
		InverseMasses:     make([]float64, nodes),
		InternalForces:    make([]linalg.Vec3, nodes),
		ExternalForces:    make([]linalg.Vec3, nodes),
		Directors:         make([]linalg.Mat3, n),
		AngularVelocities: make([]linalg.Vec3, n),
		InternalTorques:   make([]linalg.Vec3, n),
		ExternalTorques:   make([]linalg.Vec3, n),
		InverseInertias:   make([]linalg.Vec3, n),
	}

	for i := 0; i < nodes; i++ {
		r.state.Positions[i] = spec.Start.Add(axis.Scale(float64(i) * ds))
	}
	// Element mass is shared between the two flanking nodes, so the end
	// nodes carry half of an interior node's mass.
	elementMass := spec.Density * area * ds
	for i := 0; i < nodes; i++ {
		m := elementMass
		if i == 0 || i == nodes-1 {
			m = 0.5 * elementMass
		}
		r.state.Masses[i] = m
		r.state.InverseMasses[i] = 1 / m
	}

	for e := 0; e < n; e++ {
		r.restLength[e] = ds
		r.radius[e] = spec.Radius
		r.axial[e] = spec.Young * area
		r.alignKappa[e] = 4.0 / 3.0 * spec.Shear * area * ds
		r.state.Directors[e] = frame
		j := linalg.Vec3{
			X: spec.Density * ds * second,
			Y: spec.Density * ds * second,
			Z: spec.Density * ds * 2 * second,
		}
		r.inertia[e] = j
		r.state.InverseInertias[e] = linalg.Vec3{X: 1 / j.X, Y: 1 / j.Y, Z: 1 / j.Z}
	}
	for j := 0; j < n-1; j++ {
		r.bendStiff[j] = linalg.Vec3{
			X: spec.Young * second,
			Y: spec.Young * second,
			Z: spec.Shear * 2 * second,
		}
		r.voronoi[j] = ds
	}

	r.updateGeometry()
	return r, nil
}

// Spec returns the spec the rod was built from.
func (r *Rod) Spec() Spec { return r.spec }

func (r *Rod) NodeCount() int    { return r.elements + 1 }
func (r *Rod) ElementCount() int { return r.elements }

func (r *Rod) Positions() []linalg.Vec3         { return r.state.Positions }
func (r *Rod) Velocities() []linalg.Vec3        { return r.state.Velocities }
func (r *Rod) Directors() []linalg.Mat3         { return r.state.Directors }
func (r *Rod) AngularVelocities() []linalg.Vec3 { return r.state.AngularVelocities }
func (r *Rod) Masses() []float64                { return r.state.Masses }
func (r *Rod) ExternalForces() []linalg.Vec3    { return r.state.ExternalForces }
func (r *Rod) ExternalTorques() []linalg.Vec3   { return r.state.ExternalTorques }

func (r *Rod) RestLengths() []float64 { return r.restLength }
func (r *Rod) Radii() []float64       { return r.radius }

// Lengths returns the current element lengths, valid after the last
// internal-force computation.
func (r *Rod) Lengths() []float64 { return r.lengths }

// Tangents returns the current unit tangents, valid after the last
// internal-force computation.
func (r *Rod) Tangents() []linalg.Vec3 { return r.tangents }

// InertiaDiagonals returns the principal rotational inertia per element.
func (r *Rod) InertiaDiagonals() []linalg.Vec3 { return r.inertia }

// StateViews returns the rod's state storage.
func (r *Rod) StateViews() simulation.StateViews { return r.state }

// Rebind swaps the rod's storage for views into a block's arrays.
func (r *Rod) Rebind(v simulation.StateViews) error {
	nodes, elems := r.NodeCount(), r.elements
	if v.Nodes() != nodes || v.Elements() != elems {
		return fmt.Errorf("rod: rebind with %d nodes and %d elements, want %d and %d",
			v.Nodes(), v.Elements(), nodes, elems)
	}
	if len(v.Velocities) != nodes || len(v.Masses) != nodes || len(v.InverseMasses) != nodes ||
		len(v.InternalForces) != nodes || len(v.ExternalForces) != nodes {
		return fmt.Errorf("rod: rebind node views are unevenly sized")
	}
	if len(v.AngularVelocities) != elems || len(v.InternalTorques) != elems ||
		len(v.ExternalTorques) != elems || len(v.InverseInertias) != elems {
		return fmt.Errorf("rod: rebind element views are unevenly sized")
	}
	r.state = v
	return nil
}
