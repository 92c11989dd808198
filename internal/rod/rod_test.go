package rod

import (
	"errors"
	"math"
	"testing"

	"github.com/softmech/rodsim/internal/linalg"
	"github.com/softmech/rodsim/internal/simulation"
)

func newViews(nodes, elems int) simulation.StateViews {
	return simulation.StateViews{
		Positions:         make([]linalg.Vec3, nodes),
		Velocities:        make([]linalg.Vec3, nodes),
		Masses:            make([]float64, nodes),
		InverseMasses:     make([]float64, nodes),
		InternalForces:    make([]linalg.Vec3, nodes),
		ExternalForces:    make([]linalg.Vec3, nodes),
		Directors:         make([]linalg.Mat3, elems),
		AngularVelocities: make([]linalg.Vec3, elems),
		InternalTorques:   make([]linalg.Vec3, elems),
		ExternalTorques:   make([]linalg.Vec3, elems),
		InverseInertias:   make([]linalg.Vec3, elems),
	}
}

func validSpec() Spec {
	return Spec{
		Elements:  4,
		Direction: linalg.Vec3{Z: 1},
		Normal:    linalg.Vec3{X: 1},
		Length:    1.0,
		Radius:    0.05,
		Density:   1000,
		Young:     1e6,
		Shear:     4e5,
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
		ok     bool
	}{
		{"valid", func(*Spec) {}, true},
		{"zero elements", func(s *Spec) { s.Elements = 0 }, false},
		{"negative length", func(s *Spec) { s.Length = -1 }, false},
		{"zero radius", func(s *Spec) { s.Radius = 0 }, false},
		{"zero density", func(s *Spec) { s.Density = 0 }, false},
		{"zero young", func(s *Spec) { s.Young = 0 }, false},
		{"zero shear", func(s *Spec) { s.Shear = 0 }, false},
		{"zero direction", func(s *Spec) { s.Direction = linalg.Vec3{} }, false},
		{"normal parallel to direction", func(s *Spec) { s.Normal = linalg.Vec3{Z: 2} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			err := spec.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrBadSpec) {
				t.Errorf("Validate() error = %v, want ErrBadSpec", err)
			}
		})
	}
}

func TestNewStraightGeometry(t *testing.T) {
	spec := validSpec()
	r, err := NewStraight(spec)
	if err != nil {
		t.Fatal(err)
	}

	if r.NodeCount() != 5 || r.ElementCount() != 4 {
		t.Fatalf("counts = (%d nodes, %d elements), want (5, 4)", r.NodeCount(), r.ElementCount())
	}

	ds := spec.Length / float64(spec.Elements)
	for i, p := range r.Positions() {
		want := float64(i) * ds
		if math.Abs(p.Z-want) > 1e-12 || math.Abs(p.X) > 1e-12 || math.Abs(p.Y) > 1e-12 {
			t.Errorf("node %d at %+v, want (0, 0, %g)", i, p, want)
		}
	}

	area := math.Pi * spec.Radius * spec.Radius
	var total float64
	for _, m := range r.Masses() {
		total += m
	}
	if want := spec.Density * area * spec.Length; math.Abs(total-want) > 1e-9*want {
		t.Errorf("total mass = %g, want %g", total, want)
	}
	if r.Masses()[0] != 0.5*r.Masses()[1] {
		t.Errorf("end node mass = %g, want half of interior %g", r.Masses()[0], r.Masses()[1])
	}

	for e, l := range r.RestLengths() {
		if math.Abs(l-ds) > 1e-12 {
			t.Errorf("rest length %d = %g, want %g", e, l, ds)
		}
	}
}

func TestStraightRodIsLoadFree(t *testing.T) {
	r, err := NewStraight(validSpec())
	if err != nil {
		t.Fatal(err)
	}

	r.ComputeInternalForcesAndTorques(0)
	for i, f := range r.state.InternalForces {
		if f.Norm() > 1e-9 {
			t.Errorf("internal force at node %d = %+v, want zero", i, f)
		}
	}
	for e, tq := range r.state.InternalTorques {
		if tq.Norm() > 1e-9 {
			t.Errorf("internal torque at element %d = %+v, want zero", e, tq)
		}
	}
}

func TestStretchingIsRestoring(t *testing.T) {
	spec := validSpec()
	spec.Elements = 1
	r, err := NewStraight(spec)
	if err != nil {
		t.Fatal(err)
	}

	// Stretch the single element by 10%.
	r.Positions()[1].Z += 0.1 * spec.Length
	r.ComputeInternalForcesAndTorques(0)

	area := math.Pi * spec.Radius * spec.Radius
	want := spec.Young * area * 0.1
	got := r.state.InternalForces[1].Z
	if math.Abs(got+want) > 1e-6*want {
		t.Errorf("force on stretched end = %g, want %g", got, -want)
	}
	if math.Abs(r.state.InternalForces[0].Z-want) > 1e-6*want {
		t.Errorf("force on anchored end = %g, want %g", r.state.InternalForces[0].Z, want)
	}
}

func TestTwistIsRestoring(t *testing.T) {
	spec := validSpec()
	spec.Elements = 2
	r, err := NewStraight(spec)
	if err != nil {
		t.Fatal(err)
	}

	// Twist the second frame by theta about the shared tangent. d3 is
	// unchanged, so the alignment couple stays silent and the torque is
	// pure torsion.
	theta := 0.2
	r.Directors()[1] = linalg.ExpSO3(linalg.Vec3{Z: -theta}).Mul(r.Directors()[1])
	r.ComputeInternalForcesAndTorques(0)

	second := math.Pi * math.Pow(spec.Radius, 4) / 4
	ds := spec.Length / float64(spec.Elements)
	want := spec.Shear * 2 * second * theta / ds

	if got := r.state.InternalTorques[0].Z; math.Abs(got-want) > 1e-9*want {
		t.Errorf("torque on leading element = %g, want %g", got, want)
	}
	if got := r.state.InternalTorques[1].Z; math.Abs(got+want) > 1e-9*want {
		t.Errorf("torque on twisted element = %g, want %g", got, -want)
	}
	for i, f := range r.state.InternalForces {
		if f.Norm() > 1e-9 {
			t.Errorf("twist produced a net force at node %d: %+v", i, f)
		}
	}
}

func TestBendingIsRestoring(t *testing.T) {
	spec := validSpec()
	spec.Elements = 2
	r, err := NewStraight(spec)
	if err != nil {
		t.Fatal(err)
	}

	// Tilt the second frame by theta about the lab x axis. The straight
	// frame is the identity here, so the director matrix is the
	// exponential itself.
	theta := 0.1
	r.Directors()[1] = linalg.ExpSO3(linalg.Vec3{X: -theta})
	r.ComputeInternalForcesAndTorques(0)

	second := math.Pi * math.Pow(spec.Radius, 4) / 4
	ds := spec.Length / float64(spec.Elements)
	wantBend := spec.Young * second * theta / ds

	// The first element sees the pure bending couple.
	tq := r.state.InternalTorques[0]
	if math.Abs(tq.X-wantBend) > 1e-9*wantBend {
		t.Errorf("bending torque = %g, want %g", tq.X, wantBend)
	}
	if math.Abs(tq.Y) > 1e-9 || math.Abs(tq.Z) > 1e-9 {
		t.Errorf("bending torque has off-axis parts: %+v", tq)
	}

	// The tilted frame's d3 leans toward -y, so the alignment couple
	// pulls the far node that way.
	if got := r.state.InternalForces[2].Y; got >= 0 {
		t.Errorf("alignment force on far node = %g, want negative", got)
	}
}

func TestKinematicStepRotatesFrames(t *testing.T) {
	spec := validSpec()
	spec.Elements = 1
	r, err := NewStraight(spec)
	if err != nil {
		t.Fatal(err)
	}

	w := 2.0
	dt := 0.25
	r.AngularVelocities()[0] = linalg.Vec3{Z: w}
	r.KinematicStep(0, dt)

	phi := w * dt
	d1 := r.Directors()[0].Row(0)
	if math.Abs(d1.X-math.Cos(phi)) > 1e-12 || math.Abs(d1.Y-math.Sin(phi)) > 1e-12 {
		t.Errorf("d1 after spin = %+v, want (%g, %g, 0)", d1, math.Cos(phi), math.Sin(phi))
	}
}

func TestDynamicStepAppliesLoads(t *testing.T) {
	spec := validSpec()
	spec.Elements = 1
	r, err := NewStraight(spec)
	if err != nil {
		t.Fatal(err)
	}

	r.ExternalForces()[0] = linalg.Vec3{X: 3}
	r.ExternalTorques()[0] = linalg.Vec3{Z: 0.5}
	prefac := 0.1
	r.DynamicStep(0, prefac)

	wantV := prefac * 3 / r.Masses()[0]
	if got := r.Velocities()[0].X; math.Abs(got-wantV) > 1e-12*wantV {
		t.Errorf("velocity = %g, want %g", got, wantV)
	}
	wantW := prefac * 0.5 * r.state.InverseInertias[0].Z
	if got := r.AngularVelocities()[0].Z; math.Abs(got-wantW) > 1e-9*wantW {
		t.Errorf("angular velocity = %g, want %g", got, wantW)
	}

	r.ResetExternalForcesAndTorques(0)
	if r.ExternalForces()[0] != (linalg.Vec3{}) || r.ExternalTorques()[0] != (linalg.Vec3{}) {
		t.Error("external loads not cleared")
	}
}

func TestVelocityCenterOfMass(t *testing.T) {
	spec := validSpec()
	spec.Elements = 2
	r, err := NewStraight(spec)
	if err != nil {
		t.Fatal(err)
	}

	// End nodes carry half the interior mass: weights 1/4, 2/4, 1/4.
	r.Velocities()[0] = linalg.Vec3{X: 4}
	r.Velocities()[1] = linalg.Vec3{X: 2}
	r.Velocities()[2] = linalg.Vec3{X: 0}

	got := r.VelocityCenterOfMass()
	if math.Abs(got.X-2.0) > 1e-12 {
		t.Errorf("COM velocity = %+v, want (2, 0, 0)", got)
	}
}

func TestRebind(t *testing.T) {
	r, err := NewStraight(validSpec())
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Rebind(newViews(2, 1)); err == nil {
		t.Error("Rebind with mismatched sizes should fail")
	}

	views := newViews(r.NodeCount(), r.ElementCount())
	copy(views.Masses, r.Masses())
	copy(views.InverseMasses, r.StateViews().InverseMasses)
	if err := r.Rebind(views); err != nil {
		t.Fatalf("Rebind() error = %v", err)
	}

	// Mutation through the views is mutation of the rod.
	views.Positions[0] = linalg.Vec3{X: 7}
	if r.Positions()[0].X != 7 {
		t.Error("rod does not share storage with the bound views")
	}
}
