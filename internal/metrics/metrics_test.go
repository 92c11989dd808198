package metrics

import (
	"math"
	"testing"

	"github.com/softmech/rodsim/internal/body"
	"github.com/softmech/rodsim/internal/linalg"
)

func spinningSphere(t *testing.T) *body.Sphere {
	t.Helper()
	s, err := body.NewSphere(linalg.Vec3{}, 0.2, 1000)
	if err != nil {
		t.Fatal(err)
	}
	s.Velocities()[0] = linalg.Vec3{X: 2}
	s.AngularVelocities()[0] = linalg.Vec3{Z: 3}
	return s
}

func TestKineticEnergyIncludesRotation(t *testing.T) {
	s := spinningSphere(t)
	m := NewKineticEnergy()
	m.OnStep(s, 0, 1)

	mass := s.Masses()[0]
	moment := s.InertiaDiagonals()[0].Z
	want := 0.5*mass*4 + 0.5*moment*9
	if math.Abs(m.Value()-want) > 1e-9*want {
		t.Errorf("kinetic energy = %g, want %g", m.Value(), want)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestMomentum(t *testing.T) {
	s := spinningSphere(t)
	m := NewMomentum()
	m.OnStep(s, 0, 1)

	want := s.Masses()[0] * 2
	if math.Abs(m.Value()-want) > 1e-9*want {
		t.Errorf("momentum magnitude = %g, want %g", m.Value(), want)
	}
	if got := m.Vector(); math.Abs(got.X-want) > 1e-9*want || got.Y != 0 || got.Z != 0 {
		t.Errorf("momentum vector = %+v, want (%g, 0, 0)", got, want)
	}

	m.Reset()
	if m.Vector() != (linalg.Vec3{}) {
		t.Error("expected zero momentum after reset")
	}
}

func TestEnergyDriftAgainstFirstSample(t *testing.T) {
	s := spinningSphere(t)
	m := NewEnergyDrift()

	m.OnStep(s, 0, 1)
	if m.Value() != 0 {
		t.Errorf("drift after baseline sample = %g, want 0", m.Value())
	}

	// Halving the velocity quarters the translational term.
	s.Velocities()[0] = linalg.Vec3{X: 1}
	m.OnStep(s, 0.1, 2)
	firstDrift := m.Value()
	if firstDrift <= 0 {
		t.Fatalf("drift = %g, want positive after energy change", firstDrift)
	}

	// Returning to the baseline energy must not lower the running max.
	s.Velocities()[0] = linalg.Vec3{X: 2}
	m.OnStep(s, 0.2, 3)
	if m.Value() != firstDrift {
		t.Errorf("drift = %g, want retained max %g", m.Value(), firstDrift)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestMaxSpeedTracksPeak(t *testing.T) {
	s := spinningSphere(t)
	m := NewMaxSpeed()
	m.OnStep(s, 0, 1)

	s.Velocities()[0] = linalg.Vec3{X: 0.5}
	m.OnStep(s, 0.1, 2)

	if m.Value() != 2 {
		t.Errorf("max speed = %g, want 2", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero max speed after reset")
	}
}

func TestMetricNames(t *testing.T) {
	metrics := []Metric{NewKineticEnergy(), NewMomentum(), NewEnergyDrift(), NewMaxSpeed()}
	want := []string{"kinetic_energy", "momentum", "energy_drift", "max_speed"}
	for i, m := range metrics {
		if m.Name() != want[i] {
			t.Errorf("metric %d name = %q, want %q", i, m.Name(), want[i])
		}
	}
}
