// Package forcing provides external force laws for the forcing module.
// Each constructor returns a factory so that argument validation happens
// at finalize, together with every other declaration error.
package forcing

import (
	"errors"
	"fmt"
	"math"

	"github.com/softmech/rodsim/internal/linalg"
	"github.com/softmech/rodsim/internal/simulation"
)

var ErrBadForcing = errors.New("forcing: invalid parameters")

// Gravity returns a uniform acceleration field: every node is loaded
// with accel times its mass.
func Gravity(accel linalg.Vec3) simulation.ForcingFactory {
	return func() (simulation.Forcer, error) {
		return &gravity{accel: accel}, nil
	}
}

type gravity struct {
	accel linalg.Vec3
}

func (g *gravity) ApplyForces(s simulation.System, _ float64) {
	forces := s.ExternalForces()
	masses := s.Masses()
	for i := range forces {
		forces[i] = forces[i].Add(g.accel.Scale(masses[i]))
	}
}

func (g *gravity) ApplyTorques(simulation.System, float64) {}

// EndpointForces loads the first and last node with fixed forces, ramped
// linearly from zero over rampUp time.
func EndpointForces(start, end linalg.Vec3, rampUp float64) simulation.ForcingFactory {
	return func() (simulation.Forcer, error) {
		if !(rampUp > 0) {
			return nil, fmt.Errorf("%w: ramp-up time must be positive, got %g", ErrBadForcing, rampUp)
		}
		return &endpointForces{start: start, end: end, rampUp: rampUp}, nil
	}
}

type endpointForces struct {
	start, end linalg.Vec3
	rampUp     float64
}

func (e *endpointForces) ApplyForces(s simulation.System, time float64) {
	n := s.NodeCount()
	if n == 0 {
		return
	}
	factor := math.Min(1, time/e.rampUp)
	forces := s.ExternalForces()
	forces[0] = forces[0].Add(e.start.Scale(factor))
	forces[n-1] = forces[n-1].Add(e.end.Scale(factor))
}

func (e *endpointForces) ApplyTorques(simulation.System, float64) {}

// MuscleTorques drives a rod with a travelling torque wave
// A(s)*sin(2*pi*t/period - 2*pi*s/wavelength) about the given lab-frame
// axis. The amplitude profile is piecewise linear through the given
// samples, spaced evenly over the rest arclength. Each element's torque
// is applied as a couple against its predecessor, so the wave sums to
// zero net torque on the rod.
func MuscleTorques(amplitudes []float64, period, wavelength float64, axis linalg.Vec3, rampUp float64) simulation.ForcingFactory {
	return func() (simulation.Forcer, error) {
		if len(amplitudes) < 2 {
			return nil, fmt.Errorf("%w: need at least two amplitude samples, got %d", ErrBadForcing, len(amplitudes))
		}
		if !(period > 0) {
			return nil, fmt.Errorf("%w: period must be positive, got %g", ErrBadForcing, period)
		}
		if !(wavelength > 0) {
			return nil, fmt.Errorf("%w: wavelength must be positive, got %g", ErrBadForcing, wavelength)
		}
		if !(rampUp > 0) {
			return nil, fmt.Errorf("%w: ramp-up time must be positive, got %g", ErrBadForcing, rampUp)
		}
		if axis.Norm() < 1e-14 {
			return nil, fmt.Errorf("%w: torque axis must be nonzero", ErrBadForcing)
		}
		return &muscleTorques{
			amplitudes: amplitudes,
			omega:      2 * math.Pi / period,
			waveNumber: 2 * math.Pi / wavelength,
			axis:       axis.Normalized(),
			rampUp:     rampUp,
		}, nil
	}
}

type muscleTorques struct {
	amplitudes []float64
	omega      float64
	waveNumber float64
	axis       linalg.Vec3
	rampUp     float64

	// per-element profile, built from the target rod on first use
	arc     []float64
	profile []float64
}

func (m *muscleTorques) ApplyForces(simulation.System, float64) {}

func (m *muscleTorques) ApplyTorques(s simulation.System, time float64) {
	target, ok := s.(simulation.Rod)
	if !ok {
		return
	}
	if m.profile == nil {
		m.buildProfile(target.RestLengths())
	}

	factor := math.Min(1, time/m.rampUp)
	dirs := s.Directors()
	torques := s.ExternalTorques()
	for e := 1; e < len(dirs); e++ {
		mag := factor * m.profile[e] * math.Sin(m.omega*time-m.waveNumber*m.arc[e])
		couple := m.axis.Scale(mag)
		torques[e] = torques[e].Add(dirs[e].MulVec(couple))
		torques[e-1] = torques[e-1].Sub(dirs[e-1].MulVec(couple))
	}
}

// buildProfile samples the piecewise-linear amplitude at each element
// center of the rest arclength.
func (m *muscleTorques) buildProfile(restLengths []float64) {
	n := len(restLengths)
	m.arc = make([]float64, n)
	m.profile = make([]float64, n)

	var total float64
	for _, l := range restLengths {
		total += l
	}
	pos := 0.0
	for e, l := range restLengths {
		m.arc[e] = pos + 0.5*l
		pos += l
	}

	segments := len(m.amplitudes) - 1
	for e := range m.arc {
		u := m.arc[e] / total * float64(segments)
		idx := int(u)
		if idx >= segments {
			idx = segments - 1
		}
		frac := u - float64(idx)
		m.profile[e] = m.amplitudes[idx]*(1-frac) + m.amplitudes[idx+1]*frac
	}
}

// SlenderBodyDrag returns the anisotropic low-Reynolds drag of
// slender-body theory: per element, force density
// -4*pi*mu/ln(L/r) * (I - t t^T / 2) * v, integrated over the element
// and split between its nodes.
func SlenderBodyDrag(viscosity float64) simulation.ForcingFactory {
	return func() (simulation.Forcer, error) {
		if !(viscosity > 0) {
			return nil, fmt.Errorf("%w: viscosity must be positive, got %g", ErrBadForcing, viscosity)
		}
		return &slenderBodyDrag{viscosity: viscosity}, nil
	}
}

type slenderBodyDrag struct {
	viscosity float64
}

func (d *slenderBodyDrag) ApplyForces(s simulation.System, _ float64) {
	target, ok := s.(simulation.Rod)
	if !ok {
		return
	}
	pos := s.Positions()
	vel := s.Velocities()
	forces := s.ExternalForces()
	radii := target.Radii()

	var total float64
	for e := 0; e < len(radii); e++ {
		total += pos[e+1].Sub(pos[e]).Norm()
	}

	for e := 0; e < len(radii); e++ {
		span := pos[e+1].Sub(pos[e])
		l := span.Norm()
		if l < 1e-14 || total <= radii[e] {
			continue
		}
		t := span.Scale(1 / l)
		coeff := -4 * math.Pi * d.viscosity / math.Log(total/radii[e]) * l

		v := vel[e].Add(vel[e+1]).Scale(0.5)
		drag := v.Sub(t.Scale(0.5 * v.Dot(t))).Scale(coeff)

		half := drag.Scale(0.5)
		forces[e] = forces[e].Add(half)
		forces[e+1] = forces[e+1].Add(half)
	}
}

func (d *slenderBodyDrag) ApplyTorques(simulation.System, float64) {}
