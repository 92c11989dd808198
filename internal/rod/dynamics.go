package rod

import "github.com/softmech/rodsim/internal/linalg"

// minLength guards tangent normalization and per-length couplings on
// degenerate elements.
const minLength = 1e-14

func (r *Rod) updateGeometry() {
	pos := r.state.Positions
	for e := 0; e < r.elements; e++ {
		span := pos[e+1].Sub(pos[e])
		l := span.Norm()
		r.lengths[e] = l
		if l < minLength {
			r.tangents[e] = linalg.Vec3{}
			continue
		}
		r.tangents[e] = span.Scale(1 / l)
	}
}

// ComputeInternalForcesAndTorques refreshes the element geometry and
// rebuilds the internal load accumulators from the current state. Forces
// are in the lab frame, torques in each element's material frame.
func (r *Rod) ComputeInternalForcesAndTorques(float64) {
	r.updateGeometry()
	force := r.state.InternalForces
	torque := r.state.InternalTorques
	for i := range force {
		force[i] = linalg.Vec3{}
	}
	for e := range torque {
		torque[e] = linalg.Vec3{}
	}

	dir := r.state.Directors
	for e := 0; e < r.elements; e++ {
		l := r.lengths[e]
		if l < minLength {
			continue
		}
		t := r.tangents[e]

		// Axial stretching: tension pulls the flanking nodes together
		// when the element is longer than rest, apart when shorter.
		tension := r.axial[e] * (l/r.restLength[e] - 1)
		axial := t.Scale(tension)
		force[e] = force[e].Add(axial)
		force[e+1] = force[e+1].Sub(axial)

		// Alignment couple between the element tangent and the frame's
		// d3 axis. The force pair turns the element toward d3; the
		// reaction torque turns the frame toward the tangent.
		d3 := dir[e].Row(2)
		pull := d3.Sub(t.Scale(d3.Dot(t))).Scale(r.alignKappa[e] / l)
		force[e+1] = force[e+1].Add(pull)
		force[e] = force[e].Sub(pull)
		torque[e] = torque[e].Add(dir[e].MulVec(d3.Cross(t).Scale(r.alignKappa[e])))
	}

	// Bending and twist from the relative rotation of adjacent frames.
	for j := 0; j < r.elements-1; j++ {
		rel := dir[j].Mul(dir[j+1].Transpose())
		phi := linalg.LogSO3(rel)
		couple := r.bendStiff[j].Mul(phi).Scale(1 / r.voronoi[j])
		torque[j] = torque[j].Add(couple)
		torque[j+1] = torque[j+1].Sub(couple)
	}
}

// ResetExternalForcesAndTorques zeroes the external load accumulators.
func (r *Rod) ResetExternalForcesAndTorques(float64) {
	extF := r.state.ExternalForces
	extT := r.state.ExternalTorques
	for i := range extF {
		extF[i] = linalg.Vec3{}
	}
	for e := range extT {
		extT[e] = linalg.Vec3{}
	}
}

// KinematicStep drifts positions along velocities and rotates every
// frame by its angular velocity over prefac.
func (r *Rod) KinematicStep(_, prefac float64) {
	pos, vel := r.state.Positions, r.state.Velocities
	for i := range pos {
		pos[i] = pos[i].Add(vel[i].Scale(prefac))
	}
	dir, omega := r.state.Directors, r.state.AngularVelocities
	for e := range dir {
		dir[e] = linalg.ExpSO3(omega[e].Scale(-prefac)).Mul(dir[e])
	}
}

// DynamicStep kicks velocities by the accumulated loads over prefac.
func (r *Rod) DynamicStep(_, prefac float64) {
	vel := r.state.Velocities
	intF, extF := r.state.InternalForces, r.state.ExternalForces
	invM := r.state.InverseMasses
	for i := range vel {
		vel[i] = vel[i].Add(intF[i].Add(extF[i]).Scale(prefac * invM[i]))
	}
	omega := r.state.AngularVelocities
	intT, extT := r.state.InternalTorques, r.state.ExternalTorques
	invJ := r.state.InverseInertias
	for e := range omega {
		omega[e] = omega[e].Add(invJ[e].Mul(intT[e].Add(extT[e])).Scale(prefac))
	}
}

// VelocityCenterOfMass returns the mass-weighted mean nodal velocity.
func (r *Rod) VelocityCenterOfMass() linalg.Vec3 {
	var p linalg.Vec3
	var total float64
	vel, mass := r.state.Velocities, r.state.Masses
	for i := range vel {
		p = p.Add(vel[i].Scale(mass[i]))
		total += mass[i]
	}
	return p.Scale(1 / total)
}
