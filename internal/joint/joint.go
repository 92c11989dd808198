// Package joint provides node-to-node coupling kernels for the
// connections module.
package joint

import (
	"errors"
	"fmt"

	"github.com/softmech/rodsim/internal/simulation"
)

// ErrBadJoint reports invalid joint parameters.
var ErrBadJoint = errors.New("joint: bad parameters")

// Spring couples two nodes with a linear spring of zero rest length plus
// a velocity dissipation term. The pair of loads is equal and opposite.
func Spring(k, nu float64) simulation.JointFactory {
	return func() (simulation.Joint, error) {
		if k <= 0 {
			return nil, fmt.Errorf("%w: spring stiffness %g must be positive", ErrBadJoint, k)
		}
		if nu < 0 {
			return nil, fmt.Errorf("%w: spring dissipation %g is negative", ErrBadJoint, nu)
		}
		return &spring{k: k, nu: nu}, nil
	}
}

type spring struct {
	k, nu float64
}

func (j *spring) ApplyForces(first, second simulation.System, firstNode, secondNode int, _ float64) {
	gap := second.Positions()[secondNode].Sub(first.Positions()[firstNode])
	closing := second.Velocities()[secondNode].Sub(first.Velocities()[firstNode])
	pull := gap.Scale(j.k).Add(closing.Scale(j.nu))

	first.ExternalForces()[firstNode] = first.ExternalForces()[firstNode].Add(pull)
	second.ExternalForces()[secondNode] = second.ExternalForces()[secondNode].Sub(pull)
}

func (*spring) ApplyTorques(simulation.System, simulation.System, int, int, float64) {}
