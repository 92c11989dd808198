// Package block packs simulated entities into contiguous state blocks so
// the stepper advances many members with single loops. Members keep
// working views into the block's arrays: reading or writing state through
// a member and through its block are the same operation.
package block

import (
	"fmt"

	"github.com/softmech/rodsim/internal/linalg"
	"github.com/softmech/rodsim/internal/simulation"
)

// Block is a contiguous state container stepping several members as one
// system. Internal-force computation stays per member; the kinematic and
// dynamic sub-steps run over the packed arrays.
type Block struct {
	label   string
	members []simulation.Packable
	state   simulation.StateViews
}

func newBlock(label string, members []simulation.Packable) (*Block, error) {
	var nodes, elems int
	for _, m := range members {
		v := m.StateViews()
		nodes += v.Nodes()
		elems += v.Elements()
	}

	b := &Block{
		label:   label,
		members: members,
		state: simulation.StateViews{
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
		},
	}

	nodeOff, elemOff := 0, 0
	for i, m := range members {
		v := m.StateViews()
		nn, ne := v.Nodes(), v.Elements()
		// Capacity-capped so a member can never grow its view into a
		// neighbour's segment.
		sub := simulation.StateViews{
			Positions:         b.state.Positions[nodeOff : nodeOff+nn : nodeOff+nn],
			Velocities:        b.state.Velocities[nodeOff : nodeOff+nn : nodeOff+nn],
			Masses:            b.state.Masses[nodeOff : nodeOff+nn : nodeOff+nn],
			InverseMasses:     b.state.InverseMasses[nodeOff : nodeOff+nn : nodeOff+nn],
			InternalForces:    b.state.InternalForces[nodeOff : nodeOff+nn : nodeOff+nn],
			ExternalForces:    b.state.ExternalForces[nodeOff : nodeOff+nn : nodeOff+nn],
			Directors:         b.state.Directors[elemOff : elemOff+ne : elemOff+ne],
			AngularVelocities: b.state.AngularVelocities[elemOff : elemOff+ne : elemOff+ne],
			InternalTorques:   b.state.InternalTorques[elemOff : elemOff+ne : elemOff+ne],
			ExternalTorques:   b.state.ExternalTorques[elemOff : elemOff+ne : elemOff+ne],
			InverseInertias:   b.state.InverseInertias[elemOff : elemOff+ne : elemOff+ne],
		}
		copy(sub.Positions, v.Positions)
		copy(sub.Velocities, v.Velocities)
		copy(sub.Masses, v.Masses)
		copy(sub.InverseMasses, v.InverseMasses)
		copy(sub.InternalForces, v.InternalForces)
		copy(sub.ExternalForces, v.ExternalForces)
		copy(sub.Directors, v.Directors)
		copy(sub.AngularVelocities, v.AngularVelocities)
		copy(sub.InternalTorques, v.InternalTorques)
		copy(sub.ExternalTorques, v.ExternalTorques)
		copy(sub.InverseInertias, v.InverseInertias)

		if err := m.Rebind(sub); err != nil {
			return nil, fmt.Errorf("block: %s member %d: %w", label, i, err)
		}
		nodeOff += nn
		elemOff += ne
	}
	return b, nil
}

// Label identifies the block in diagnostics.
func (b *Block) Label() string { return b.label }

// Members returns the packed systems in packing order.
func (b *Block) Members() []simulation.System {
	out := make([]simulation.System, len(b.members))
	for i, m := range b.members {
		out[i] = m
	}
	return out
}

func (b *Block) NodeCount() int                   { return len(b.state.Positions) }
func (b *Block) Positions() []linalg.Vec3         { return b.state.Positions }
func (b *Block) Velocities() []linalg.Vec3        { return b.state.Velocities }
func (b *Block) Directors() []linalg.Mat3         { return b.state.Directors }
func (b *Block) AngularVelocities() []linalg.Vec3 { return b.state.AngularVelocities }
func (b *Block) Masses() []float64                { return b.state.Masses }
func (b *Block) ExternalForces() []linalg.Vec3    { return b.state.ExternalForces }
func (b *Block) ExternalTorques() []linalg.Vec3   { return b.state.ExternalTorques }

// ComputeInternalForcesAndTorques delegates to every member; each writes
// into its own segment of the packed accumulators.
func (b *Block) ComputeInternalForcesAndTorques(time float64) {
	for _, m := range b.members {
		m.ComputeInternalForcesAndTorques(time)
	}
}

func (b *Block) ResetExternalForcesAndTorques(float64) {
	for i := range b.state.ExternalForces {
		b.state.ExternalForces[i] = linalg.Vec3{}
	}
	for e := range b.state.ExternalTorques {
		b.state.ExternalTorques[e] = linalg.Vec3{}
	}
}

func (b *Block) KinematicStep(_, prefac float64) {
	pos, vel := b.state.Positions, b.state.Velocities
	for i := range pos {
		pos[i] = pos[i].Add(vel[i].Scale(prefac))
	}
	dir, omega := b.state.Directors, b.state.AngularVelocities
	for e := range dir {
		dir[e] = linalg.ExpSO3(omega[e].Scale(-prefac)).Mul(dir[e])
	}
}

func (b *Block) DynamicStep(_, prefac float64) {
	vel := b.state.Velocities
	intF, extF := b.state.InternalForces, b.state.ExternalForces
	invM := b.state.InverseMasses
	for i := range vel {
		vel[i] = vel[i].Add(intF[i].Add(extF[i]).Scale(prefac * invM[i]))
	}
	omega := b.state.AngularVelocities
	intT, extT := b.state.InternalTorques, b.state.ExternalTorques
	invJ := b.state.InverseInertias
	for e := range omega {
		omega[e] = omega[e].Add(invJ[e].Mul(intT[e].Add(extT[e])).Scale(prefac))
	}
}

func (b *Block) VelocityCenterOfMass() linalg.Vec3 {
	var p linalg.Vec3
	var total float64
	for i := range b.state.Velocities {
		p = p.Add(b.state.Velocities[i].Scale(b.state.Masses[i]))
		total += b.state.Masses[i]
	}
	if total == 0 {
		return linalg.Vec3{}
	}
	return p.Scale(1 / total)
}

// Aggregate packs rod systems into one block and rigid bodies into
// another, preserving registration order inside each. Static surfaces
// are excluded; systems that cannot be packed step as their own blocks.
func Aggregate(systems []simulation.System) ([]simulation.System, error) {
	var rods, bodies []simulation.Packable
	var loose []simulation.System
	for _, sys := range systems {
		if _, static := sys.(simulation.Surface); static {
			continue
		}
		p, ok := sys.(simulation.Packable)
		if !ok {
			loose = append(loose, sys)
			continue
		}
		if _, isRod := sys.(simulation.Rod); isRod {
			rods = append(rods, p)
		} else {
			bodies = append(bodies, p)
		}
	}

	blocks := make([]simulation.System, 0, 2+len(loose))
	if len(rods) > 0 {
		b, err := newBlock("rods", rods)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if len(bodies) > 0 {
		b, err := newBlock("bodies", bodies)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return append(blocks, loose...), nil
}
