package simulation

import "fmt"

// ConnectionHandle is one declared joint between two systems.
type ConnectionHandle struct {
	first, second         int
	firstNode, secondNode int
	factory               JointFactory
}

// Using binds the joint factory. The last call before finalize wins.
func (h *ConnectionHandle) Using(factory JointFactory) *ConnectionHandle {
	h.factory = factory
	return h
}

// Connections is the feature module that couples systems at single nodes
// during synchronize.
type Connections struct {
	sim      *Simulator
	declared []*ConnectionHandle
}

// NewConnections installs the connections module on sim.
func NewConnections(sim *Simulator) (*Connections, error) {
	c := &Connections{sim: sim}
	if err := sim.installModule("connections", c.finalize); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect declares a joint between node firstNode of the first system
// and node secondNode of the second. Node indices may be negative to
// count from the end; both are validated against the node counts at
// declaration time.
func (c *Connections) Connect(first, second any, firstNode, secondNode int) (*ConnectionHandle, error) {
	if c.sim.finalized {
		return nil, ErrFinalized
	}
	firstIdx, err := c.sim.Index(first)
	if err != nil {
		return nil, fmt.Errorf("connections: first system: %w", err)
	}
	secondIdx, err := c.sim.Index(second)
	if err != nil {
		return nil, fmt.Errorf("connections: second system: %w", err)
	}
	fn, err := resolveNode(c.sim.systems[firstIdx], firstNode)
	if err != nil {
		return nil, fmt.Errorf("connections: first system node: %w", err)
	}
	sn, err := resolveNode(c.sim.systems[secondIdx], secondNode)
	if err != nil {
		return nil, fmt.Errorf("connections: second system node: %w", err)
	}
	h := &ConnectionHandle{first: firstIdx, second: secondIdx, firstNode: fn, secondNode: sn}
	if err := c.sim.synchronize.Reserve(h); err != nil {
		return nil, fmt.Errorf("connections: %w", err)
	}
	c.declared = append(c.declared, h)
	return h, nil
}

func resolveNode(sys System, node int) (int, error) {
	n := sys.NodeCount()
	idx := node
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("%w: node %d with %d nodes", ErrIndexRange, node, n)
	}
	return idx, nil
}

func (c *Connections) finalize(*Report) error {
	for _, h := range c.declared {
		if h.factory == nil {
			return fmt.Errorf("%w: connection between systems %d and %d (did you forget to call Using?)",
				ErrNoAlgorithm, h.first, h.second)
		}
		joint, err := h.factory()
		if err != nil {
			return fmt.Errorf("%w: connection between systems %d and %d: %v",
				ErrConstruction, h.first, h.second, err)
		}
		first, second := c.sim.systems[h.first], c.sim.systems[h.second]
		fn, sn := h.firstNode, h.secondNode
		applyForces := func(time float64) { joint.ApplyForces(first, second, fn, sn, time) }
		applyTorques := func(time float64) { joint.ApplyTorques(first, second, fn, sn, time) }
		if err := c.sim.synchronize.Add(h, applyForces, applyTorques); err != nil {
			return fmt.Errorf("connections: %w", err)
		}
	}
	return nil
}
