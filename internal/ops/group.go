// Package ops provides an append-only ordered registry of operators with
// optional owner tagging.
//
// A [Group] holds slots in insertion order. A slot is either anonymous
// (a single operator) or owned: a registrant reserves a slot first and
// fills in its operators later, so a feature can fix its position in the
// pipeline at declaration time and supply the actual work at finalize
// time. Iteration visits slots in insertion order and the operators
// inside a slot in the order they were added. Operators are never
// removed or reordered; the only destructive operation is [Group.Clear].
package ops

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateOwner is returned when an owner reserves a second slot.
	ErrDuplicateOwner = errors.New("ops: owner already holds a slot")
	// ErrUnknownOwner is returned when operators are added for an owner
	// that never reserved a slot.
	ErrUnknownOwner = errors.New("ops: owner has no slot")
)

type slot[T any] struct {
	owner any // nil for anonymous slots
	items []T
}

// Group is an ordered collection of operators. Owner keys are compared by
// interface equality, so handle pointers are the expected key type. The
// zero value is ready to use.
type Group[T any] struct {
	slots  []slot[T]
	owners map[any]int
}

// Append adds a single anonymous operator after all existing slots.
func (g *Group[T]) Append(op T) {
	g.slots = append(g.slots, slot[T]{items: []T{op}})
}

// Reserve creates an empty slot for owner at the current end of the
// group. The slot's position is fixed from this point on even though its
// operators arrive later via [Group.Add].
func (g *Group[T]) Reserve(owner any) error {
	if owner == nil {
		return fmt.Errorf("%w: nil owner", ErrUnknownOwner)
	}
	if _, ok := g.owners[owner]; ok {
		return ErrDuplicateOwner
	}
	if g.owners == nil {
		g.owners = make(map[any]int)
	}
	g.owners[owner] = len(g.slots)
	g.slots = append(g.slots, slot[T]{owner: owner})
	return nil
}

// Add appends operators to the slot previously reserved by owner.
func (g *Group[T]) Add(owner any, operators ...T) error {
	idx, ok := g.owners[owner]
	if !ok {
		return ErrUnknownOwner
	}
	g.slots[idx].items = append(g.slots[idx].items, operators...)
	return nil
}

// AppendWithOwner reserves a slot for owner if it has none and appends op
// to it. Useful when declaration and materialization happen at the same
// time.
func (g *Group[T]) AppendWithOwner(owner any, op T) error {
	if _, ok := g.owners[owner]; !ok {
		if err := g.Reserve(owner); err != nil {
			return err
		}
	}
	return g.Add(owner, op)
}

// IsLast reports whether owner holds the final slot of the group at call
// time. Appending anything afterwards changes the answer.
func (g *Group[T]) IsLast(owner any) bool {
	if len(g.slots) == 0 {
		return false
	}
	return g.slots[len(g.slots)-1].owner == owner
}

// ForEach calls fn for every operator in order.
func (g *Group[T]) ForEach(fn func(T)) {
	for _, s := range g.slots {
		for _, op := range s.items {
			fn(op)
		}
	}
}

// Len returns the total number of operators across all slots.
func (g *Group[T]) Len() int {
	n := 0
	for _, s := range g.slots {
		n += len(s.items)
	}
	return n
}

// Slots returns the number of slots, reserved-but-empty ones included.
func (g *Group[T]) Slots() int { return len(g.slots) }

// Clear drops every slot and owner association.
func (g *Group[T]) Clear() {
	g.slots = nil
	g.owners = nil
}
