package ops

import (
	"errors"
	"testing"
)

// collect runs every operator and returns the values they record.
func collect(g *Group[func(*[]string)]) []string {
	var out []string
	g.ForEach(func(op func(*[]string)) { op(&out) })
	return out
}

func mark(s string) func(*[]string) {
	return func(out *[]string) { *out = append(*out, s) }
}

func TestAppendOrder(t *testing.T) {
	var g Group[func(*[]string)]
	g.Append(mark("a"))
	g.Append(mark("b"))
	g.Append(mark("c"))

	got := collect(&g)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("ForEach visited %d operators, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("operator %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReserveFixesPosition(t *testing.T) {
	var g Group[func(*[]string)]
	type handle struct{ name string }
	h := &handle{"contact"}

	g.Append(mark("before"))
	if err := g.Reserve(h); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	g.Append(mark("after"))

	// Filling the reserved slot later must not move it.
	if err := g.Add(h, mark("reserved-1"), mark("reserved-2")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got := collect(&g)
	want := []string{"before", "reserved-1", "reserved-2", "after"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("operator %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReserveErrors(t *testing.T) {
	var g Group[func(*[]string)]
	type handle struct{}
	h := &handle{}

	if err := g.Reserve(h); err != nil {
		t.Fatalf("first Reserve() error = %v", err)
	}
	if err := g.Reserve(h); !errors.Is(err, ErrDuplicateOwner) {
		t.Errorf("second Reserve() error = %v, want ErrDuplicateOwner", err)
	}
	if err := g.Add(&handle{}, mark("x")); !errors.Is(err, ErrUnknownOwner) {
		t.Errorf("Add() for unreserved owner error = %v, want ErrUnknownOwner", err)
	}
	if err := g.Reserve(nil); !errors.Is(err, ErrUnknownOwner) {
		t.Errorf("Reserve(nil) error = %v, want ErrUnknownOwner", err)
	}
}

func TestAppendWithOwner(t *testing.T) {
	var g Group[func(*[]string)]
	type handle struct{}
	h := &handle{}

	if err := g.AppendWithOwner(h, mark("first")); err != nil {
		t.Fatalf("AppendWithOwner() error = %v", err)
	}
	g.Append(mark("anon"))
	// A second append for the same owner extends the original slot,
	// keeping its position ahead of the anonymous operator.
	if err := g.AppendWithOwner(h, mark("second")); err != nil {
		t.Fatalf("AppendWithOwner() error = %v", err)
	}

	got := collect(&g)
	want := []string{"first", "second", "anon"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("operator %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsLast(t *testing.T) {
	var g Group[func(*[]string)]
	type handle struct{ name string }
	a, b := &handle{"a"}, &handle{"b"}

	if g.IsLast(a) {
		t.Error("IsLast() on empty group = true, want false")
	}
	if err := g.Reserve(a); err != nil {
		t.Fatal(err)
	}
	if !g.IsLast(a) {
		t.Error("IsLast(a) = false after a reserved the only slot")
	}
	if err := g.Reserve(b); err != nil {
		t.Fatal(err)
	}
	if g.IsLast(a) {
		t.Error("IsLast(a) = true after b reserved a later slot")
	}
	if !g.IsLast(b) {
		t.Error("IsLast(b) = false, want true")
	}
	g.Append(mark("anon"))
	if g.IsLast(b) {
		t.Error("IsLast(b) = true after a later anonymous append")
	}
}

func TestLenAndClear(t *testing.T) {
	var g Group[func(*[]string)]
	type handle struct{}
	h := &handle{}

	g.Append(mark("a"))
	if err := g.Reserve(h); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(h, mark("b"), mark("c")); err != nil {
		t.Fatal(err)
	}

	if got := g.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if got := g.Slots(); got != 2 {
		t.Errorf("Slots() = %d, want 2", got)
	}

	g.Clear()
	if g.Len() != 0 || g.Slots() != 0 {
		t.Errorf("after Clear(): Len() = %d, Slots() = %d, want 0, 0", g.Len(), g.Slots())
	}
	// Cleared owners may reserve again.
	if err := g.Reserve(h); err != nil {
		t.Errorf("Reserve() after Clear() error = %v", err)
	}
}
