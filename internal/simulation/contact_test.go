package simulation

import (
	"errors"
	"testing"
)

// logKernel records each Apply into a shared journal.
type logKernel struct {
	journal  *[]string
	tag      string
	lastOnly bool
	badPair  error
}

func (k *logKernel) Apply(first, second System) { *k.journal = append(*k.journal, k.tag) }

func (k *logKernel) CheckCompatibility(first, second System) error { return k.badPair }

func (k *logKernel) LastOnly() bool { return k.lastOnly }

// captureKernel records which systems it was handed.
type captureKernel struct {
	first, second System
}

func (k *captureKernel) Apply(first, second System) { k.first, k.second = first, second }

func (k *captureKernel) CheckCompatibility(first, second System) error { return nil }

// logForcer records force and torque application into a shared journal.
type logForcer struct {
	journal *[]string
	tag     string
}

func (f *logForcer) ApplyForces(s System, time float64)  { *f.journal = append(*f.journal, f.tag+":forces") }
func (f *logForcer) ApplyTorques(s System, time float64) { *f.journal = append(*f.journal, f.tag+":torques") }

func kernelFactory(k ContactForce) ContactFactory {
	return func() (ContactForce, error) { return k, nil }
}

func forcerFactory(f Forcer) ForcingFactory {
	return func() (Forcer, error) { return f, nil }
}

func twoRodSim(t *testing.T) (*Simulator, *fakeRod, *fakeRod) {
	t.Helper()
	sim := New()
	a, b := newFakeRod(3), newFakeRod(3)
	for _, sys := range []System{a, b} {
		if err := sim.Append(sys); err != nil {
			t.Fatal(err)
		}
	}
	return sim, a, b
}

func TestContactDeclarationResolvesReferences(t *testing.T) {
	sim, a, _ := twoRodSim(t)
	contact, err := NewContact(sim)
	if err != nil {
		t.Fatal(err)
	}

	h, err := contact.DetectBetween(a, -1)
	if err != nil {
		t.Fatalf("DetectBetween() error = %v", err)
	}
	first, second := h.Pair()
	if first != 0 || second != 1 {
		t.Errorf("Pair() = (%d, %d), want (0, 1)", first, second)
	}

	if _, err := contact.DetectBetween(newFakeRod(3), a); !errors.Is(err, ErrSystemNotFound) {
		t.Errorf("DetectBetween(unregistered) error = %v, want ErrSystemNotFound", err)
	}
	if _, err := contact.DetectBetween(a, 9); !errors.Is(err, ErrIndexRange) {
		t.Errorf("DetectBetween(out of range) error = %v, want ErrIndexRange", err)
	}
}

func TestContactMissingAlgorithm(t *testing.T) {
	sim, a, b := twoRodSim(t)
	contact, err := NewContact(sim)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := contact.DetectBetween(a, b); err != nil {
		t.Fatal(err)
	}

	if _, err := sim.Finalize(); !errors.Is(err, ErrNoAlgorithm) {
		t.Fatalf("Finalize() error = %v, want ErrNoAlgorithm", err)
	}
	if sim.Finalized() {
		t.Error("Finalized() = true after failed finalize")
	}
}

func TestContactConstructionFailure(t *testing.T) {
	sim, a, b := twoRodSim(t)
	contact, err := NewContact(sim)
	if err != nil {
		t.Fatal(err)
	}
	h, err := contact.DetectBetween(a, b)
	if err != nil {
		t.Fatal(err)
	}
	h.Using(func() (ContactForce, error) { return nil, errors.New("negative stiffness") })

	if _, err := sim.Finalize(); !errors.Is(err, ErrConstruction) {
		t.Errorf("Finalize() error = %v, want ErrConstruction", err)
	}
}

func TestContactIncompatiblePair(t *testing.T) {
	sim, a, b := twoRodSim(t)
	contact, err := NewContact(sim)
	if err != nil {
		t.Fatal(err)
	}
	h, err := contact.DetectBetween(a, b)
	if err != nil {
		t.Fatal(err)
	}
	h.Using(kernelFactory(&logKernel{badPair: errors.New("needs a surface")}))

	if _, err := sim.Finalize(); !errors.Is(err, ErrIncompatible) {
		t.Errorf("Finalize() error = %v, want ErrIncompatible", err)
	}
}

func TestContactLastUsingWins(t *testing.T) {
	sim, a, b := twoRodSim(t)
	contact, err := NewContact(sim)
	if err != nil {
		t.Fatal(err)
	}
	var journal []string
	h, err := contact.DetectBetween(a, b)
	if err != nil {
		t.Fatal(err)
	}
	h.Using(kernelFactory(&logKernel{journal: &journal, tag: "first"}))
	h.Using(kernelFactory(&logKernel{journal: &journal, tag: "second"}))

	if _, err := sim.Finalize(); err != nil {
		t.Fatal(err)
	}
	sim.Synchronize(0)
	if len(journal) != 1 || journal[0] != "second" {
		t.Errorf("journal = %v, want [second]", journal)
	}
}

func TestSynchronizeRunsInDeclarationOrder(t *testing.T) {
	// Contact is declared before forcing, so its operator must run first
	// even though the slot is only filled at finalize, after the forcing
	// module already filled its own. Installing forcing first makes its
	// finalize run first.
	sim, a, b := twoRodSim(t)
	forcing, err := NewForcing(sim)
	if err != nil {
		t.Fatal(err)
	}
	contact, err := NewContact(sim)
	if err != nil {
		t.Fatal(err)
	}

	var journal []string
	ch, err := contact.DetectBetween(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ch.Using(kernelFactory(&logKernel{journal: &journal, tag: "contact"}))
	fh, err := forcing.AddTo(a)
	if err != nil {
		t.Fatal(err)
	}
	fh.Using(forcerFactory(&logForcer{journal: &journal, tag: "gravity"}))

	if _, err := sim.Finalize(); err != nil {
		t.Fatal(err)
	}
	sim.Synchronize(0)

	want := []string{"contact", "gravity:forces", "gravity:torques"}
	if len(journal) != len(want) {
		t.Fatalf("journal = %v, want %v", journal, want)
	}
	for i := range want {
		if journal[i] != want[i] {
			t.Fatalf("journal = %v, want %v", journal, want)
		}
	}
}

func TestContactReadsCurrentOccupant(t *testing.T) {
	// The operator captures indices, not pointers: replacing a system
	// after declaration redirects the contact to the replacement.
	sim, a, b := twoRodSim(t)
	contact, err := NewContact(sim)
	if err != nil {
		t.Fatal(err)
	}
	kernel := &captureKernel{}
	h, err := contact.DetectBetween(a, b)
	if err != nil {
		t.Fatal(err)
	}
	h.Using(kernelFactory(kernel))

	c := newFakeRod(4)
	if err := sim.Replace(1, c); err != nil {
		t.Fatal(err)
	}
	if _, err := sim.Finalize(); err != nil {
		t.Fatal(err)
	}
	sim.Synchronize(0)

	if kernel.first != System(a) {
		t.Error("kernel saw the wrong first system")
	}
	if kernel.second != System(c) {
		t.Error("kernel did not see the replacement system")
	}
}

func TestContactFinalLoadsWarning(t *testing.T) {
	t.Run("warns when not last", func(t *testing.T) {
		sim, a, b := twoRodSim(t)
		contact, _ := NewContact(sim)
		forcing, _ := NewForcing(sim)

		var journal []string
		ch, err := contact.DetectBetween(a, b)
		if err != nil {
			t.Fatal(err)
		}
		ch.Using(kernelFactory(&logKernel{journal: &journal, lastOnly: true}))
		fh, err := forcing.AddTo(a)
		if err != nil {
			t.Fatal(err)
		}
		fh.Using(forcerFactory(&logForcer{journal: &journal, tag: "late"}))

		report, err := sim.Finalize()
		if err != nil {
			t.Fatal(err)
		}
		if !report.HasWarnings() {
			t.Error("report has no warnings, want one about final synchronized loads")
		}
	})

	t.Run("silent when last", func(t *testing.T) {
		sim, a, b := twoRodSim(t)
		forcing, _ := NewForcing(sim)
		contact, _ := NewContact(sim)

		var journal []string
		fh, err := forcing.AddTo(a)
		if err != nil {
			t.Fatal(err)
		}
		fh.Using(forcerFactory(&logForcer{journal: &journal, tag: "early"}))
		ch, err := contact.DetectBetween(a, b)
		if err != nil {
			t.Fatal(err)
		}
		ch.Using(kernelFactory(&logKernel{journal: &journal, lastOnly: true}))

		report, err := sim.Finalize()
		if err != nil {
			t.Fatal(err)
		}
		if report.HasWarnings() {
			t.Errorf("unexpected warnings: %v", report.Warnings)
		}
	})
}
