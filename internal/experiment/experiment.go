// Package experiment assembles scenarios into finalized simulations and
// executes them.
package experiment

import (
	"context"
	"math"
	"time"

	"github.com/softmech/rodsim/internal/block"
	"github.com/softmech/rodsim/internal/body"
	"github.com/softmech/rodsim/internal/boundary"
	"github.com/softmech/rodsim/internal/config"
	"github.com/softmech/rodsim/internal/contact"
	"github.com/softmech/rodsim/internal/forcing"
	"github.com/softmech/rodsim/internal/metrics"
	"github.com/softmech/rodsim/internal/recorder"
	"github.com/softmech/rodsim/internal/rod"
	"github.com/softmech/rodsim/internal/simulation"
	"github.com/softmech/rodsim/internal/steppers"
)

// Run is an assembled, finalized scenario. A Run executes once: the
// simulator keeps its advanced state afterwards.
type Run struct {
	Scenario  *config.Scenario
	Simulator *simulation.Simulator
	Stepper   steppers.Stepper
	Recorder  *recorder.Recorder
	Metrics   []metrics.Metric
	Report    *simulation.Report

	primary simulation.System
}

// Result summarizes one executed run.
type Result struct {
	FinalTime float64
	Steps     int
	WallTime  time.Duration
	Metrics   map[string]float64
}

// Assemble builds the simulator a scenario describes: entities first,
// then force laws, boundary conditions, contact pairs and observers,
// finalized and ready to step.
func Assemble(sc *config.Scenario) (*Run, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	stepper, err := steppers.New(sc.Stepper)
	if err != nil {
		return nil, err
	}

	sim := simulation.New(simulation.WithAggregator(block.Aggregate))

	var primary simulation.System
	var theRod *rod.Rod
	if sc.Rod != nil {
		theRod, err = rod.NewStraight(*sc.Rod)
		if err != nil {
			return nil, err
		}
		if err := sim.Append(theRod); err != nil {
			return nil, err
		}
		primary = theRod
	}

	spheres := make([]*body.Sphere, 0, len(sc.Spheres))
	for _, scfg := range sc.Spheres {
		s, err := body.NewSphere(scfg.Center, scfg.Radius, scfg.Density)
		if err != nil {
			return nil, err
		}
		s.Velocities()[0] = scfg.Velocity
		if err := sim.Append(s); err != nil {
			return nil, err
		}
		spheres = append(spheres, s)
		if primary == nil {
			primary = s
		}
	}

	var floor *body.Plane
	if sc.Floor != nil {
		floor, err = body.NewPlane(sc.Floor.Origin, sc.Floor.Normal)
		if err != nil {
			return nil, err
		}
		if err := sim.Append(floor); err != nil {
			return nil, err
		}
	}

	if err := declareForcing(sim, sc, theRod, spheres); err != nil {
		return nil, err
	}
	if err := declareBoundary(sim, sc, theRod, spheres); err != nil {
		return nil, err
	}
	if err := declareContact(sim, sc, theRod, spheres, floor); err != nil {
		return nil, err
	}

	run := &Run{Scenario: sc, Simulator: sim, Stepper: stepper, primary: primary}
	if err := declareObservers(sim, sc, run); err != nil {
		return nil, err
	}

	report, err := sim.Finalize()
	if err != nil {
		return nil, err
	}
	run.Report = report
	return run, nil
}

func addForce(f *simulation.Forcing, target simulation.System, factory simulation.ForcingFactory) error {
	h, err := f.AddTo(target)
	if err != nil {
		return err
	}
	h.Using(factory)
	return nil
}

func declareForcing(sim *simulation.Simulator, sc *config.Scenario, theRod *rod.Rod, spheres []*body.Sphere) error {
	if sc.Gravity == nil && sc.Muscle == nil && sc.Drag == nil && sc.Endpoint == nil {
		return nil
	}
	f, err := simulation.NewForcing(sim)
	if err != nil {
		return err
	}
	if sc.Gravity != nil {
		g := forcing.Gravity(sc.Gravity.Accel)
		if theRod != nil {
			if err := addForce(f, theRod, g); err != nil {
				return err
			}
		}
		for _, s := range spheres {
			if err := addForce(f, s, g); err != nil {
				return err
			}
		}
	}
	if sc.Muscle != nil {
		m := sc.Muscle
		factory := forcing.MuscleTorques(m.Amplitudes, m.Period, m.Wavelength, m.Axis, m.RampUp)
		if err := addForce(f, theRod, factory); err != nil {
			return err
		}
	}
	if sc.Drag != nil {
		if err := addForce(f, theRod, forcing.SlenderBodyDrag(sc.Drag.Viscosity)); err != nil {
			return err
		}
	}
	if sc.Endpoint != nil {
		e := sc.Endpoint
		if err := addForce(f, theRod, forcing.EndpointForces(e.Start, e.End, e.RampUp)); err != nil {
			return err
		}
	}
	return nil
}

func constrain(c *simulation.Constraints, target simulation.System, factory simulation.ConstraintFactory) error {
	h, err := c.Constrain(target)
	if err != nil {
		return err
	}
	h.Using(factory)
	return nil
}

func declareBoundary(sim *simulation.Simulator, sc *config.Scenario, theRod *rod.Rod, spheres []*body.Sphere) error {
	if theRod == nil && sc.Damping == nil {
		return nil
	}
	c, err := simulation.NewConstraints(sim)
	if err != nil {
		return err
	}
	if theRod != nil {
		bc := boundary.Free()
		if sc.Boundary == config.BoundaryClamp {
			bc = boundary.ClampEnd()
		}
		if err := constrain(c, theRod, bc); err != nil {
			return err
		}
	}
	if sc.Damping != nil {
		damper := boundary.ExponentialDamper(sc.Damping.Gamma, sc.Dt)
		if theRod != nil {
			if err := constrain(c, theRod, damper); err != nil {
				return err
			}
		}
		for _, s := range spheres {
			if err := constrain(c, s, damper); err != nil {
				return err
			}
		}
	}
	return nil
}

func detect(ct *simulation.Contact, first, second simulation.System, factory simulation.ContactFactory) error {
	h, err := ct.DetectBetween(first, second)
	if err != nil {
		return err
	}
	h.Using(factory)
	return nil
}

func declareContact(sim *simulation.Simulator, sc *config.Scenario, theRod *rod.Rod, spheres []*body.Sphere, floor *body.Plane) error {
	if sc.Contact == nil {
		return nil
	}
	ct, err := simulation.NewContact(sim)
	if err != nil {
		return err
	}
	k, nu := sc.Contact.Stiffness, sc.Contact.Dissipation

	for i := 0; i < len(spheres); i++ {
		for j := i + 1; j < len(spheres); j++ {
			if err := detect(ct, spheres[i], spheres[j], contact.SphereSphere(k, nu)); err != nil {
				return err
			}
		}
	}
	if floor == nil {
		return nil
	}
	for _, s := range spheres {
		if err := detect(ct, s, floor, contact.SpherePlane(k, nu)); err != nil {
			return err
		}
	}
	if theRod != nil {
		factory := contact.RodPlane(k, nu)
		if sc.Contact.FrictionStatic > 0 || sc.Contact.FrictionKinetic > 0 {
			factory = contact.RodPlaneFriction(k, nu, sc.Contact.FrictionStatic, sc.Contact.FrictionKinetic)
		}
		if err := detect(ct, theRod, floor, factory); err != nil {
			return err
		}
	}
	return nil
}

func declareObservers(sim *simulation.Simulator, sc *config.Scenario, run *Run) error {
	cb, err := simulation.NewCallbacks(sim)
	if err != nil {
		return err
	}
	run.Metrics = []metrics.Metric{
		metrics.NewKineticEnergy(),
		metrics.NewMomentum(),
		metrics.NewEnergyDrift(),
		metrics.NewMaxSpeed(),
	}
	for _, m := range run.Metrics {
		h, err := cb.ObserveOf(run.primary)
		if err != nil {
			return err
		}
		h.Using(func() (simulation.Observer, error) { return m, nil })
	}
	if sc.RecordEvery > 0 {
		run.Recorder = recorder.New(sc.RecordEvery)
		h, err := cb.ObserveOf(run.primary)
		if err != nil {
			return err
		}
		h.Using(run.Recorder.Factory())
	}
	return nil
}

// Primary returns the system observers were attached to: the rod when
// the scenario has one, otherwise the first sphere.
func (r *Run) Primary() simulation.System {
	return r.primary
}

// Execute integrates the scenario to its final time. The recorder, when
// enabled, receives the initial state as step zero before stepping
// begins.
func (r *Run) Execute(ctx context.Context, opts ...steppers.IntegrateOption) (*Result, error) {
	steps := int(math.Round(r.Scenario.Duration / r.Scenario.Dt))
	if steps < 1 {
		steps = 1
	}
	if r.Recorder != nil {
		r.Recorder.OnStep(r.primary, 0, 0)
	}

	opts = append(opts, steppers.WithFinitenessCheck(1000))
	start := time.Now()
	finalTime, err := steppers.Integrate(ctx, r.Stepper, r.Simulator, r.Scenario.Duration, steps, opts...)
	if err != nil {
		return nil, err
	}

	res := &Result{
		FinalTime: finalTime,
		Steps:     steps,
		WallTime:  time.Since(start),
		Metrics:   make(map[string]float64, len(r.Metrics)),
	}
	for _, m := range r.Metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res, nil
}
