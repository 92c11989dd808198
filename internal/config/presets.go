package config

import (
	"sort"

	"github.com/softmech/rodsim/internal/linalg"
	"github.com/softmech/rodsim/internal/rod"
)

var Presets = map[string]*Scenario{
	"flagella": {
		Name:        "flagella",
		Stepper:     "pefrl",
		Dt:          5e-5,
		Duration:    4.0,
		RecordEvery: 200,
		Boundary:    BoundaryFree,
		Rod: &rod.Spec{
			Elements:  50,
			Direction: linalg.Vec3{X: 1},
			Normal:    linalg.Vec3{Z: 1},
			Length:    1.0,
			Radius:    0.025,
			Density:   1000,
			Young:     1e7,
			Shear:     3.33e6,
		},
		Muscle: &MuscleConfig{
			Amplitudes: []float64{0.005, 0.01, 0.015, 0.01, 0.005},
			Period:     1.0,
			Wavelength: 1.0,
			Axis:       linalg.Vec3{Y: 1},
			RampUp:     0.2,
		},
		Drag: &DragConfig{Viscosity: 1.2},
	},
	"cantilever": {
		Name:        "cantilever",
		Stepper:     "position-verlet",
		Dt:          1e-4,
		Duration:    3.0,
		RecordEvery: 100,
		Boundary:    BoundaryClamp,
		Rod: &rod.Spec{
			Elements:  50,
			Direction: linalg.Vec3{X: 1},
			Normal:    linalg.Vec3{Z: 1},
			Length:    1.0,
			Radius:    0.02,
			Density:   2000,
			Young:     1e6,
			Shear:     3.33e5,
		},
		Gravity: &GravityConfig{Accel: linalg.Vec3{Z: -9.81}},
		Damping: &DampingConfig{Gamma: 0.5},
	},
	"dropped-spheres": {
		Name:        "dropped-spheres",
		Stepper:     "pefrl",
		Dt:          2e-4,
		Duration:    2.0,
		RecordEvery: 50,
		Spheres: []SphereConfig{
			{Center: linalg.Vec3{Z: 0.5}, Radius: 0.1, Density: 1000},
			{Center: linalg.Vec3{X: 0.05, Z: 0.75}, Radius: 0.1, Density: 1000},
		},
		Floor:   &FloorConfig{Normal: linalg.Vec3{Z: 1}},
		Gravity: &GravityConfig{Accel: linalg.Vec3{Z: -9.81}},
		Contact: &ContactConfig{Stiffness: 1e4, Dissipation: 5},
	},
}

func GetPreset(name string) *Scenario {
	sc, ok := Presets[name]
	if !ok {
		return nil
	}
	return sc
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
