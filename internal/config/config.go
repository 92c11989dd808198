// Package config declares runnable scenarios: the simulated entities,
// the force laws acting on them, and the stepping parameters. Scenarios
// load from yaml files or from built-in presets; process-level settings
// come from the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/softmech/rodsim/internal/linalg"
	"github.com/softmech/rodsim/internal/rod"
)

const (
	DefaultStepper     = "pefrl"
	DefaultDt          = 1e-4
	DefaultDuration    = 2.0
	DefaultRecordEvery = 100
)

// Rod boundary conditions.
const (
	BoundaryFree  = "free"
	BoundaryClamp = "clamp"
)

// ErrBadScenario reports a scenario that cannot be assembled.
var ErrBadScenario = errors.New("config: bad scenario")

type Scenario struct {
	Name        string  `yaml:"name"`
	Stepper     string  `yaml:"stepper"`
	Dt          float64 `yaml:"dt"`
	Duration    float64 `yaml:"duration"`
	RecordEvery int     `yaml:"record_every"`

	Rod     *rod.Spec      `yaml:"rod,omitempty"`
	Spheres []SphereConfig `yaml:"spheres,omitempty"`
	Floor   *FloorConfig   `yaml:"floor,omitempty"`

	// Boundary selects the rod boundary condition: "free" or "clamp".
	Boundary string `yaml:"boundary,omitempty"`

	Gravity  *GravityConfig  `yaml:"gravity,omitempty"`
	Muscle   *MuscleConfig   `yaml:"muscle,omitempty"`
	Drag     *DragConfig     `yaml:"drag,omitempty"`
	Endpoint *EndpointConfig `yaml:"endpoint,omitempty"`
	Damping  *DampingConfig  `yaml:"damping,omitempty"`
	Contact  *ContactConfig  `yaml:"contact,omitempty"`
}

type SphereConfig struct {
	Center   linalg.Vec3 `yaml:"center"`
	Radius   float64     `yaml:"radius"`
	Density  float64     `yaml:"density"`
	Velocity linalg.Vec3 `yaml:"velocity"`
}

type FloorConfig struct {
	Origin linalg.Vec3 `yaml:"origin"`
	Normal linalg.Vec3 `yaml:"normal"`
}

type GravityConfig struct {
	Accel linalg.Vec3 `yaml:"accel"`
}

type MuscleConfig struct {
	Amplitudes []float64   `yaml:"amplitudes"`
	Period     float64     `yaml:"period"`
	Wavelength float64     `yaml:"wavelength"`
	Axis       linalg.Vec3 `yaml:"axis"`
	RampUp     float64     `yaml:"ramp_up"`
}

type DragConfig struct {
	Viscosity float64 `yaml:"viscosity"`
}

type EndpointConfig struct {
	Start  linalg.Vec3 `yaml:"start"`
	End    linalg.Vec3 `yaml:"end"`
	RampUp float64     `yaml:"ramp_up"`
}

type DampingConfig struct {
	Gamma float64 `yaml:"gamma"`
}

type ContactConfig struct {
	Stiffness       float64 `yaml:"stiffness"`
	Dissipation     float64 `yaml:"dissipation"`
	FrictionStatic  float64 `yaml:"friction_static"`
	FrictionKinetic float64 `yaml:"friction_kinetic"`
}

func DefaultScenario() *Scenario {
	return &Scenario{
		Name:        "custom",
		Stepper:     DefaultStepper,
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		RecordEvery: DefaultRecordEvery,
		Boundary:    BoundaryFree,
	}
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc := DefaultScenario()
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func Save(path string, sc *Scenario) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the scenario for contradictions the assembly step
// cannot resolve. Kernel-level parameter checks happen at finalize.
func (sc *Scenario) Validate() error {
	if sc.Dt <= 0 {
		return fmt.Errorf("%w: dt %g must be positive", ErrBadScenario, sc.Dt)
	}
	if sc.Duration <= 0 {
		return fmt.Errorf("%w: duration %g must be positive", ErrBadScenario, sc.Duration)
	}
	if sc.Rod == nil && len(sc.Spheres) == 0 {
		return fmt.Errorf("%w: no entities declared", ErrBadScenario)
	}
	switch sc.Boundary {
	case "", BoundaryFree, BoundaryClamp:
	default:
		return fmt.Errorf("%w: unknown boundary %q", ErrBadScenario, sc.Boundary)
	}
	if sc.Boundary == BoundaryClamp && sc.Rod == nil {
		return fmt.Errorf("%w: clamp boundary needs a rod", ErrBadScenario)
	}
	if sc.Rod == nil && (sc.Muscle != nil || sc.Drag != nil || sc.Endpoint != nil) {
		return fmt.Errorf("%w: rod force laws declared without a rod", ErrBadScenario)
	}
	if sc.Contact != nil && sc.Floor == nil && len(sc.Spheres) < 2 {
		return fmt.Errorf("%w: contact declared with nothing to collide", ErrBadScenario)
	}
	return nil
}

// Env is process-level configuration read from the environment.
type Env struct {
	DataDir string `env:"RODSIM_DATA_DIR" envDefault:"data"`
}

func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("config: parse env: %w", err)
	}
	return e, nil
}
