// Package config loads the YAML description of a harmonic run.
package config

import (
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/notargets/CoastalDD/fem"
	"github.com/notargets/CoastalDD/lu"
)

// Run is the top level run configuration.
type Run struct {
	Mesh    MeshConfig    `yaml:"mesh"`
	Physics PhysicsConfig `yaml:"physics"`
	Solver  SolverConfig  `yaml:"solver"`
	Output  OutputConfig  `yaml:"output"`
}

// MeshConfig names the three input files of the decomposed mesh.
type MeshConfig struct {
	MeshFile      string `yaml:"mesh_file" validate:"required"`
	InterfaceFile string `yaml:"interface_file" validate:"required"`
	DepthFile     string `yaml:"depth_file" validate:"required"`
	// Domains to load; empty selects every domain tag in the mesh
	Domains []int `yaml:"domains" validate:"unique"`
}

// PhysicsConfig holds the forcing and the material constants.
type PhysicsConfig struct {
	Period    float64 `yaml:"period" validate:"gte=0"` // Seconds, 0 for the steady problem
	Gravity   float64 `yaml:"gravity" validate:"gt=0"`
	Friction  float64 `yaml:"friction" validate:"gte=0"`
	Amplitude float64 `yaml:"amplitude" validate:"gte=0"`
	Phase     float64 `yaml:"phase" validate:"gte=-360,lte=360"` // Degrees
}

// SolverConfig mirrors lu.Config plus the worker count.
type SolverConfig struct {
	RelThreshold     float64 `yaml:"rel_threshold" validate:"gt=0,lte=1"`
	AbsThreshold     float64 `yaml:"abs_threshold" validate:"gte=0"`
	DiagonalPivoting bool    `yaml:"diagonal_pivoting"`
	RefinementSteps  int     `yaml:"refinement_steps" validate:"gte=0,lte=50"`
	RefinementTol    float64 `yaml:"refinement_tol" validate:"gte=0"`
	Workers          int     `yaml:"workers" validate:"gte=0"` // 0 uses one worker per domain
}

// OutputConfig controls where solutions are written.
type OutputConfig struct {
	Directory string `yaml:"directory" validate:"required"`
	Format    string `yaml:"format" validate:"oneof=csv"`
}

var validate = validator.New()

// DefaultRun returns a run with every optional field set. The mesh files
// must still be provided.
func DefaultRun() Run {
	p := fem.DefaultParams()
	c := lu.DefaultConfig()
	return Run{
		Physics: PhysicsConfig{
			Period:    2 * math.Pi / p.Omega,
			Gravity:   p.Gravity,
			Friction:  p.Friction,
			Amplitude: cmplx.Abs(p.Amplitude),
		},
		Solver: SolverConfig{
			RelThreshold:     c.RelThreshold,
			AbsThreshold:     c.AbsThreshold,
			DiagonalPivoting: c.DiagonalPivoting,
			RefinementSteps:  c.RefinementSteps,
			RefinementTol:    c.RefinementTol,
		},
		Output: OutputConfig{
			Directory: "results",
			Format:    "csv",
		},
	}
}

// Load reads a YAML run file over DefaultRun. Relative paths in the file are
// resolved against the directory holding it.
func Load(path string) (Run, error) {
	run := DefaultRun()
	data, err := os.ReadFile(path)
	if err != nil {
		return run, err
	}
	if err := yaml.Unmarshal(data, &run); err != nil {
		return run, fmt.Errorf("parse %s: %w", path, err)
	}
	run.resolve(filepath.Dir(path))
	if err := run.Validate(); err != nil {
		return run, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return run, nil
}

func (r *Run) resolve(dir string) {
	for _, p := range []*string{&r.Mesh.MeshFile, &r.Mesh.InterfaceFile, &r.Mesh.DepthFile, &r.Output.Directory} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate checks the field constraints.
func (r Run) Validate() error {
	return validate.Struct(r)
}

// Params converts the physics section for assembly.
func (r Run) Params() fem.Params {
	p := fem.Params{
		Gravity:   r.Physics.Gravity,
		Friction:  r.Physics.Friction,
		Amplitude: cmplx.Rect(r.Physics.Amplitude, r.Physics.Phase*math.Pi/180),
	}
	if r.Physics.Period > 0 {
		p.Omega = 2 * math.Pi / r.Physics.Period
	}
	return p
}

// LUConfig converts the solver section for factorization.
func (r Run) LUConfig() lu.Config {
	return lu.Config{
		RelThreshold:     r.Solver.RelThreshold,
		AbsThreshold:     r.Solver.AbsThreshold,
		DiagonalPivoting: r.Solver.DiagonalPivoting,
		RefinementSteps:  r.Solver.RefinementSteps,
		RefinementTol:    r.Solver.RefinementTol,
	}
}
