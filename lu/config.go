package lu

import "fmt"

// Config holds the solver tuning applied at factorization time.
type Config struct {
	// RelThreshold is the relative pivot threshold in (0, 1]. Larger values
	// favour stability over sparsity.
	RelThreshold float64
	// AbsThreshold is the smallest magnitude accepted as a pivot. Pivots
	// below n*eps*||A||_inf are rejected regardless.
	AbsThreshold float64
	// DiagonalPivoting prefers diagonal pivots when they pass the threshold.
	DiagonalPivoting bool
	// RefinementSteps bounds the iterative refinement steps per solve.
	// Zero disables refinement.
	RefinementSteps int
	// RefinementTol stops refinement once ||b - Ax|| / ||b|| drops below it.
	RefinementTol float64
}

// DefaultConfig returns the settings used by Factorize.
func DefaultConfig() Config {
	return Config{
		RelThreshold:     1e-3,
		AbsThreshold:     0,
		DiagonalPivoting: true,
		RefinementSteps:  0,
		RefinementTol:    1e-12,
	}
}

func (c Config) validate() error {
	if c.RelThreshold <= 0 || c.RelThreshold > 1 {
		return fmt.Errorf("relative pivot threshold %g outside (0, 1]", c.RelThreshold)
	}
	if c.AbsThreshold < 0 {
		return fmt.Errorf("absolute pivot threshold %g is negative", c.AbsThreshold)
	}
	if c.RefinementSteps < 0 {
		return fmt.Errorf("refinement steps %d is negative", c.RefinementSteps)
	}
	if c.RefinementTol < 0 {
		return fmt.Errorf("refinement tolerance %g is negative", c.RefinementTol)
	}
	return nil
}
