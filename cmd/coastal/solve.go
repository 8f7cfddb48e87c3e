package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/CoastalDD/config"
	"github.com/notargets/CoastalDD/fem"
	"github.com/notargets/CoastalDD/lu"
	"github.com/notargets/CoastalDD/mesh"
)

func newSolveCmd(root *rootOptions) *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve the harmonic problem on every domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := config.Load(configFile)
			if err != nil {
				return err
			}
			return runSolve(cmd.Context(), root.logger(cmd.ErrOrStderr()), cmd.OutOrStdout(), run, root.workers)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "run configuration (YAML)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// domainSolution is the elevation of one domain in local numbering.
type domainSolution struct {
	eta    []complex128
	status lu.Status
}

func runSolve(ctx context.Context, log *slog.Logger, out io.Writer, run config.Run, workers int) error {
	if workers == 0 {
		workers = run.Solver.Workers
	}
	dec, err := loadDomains(ctx, log, run.Mesh.MeshFile, run.Mesh.InterfaceFile, run.Mesh.DepthFile,
		run.Mesh.Domains, workers)
	if err != nil {
		return err
	}
	params := run.Params()
	cfg := run.LUConfig()

	solutions := make([]domainSolution, len(dec.meshes))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for p, m := range dec.meshes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sol, err := solveDomain(log, m, params, cfg)
			if err != nil {
				return fmt.Errorf("domain %d: %w", m.DomainID(), err)
			}
			solutions[p] = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := os.MkdirAll(run.Output.Directory, 0o755); err != nil {
		return err
	}
	fields := make([][]complex128, len(solutions))
	for p, m := range dec.meshes {
		fields[p] = solutions[p].eta
		path := filepath.Join(run.Output.Directory, fmt.Sprintf("domain_%d.csv", m.DomainID()))
		if err := writeDomainCSV(path, m, fields[p]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Domain %d: %d unknowns, %d fill-ins, written to %s\n",
			m.DomainID(), solutions[p].status.Order, solutions[p].status.Fillins, path)
	}

	mismatch, err := dec.connector.Mismatch(fields)
	if err != nil {
		return err
	}
	global, err := dec.connector.ToGlobal(fields, dec.inputs.Geometry.NumVertices())
	if err != nil {
		return err
	}
	path := filepath.Join(run.Output.Directory, "solution.csv")
	if err := writeGlobalCSV(path, dec.inputs.Geometry.X, dec.inputs.Geometry.Y, global); err != nil {
		return err
	}
	log.Info("solve complete", "domains", len(dec.meshes), "interface_mismatch", mismatch, "output", path)
	fmt.Fprintf(out, "Interface mismatch: %.6g\n", mismatch)
	return nil
}

func solveDomain(log *slog.Logger, m *mesh.Mesh, params fem.Params, cfg lu.Config) (domainSolution, error) {
	start := time.Now()
	A, b, err := fem.Assemble(m, params)
	if err != nil {
		return domainSolution{}, err
	}
	f, err := lu.FactorizeWithConfig(A, cfg)
	if err != nil {
		return domainSolution{}, err
	}
	defer f.Close()

	eta := make([]complex128, len(b))
	if err := f.Solve(b, eta); err != nil {
		return domainSolution{}, err
	}
	status := f.Status()
	log.Debug("domain solved",
		"domain", m.DomainID(),
		"order", status.Order,
		"nonzeros", status.NonZeros,
		"fillins", status.Fillins,
		"refinements", status.LastRefinements,
		"elapsed", time.Since(start))
	return domainSolution{eta: eta, status: status}, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }

func phaseDegrees(z complex128) float64 {
	if z == 0 {
		return 0
	}
	return cmplx.Phase(z) * 180 / math.Pi
}

func writeDomainCSV(path string, m *mesh.Mesh, eta []complex128) error {
	header := []string{"local", "global", "x", "y", "depth", "interface", "re", "im", "amplitude", "phase"}
	return writeCSV(path, header, len(eta), func(i int) []string {
		v := m.Vertex(i)
		return []string{
			strconv.Itoa(i),
			strconv.Itoa(m.LocalToGlobal(i)),
			formatFloat(v.X),
			formatFloat(v.Y),
			formatFloat(m.Depth(i)),
			strconv.FormatBool(m.IsInterface(i)),
			formatFloat(real(eta[i])),
			formatFloat(imag(eta[i])),
			formatFloat(cmplx.Abs(eta[i])),
			formatFloat(phaseDegrees(eta[i])),
		}
	})
}

func writeGlobalCSV(path string, x, y []float64, eta []complex128) error {
	header := []string{"global", "x", "y", "re", "im", "amplitude", "phase"}
	return writeCSV(path, header, len(eta), func(i int) []string {
		return []string{
			strconv.Itoa(i),
			formatFloat(x[i]),
			formatFloat(y[i]),
			formatFloat(real(eta[i])),
			formatFloat(imag(eta[i])),
			formatFloat(cmplx.Abs(eta[i])),
			formatFloat(phaseDegrees(eta[i])),
		}
	})
}

func writeCSV(path string, header []string, n int, row func(i int) []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := csv.NewWriter(f)
	if err = w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err = w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
