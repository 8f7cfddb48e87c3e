package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose bool
	workers int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "coastal",
		Short: "Domain decomposed harmonic tide solver",
		Long: `coastal reads a triangulated coastal mesh split into tagged domains,
extracts each domain with its local to global vertex map and solves the
frequency domain long wave equation on it with a sparse direct solver.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().IntVar(&opts.workers, "workers", 0, "domains processed in parallel (0 = one per domain)")

	rootCmd.AddCommand(newInspectCmd(opts), newSolveCmd(opts))
	return rootCmd
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
