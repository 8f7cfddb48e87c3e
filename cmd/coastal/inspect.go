package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type inspectOptions struct {
	meshFile, ifaceFile, depthFile string
	domains                        []int
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the domains of a decomposed mesh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.meshFile, "mesh", "", "mesh file")
	cmd.Flags().StringVar(&opts.ifaceFile, "interface", "", "interface vertex file")
	cmd.Flags().StringVar(&opts.depthFile, "depth", "", "depth file")
	cmd.Flags().IntSliceVar(&opts.domains, "domain", nil, "domains to inspect (default all)")
	for _, f := range []string{"mesh", "interface", "depth"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func runInspect(cmd *cobra.Command, root *rootOptions, opts *inspectOptions) error {
	log := root.logger(cmd.ErrOrStderr())
	dec, err := loadDomains(cmd.Context(), log, opts.meshFile, opts.ifaceFile, opts.depthFile, opts.domains, root.workers)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	stats := dec.layout.PartitionStatistics()
	fmt.Fprintf(out, "Global mesh: %d vertices, %d triangles, %d interface vertices\n",
		dec.inputs.Geometry.NumVertices(), dec.layout.TotalElements, len(dec.inputs.Interface))
	fmt.Fprintf(out, "Domains: %d (triangles min %d, max %d, imbalance %.3f)\n",
		stats.NumPartitions, stats.MinElements, stats.MaxElements, stats.Imbalance)
	for p, m := range dec.meshes {
		fmt.Fprint(out, m.String())
		var nb []int
		for _, q := range dec.connector.Neighbors(p) {
			nb = append(nb, dec.connector.DomainIDs[q])
		}
		fmt.Fprintf(out, "  Neighbors: %v\n", nb)
	}
	return nil
}
