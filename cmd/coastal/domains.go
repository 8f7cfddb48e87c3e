package main

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/CoastalDD/mesh"
	"github.com/notargets/CoastalDD/mesh/readers"
	"github.com/notargets/CoastalDD/partitions"
)

// decomposition is every selected domain of one global mesh.
type decomposition struct {
	inputs    *readers.Inputs
	layout    *partitions.DomainLayout
	meshes    []*mesh.Mesh
	connector *partitions.InterfaceConnector
}

// loadDomains reads the global files once and extracts the selected domains
// in parallel. An empty selection loads every domain tag in the mesh.
func loadDomains(ctx context.Context, log *slog.Logger, meshFile, ifaceFile, depthFile string,
	selected []int, workers int) (*decomposition, error) {
	in, err := readers.DefaultFormats().ReadFiles(meshFile, ifaceFile, depthFile)
	if err != nil {
		return nil, err
	}
	layout, err := partitions.BuildDomainLayout(in.Geometry.TriangleDomain)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", meshFile, err)
	}
	ids := selected
	if len(ids) == 0 {
		ids = layout.DomainIDs()
	}
	for _, id := range ids {
		if _, ok := layout.PartitionOf(id); !ok {
			return nil, fmt.Errorf("%s: %w: domain %d", meshFile, mesh.ErrNoDomain, id)
		}
	}
	log.Debug("global mesh read",
		"vertices", in.Geometry.NumVertices(),
		"triangles", len(in.Geometry.Triangles),
		"interface", len(in.Interface),
		"domains", layout.NumPartitions)

	meshes := make([]*mesh.Mesh, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := mesh.NewMesh(mesh.Source{
				Geometry:  in.Geometry,
				Interface: in.Interface,
				Depth:     in.Depth,
				DomainID:  id,
			})
			if err != nil {
				return fmt.Errorf("domain %d of %s: %w", id, meshFile, err)
			}
			log.Debug("domain extracted", "domain", id, "vertices", m.NumVertices(), "triangles", m.NumTriangles())
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ic, err := partitions.NewInterfaceConnector(meshes)
	if err != nil {
		return nil, err
	}
	return &decomposition{inputs: in, layout: layout, meshes: meshes, connector: ic}, nil
}
