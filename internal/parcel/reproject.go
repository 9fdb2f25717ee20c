package parcel

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lotes-cli/internal/reproject"
)

const defaultWorkers = 4

// Reproject returns a new collection with every geometry converted to
// geodetic coordinates. The selector is first resolved against the declared
// CRS; when no transform is needed the features are returned as they are.
// The input collection is never modified and no partial result is returned.
func Reproject(ctx context.Context, c *Collection, p reproject.Projection, workers int) (*Collection, reproject.Projection, error) {
	resolved, err := p.Resolve(c.CRS)
	if err != nil {
		return nil, reproject.Projection{}, err
	}

	out := &Collection{Type: TypeFeatureCollection, Features: make([]Feature, len(c.Features))}
	if !resolved.NeedsTransform() {
		copy(out.Features, c.Features)
		return out, resolved, nil
	}

	if workers <= 0 {
		workers = defaultWorkers
	}

	zap.L().Debug("parcel: reprojecting features",
		zap.String("zone", resolved.Zone.String()),
		zap.Int("features", len(c.Features)),
		zap.Int("workers", workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range c.Features {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "parcel: reproject cancelled")
			}
			f := c.Features[i]
			out.Features[i] = f.WithGeometry(ReprojectGeometry(f.Geometry, resolved.Zone))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, reproject.Projection{}, err
	}
	return out, resolved, nil
}

// ReprojectGeometry converts a geometry, including nested collection
// members, from the zone into geodetic coordinates. A nil geometry stays nil.
func ReprojectGeometry(g *Geometry, z reproject.Zone) *Geometry {
	if g == nil {
		return nil
	}
	out := &Geometry{Type: g.Type, Coordinates: z.Geometry(g.Coordinates)}
	if g.Geometries != nil {
		out.Geometries = make([]*Geometry, len(g.Geometries))
		for i, member := range g.Geometries {
			out.Geometries[i] = ReprojectGeometry(member, z)
		}
	}
	return out
}
