package catalog

import (
	"context"
	"log/slog"

	"github.com/playperu/spotguess/internal/spotguess"
)

// DemoManifest is a small catalog for local development.
func DemoManifest() Manifest {
	spot := func(id, mapName string, images string, coords ...spotguess.Point) ManifestSpot {
		return ManifestSpot{
			ID:      FlexID(id),
			MapName: mapName,
			Coords:  coords,
			Images: ManifestImages{
				Zoom1: "/demo/spots/" + images + "-1.webp",
				Zoom2: "/demo/spots/" + images + "-2.webp",
				Zoom3: "/demo/spots/" + images + "-3.webp",
			},
		}
	}

	return Manifest{
		Maps: []ManifestMap{
			{ID: "lighthouse", Name: "Lighthouse", Image: "/demo/maps/lighthouse.webp", Width: 2048, Height: 2048},
			{ID: "sandcastle", Name: "Sandcastle", Image: "/demo/maps/sandcastle.webp", Width: 1440, Height: 1440},
			{ID: "glacier", Name: "Glacier", Image: "/demo/maps/glacier.webp"},
		},
		Spots: []ManifestSpot{
			spot("1", "Lighthouse", "lighthouse-lamp", spotguess.Point{X: 712, Y: 688}),
			spot("2", "Lighthouse", "lighthouse-dock", spotguess.Point{X: 180, Y: 1260}, spotguess.Point{X: 1262, Y: 1250}),
			spot("3", "Sandcastle", "sandcastle-gate", spotguess.Point{X: 720, Y: 1320}),
			spot("4", "Sandcastle", "sandcastle-towers", spotguess.Point{X: 300, Y: 300}, spotguess.Point{X: 1140, Y: 300}),
			spot("5", "Glacier", "glacier-cave", spotguess.Point{X: 960, Y: 410}),
		},
	}
}

// SeedDemo imports DemoManifest when the store holds no maps.
func SeedDemo(ctx context.Context, logger *slog.Logger, s *Store) error {
	maps, _, err := s.Counts(ctx)
	if err != nil {
		return err
	}
	if maps > 0 {
		return nil
	}

	if err := s.Import(ctx, DemoManifest()); err != nil {
		return err
	}
	logger.Info("demo catalog seeded")
	return nil
}
