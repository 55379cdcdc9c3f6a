// Package catalog provides the maps and spots a session plays with.
package catalog

import (
	"context"
	"errors"
	"slices"

	"github.com/playperu/spotguess/internal/spotguess"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidManifest = errors.New("invalid manifest")
)

// Source lists the catalog. It is satisfied by Store, Cache and Static.
type Source interface {
	ListMaps(ctx context.Context) ([]spotguess.MapDefinition, error)
	ListSpots(ctx context.Context) ([]spotguess.Spot, error)
}

// Static is an in-memory Source.
type Static struct {
	Maps  []spotguess.MapDefinition
	Spots []spotguess.Spot
}

// NewStatic builds a Static source from an already validated manifest.
func NewStatic(m Manifest) *Static {
	return &Static{Maps: m.MapDefinitions(), Spots: m.SpotList()}
}

func (s *Static) ListMaps(ctx context.Context) ([]spotguess.MapDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.Maps), nil
}

func (s *Static) ListSpots(ctx context.Context) ([]spotguess.Spot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]spotguess.Spot, len(s.Spots))
	for i, sp := range s.Spots {
		sp.CorrectPoints = slices.Clone(sp.CorrectPoints)
		out[i] = sp
	}
	return out, nil
}
