package catalog

import (
	"context"
	"testing"
)

func TestStaticReturnsCopies(t *testing.T) {
	s := NewStatic(DemoManifest())
	ctx := context.Background()

	spots, err := s.ListSpots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	spots[0].CorrectPoints[0].X = -1
	spots[0].MapName = "changed"

	again, _ := s.ListSpots(ctx)
	if again[0].CorrectPoints[0].X == -1 || again[0].MapName == "changed" {
		t.Error("caller mutation leaked into the static catalog")
	}
}

func TestStaticHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewStatic(DemoManifest()).ListMaps(ctx); err == nil {
		t.Error("expected context error")
	}
}
