package viewport

import (
	"errors"
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func nearPoint(a, b Point) bool { return near(a.X, b.X) && near(a.Y, b.Y) }

func ready(t *testing.T, container, natural Size) *Transform {
	t.Helper()
	tr := &Transform{}
	tr.Initialize(container, natural)
	if !tr.Ready() {
		t.Fatalf("transform not ready after Initialize(%v, %v)", container, natural)
	}
	return tr
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name      string
		container Size
		natural   Size
		wantBase  Size
		wantT     Point
	}{
		{
			name:      "downscale to fit height",
			container: Size{W: 800, H: 600},
			natural:   Size{W: 1440, H: 1440},
			wantBase:  Size{W: 600, H: 600},
			wantT:     Point{X: 100, Y: 0},
		},
		{
			name:      "never upscale",
			container: Size{W: 800, H: 600},
			natural:   Size{W: 400, H: 200},
			wantBase:  Size{W: 400, H: 200},
			wantT:     Point{X: 200, Y: 200},
		},
		{
			name:      "fit width",
			container: Size{W: 500, H: 1000},
			natural:   Size{W: 1000, H: 1000},
			wantBase:  Size{W: 500, H: 500},
			wantT:     Point{X: 0, Y: 250},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := ready(t, tt.container, tt.natural)
			s := tr.State()
			if !near(s.Base.W, tt.wantBase.W) || !near(s.Base.H, tt.wantBase.H) {
				t.Errorf("base = %v, want %v", s.Base, tt.wantBase)
			}
			if !nearPoint(s.Translate, tt.wantT) {
				t.Errorf("translate = %v, want %v", s.Translate, tt.wantT)
			}
			if s.Scale != 1 {
				t.Errorf("scale = %v, want 1", s.Scale)
			}
		})
	}
}

func TestNotReady(t *testing.T) {
	var tr Transform
	tr.Initialize(Size{W: 800, H: 0}, Size{W: 1440, H: 1440})
	if tr.Ready() {
		t.Fatal("expected not ready with zero container height")
	}

	if _, err := tr.ContainerToCanonical(Point{X: 1, Y: 1}); !errors.Is(err, ErrNotReady) {
		t.Errorf("ContainerToCanonical err = %v, want ErrNotReady", err)
	}
	if _, err := tr.CanonicalToContainer(Point{X: 1, Y: 1}); !errors.Is(err, ErrNotReady) {
		t.Errorf("CanonicalToContainer err = %v, want ErrNotReady", err)
	}

	tr.ZoomAtPoint(Point{X: 10, Y: 10}, 1, 0.4)
	tr.PanBy(Point{X: 10, Y: 10})
	if s := tr.State(); s.Scale != 1 || s.Translate != (Point{}) {
		t.Errorf("not-ready transform mutated: %+v", s)
	}
}

func TestZoomAtPointKeepsImagePointUnderPointer(t *testing.T) {
	tr := ready(t, Size{W: 600, H: 600}, Size{W: 1440, H: 1440})
	pointer := Point{X: 150, Y: 420}

	before, _ := tr.ContainerToCanonical(pointer)
	tr.ZoomAtPoint(pointer, 1, 0.4)
	after, _ := tr.ContainerToCanonical(pointer)

	if !near(tr.Scale(), 1.4) {
		t.Fatalf("scale = %v, want 1.4", tr.Scale())
	}
	if !near(before.X, after.X) || !near(before.Y, after.Y) {
		t.Errorf("point under pointer moved: %v -> %v", before, after)
	}
}

func TestZoomClampsScale(t *testing.T) {
	tr := ready(t, Size{W: 600, H: 600}, Size{W: 1440, H: 1440})

	tr.ZoomAtPoint(Point{X: 300, Y: 300}, -1, 0.4)
	if tr.Scale() != DefaultMinScale {
		t.Errorf("scale = %v, want min %v", tr.Scale(), DefaultMinScale)
	}

	for range 20 {
		tr.ZoomAtPoint(Point{X: 300, Y: 300}, 1, 0.4)
	}
	if tr.Scale() != DefaultMaxScale {
		t.Errorf("scale = %v, want max %v", tr.Scale(), DefaultMaxScale)
	}
}

func TestClampTranslate(t *testing.T) {
	// Base 600x300 inside an 800x600 container.
	tr := ready(t, Size{W: 800, H: 600}, Size{W: 600, H: 300})

	t.Run("smaller content is centred", func(t *testing.T) {
		got := tr.ClampTranslate(Point{X: -500, Y: 999}, 1)
		want := Point{X: 100, Y: 150}
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("larger content stays inside", func(t *testing.T) {
		// Scaled 1800x900.
		got := tr.ClampTranslate(Point{X: 50, Y: -2000}, 3)
		want := Point{X: 0, Y: 600 - 900}
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}

		got = tr.ClampTranslate(Point{X: -2000, Y: 10}, 3)
		want = Point{X: 800 - 1800, Y: 0}
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("axes independent", func(t *testing.T) {
		// Scaled 960x480: wider than the container, shorter than it.
		got := tr.ClampTranslate(Point{X: -100, Y: 0}, 1.6)
		if got.X != -100 {
			t.Errorf("x = %v, want -100", got.X)
		}
		if !near(got.Y, (600-480)/2.0) {
			t.Errorf("y = %v, want centred %v", got.Y, (600-480)/2.0)
		}
	})
}

func TestPanBy(t *testing.T) {
	tr := ready(t, Size{W: 600, H: 600}, Size{W: 1440, H: 1440})

	tr.PanBy(Point{X: 50, Y: 50})
	if !nearPoint(tr.Translate(), Point{}) {
		t.Errorf("unzoomed content moved: %v", tr.Translate())
	}

	tr.ZoomCentered(1, 1) // 2x, content 1200x1200
	start := tr.Translate()
	tr.PanBy(Point{X: 100, Y: -100})
	want := tr.ClampTranslate(start.Add(Point{X: 100, Y: -100}), 2)
	if !nearPoint(tr.Translate(), want) {
		t.Errorf("translate = %v, want %v", tr.Translate(), want)
	}

	tr.PanBy(Point{X: 10000, Y: 10000})
	if !nearPoint(tr.Translate(), Point{}) {
		t.Errorf("translate = %v, want origin", tr.Translate())
	}
}

func TestContainerToCanonical(t *testing.T) {
	tr := ready(t, Size{W: 800, H: 600}, Size{W: 1440, H: 1440})

	got, err := tr.ContainerToCanonical(Point{X: 400, Y: 300})
	if err != nil {
		t.Fatal(err)
	}
	if !near(got.X, 720) || !near(got.Y, 720) {
		t.Errorf("centre = %v, want (720,720)", got)
	}

	got, _ = tr.ContainerToCanonical(Point{X: 100, Y: 0})
	if !near(got.X, 0) || !near(got.Y, 0) {
		t.Errorf("top-left = %v, want origin", got)
	}
}

func TestRoundTrip(t *testing.T) {
	tr := ready(t, Size{W: 900, H: 700}, Size{W: 2048, H: 2048})

	points := []Point{{X: 0, Y: 0}, {X: 1440, Y: 1440}, {X: 100, Y: 1300}, {X: 720.5, Y: 33.25}}
	for _, zoom := range []float64{0, 1, 2, 5} {
		tr.Reset()
		tr.ZoomAtPoint(Point{X: 321, Y: 123}, zoom, 0.4)
		tr.PanBy(Point{X: -37, Y: 58})

		for _, p := range points {
			c, err := tr.CanonicalToContainer(p)
			if err != nil {
				t.Fatal(err)
			}
			back, err := tr.ContainerToCanonical(c)
			if err != nil {
				t.Fatal(err)
			}
			if !nearPoint(back, p) {
				t.Errorf("zoom %v: round trip %v -> %v -> %v", zoom, p, c, back)
			}
		}
	}
}

func TestResizeResetsZoom(t *testing.T) {
	tr := ready(t, Size{W: 600, H: 600}, Size{W: 1440, H: 1440})
	tr.ZoomCentered(1, 1)
	tr.PanBy(Point{X: 30, Y: 30})

	tr.Initialize(Size{W: 300, H: 400}, Size{W: 1440, H: 1440})
	s := tr.State()
	if s.Scale != 1 {
		t.Errorf("scale = %v, want 1", s.Scale)
	}
	if !nearPoint(s.Translate, Point{X: 0, Y: 50}) {
		t.Errorf("translate = %v, want (0,50)", s.Translate)
	}
}
