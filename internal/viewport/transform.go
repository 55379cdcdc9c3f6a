// Package viewport converts pointer positions inside a container into the
// canonical map coordinate space, tracking pan and zoom for one image.
package viewport

import (
	"errors"
	"math"

	"github.com/playperu/spotguess/internal/spotguess"
)

// ErrNotReady is returned by conversions before both the container and the
// natural image size are known.
var ErrNotReady = errors.New("viewport not ready")

const (
	DefaultMinScale = 1.0
	DefaultMaxScale = 4.0
	DefaultStep     = 0.4
)

type Point = spotguess.Point
type Size = spotguess.Size

// State is a read-only copy of a Transform.
type State struct {
	Ready     bool    `json:"ready"`
	Scale     float64 `json:"scale"`
	Translate Point   `json:"translate"`
	Base      Size    `json:"base"`
	Container Size    `json:"container"`
	Natural   Size    `json:"natural"`
}

// Transform owns the pan/zoom state of a single image. The zero value is a
// valid, not-ready transform using the default scale bounds.
type Transform struct {
	MinScale float64
	MaxScale float64

	ready     bool
	scale     float64
	translate Point
	base      Size
	container Size
	natural   Size
}

func New(minScale, maxScale float64) *Transform {
	return &Transform{MinScale: minScale, MaxScale: maxScale}
}

func (t *Transform) bounds() (float64, float64) {
	lo, hi := t.MinScale, t.MaxScale
	if lo <= 0 {
		lo = DefaultMinScale
	}
	if hi < lo {
		hi = math.Max(lo, DefaultMaxScale)
	}
	return lo, hi
}

// Initialize fits the natural image into the container without upscaling,
// resets the zoom to 1 and centres the image. Unknown or empty sizes leave
// the transform not ready.
func (t *Transform) Initialize(container, natural Size) {
	t.container = container
	t.natural = natural
	if !container.Valid() || !natural.Valid() {
		t.ready = false
		t.scale = 1
		t.translate = Point{}
		t.base = Size{}
		return
	}

	fit := math.Min(math.Min(container.W/natural.W, container.H/natural.H), 1)
	t.base = Size{W: natural.W * fit, H: natural.H * fit}
	t.scale = 1
	t.translate = Point{
		X: (container.W - t.base.W) / 2,
		Y: (container.H - t.base.H) / 2,
	}
	t.ready = true
}

// Reset re-runs Initialize with the last known sizes.
func (t *Transform) Reset() {
	t.Initialize(t.container, t.natural)
}

// Invalidate drops readiness, e.g. when a different image is about to load.
func (t *Transform) Invalidate() {
	t.Initialize(Size{}, Size{})
}

func (t *Transform) Ready() bool { return t.ready }

func (t *Transform) State() State {
	return State{
		Ready:     t.ready,
		Scale:     t.scale,
		Translate: t.translate,
		Base:      t.base,
		Container: t.container,
		Natural:   t.natural,
	}
}

// ZoomAtPoint changes the scale by direction*step while keeping the image
// point under pointer fixed on screen.
func (t *Transform) ZoomAtPoint(pointer Point, direction, step float64) {
	if !t.ready {
		return
	}
	lo, hi := t.bounds()
	newScale := clamp(t.scale+direction*step, lo, hi)

	img := pointer.Sub(t.translate).Scale(1 / t.scale)
	candidate := pointer.Sub(img.Scale(newScale))

	t.scale = newScale
	t.translate = t.ClampTranslate(candidate, newScale)
}

// ZoomCentered zooms about the centre of the container.
func (t *Transform) ZoomCentered(direction, step float64) {
	t.ZoomAtPoint(Point{X: t.container.W / 2, Y: t.container.H / 2}, direction, step)
}

func (t *Transform) PanBy(delta Point) {
	if !t.ready {
		return
	}
	t.translate = t.ClampTranslate(t.translate.Add(delta), t.scale)
}

// PanTo sets the translate to origin+delta. Drags use it so the offset is
// always measured from where the drag started.
func (t *Transform) PanTo(origin, delta Point) {
	if !t.ready {
		return
	}
	t.translate = t.ClampTranslate(origin.Add(delta), t.scale)
}

func (t *Transform) Translate() Point { return t.translate }
func (t *Transform) Scale() float64   { return t.scale }

// ClampTranslate limits candidate so that content larger than the container
// never leaves it, and content smaller than the container stays centred.
// Each axis is handled independently.
func (t *Transform) ClampTranslate(candidate Point, scale float64) Point {
	return Point{
		X: clampAxis(candidate.X, t.container.W, t.base.W*scale),
		Y: clampAxis(candidate.Y, t.container.H, t.base.H*scale),
	}
}

func clampAxis(v, container, content float64) float64 {
	if content > container {
		return clamp(v, container-content, 0)
	}
	return (container - content) / 2
}

// ContainerToCanonical maps a container-relative pointer to canonical space.
func (t *Transform) ContainerToCanonical(p Point) (Point, error) {
	if !t.ready {
		return Point{}, ErrNotReady
	}
	img := p.Sub(t.translate).Scale(1 / t.scale)
	return Point{
		X: img.X / t.base.W * spotguess.CanonicalSize,
		Y: img.Y / t.base.H * spotguess.CanonicalSize,
	}, nil
}

// CanonicalToContainer is the inverse of ContainerToCanonical. It is only
// used to position overlays such as the placed pin.
func (t *Transform) CanonicalToContainer(p Point) (Point, error) {
	if !t.ready {
		return Point{}, ErrNotReady
	}
	img := Point{
		X: p.X / spotguess.CanonicalSize * t.base.W,
		Y: p.Y / spotguess.CanonicalSize * t.base.H,
	}
	return t.translate.Add(img.Scale(t.scale)), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
