package viewport

import (
	"fmt"
	"math"
)

// EventKind names a neutral input event, independent of any rendering surface.
type EventKind string

const (
	PointerDown EventKind = "pointer_down"
	PointerMove EventKind = "pointer_move"
	PointerUp   EventKind = "pointer_up"
	Wheel       EventKind = "wheel"
	Click       EventKind = "click"
	ZoomIn      EventKind = "zoom_in"
	ZoomOut     EventKind = "zoom_out"
	ResetView   EventKind = "reset"
)

// Event carries container-relative coordinates. DeltaY is only read for Wheel.
type Event struct {
	Kind   EventKind `json:"kind"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	DeltaY float64   `json:"deltaY,omitempty"`
}

func (e Event) Point() Point { return Point{X: e.X, Y: e.Y} }

// DragThreshold is how far the pointer may travel between down and click
// before the click is treated as the end of a pan.
const DragThreshold = 2.0

// Gesture turns a stream of Events into pan/zoom operations on a Transform
// and reports accepted clicks in canonical space.
type Gesture struct {
	T    *Transform
	Step float64

	panning    bool
	dragMoved  bool
	dragStart  Point
	dragOrigin Point
}

func NewGesture(t *Transform, step float64) *Gesture {
	return &Gesture{T: t, Step: step}
}

func (g *Gesture) step() float64 {
	if g.Step <= 0 {
		return DefaultStep
	}
	return g.Step
}

// Handle applies ev. For an accepted click it returns the canonical point
// under the pointer; otherwise the point is nil.
func (g *Gesture) Handle(ev Event) (*Point, error) {
	if !g.T.Ready() {
		g.panning = false
		return nil, ErrNotReady
	}

	switch ev.Kind {
	case PointerDown:
		g.panning = true
		g.dragMoved = false
		g.dragStart = ev.Point()
		g.dragOrigin = g.T.Translate()

	case PointerMove:
		if !g.panning {
			return nil, nil
		}
		d := ev.Point().Sub(g.dragStart)
		if math.Abs(d.X) > DragThreshold || math.Abs(d.Y) > DragThreshold {
			g.dragMoved = true
		}
		g.T.PanTo(g.dragOrigin, d)

	case PointerUp:
		g.panning = false

	case Wheel:
		// Scrolling up (negative delta) zooms in.
		dir := -sign(ev.DeltaY)
		if dir == 0 {
			return nil, nil
		}
		g.T.ZoomAtPoint(ev.Point(), dir, g.step())

	case Click:
		if g.dragMoved {
			g.dragMoved = false
			return nil, nil
		}
		p, err := g.T.ContainerToCanonical(ev.Point())
		if err != nil {
			return nil, err
		}
		return &p, nil

	case ZoomIn:
		g.T.ZoomCentered(1, g.step())
	case ZoomOut:
		g.T.ZoomCentered(-1, g.step())
	case ResetView:
		g.panning = false
		g.dragMoved = false
		g.T.Reset()

	default:
		return nil, fmt.Errorf("unknown input event %q", ev.Kind)
	}
	return nil, nil
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
