// Package spotguess defines the core domain types shared by the game packages.
// It imports nothing outside the standard library.
package spotguess

import "math"

const (
	// CanonicalSize is the side of the square coordinate space every spot and
	// guess is expressed in, independent of any rendered image resolution.
	CanonicalSize = 1440.0

	MaxPointsPerRound = 1000
	MaxHints          = 2

	DefaultRounds       = 3
	DefaultRoundSeconds = 42
)

// MaxDistance is the diagonal of the canonical space.
var MaxDistance = math.Hypot(CanonicalSize, CanonicalSize)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point      { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point      { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(f float64) Point  { return Point{p.X * f, p.Y * f} }
func (p Point) Dist(q Point) float64   { return math.Hypot(p.X-q.X, p.Y-q.Y) }
func (p Point) InCanonicalSpace() bool { return inRange(p.X) && inRange(p.Y) }

func inRange(v float64) bool { return v >= 0 && v <= CanonicalSize }

type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Valid reports whether both dimensions are known and positive.
func (s Size) Valid() bool { return s.W > 0 && s.H > 0 }

type MapDefinition struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DisplayImageRef string `json:"displayImageRef"`
	NaturalSize     Size   `json:"naturalSize"`
}

// ImageVariants holds one image per hint tier. Tier0 is the tightest zoom
// (no hint used) and Tier2 the widest (two hints used).
type ImageVariants struct {
	Tier0 string `json:"tier0"`
	Tier1 string `json:"tier1"`
	Tier2 string `json:"tier2"`
}

type Spot struct {
	ID            string        `json:"id"`
	MapName       string        `json:"mapName"`
	CorrectPoints []Point       `json:"correctPoints"`
	Images        ImageVariants `json:"images"`
}

// Image returns the variant shown after the given number of hints.
func (s Spot) Image(hints int) string {
	switch {
	case hints <= 0:
		return s.Images.Tier0
	case hints == 1:
		return s.Images.Tier1
	default:
		return s.Images.Tier2
	}
}

// Guess is a placed pin in canonical space on a named map.
type Guess struct {
	Point
	MapName string `json:"mapName"`
}

type RoundResult struct {
	Round          int     `json:"round"`
	SpotID         string  `json:"spotId"`
	SpotMapName    string  `json:"spotMapName"`
	MapNameGuessed string  `json:"mapNameGuessed"`
	Guess          *Point  `json:"guess,omitempty"`
	Closest        *Point  `json:"closest,omitempty"`
	Distance       float64 `json:"distance,omitempty"`
	Score          int     `json:"score"`
	HintsUsed      int     `json:"hintsUsed"`
	WrongMap       bool    `json:"wrongMap"`
	TimedOut       bool    `json:"timedOut"`
}

type Phase string

const (
	PhaseLoading       Phase = "loading"
	PhasePlaying       Phase = "playing"
	PhaseRoundOver     Phase = "round_over"
	PhaseTransitioning Phase = "transitioning"
	PhaseResults       Phase = "results"
	PhaseUnavailable   Phase = "unavailable"
	PhaseExited        Phase = "exited"
)

// Terminal reports whether no further commands can move the phase.
func (p Phase) Terminal() bool {
	return p == PhaseResults || p == PhaseUnavailable || p == PhaseExited
}

// Outcome qualifies PhaseRoundOver.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeCorrect  Outcome = "correct"
	OutcomeWrongMap Outcome = "wrong_map"
)
