// Package scoring turns a guess into points.
package scoring

import (
	"math"

	"github.com/playperu/spotguess/internal/spotguess"
)

// Decay is the exponent applied to the normalised distance.
const Decay = 4.0

// Score returns the points for guess against the nearest of correct, after
// the hint penalty. The raw exponential score is rounded before the penalty
// is applied, and the penalised value is rounded again.
func Score(guess *spotguess.Point, correct []spotguess.Point, hints int) int {
	if guess == nil || len(correct) == 0 {
		return 0
	}
	_, dist := Closest(*guess, correct)
	return Penalize(Raw(dist), hints)
}

// Raw is the unpenalised score for a canonical-space distance.
func Raw(dist float64) int {
	return int(math.Round(spotguess.MaxPointsPerRound * math.Exp(-Decay*dist/spotguess.MaxDistance)))
}

// Penalize applies the hint multiplier to an already rounded raw score.
func Penalize(raw, hints int) int {
	switch {
	case hints <= 0:
		return raw
	case hints == 1:
		return int(math.Round(float64(raw) * 0.75))
	default:
		return int(math.Round(float64(raw) * 0.5))
	}
}

// Closest returns the point in points nearest to p and its distance. It
// panics if points is empty.
func Closest(p spotguess.Point, points []spotguess.Point) (spotguess.Point, float64) {
	best, bestDist := points[0], p.Dist(points[0])
	for _, c := range points[1:] {
		if d := p.Dist(c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

type Result struct {
	Score    int
	WrongMap bool
	Distance float64
	Closest  *spotguess.Point
}

// ScoreGuess scores a guess against a spot. A guess on the wrong map scores
// zero without any distance being computed.
func ScoreGuess(guess *spotguess.Guess, spot spotguess.Spot, hints int) Result {
	if guess == nil {
		return Result{}
	}
	if guess.MapName != spot.MapName {
		return Result{WrongMap: true}
	}
	if len(spot.CorrectPoints) == 0 {
		return Result{}
	}

	closest, dist := Closest(guess.Point, spot.CorrectPoints)
	return Result{
		Score:    Penalize(Raw(dist), hints),
		Distance: dist,
		Closest:  &closest,
	}
}
