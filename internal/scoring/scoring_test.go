package scoring

import (
	"math"
	"testing"

	"github.com/playperu/spotguess/internal/spotguess"
)

func pt(x, y float64) *spotguess.Point { return &spotguess.Point{X: x, Y: y} }

func TestScore(t *testing.T) {
	far := []spotguess.Point{{X: 1440, Y: 1440}}

	tests := []struct {
		name    string
		guess   *spotguess.Point
		correct []spotguess.Point
		hints   int
		want    int
	}{
		{"exact hit", pt(500, 500), []spotguess.Point{{X: 500, Y: 500}}, 0, 1000},
		{"exact hit one hint", pt(500, 500), []spotguess.Point{{X: 500, Y: 500}}, 1, 750},
		{"exact hit two hints", pt(500, 500), []spotguess.Point{{X: 500, Y: 500}}, 2, 500},
		{"max distance", pt(0, 0), far, 0, 18},
		{"no guess", nil, far, 0, 0},
		{"no correct points", pt(0, 0), nil, 0, 0},
		{"hint example raw", pt(1000, 1000), []spotguess.Point{{X: 100, Y: 100}}, 0, 82},
		{"hint example one", pt(1000, 1000), []spotguess.Point{{X: 100, Y: 100}}, 1, 62},
		{"hint example two", pt(1000, 1000), []spotguess.Point{{X: 100, Y: 100}}, 2, 41},
		{"more hints count as two", pt(1000, 1000), []spotguess.Point{{X: 100, Y: 100}}, 5, 41},
		{"nearest of several", pt(1000, 1000), []spotguess.Point{{X: 100, Y: 100}, {X: 1000, Y: 1000}}, 0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.guess, tt.correct, tt.hints); got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTwoStageRounding(t *testing.T) {
	// Unrounded 2.6 becomes 3, and 3*0.5 rounds to 2. Rounding once at the
	// end (2.6*0.5 = 1.3) would give 1.
	dist := -math.Log(2.6/1000) / Decay * spotguess.MaxDistance
	if raw := Raw(dist); raw != 3 {
		t.Fatalf("raw = %d, want 3", raw)
	}
	if got := Penalize(Raw(dist), 2); got != 2 {
		t.Errorf("penalized = %d, want 2", got)
	}
}

func TestScoreMonotonic(t *testing.T) {
	correct := []spotguess.Point{{X: 0, Y: 0}}
	for hints := 0; hints <= 2; hints++ {
		prev := math.MaxInt
		for d := 0.0; d <= 1440; d += 7.5 {
			got := Score(pt(d, d), correct, hints)
			if got > prev {
				t.Fatalf("hints %d: score increased from %d to %d at d=%v", hints, prev, got, d)
			}
			if got < 0 || got > spotguess.MaxPointsPerRound {
				t.Fatalf("score %d out of range", got)
			}
			prev = got
		}
	}
}

func TestScoreGuessWrongMap(t *testing.T) {
	spot := spotguess.Spot{
		ID:            "s1",
		MapName:       "Harbor",
		CorrectPoints: []spotguess.Point{{X: 10, Y: 10}},
	}

	for hints := 0; hints <= 2; hints++ {
		res := ScoreGuess(&spotguess.Guess{Point: spotguess.Point{X: 10, Y: 10}, MapName: "Desert"}, spot, hints)
		if !res.WrongMap || res.Score != 0 {
			t.Errorf("hints %d: got %+v, want wrong map with 0", hints, res)
		}
		if res.Closest != nil || res.Distance != 0 {
			t.Errorf("hints %d: distance computed for wrong map: %+v", hints, res)
		}
	}
}

func TestScoreGuess(t *testing.T) {
	spot := spotguess.Spot{
		MapName:       "Harbor",
		CorrectPoints: []spotguess.Point{{X: 100, Y: 100}, {X: 1400, Y: 1400}},
	}

	res := ScoreGuess(&spotguess.Guess{Point: spotguess.Point{X: 1000, Y: 1000}, MapName: "Harbor"}, spot, 1)
	if res.WrongMap {
		t.Fatal("unexpected wrong map")
	}
	if res.Closest == nil || *res.Closest != (spotguess.Point{X: 1400, Y: 1400}) {
		t.Errorf("closest = %v, want (1400,1400)", res.Closest)
	}
	if want := Score(pt(1000, 1000), spot.CorrectPoints, 1); res.Score != want {
		t.Errorf("score = %d, want %d", res.Score, want)
	}

	if res := ScoreGuess(nil, spot, 0); res.Score != 0 || res.WrongMap {
		t.Errorf("nil guess: %+v", res)
	}
}
