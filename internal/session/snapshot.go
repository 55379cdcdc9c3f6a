package session

import (
	"slices"

	"github.com/playperu/spotguess/internal/spotguess"
	"github.com/playperu/spotguess/internal/viewport"
)

// Snapshot is a consistent, detached copy of the session state for readers.
type Snapshot struct {
	ID          string            `json:"id"`
	Phase       spotguess.Phase   `json:"phase"`
	Outcome     spotguess.Outcome `json:"outcome,omitempty"`
	RoundIndex  int               `json:"roundIndex"`
	TotalRounds int               `json:"totalRounds"`
	UsedSpotIDs []string          `json:"usedSpotIds"`

	Maps         []spotguess.MapDefinition `json:"maps"`
	CurrentSpot  *spotguess.Spot           `json:"currentSpot,omitempty"`
	CurrentImage string                    `json:"currentImage,omitempty"`

	SelectedMapID string           `json:"selectedMapId,omitempty"`
	CurrentGuess  *spotguess.Guess `json:"currentGuess,omitempty"`
	// Pin is the guess in container coordinates, set only while the
	// viewport is ready.
	Pin *spotguess.Point `json:"pin,omitempty"`

	HintsUsed      int  `json:"hintsUsed"`
	HintPromptOpen bool `json:"hintPromptOpen"`

	TimerRemaining int  `json:"timerRemaining"`
	RoundDuration  int  `json:"roundDuration"`
	TimerActive    bool `json:"timerActive"`

	Results    []spotguess.RoundResult `json:"results"`
	TotalScore int                     `json:"totalScore"`
	MaxScore   int                     `json:"maxScore"`

	Viewport viewport.State `json:"viewport"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Phase is a shortcut for Snapshot().Phase.
func (s *Session) Phase() spotguess.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) snapshotLocked() Snapshot {
	sum := s.summaryLocked()
	snap := Snapshot{
		ID:             s.id,
		Phase:          s.phase,
		Outcome:        s.outcome,
		RoundIndex:     s.roundIndex,
		TotalRounds:    s.totalRounds,
		UsedSpotIDs:    append([]string{}, s.usedSpotIDs...),
		Maps:           append([]spotguess.MapDefinition{}, s.maps...),
		HintsUsed:      s.hints,
		HintPromptOpen: s.hintPrompt,
		TimerRemaining: s.remaining,
		RoundDuration:  s.roundSeconds,
		TimerActive:    s.timer != nil && !s.timer.Stopped(),
		Results:        sum.Results,
		TotalScore:     sum.TotalScore,
		MaxScore:       sum.MaxScore,
		Viewport:       s.view.State(),
	}

	if s.current != nil {
		spot := *s.current
		spot.CorrectPoints = slices.Clone(spot.CorrectPoints)
		snap.CurrentSpot = &spot
		snap.CurrentImage = spot.Image(s.hints)
	}
	if s.selectedMap != nil {
		snap.SelectedMapID = s.selectedMap.ID
	}
	if s.guess != nil {
		g := *s.guess
		snap.CurrentGuess = &g
		if p, err := s.view.CanonicalToContainer(g.Point); err == nil {
			snap.Pin = &p
		}
	}
	return snap
}
