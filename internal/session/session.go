// Package session runs one player's game: target selection, the round
// timer, hints, guess placement through the viewport, and scoring.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/spotguess/internal/roundtimer"
	"github.com/playperu/spotguess/internal/scoring"
	"github.com/playperu/spotguess/internal/selector"
	"github.com/playperu/spotguess/internal/spotguess"
	"github.com/playperu/spotguess/internal/viewport"
)

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrWrongPhase         = errors.New("command not valid in the current phase")
	ErrPrecondition       = errors.New("a map and a pin are required to submit")
	ErrNoMapSelected      = errors.New("no map selected")
	ErrUnknownMap         = errors.New("unknown map")
	ErrOutsideImage       = errors.New("pointer is outside the map image")
	ErrNoHintsLeft        = errors.New("no hints left")
	ErrNoHintPrompt       = errors.New("no hint prompt open")
)

// Catalog is the read-only source of maps and spots.
type Catalog interface {
	ListMaps(ctx context.Context) ([]spotguess.MapDefinition, error)
	ListSpots(ctx context.Context) ([]spotguess.Spot, error)
}

type Options struct {
	Logger   *slog.Logger
	Listener Listener

	// Rand drives spot selection; nil uses a random source.
	Rand selector.Rand

	// TimeUnit is the length of one timer unit, one second by default.
	TimeUnit  time.Duration
	NewTicker func(time.Duration) roundtimer.Ticker

	// TransitionDelay is how long the session stays in the transitioning
	// phase before the next round starts. Zero starts it immediately.
	TransitionDelay time.Duration

	MinScale float64
	MaxScale float64
	ZoomStep float64
}

// Session is the only writer of its state. Every command takes the session
// lock, so commands, timer callbacks and the delayed transition are
// serialised.
type Session struct {
	id       string
	catalog  Catalog
	opts     Options
	logger   *slog.Logger
	listener Listener

	mu       sync.Mutex
	emitMu   sync.Mutex
	pending  []event
	starting bool

	phase        spotguess.Phase
	outcome      spotguess.Outcome
	totalRounds  int
	roundSeconds int
	roundIndex   int

	maps  []spotguess.MapDefinition
	spots []spotguess.Spot
	sel   *selector.Selector

	usedSpotIDs []string
	current     *spotguess.Spot
	hints       int
	hintPrompt  bool
	selectedMap *spotguess.MapDefinition
	guess       *spotguess.Guess
	results     []spotguess.RoundResult

	// gen tags the active timer and pending transition; callbacks carrying an
	// older generation are ignored.
	gen        uint64
	timer      *roundtimer.Timer
	remaining  int
	transition *time.Timer

	container viewport.Size
	view      *viewport.Transform
	gesture   *viewport.Gesture
}

func New(id string, catalog Catalog, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	listener := opts.Listener
	if listener == nil {
		listener = ListenerFuncs{}
	}
	view := viewport.New(opts.MinScale, opts.MaxScale)

	return &Session{
		id:       id,
		catalog:  catalog,
		opts:     opts,
		logger:   logger.With("session", id),
		listener: listener,
		phase:    spotguess.PhaseLoading,
		view:     view,
		gesture:  viewport.NewGesture(view, opts.ZoomStep),
	}
}

func (s *Session) ID() string { return s.id }

// Start loads the catalog and begins the first round. It may only be called
// once, while the session is loading. A failed or empty catalog moves the
// session to the unavailable phase and returns ErrCatalogUnavailable.
func (s *Session) Start(ctx context.Context, totalRounds, roundSeconds int) error {
	s.mu.Lock()
	if s.phase != spotguess.PhaseLoading || s.starting {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	s.starting = true
	s.mu.Unlock()

	maps, spots, fetchErr := s.fetchCatalog(ctx)

	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()

	s.starting = false
	if s.phase != spotguess.PhaseLoading {
		// Exited while the catalog was loading.
		return ErrWrongPhase
	}

	if fetchErr == nil && len(spots) == 0 {
		fetchErr = errors.New("no spots")
	}
	if fetchErr != nil {
		s.logger.Error("catalog unavailable", "error", fetchErr)
		s.setPhaseLocked(spotguess.PhaseUnavailable, spotguess.OutcomeNone)
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, fetchErr)
	}

	if totalRounds <= 0 {
		totalRounds = spotguess.DefaultRounds
	}
	if roundSeconds <= 0 {
		roundSeconds = spotguess.DefaultRoundSeconds
	}
	s.totalRounds = totalRounds
	s.roundSeconds = roundSeconds
	s.maps = maps
	s.spots = spots
	s.sel = selector.New(len(spots), s.opts.Rand)

	s.logger.Info("session started",
		"rounds", totalRounds,
		"round_seconds", roundSeconds,
		"maps", len(maps),
		"spots", len(spots),
	)
	s.beginRoundLocked(1)
	return nil
}

func (s *Session) fetchCatalog(ctx context.Context) ([]spotguess.MapDefinition, []spotguess.Spot, error) {
	var (
		maps  []spotguess.MapDefinition
		spots []spotguess.Spot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		maps, err = s.catalog.ListMaps(gctx)
		if err != nil {
			return fmt.Errorf("listing maps: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		spots, err = s.catalog.ListSpots(gctx)
		if err != nil {
			return fmt.Errorf("listing spots: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return maps, spots, nil
}

// beginRoundLocked selects the next spot and resets all per-round state.
func (s *Session) beginRoundLocked(index int) {
	if len(s.usedSpotIDs) >= len(s.spots) {
		s.logger.Warn("spot pool exhausted, repeating spots", "round", index, "spots", len(s.spots))
	}
	spot := s.spots[s.sel.Next()]

	s.current = &spot
	s.usedSpotIDs = append(s.usedSpotIDs, spot.ID)
	s.roundIndex = index
	s.hints = 0
	s.hintPrompt = false
	s.selectedMap = nil
	s.guess = nil
	s.view.Invalidate()

	s.startTimerLocked()
	s.setPhaseLocked(spotguess.PhasePlaying, spotguess.OutcomeNone)
	s.logger.Debug("round started", "round", index, "spot", spot.ID)
}

func (s *Session) startTimerLocked() {
	s.stopTimerLocked()
	gen := s.gen
	s.remaining = s.roundSeconds
	s.timer = roundtimer.Start(roundtimer.Config{
		Duration:  s.roundSeconds,
		Unit:      s.opts.TimeUnit,
		NewTicker: s.opts.NewTicker,
	},
		func(left int) { s.onTick(gen, left) },
		func() { s.onExpire(gen) },
	)
}

// stopTimerLocked cancels the active timer and any pending transition and
// moves to a new generation so their callbacks become no-ops.
func (s *Session) stopTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.transition != nil {
		s.transition.Stop()
		s.transition = nil
	}
}

func (s *Session) onTick(gen uint64, left int) {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()

	if gen != s.gen || s.phase != spotguess.PhasePlaying {
		return
	}
	s.remaining = left
	s.emitLocked(func(l Listener) {
		if tl, ok := l.(TickListener); ok {
			tl.TimerTicked(left)
		}
	})
}

func (s *Session) onExpire(gen uint64) {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()

	if gen != s.gen || s.phase != spotguess.PhasePlaying {
		return
	}
	s.remaining = 0
	s.resolveLocked(true)
}

// resolveLocked ends the current round. Callers have checked the phase, so
// a round is resolved at most once.
func (s *Session) resolveLocked(timedOut bool) {
	s.stopTimerLocked()
	s.hintPrompt = false

	spot := *s.current
	res := scoring.ScoreGuess(s.guess, spot, s.hints)

	rr := spotguess.RoundResult{
		Round:       s.roundIndex,
		SpotID:      spot.ID,
		SpotMapName: spot.MapName,
		Score:       res.Score,
		HintsUsed:   s.hints,
		WrongMap:    res.WrongMap,
		TimedOut:    timedOut,
		Closest:     res.Closest,
		Distance:    res.Distance,
	}
	if s.guess != nil {
		p := s.guess.Point
		rr.Guess = &p
		rr.MapNameGuessed = s.guess.MapName
	}
	s.results = append(s.results, rr)

	outcome := spotguess.OutcomeCorrect
	if rr.WrongMap {
		outcome = spotguess.OutcomeWrongMap
	}

	s.logger.Info("round resolved",
		"round", rr.Round,
		"spot", rr.SpotID,
		"score", rr.Score,
		"hints", rr.HintsUsed,
		"wrong_map", rr.WrongMap,
		"timed_out", rr.TimedOut,
	)

	s.emitLocked(func(l Listener) { l.RoundResolved(rr) })
	s.setPhaseLocked(spotguess.PhaseRoundOver, outcome)
}

func (s *Session) setPhaseLocked(p spotguess.Phase, o spotguess.Outcome) {
	s.phase = p
	s.outcome = o
	snap := s.snapshotLocked()
	s.emitLocked(func(l Listener) { l.PhaseChanged(snap) })
}

// SelectMap chooses the map the pin will be placed on. Changing the map
// clears the pin. An empty id returns to the map list.
func (s *Session) SelectMap(mapID string) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()

	if s.phase != spotguess.PhasePlaying {
		return ErrWrongPhase
	}

	if mapID == "" {
		s.selectedMap = nil
		s.guess = nil
		s.view.Invalidate()
		return nil
	}

	i := slices.IndexFunc(s.maps, func(m spotguess.MapDefinition) bool { return m.ID == mapID })
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownMap, mapID)
	}
	if s.selectedMap != nil && s.selectedMap.ID == mapID {
		return nil
	}

	m := s.maps[i]
	s.selectedMap = &m
	s.guess = nil
	// A known image size lets the viewport come up before the image loads.
	s.view.Initialize(s.container, m.NaturalSize)
	return nil
}

// LayoutViewport reports the container size and the loaded image size. It is
// called on image load and on every resize; pan and zoom are reset. A zero
// natural size falls back to the size stored for the selected map.
func (s *Session) LayoutViewport(container, natural viewport.Size) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()

	if s.phase != spotguess.PhasePlaying && s.phase != spotguess.PhaseRoundOver {
		return ErrWrongPhase
	}
	s.container = container
	if s.selectedMap == nil {
		return ErrNoMapSelected
	}
	if !natural.Valid() {
		natural = s.selectedMap.NaturalSize
	}
	s.view.Initialize(container, natural)
	if !s.view.Ready() {
		return viewport.ErrNotReady
	}
	return nil
}

// Input feeds a pointer, wheel or button event to the viewport. A click that
// is not the end of a drag places the pin.
func (s *Session) Input(ev viewport.Event) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()

	if s.phase != spotguess.PhasePlaying {
		return ErrWrongPhase
	}
	if s.selectedMap == nil {
		return ErrNoMapSelected
	}
	p, err := s.gesture.Handle(ev)
	if err != nil || p == nil {
		return err
	}
	return s.placeLocked(*p)
}

// PlaceGuess converts a container-relative pointer to canonical space and
// replaces the current pin.
func (s *Session) PlaceGuess(pointer spotguess.Point) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()

	if s.phase != spotguess.PhasePlaying {
		return ErrWrongPhase
	}
	if s.selectedMap == nil {
		return ErrNoMapSelected
	}
	p, err := s.view.ContainerToCanonical(pointer)
	if err != nil {
		return err
	}
	return s.placeLocked(p)
}

func (s *Session) placeLocked(p spotguess.Point) error {
	if !p.InCanonicalSpace() {
		return ErrOutsideImage
	}
	s.guess = &spotguess.Guess{Point: p, MapName: s.selectedMap.Name}
	return nil
}

// SubmitGuess resolves the round with the placed pin.
func (s *Session) SubmitGuess() error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()

	if s.phase != spotguess.PhasePlaying {
		return ErrWrongPhase
	}
	if s.selectedMap == nil || s.guess == nil {
		return ErrPrecondition
	}
	s.resolveLocked(false)
	return nil
}

// RequestHint opens the hint confirmation prompt.
func (s *Session) RequestHint() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != spotguess.PhasePlaying {
		return ErrWrongPhase
	}
	if s.hints >= spotguess.MaxHints {
		return ErrNoHintsLeft
	}
	s.hintPrompt = true
	return nil
}

// ConfirmHint spends one hint and widens the spot image by one tier.
func (s *Session) ConfirmHint() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != spotguess.PhasePlaying {
		return ErrWrongPhase
	}
	if !s.hintPrompt {
		return ErrNoHintPrompt
	}
	s.hintPrompt = false
	if s.hints >= spotguess.MaxHints {
		return ErrNoHintsLeft
	}
	s.hints++
	s.logger.Debug("hint used", "round", s.roundIndex, "hints", s.hints)
	return nil
}

func (s *Session) CancelHint() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != spotguess.PhasePlaying {
		return ErrWrongPhase
	}
	s.hintPrompt = false
	return nil
}

// AdvanceRound leaves the round summary: either to the next round, through
// the transitioning phase, or to the final results.
func (s *Session) AdvanceRound() error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()

	if s.phase != spotguess.PhaseRoundOver {
		return ErrWrongPhase
	}

	if s.roundIndex >= s.totalRounds {
		s.setPhaseLocked(spotguess.PhaseResults, spotguess.OutcomeNone)
		sum := s.summaryLocked()
		s.logger.Info("session complete", "total_score", sum.TotalScore, "max_score", sum.MaxScore)
		s.emitLocked(func(l Listener) { l.SessionComplete(sum) })
		return nil
	}

	s.stopTimerLocked()
	s.setPhaseLocked(spotguess.PhaseTransitioning, spotguess.OutcomeNone)

	next := s.roundIndex + 1
	if s.opts.TransitionDelay <= 0 {
		s.beginRoundLocked(next)
		return nil
	}

	gen := s.gen
	s.transition = time.AfterFunc(s.opts.TransitionDelay, func() {
		s.mu.Lock()
		defer s.flush()
		defer s.mu.Unlock()

		if gen != s.gen || s.phase != spotguess.PhaseTransitioning {
			return
		}
		s.transition = nil
		s.beginRoundLocked(next)
	})
	return nil
}

// Exit abandons the session from any phase. It is idempotent.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()

	if s.phase == spotguess.PhaseExited {
		return
	}
	s.stopTimerLocked()
	s.hintPrompt = false
	s.setPhaseLocked(spotguess.PhaseExited, spotguess.OutcomeNone)
	s.logger.Info("session exited", "round", s.roundIndex)
}

func (s *Session) summaryLocked() Summary {
	sum := Summary{
		MaxScore: s.totalRounds * spotguess.MaxPointsPerRound,
		Results:  append([]spotguess.RoundResult{}, s.results...),
	}
	for _, r := range s.results {
		sum.TotalScore += r.Score
	}
	return sum
}
