package session

import "github.com/playperu/spotguess/internal/spotguess"

// Summary is delivered once the final round has been advanced past.
type Summary struct {
	TotalScore int                     `json:"totalScore"`
	MaxScore   int                     `json:"maxScore"`
	Results    []spotguess.RoundResult `json:"results"`
}

// Listener receives session events in the order they happened. Calls are
// made outside the session lock, so a listener may read Snapshot. It must not
// call commands synchronously; hand them to another goroutine instead.
type Listener interface {
	PhaseChanged(Snapshot)
	RoundResolved(spotguess.RoundResult)
	SessionComplete(Summary)
}

// TickListener is implemented by listeners that also want every timer tick.
type TickListener interface {
	TimerTicked(remaining int)
}

// ListenerFuncs adapts plain functions to Listener and TickListener. Nil
// fields are skipped.
type ListenerFuncs struct {
	OnPhase    func(Snapshot)
	OnRound    func(spotguess.RoundResult)
	OnComplete func(Summary)
	OnTick     func(remaining int)
}

func (f ListenerFuncs) PhaseChanged(s Snapshot) {
	if f.OnPhase != nil {
		f.OnPhase(s)
	}
}

func (f ListenerFuncs) RoundResolved(r spotguess.RoundResult) {
	if f.OnRound != nil {
		f.OnRound(r)
	}
}

func (f ListenerFuncs) SessionComplete(s Summary) {
	if f.OnComplete != nil {
		f.OnComplete(s)
	}
}

func (f ListenerFuncs) TimerTicked(remaining int) {
	if f.OnTick != nil {
		f.OnTick(remaining)
	}
}

// Multi fans events out to several listeners in order.
type Multi []Listener

func (m Multi) PhaseChanged(s Snapshot) {
	for _, l := range m {
		l.PhaseChanged(s)
	}
}

func (m Multi) RoundResolved(r spotguess.RoundResult) {
	for _, l := range m {
		l.RoundResolved(r)
	}
}

func (m Multi) SessionComplete(s Summary) {
	for _, l := range m {
		l.SessionComplete(s)
	}
}

func (m Multi) TimerTicked(remaining int) {
	for _, l := range m {
		if tl, ok := l.(TickListener); ok {
			tl.TimerTicked(remaining)
		}
	}
}

type event func(Listener)

func (s *Session) emitLocked(ev event) {
	s.pending = append(s.pending, ev)
}

// flush delivers queued events. Only one goroutine dispatches at a time;
// events queued while another goroutine is dispatching (including by a
// listener re-entering the session) are picked up by that goroutine.
func (s *Session) flush() {
	for {
		if !s.emitMu.TryLock() {
			return
		}
		for {
			evs := s.takePending()
			if len(evs) == 0 {
				break
			}
			for _, ev := range evs {
				ev(s.listener)
			}
		}
		s.emitMu.Unlock()

		s.mu.Lock()
		more := len(s.pending) > 0
		s.mu.Unlock()
		if !more {
			return
		}
	}
}

func (s *Session) takePending() []event {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.pending
	s.pending = nil
	return evs
}
