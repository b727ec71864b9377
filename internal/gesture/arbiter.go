// Package gesture turns raw press events into tap or hold verdicts.
//
// Each subject (the generic SOS button, or one contact's SOS control) owns
// at most one session and one armed timer. A session moves
// Pressing -> Fired when the hold threshold elapses, and is destroyed on
// release, on re-entry for the same subject, or when the arbiter is closed.
package gesture

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/safesignal/sosclient/internal/clock"
	"github.com/safesignal/sosclient/pkg/logger"
)

type State int

const (
	StateIdle State = iota
	StatePressing
	StateFired
	StateReleased
)

func (s State) String() string {
	switch s {
	case StatePressing:
		return "pressing"
	case StateFired:
		return "fired"
	case StateReleased:
		return "released"
	default:
		return "idle"
	}
}

type Verdict int

const (
	// VerdictNone means there was no session to release.
	VerdictNone Verdict = iota
	// VerdictTap means the press ended before the threshold; open the composer.
	VerdictTap
	// VerdictHoldConfirmed means the hold already fired; the release is a
	// no-op for dispatch.
	VerdictHoldConfirmed
)

func (v Verdict) String() string {
	switch v {
	case VerdictTap:
		return "tap"
	case VerdictHoldConfirmed:
		return "hold_confirmed"
	default:
		return "none"
	}
}

// FireFunc is called once per session when the hold threshold elapses.
// It runs on the timer's goroutine, outside the arbiter's lock.
type FireFunc func(subjectID string)

// Session is a read-only view of a live gesture session.
type Session struct {
	ID        string
	SubjectID string
	StartedAt time.Time
	State     State
}

type session struct {
	Session
	timer clock.Timer
}

type Arbiter struct {
	mu        sync.Mutex
	clock     clock.Clock
	threshold time.Duration
	onFire    FireFunc
	sessions  map[string]*session
	closed    bool
	logger    *logger.Logger
}

type Option func(*Arbiter)

func WithClock(c clock.Clock) Option {
	return func(a *Arbiter) { a.clock = c }
}

func WithThreshold(d time.Duration) Option {
	return func(a *Arbiter) {
		if d > 0 {
			a.threshold = d
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(a *Arbiter) { a.logger = l }
}

const DefaultThreshold = 2000 * time.Millisecond

func NewArbiter(onFire FireFunc, opts ...Option) *Arbiter {
	a := &Arbiter{
		clock:     clock.Real(),
		threshold: DefaultThreshold,
		onFire:    onFire,
		sessions:  make(map[string]*session),
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Arbiter) Threshold() time.Duration {
	return a.threshold
}

// PressStart opens a session for subjectID, cancelling any session the
// subject already had, and arms the hold timer. It returns the new
// session's ID, or "" once the arbiter is closed.
func (a *Arbiter) PressStart(subjectID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ""
	}

	if prev, ok := a.sessions[subjectID]; ok {
		a.releaseLocked(prev)
		a.logger.LogGestureEvent(subjectID, "restarted", map[string]interface{}{
			"previous_session": prev.ID,
			"previous_state":   prev.State.String(),
		})
	}

	s := &session{
		Session: Session{
			ID:        uuid.NewString(),
			SubjectID: subjectID,
			StartedAt: a.clock.Now(),
			State:     StatePressing,
		},
	}
	s.timer = a.clock.AfterFunc(a.threshold, func() { a.fire(s) })
	a.sessions[subjectID] = s

	a.logger.LogGestureEvent(subjectID, "press_start", map[string]interface{}{
		"session_id": s.ID,
	})
	return s.ID
}

// PressEnd closes the subject's session and reports how the gesture
// resolved.
func (a *Arbiter) PressEnd(subjectID string) Verdict {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[subjectID]
	if !ok {
		return VerdictNone
	}

	prevState := s.State
	a.releaseLocked(s)

	verdict := VerdictHoldConfirmed
	if prevState == StatePressing {
		// The lock orders release against fire: if the timer's callback is
		// already queued it will find the session gone and do nothing.
		verdict = VerdictTap
	}

	a.logger.LogGestureEvent(subjectID, "press_end", map[string]interface{}{
		"session_id": s.ID,
		"verdict":    verdict.String(),
		"held_ms":    a.clock.Now().Sub(s.StartedAt).Milliseconds(),
	})
	return verdict
}

// State reports the subject's current gesture state.
func (a *Arbiter) State(subjectID string) State {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions[subjectID]; ok {
		return s.State
	}
	return StateIdle
}

func (a *Arbiter) Session(subjectID string) (Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[subjectID]
	if !ok {
		return Session{}, false
	}
	return s.Session, true
}

// Cancel drops the subject's session without producing a verdict, e.g.
// when the control scrolls off screen mid-press.
func (a *Arbiter) Cancel(subjectID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions[subjectID]; ok {
		a.releaseLocked(s)
		a.logger.LogGestureEvent(subjectID, "cancelled", map[string]interface{}{"session_id": s.ID})
	}
}

// Close tears down every session. Later presses are ignored.
func (a *Arbiter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.sessions {
		a.releaseLocked(s)
	}
	a.closed = true
}

func (a *Arbiter) fire(s *session) {
	a.mu.Lock()
	if current, ok := a.sessions[s.SubjectID]; !ok || current != s || s.State != StatePressing {
		a.mu.Unlock()
		return
	}
	s.State = StateFired
	s.timer = nil
	a.mu.Unlock()

	a.logger.LogGestureEvent(s.SubjectID, "fired", map[string]interface{}{
		"session_id": s.ID,
	})

	if a.onFire != nil {
		a.onFire(s.SubjectID)
	}
}

// releaseLocked stops the session's timer and forgets the session.
func (a *Arbiter) releaseLocked(s *session) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.State = StateReleased
	if current, ok := a.sessions[s.SubjectID]; ok && current == s {
		delete(a.sessions, s.SubjectID)
	}
}
