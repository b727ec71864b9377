package gesture

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safesignal/sosclient/internal/clock"
)

type fireRecorder struct {
	mu    sync.Mutex
	fired []string
}

func (r *fireRecorder) record(subjectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, subjectID)
}

func (r *fireRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fired...)
}

func newTestArbiter() (*Arbiter, *clock.Fake, *fireRecorder) {
	c := clock.NewFake(time.Unix(1700000000, 0))
	rec := &fireRecorder{}
	return NewArbiter(rec.record, WithClock(c)), c, rec
}

func TestReleaseBeforeThresholdIsTap(t *testing.T) {
	a, c, rec := newTestArbiter()

	a.PressStart("home")
	assert.Equal(t, StatePressing, a.State("home"))

	c.Advance(1999 * time.Millisecond)
	assert.Equal(t, VerdictTap, a.PressEnd("home"))

	c.Advance(time.Hour)
	assert.Empty(t, rec.calls())
	assert.Equal(t, StateIdle, a.State("home"))
	assert.Equal(t, 0, c.Pending())
}

func TestHoldFiresExactlyOnce(t *testing.T) {
	a, c, rec := newTestArbiter()

	a.PressStart("home")
	c.Advance(2100 * time.Millisecond)

	assert.Equal(t, []string{"home"}, rec.calls())
	assert.Equal(t, StateFired, a.State("home"))

	assert.Equal(t, VerdictHoldConfirmed, a.PressEnd("home"))
	c.Advance(time.Hour)

	assert.Equal(t, []string{"home"}, rec.calls())
	assert.Equal(t, StateIdle, a.State("home"))
}

func TestFiresAtThresholdBoundary(t *testing.T) {
	a, c, rec := newTestArbiter()

	a.PressStart("home")
	c.Advance(DefaultThreshold)

	assert.Equal(t, []string{"home"}, rec.calls())
}

func TestRepeatedPressStartKeepsOneTimer(t *testing.T) {
	a, c, rec := newTestArbiter()

	first := a.PressStart("home")
	c.Advance(1500 * time.Millisecond)
	second := a.PressStart("home")

	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, c.Pending())

	// The first timer would have fired here.
	c.Advance(1000 * time.Millisecond)
	assert.Empty(t, rec.calls())

	c.Advance(1000 * time.Millisecond)
	assert.Equal(t, []string{"home"}, rec.calls())

	c.Advance(time.Hour)
	assert.Len(t, rec.calls(), 1)
}

func TestPressEndWithoutSession(t *testing.T) {
	a, _, _ := newTestArbiter()
	assert.Equal(t, VerdictNone, a.PressEnd("home"))
}

func TestSubjectsAreIndependent(t *testing.T) {
	a, c, rec := newTestArbiter()

	a.PressStart("contact-a")
	c.Advance(500 * time.Millisecond)
	a.PressStart("contact-b")

	c.Advance(1600 * time.Millisecond)
	assert.Equal(t, []string{"contact-a"}, rec.calls())
	assert.Equal(t, VerdictTap, a.PressEnd("contact-b"))

	c.Advance(time.Hour)
	assert.Equal(t, []string{"contact-a"}, rec.calls())
}

func TestCustomThreshold(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	rec := &fireRecorder{}
	a := NewArbiter(rec.record, WithClock(c), WithThreshold(500*time.Millisecond))

	assert.Equal(t, 500*time.Millisecond, a.Threshold())
	a.PressStart("home")
	c.Advance(500 * time.Millisecond)
	assert.Equal(t, []string{"home"}, rec.calls())
}

func TestCancelDropsSessionSilently(t *testing.T) {
	a, c, rec := newTestArbiter()

	a.PressStart("home")
	a.Cancel("home")
	c.Advance(time.Hour)

	assert.Empty(t, rec.calls())
	assert.Equal(t, VerdictNone, a.PressEnd("home"))
}

func TestCloseCancelsTimersAndIgnoresPresses(t *testing.T) {
	a, c, rec := newTestArbiter()

	a.PressStart("home")
	a.PressStart("contact-a")
	a.Close()

	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, "", a.PressStart("home"))

	c.Advance(time.Hour)
	assert.Empty(t, rec.calls())
}

func TestSessionSnapshot(t *testing.T) {
	a, c, _ := newTestArbiter()

	id := a.PressStart("home")
	s, ok := a.Session("home")
	require.True(t, ok)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "home", s.SubjectID)
	assert.Equal(t, c.Now(), s.StartedAt)
	assert.Equal(t, StatePressing, s.State)

	_, ok = a.Session("other")
	assert.False(t, ok)
}

func TestFireCallbackMayReenterArbiter(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	var a *Arbiter
	var stateDuringFire State
	a = NewArbiter(func(subjectID string) {
		stateDuringFire = a.State(subjectID)
	}, WithClock(c))

	a.PressStart("home")
	c.Advance(3 * time.Second)

	assert.Equal(t, StateFired, stateDuringFire)
}

func TestRealClockReleaseCancelsFire(t *testing.T) {
	rec := &fireRecorder{}
	a := NewArbiter(rec.record, WithThreshold(50*time.Millisecond))

	a.PressStart("home")
	assert.Equal(t, VerdictTap, a.PressEnd("home"))

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.calls())
}

func TestRealClockHoldFires(t *testing.T) {
	fired := make(chan string, 2)
	a := NewArbiter(func(subjectID string) { fired <- subjectID }, WithThreshold(20*time.Millisecond))

	a.PressStart("home")

	select {
	case subject := <-fired:
		assert.Equal(t, "home", subject)
	case <-time.After(2 * time.Second):
		t.Fatal("hold did not fire")
	}
	assert.Equal(t, VerdictHoldConfirmed, a.PressEnd("home"))
	assert.Len(t, fired, 0)
}
