package spin

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Ashenafi-pixel/raffle-wheel/round"
	"github.com/Ashenafi-pixel/raffle-wheel/sound"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

var epoch = time.Date(2025, 12, 24, 9, 0, 0, 0, time.UTC)

// testTier has equal weights: r<1/3 -> CASE, r<2/3 -> THANK YOU, else CHICKEN.
var testTier = wheel.Tier{
	ID:       "tier-test",
	Label:    "Test",
	RecordAs: "Tier T",
	Prizes: []wheel.Prize{
		{Name: "CASE ONLY", Icon: "📱", Weight: 1},
		{Name: "THANK YOU", Icon: "😢", Weight: 1, Miss: true},
		{Name: "CHICKEN", Icon: "🐔", Weight: 1, Jackpot: true},
	},
}

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

type countingSource struct {
	src wheel.Source
	n   int
}

func (c *countingSource) Float64() float64 { c.n++; return c.src.Float64() }

type memRecorder struct {
	mu   sync.Mutex
	got  []round.Outcome
	fail error
}

func (m *memRecorder) Record(_ context.Context, o round.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.got = append(m.got, o)
	return nil
}

func (m *memRecorder) outcomes() []round.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]round.Outcome(nil), m.got...)
}

type cueLog struct {
	mu   sync.Mutex
	cues []sound.Cue
}

func (c *cueLog) Notify(cue sound.Cue) {
	c.mu.Lock()
	c.cues = append(c.cues, cue)
	c.mu.Unlock()
}

func (c *cueLog) count(cue sound.Cue) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, x := range c.cues {
		if x == cue {
			n++
		}
	}
	return n
}

func newTestSession(t *testing.T, r float64, opts ...Option) (*Session, *ManualClock, *memRecorder) {
	t.Helper()
	clock := NewManualClock(epoch)
	rec := &memRecorder{}
	base := []Option{
		WithScheduler(clock),
		WithSource(fixedSource(r)),
		WithRecorder(rec),
		WithBranch("Accra"),
		WithDuration(10 * time.Second),
	}
	s, err := New(testTier, append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return s, clock, rec
}

func TestNew_RejectsBadConfig(t *testing.T) {
	if _, err := New(wheel.Tier{ID: "empty"}); err == nil {
		t.Error("expected error for tier without prizes")
	}
	var ce *wheel.ConfigurationError
	if _, err := New(testTier, WithFullRotations(0)); !errors.As(err, &ce) {
		t.Errorf("expected ConfigurationError for zero rotations, got %v", err)
	}
	if _, err := New(testTier, WithDuration(0)); err == nil {
		t.Error("expected error for zero duration")
	}
}

func TestSpin_SettlesAtDuration(t *testing.T) {
	s, clock, rec := newTestSession(t, 0.1)
	plan, err := s.Spin()
	if err != nil {
		t.Fatal(err)
	}
	if plan.WinnerIndex != 0 || plan.SegmentCount != 3 {
		t.Fatalf("plan %+v", plan)
	}
	if !plan.SettleAt.Equal(epoch.Add(10*time.Second)) || plan.DurationMs != 10000 {
		t.Errorf("settle at %v (%dms)", plan.SettleAt, plan.DurationMs)
	}
	if got := wheel.SegmentUnderPointer(plan.TargetRotation, 3); got != 0 {
		t.Errorf("target lands on segment %d", got)
	}

	clock.Advance(10*time.Second - time.Nanosecond)
	if s.State() != Spinning {
		t.Fatalf("settled early: %v", s.State())
	}
	if len(rec.outcomes()) != 0 {
		t.Fatal("recorded before settlement")
	}

	clock.Advance(time.Nanosecond)
	snap := s.Snapshot()
	if snap.State != Settled {
		t.Fatalf("state %v want settled", snap.State)
	}
	if snap.Winner == nil || snap.Winner.Prize.Name != "CASE ONLY" {
		t.Fatalf("winner %+v", snap.Winner)
	}
	if snap.Rotation != plan.TargetRotation {
		t.Errorf("rotation %f want %f", snap.Rotation, plan.TargetRotation)
	}

	got := rec.outcomes()
	if len(got) != 1 {
		t.Fatalf("recorded %d outcomes", len(got))
	}
	o := got[0]
	if o.Branch != "Accra" || o.Tier != "Tier T" || o.PrizeName != "CASE ONLY" || o.Icon != "📱" || o.Jackpot {
		t.Errorf("outcome %+v", o)
	}
	if !o.SettledAt.Equal(epoch.Add(10 * time.Second)) {
		t.Errorf("settled at %v", o.SettledAt)
	}
}

func TestSpin_WhileSpinningDoesNotRedraw(t *testing.T) {
	src := &countingSource{src: fixedSource(0.9)}
	s, clock, rec := newTestSession(t, 0, WithSource(src))
	first, err := s.Spin()
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(3 * time.Second)
	second, err := s.Spin()
	if err != nil {
		t.Fatal(err)
	}
	if src.n != 1 {
		t.Errorf("drew %d times want 1", src.n)
	}
	if first != second {
		t.Errorf("second spin returned a different plan:\n%+v\n%+v", first, second)
	}
	clock.Advance(time.Minute)
	if n := len(rec.outcomes()); n != 1 {
		t.Errorf("recorded %d outcomes want 1", n)
	}
}

func TestSpin_RejectedWhileSettled(t *testing.T) {
	s, clock, _ := newTestSession(t, 0.1)
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Second)
	if _, err := s.Spin(); !errors.Is(err, ErrUnclaimedResult) {
		t.Fatalf("got %v want ErrUnclaimedResult", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Spin(); err != nil {
		t.Fatalf("spin after reset: %v", err)
	}
}

func TestMissIsNotRecorded(t *testing.T) {
	cues := &cueLog{}
	s, clock, rec := newTestSession(t, 0.5, WithNotifier(cues))
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Second)
	snap := s.Snapshot()
	if snap.State != Settled || snap.Winner == nil || !snap.Winner.Prize.Miss {
		t.Fatalf("snapshot %+v", snap)
	}
	if n := len(rec.outcomes()); n != 0 {
		t.Errorf("miss recorded %d times", n)
	}
	if cues.count(sound.CueMiss) != 1 || cues.count(sound.CueWin) != 0 {
		t.Errorf("cues %v", cues.cues)
	}
}

func TestJackpotCueAndFlag(t *testing.T) {
	cues := &cueLog{}
	s, clock, rec := newTestSession(t, 0.9, WithNotifier(cues))
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Second)
	if cues.count(sound.CueJackpot) != 1 {
		t.Errorf("cues %v", cues.cues)
	}
	got := rec.outcomes()
	if len(got) != 1 || !got[0].Jackpot || got[0].PrizeName != "CHICKEN" {
		t.Errorf("outcomes %+v", got)
	}
}

func TestTicksWhileSpinning(t *testing.T) {
	cues := &cueLog{}
	s, clock, _ := newTestSession(t, 0.1, WithNotifier(cues), WithTickInterval(100*time.Millisecond))
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)
	if n := cues.count(sound.CueTick); n != 10 {
		t.Errorf("ticks after 1s: %d want 10", n)
	}
	clock.Advance(20 * time.Second)
	// the tick due at exactly 10s is cancelled by settlement
	if n := cues.count(sound.CueTick); n != 99 {
		t.Errorf("ticks total: %d want 99", n)
	}
	if clock.Pending() != 0 {
		t.Errorf("%d timers still pending", clock.Pending())
	}
}

func TestRecorderErrorKeepsResult(t *testing.T) {
	s, clock, rec := newTestSession(t, 0.1)
	rec.fail = errors.New("ledger down")
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Second)
	snap := s.Snapshot()
	if snap.State != Settled || snap.Winner == nil || snap.Winner.Prize.Name != "CASE ONLY" {
		t.Errorf("snapshot %+v", snap)
	}
}

func TestSettle_Explicit(t *testing.T) {
	s, clock, _ := newTestSession(t, 0.1)
	if err := s.Settle(); !errors.Is(err, ErrNotSpinning) {
		t.Errorf("idle settle: %v", err)
	}
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(5 * time.Second)
	if err := s.Settle(); !errors.Is(err, ErrNotDue) {
		t.Errorf("early settle: %v", err)
	}
	if s.State() != Spinning {
		t.Fatal("early settle changed state")
	}
}

func TestReset(t *testing.T) {
	s, clock, _ := newTestSession(t, 0.1)
	if err := s.Reset(); err != nil {
		t.Errorf("idle reset: %v", err)
	}
	plan, _ := s.Spin()
	if err := s.Reset(); !errors.Is(err, ErrSpinInProgress) {
		t.Errorf("reset while spinning: %v", err)
	}
	clock.Advance(10 * time.Second)
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.State != Idle || snap.Winner != nil || snap.Plan != nil {
		t.Errorf("after reset %+v", snap)
	}
	if snap.Rotation != plan.TargetRotation {
		t.Errorf("reset moved the wheel: %f want %f", snap.Rotation, plan.TargetRotation)
	}
}

func TestRotationContinuity(t *testing.T) {
	s, clock, _ := newTestSession(t, 0, WithSource(wheel.NewSeededSource(42)))
	prev := 0.0
	for i := 0; i < 25; i++ {
		plan, err := s.Spin()
		if err != nil {
			t.Fatal(err)
		}
		if plan.StartRotation != prev {
			t.Fatalf("spin %d started at %f want %f", i, plan.StartRotation, prev)
		}
		// at least 19 whole turns: the remainder of the current angle is given back
		if plan.TargetRotation-prev < 19*360 {
			t.Fatalf("spin %d turned only %f degrees", i, plan.TargetRotation-prev)
		}
		clock.Advance(10 * time.Second)
		snap := s.Snapshot()
		if got := wheel.SegmentUnderPointer(snap.Rotation, 3); got != snap.Winner.Index {
			t.Fatalf("spin %d: pointer on %d, winner %d", i, got, snap.Winner.Index)
		}
		prev = snap.Rotation
		if err := s.Reset(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSetTier(t *testing.T) {
	s, clock, rec := newTestSession(t, 0.1)
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	other := wheel.Tier{ID: "solo", Prizes: []wheel.Prize{{Name: "SOLO", Weight: 1}}}
	if err := s.SetTier(other); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.State != Idle || snap.Rotation != 0 || snap.Tier.ID != "solo" {
		t.Errorf("after SetTier %+v", snap)
	}
	clock.Advance(time.Minute)
	if s.State() != Idle || len(rec.outcomes()) != 0 {
		t.Error("abandoned spin settled after tier change")
	}
	if err := s.SetTier(wheel.Tier{ID: "bad"}); err == nil {
		t.Error("expected validation error")
	}
	if s.Snapshot().Tier.ID != "solo" {
		t.Error("invalid tier replaced the current one")
	}
}

func TestClose_CancelsSettlement(t *testing.T) {
	s, clock, rec := newTestSession(t, 0.1)
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()
	if clock.Pending() != 0 {
		t.Errorf("%d timers pending after close", clock.Pending())
	}
	clock.Advance(time.Minute)
	if s.State() != Spinning || len(rec.outcomes()) != 0 {
		t.Error("closed session settled")
	}
	if _, err := s.Spin(); !errors.Is(err, ErrClosed) {
		t.Errorf("spin after close: %v", err)
	}
	if err := s.Reset(); !errors.Is(err, ErrClosed) {
		t.Errorf("reset after close: %v", err)
	}
}

func TestStaleCallbackIgnored(t *testing.T) {
	// A scheduler whose Stop never works, like a real timer that already fired.
	clock := NewManualClock(epoch)
	leaky := leakyScheduler{clock}
	rec := &memRecorder{}
	s, err := New(testTier, WithScheduler(leaky), WithSource(fixedSource(0.1)), WithRecorder(rec), WithDuration(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	s.Close()
	clock.Advance(time.Minute)
	if s.State() != Spinning || len(rec.outcomes()) != 0 {
		t.Error("stale callback mutated a closed session")
	}
}

type leakyScheduler struct{ *ManualClock }

type noStop struct{}

func (noStop) Stop() bool { return false }

func (l leakyScheduler) AfterFunc(d time.Duration, f func()) Timer {
	l.ManualClock.AfterFunc(d, f)
	return noStop{}
}

func TestRotationAt(t *testing.T) {
	s, clock, _ := newTestSession(t, 0.1, WithEasing(wheel.Linear))
	if got := s.RotationAt(epoch); got != 0 {
		t.Errorf("idle rotation %f", got)
	}
	plan, _ := s.Spin()
	mid := s.RotationAt(epoch.Add(5 * time.Second))
	if want := plan.TargetRotation / 2; math.Abs(mid-want) > 1e-3 {
		t.Errorf("halfway rotation %f want %f", mid, want)
	}
	if got := s.RotationAt(epoch.Add(time.Hour)); math.Abs(got-plan.TargetRotation) > 1e-9 {
		t.Errorf("past the end %f want %f", got, plan.TargetRotation)
	}
	if got := s.RotationAt(epoch.Add(-time.Second)); got != 0 {
		t.Errorf("before start %f", got)
	}
	clock.Advance(10 * time.Second)
	if got := s.RotationAt(epoch.Add(5 * time.Second)); got != plan.TargetRotation {
		t.Errorf("settled rotation %f", got)
	}
}

func TestOnSettleHook(t *testing.T) {
	var got []Snapshot
	s, clock, _ := newTestSession(t, 0.1, OnSettle(func(snap Snapshot) { got = append(got, snap) }))
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Second)
	if len(got) != 1 || got[0].State != Settled || got[0].Branch != "Accra" {
		t.Errorf("hook got %+v", got)
	}
}

func TestWithRotationRestores(t *testing.T) {
	s, _, _ := newTestSession(t, 0.1, WithRotation(725))
	plan, err := s.Spin()
	if err != nil {
		t.Fatal(err)
	}
	if plan.StartRotation != 725 || plan.TargetRotation <= 725 {
		t.Errorf("plan %+v", plan)
	}
}

func TestRealClock(t *testing.T) {
	done := make(chan struct{})
	s, err := New(testTier,
		WithDuration(20*time.Millisecond),
		WithSource(fixedSource(0.1)),
		WithTickInterval(0),
		OnSettle(func(Snapshot) { close(done) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real clock never settled")
	}
	if s.State() != Settled {
		t.Errorf("state %v", s.State())
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{Idle: "idle", Spinning: "spinning", Settled: "settled", State(9): "State(9)"} {
		if st.String() != want {
			t.Errorf("%d: %q want %q", int(st), st.String(), want)
		}
	}
}

// stalledClock never fires its timers, so settlement only happens through Settle.
type stalledClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stalledClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stalledClock) AfterFunc(time.Duration, func()) Timer { return noStop{} }

func (c *stalledClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type blockingRecorder struct {
	release chan struct{}
	done    chan round.Outcome
}

func (b *blockingRecorder) Record(_ context.Context, o round.Outcome) error {
	<-b.release
	b.done <- o
	return nil
}

func TestSettle_ExplicitDoesNotWaitForRecorder(t *testing.T) {
	clock := &stalledClock{now: epoch}
	rec := &blockingRecorder{release: make(chan struct{}), done: make(chan round.Outcome, 1)}
	s, err := New(testTier, WithScheduler(clock), WithSource(fixedSource(0.9)), WithRecorder(rec),
		WithBranch("Circle"), WithDuration(10*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Spin(); err != nil {
		t.Fatal(err)
	}
	clock.advance(10 * time.Second)

	settled := make(chan error, 1)
	go func() { settled <- s.Settle() }()
	select {
	case err := <-settled:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		close(rec.release)
		t.Fatal("Settle blocked on the recorder")
	}
	if snap := s.Snapshot(); snap.State != Settled || snap.Winner.Prize.Name != "CHICKEN" {
		t.Errorf("snapshot %+v", snap)
	}

	close(rec.release)
	select {
	case o := <-rec.done:
		if o.PrizeName != "CHICKEN" || !o.Jackpot || o.Branch != "Circle" {
			t.Errorf("recorded %+v", o)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("win never recorded")
	}
}

func TestSnapshotAt_Consistent(t *testing.T) {
	s, clock, _ := newTestSession(t, 0.1, WithEasing(wheel.Linear))
	plan, _ := s.Spin()
	snap, rot := s.SnapshotAt(epoch.Add(5 * time.Second))
	if snap.State != Spinning || math.Abs(rot-plan.TargetRotation/2) > 1e-3 {
		t.Errorf("mid spin: %v %f", snap.State, rot)
	}
	clock.Advance(10 * time.Second)
	snap, rot = s.SnapshotAt(epoch.Add(5 * time.Second))
	if snap.State != Settled || rot != plan.TargetRotation || snap.Rotation != rot {
		t.Errorf("settled: %v %f %f", snap.State, rot, snap.Rotation)
	}
}
