// Package spin runs one prize wheel: draw, plan the stop angle, and settle the
// result once the animation has had time to finish.
package spin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/logger"

	"github.com/Ashenafi-pixel/raffle-wheel/round"
	"github.com/Ashenafi-pixel/raffle-wheel/sound"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

const (
	DefaultDuration = 12 * time.Second
	recordTimeout   = 10 * time.Second
)

var (
	ErrUnclaimedResult = errors.New("spin: previous result not yet reset")
	ErrSpinInProgress  = errors.New("spin: wheel is still spinning")
	ErrNotSpinning     = errors.New("spin: wheel is not spinning")
	ErrNotDue          = errors.New("spin: settlement is not due yet")
	ErrClosed          = errors.New("spin: session closed")
)

// State is the session lifecycle: Idle -> Spinning -> Settled -> Idle.
type State int

const (
	Idle State = iota
	Spinning
	Settled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Spinning:
		return "spinning"
	case Settled:
		return "settled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Notifier receives audio cues. Calls happen outside the session lock.
type Notifier interface {
	Notify(c sound.Cue)
}

type NotifierFunc func(c sound.Cue)

func (f NotifierFunc) Notify(c sound.Cue) { f(c) }

// Plan is what a renderer needs to animate one spin. It is fixed when the spin starts.
type Plan struct {
	TierID         string        `json:"tierId"`
	WinnerIndex    int           `json:"winnerIndex"`
	SegmentCount   int           `json:"segmentCount"`
	StartRotation  float64       `json:"startRotation"`
	TargetRotation float64       `json:"targetRotation"`
	StartedAt      time.Time     `json:"startedAt"`
	SettleAt       time.Time     `json:"settleAt"`
	Duration       time.Duration `json:"-"`
	DurationMs     int64         `json:"durationMs"`
}

// Result is the settled winner.
type Result struct {
	Index     int         `json:"index"`
	Prize     wheel.Prize `json:"prize"`
	SettledAt time.Time   `json:"settledAt"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	Branch   string     `json:"branch"`
	Tier     wheel.Tier `json:"tier"`
	State    State      `json:"state"`
	Rotation float64    `json:"rotation"`
	Plan     *Plan      `json:"plan,omitempty"`
	Winner   *Result    `json:"winner,omitempty"`
}

type options struct {
	duration      time.Duration
	fullRotations int
	source        wheel.Source
	sched         Scheduler
	recorder      round.Recorder
	notifier      Notifier
	tickInterval  time.Duration
	branch        string
	rotation      float64
	easing        wheel.Easing
	onSettle      func(Snapshot)
}

type Option func(*options)

// WithDuration sets how long the wheel turns. The same value drives settlement and easing.
func WithDuration(d time.Duration) Option { return func(o *options) { o.duration = d } }

func WithFullRotations(n int) Option { return func(o *options) { o.fullRotations = n } }

// WithSource replaces the crypto source, e.g. with a seeded one in tests.
func WithSource(src wheel.Source) Option { return func(o *options) { o.source = src } }

func WithScheduler(s Scheduler) Option { return func(o *options) { o.sched = s } }

func WithRecorder(r round.Recorder) Option { return func(o *options) { o.recorder = r } }

func WithNotifier(n Notifier) Option { return func(o *options) { o.notifier = n } }

// WithTickInterval sets the tick cue period while spinning. Zero disables ticks.
func WithTickInterval(d time.Duration) Option { return func(o *options) { o.tickInterval = d } }

func WithBranch(b string) Option { return func(o *options) { o.branch = b } }

// WithRotation restores the wheel's cumulative rotation.
func WithRotation(deg float64) Option { return func(o *options) { o.rotation = deg } }

func WithEasing(e wheel.Easing) Option { return func(o *options) { o.easing = e } }

// OnSettle is called after every settlement, outside the session lock.
func OnSettle(f func(Snapshot)) Option { return func(o *options) { o.onSettle = f } }

// Session is one wheel. It is safe for concurrent use; settlement runs from a
// scheduler callback.
type Session struct {
	mu       sync.Mutex
	opts     options
	tier     wheel.Tier
	state    State
	rotation float64
	plan     *Plan
	winner   *Result
	gen      uint64
	timer    Timer
	ticker   Timer
	closed   bool
}

func New(tier wheel.Tier, opts ...Option) (*Session, error) {
	o := options{
		duration:      DefaultDuration,
		fullRotations: wheel.DefaultFullRotations,
		source:        wheel.CryptoSource{},
		sched:         RealClock{},
		tickInterval:  sound.TickInterval,
		easing:        wheel.DefaultEasing,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.duration <= 0 {
		return nil, fmt.Errorf("spin: duration must be positive, got %v", o.duration)
	}
	if o.fullRotations < 1 {
		return nil, &wheel.ConfigurationError{Tier: tier.ID, Reason: fmt.Sprintf("full rotations must be at least 1, got %d", o.fullRotations)}
	}
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		opts:     o,
		tier:     cloneTier(tier),
		rotation: o.rotation,
	}, nil
}

// Spin starts the wheel and returns the plan immediately. While a spin is in
// flight it returns that spin's plan without drawing again.
func (s *Session) Spin() (Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Plan{}, ErrClosed
	}
	switch s.state {
	case Spinning:
		return *s.plan, nil
	case Settled:
		return Plan{}, ErrUnclaimedResult
	}

	idx, _, err := s.tier.Pick(s.opts.source)
	if err != nil {
		return Plan{}, err
	}
	n := len(s.tier.Prizes)
	target, err := wheel.PlanRotation(s.rotation, n, idx, s.opts.fullRotations)
	if err != nil {
		return Plan{}, err
	}
	now := s.opts.sched.Now()
	d := s.opts.duration
	plan := &Plan{
		TierID:         s.tier.ID,
		WinnerIndex:    idx,
		SegmentCount:   n,
		StartRotation:  s.rotation,
		TargetRotation: target,
		StartedAt:      now,
		SettleAt:       now.Add(d),
		Duration:       d,
		DurationMs:     d.Milliseconds(),
	}
	s.gen++
	gen := s.gen
	s.plan = plan
	s.state = Spinning
	s.timer = s.opts.sched.AfterFunc(d, func() { s.onTimer(gen) })
	if s.opts.notifier != nil && s.opts.tickInterval > 0 {
		s.ticker = s.opts.sched.AfterFunc(s.opts.tickInterval, func() { s.onTick(gen) })
	}
	return *plan, nil
}

func (s *Session) onTimer(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.state != Spinning {
		s.mu.Unlock()
		return
	}
	after := s.settleLocked(s.opts.sched.Now(), false)
	s.mu.Unlock()
	after()
}

func (s *Session) onTick(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.state != Spinning {
		s.mu.Unlock()
		return
	}
	s.ticker = s.opts.sched.AfterFunc(s.opts.tickInterval, func() { s.onTick(gen) })
	n := s.opts.notifier
	s.mu.Unlock()
	n.Notify(sound.CueTick)
}

// Settle settles a spin whose time has come. Normally the scheduler does this.
// The win is recorded in the background, so Settle never waits on the recorder.
func (s *Session) Settle() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != Spinning {
		s.mu.Unlock()
		return ErrNotSpinning
	}
	now := s.opts.sched.Now()
	if now.Before(s.plan.SettleAt) {
		s.mu.Unlock()
		return ErrNotDue
	}
	after := s.settleLocked(now, true)
	s.mu.Unlock()
	after()
	return nil
}

// settleLocked moves to Settled and returns the side effects to run once s.mu is released.
// With detach set the recorder runs on its own goroutine.
func (s *Session) settleLocked(at time.Time, detach bool) func() {
	s.stopTimersLocked()
	s.gen++
	idx := s.plan.WinnerIndex
	prize := s.tier.Prizes[idx]
	s.rotation = s.plan.TargetRotation
	s.state = Settled
	s.winner = &Result{Index: idx, Prize: prize, SettledAt: at}

	snap := s.snapshotLocked()
	notifier, recorder, hook := s.opts.notifier, s.opts.recorder, s.opts.onSettle
	branch, tierName := s.opts.branch, s.tier.RecordName()

	return func() {
		if notifier != nil {
			notifier.Notify(cueFor(prize))
		}
		if recorder != nil && !prize.Miss {
			o := round.NewOutcome(branch, tierName, prize.Name, prize.Icon, prize.Jackpot, at)
			if detach {
				go record(recorder, o)
			} else {
				record(recorder, o)
			}
		}
		if hook != nil {
			hook(snap)
		}
	}
}

func record(r round.Recorder, o round.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.Record(ctx, o); err != nil {
		logger.Errorf("record win %s (%s, %s): %v", o.PrizeName, o.Branch, o.Tier, err)
	}
}

func cueFor(p wheel.Prize) sound.Cue {
	switch {
	case p.Miss:
		return sound.CueMiss
	case p.Jackpot:
		return sound.CueJackpot
	}
	return sound.CueWin
}

// Reset clears a settled result for the next participant. The wheel keeps its rotation.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	switch s.state {
	case Spinning:
		return ErrSpinInProgress
	case Settled:
		s.state = Idle
		s.winner = nil
		s.plan = nil
	}
	return nil
}

// SetTier swaps the prize list. Any pending settlement is abandoned and the wheel
// returns to 0 degrees.
func (s *Session) SetTier(t wheel.Tier) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.stopTimersLocked()
	s.gen++
	s.tier = cloneTier(t)
	s.rotation = 0
	s.state = Idle
	s.plan = nil
	s.winner = nil
	return nil
}

// Close cancels any pending settlement. Later timer callbacks are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimersLocked()
	s.gen++
}

func (s *Session) stopTimersLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Branch:   s.opts.branch,
		Tier:     cloneTier(s.tier),
		State:    s.state,
		Rotation: s.rotation,
	}
	if s.plan != nil {
		p := *s.plan
		snap.Plan = &p
	}
	if s.winner != nil {
		w := *s.winner
		snap.Winner = &w
	}
	return snap
}

// RotationAt returns the displayed rotation at t, following the same easing
// curve and duration that schedule settlement.
func (s *Session) RotationAt(t time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotationAtLocked(t)
}

// SnapshotAt returns the snapshot and the displayed rotation at t from one
// consistent view of the session.
func (s *Session) SnapshotAt(t time.Time) (Snapshot, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), s.rotationAtLocked(t)
}

func (s *Session) rotationAtLocked(t time.Time) float64 {
	if s.state != Spinning {
		return s.rotation
	}
	p := s.plan
	progress := float64(t.Sub(p.StartedAt)) / float64(p.Duration)
	return s.opts.easing.Interpolate(p.StartRotation, p.TargetRotation, progress)
}

func cloneTier(t wheel.Tier) wheel.Tier {
	t.Prizes = append([]wheel.Prize(nil), t.Prizes...)
	return t
}
