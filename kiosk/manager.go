// Package kiosk keeps one wheel session per branch kiosk.
package kiosk

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/logger"

	"github.com/Ashenafi-pixel/raffle-wheel/round"
	"github.com/Ashenafi-pixel/raffle-wheel/spin"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

var (
	ErrNoBranch     = errors.New("kiosk: branch is required")
	ErrUnknownKiosk = errors.New("kiosk: no kiosk for branch")
)

// Config is applied to every session the manager creates.
type Config struct {
	DefaultTier   string
	Duration      time.Duration
	FullRotations int
	Recorder      round.Recorder
	Scheduler     spin.Scheduler
	Source        wheel.Source
	Notifier      spin.Notifier
}

type kiosk struct {
	mu           sync.Mutex // serializes operations on one branch
	session      *spin.Session
	lastActivity time.Time
}

type Manager struct {
	mu      sync.RWMutex
	kiosks  map[string]*kiosk
	catalog *wheel.Catalog
	store   *StateStore
	cfg     Config
}

// NewManager builds a manager. store may be nil to keep state in memory only.
func NewManager(catalog *wheel.Catalog, store *StateStore, cfg Config) *Manager {
	if cfg.Scheduler == nil {
		cfg.Scheduler = spin.RealClock{}
	}
	if cfg.Duration <= 0 {
		cfg.Duration = spin.DefaultDuration
	}
	if cfg.FullRotations == 0 {
		cfg.FullRotations = wheel.DefaultFullRotations
	}
	return &Manager{
		kiosks:  make(map[string]*kiosk),
		catalog: catalog,
		store:   store,
		cfg:     cfg,
	}
}

// get returns the branch's kiosk, creating it from saved state if needed.
func (m *Manager) get(branch string) (*kiosk, error) {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return nil, ErrNoBranch
	}
	now := m.cfg.Scheduler.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.kiosks[branch]; ok && !k.session.Closed() {
		k.lastActivity = now
		return k, nil
	}

	tierID, rotation := m.cfg.DefaultTier, 0.0
	if st, ok := m.saved(branch); ok {
		tierID, rotation = st.TierID, st.Rotation
	}
	tier, err := m.catalog.Get(tierID)
	if err != nil {
		logger.Warningf("kiosk %s: saved tier %q unavailable, using %q: %v", branch, tierID, m.cfg.DefaultTier, err)
		if tier, err = m.catalog.Get(m.cfg.DefaultTier); err != nil {
			return nil, err
		}
		rotation = 0
	}

	opts := []spin.Option{
		spin.WithBranch(branch),
		spin.WithDuration(m.cfg.Duration),
		spin.WithFullRotations(m.cfg.FullRotations),
		spin.WithScheduler(m.cfg.Scheduler),
		spin.WithRotation(rotation),
		spin.OnSettle(func(s spin.Snapshot) { m.save(s) }),
	}
	if m.cfg.Recorder != nil {
		opts = append(opts, spin.WithRecorder(m.cfg.Recorder))
	}
	if m.cfg.Source != nil {
		opts = append(opts, spin.WithSource(m.cfg.Source))
	}
	if m.cfg.Notifier != nil {
		opts = append(opts, spin.WithNotifier(m.cfg.Notifier))
	}
	sess, err := spin.New(tier, opts...)
	if err != nil {
		return nil, err
	}
	k := &kiosk{session: sess, lastActivity: now}
	m.kiosks[branch] = k
	logger.Infof("kiosk %s opened on %s", branch, tier.ID)
	return k, nil
}

func (m *Manager) save(s spin.Snapshot) {
	if m.store == nil {
		return
	}
	st := State{Branch: s.Branch, TierID: s.Tier.ID, Rotation: s.Rotation, UpdatedAt: m.cfg.Scheduler.Now()}
	if err := m.store.Put(st); err != nil {
		logger.Errorf("kiosk %s: save state: %v", s.Branch, err)
	}
}

// acquire returns the branch's kiosk locked. A session closed by the janitor
// between lookup and lock is replaced once.
func (m *Manager) acquire(branch string) (*kiosk, error) {
	for attempt := 0; ; attempt++ {
		k, err := m.get(branch)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		if !k.session.Closed() || attempt > 0 {
			return k, nil
		}
		k.mu.Unlock()
	}
}

// Open returns the branch's kiosk, creating it from saved state or the default tier.
func (m *Manager) Open(branch string) (spin.Snapshot, error) {
	k, err := m.acquire(branch)
	if err != nil {
		return spin.Snapshot{}, err
	}
	defer k.mu.Unlock()
	return k.session.Snapshot(), nil
}

// SelectTier switches the branch's wheel to another tier. The wheel must be idle.
func (m *Manager) SelectTier(branch, tierID string) (spin.Snapshot, error) {
	tier, err := m.catalog.Get(tierID)
	if err != nil {
		return spin.Snapshot{}, err
	}
	k, err := m.acquire(branch)
	if err != nil {
		return spin.Snapshot{}, err
	}
	defer k.mu.Unlock()
	switch k.session.State() {
	case spin.Spinning:
		return spin.Snapshot{}, spin.ErrSpinInProgress
	case spin.Settled:
		return spin.Snapshot{}, spin.ErrUnclaimedResult
	}
	if err := k.session.SetTier(tier); err != nil {
		return spin.Snapshot{}, err
	}
	snap := k.session.Snapshot()
	m.save(snap)
	return snap, nil
}

func (m *Manager) Spin(branch string) (spin.Plan, error) {
	k, err := m.acquire(branch)
	if err != nil {
		return spin.Plan{}, err
	}
	defer k.mu.Unlock()
	return k.session.Spin()
}

// Reset readies the branch's wheel for the next customer.
func (m *Manager) Reset(branch string) (spin.Snapshot, error) {
	k, err := m.acquire(branch)
	if err != nil {
		return spin.Snapshot{}, err
	}
	defer k.mu.Unlock()
	if err := k.session.Reset(); err != nil {
		return spin.Snapshot{}, err
	}
	return k.session.Snapshot(), nil
}

// Snapshot reports the branch's wheel and its displayed rotation at t. It does not
// open a kiosk for a branch that is neither open nor saved.
func (m *Manager) Snapshot(branch string, t time.Time) (spin.Snapshot, float64, error) {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return spin.Snapshot{}, 0, ErrNoBranch
	}
	m.mu.RLock()
	k, open := m.kiosks[branch]
	m.mu.RUnlock()
	if !open || k.session.Closed() {
		if _, saved := m.saved(branch); !saved {
			return spin.Snapshot{}, 0, ErrUnknownKiosk
		}
		var err error
		if k, err = m.get(branch); err != nil {
			return spin.Snapshot{}, 0, err
		}
	}
	snap, rot := k.session.SnapshotAt(t)
	return snap, rot, nil
}

func (m *Manager) saved(branch string) (State, bool) {
	if m.store == nil {
		return State{}, false
	}
	return m.store.Get(branch)
}

// Branches lists open kiosks.
func (m *Manager) Branches() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.kiosks))
	for b := range m.kiosks {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// CleanUpInactive closes kiosks idle for longer than maxIdle. A spinning wheel is
// never closed. Saved state is kept so the branch resumes where it stopped.
func (m *Manager) CleanUpInactive(maxIdle time.Duration) int {
	now := m.cfg.Scheduler.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for branch, k := range m.kiosks {
		if now.Sub(k.lastActivity) <= maxIdle {
			continue
		}
		// an operation that already holds the kiosk finishes first
		k.mu.Lock()
		if k.session.State() == spin.Spinning {
			k.mu.Unlock()
			continue
		}
		k.session.Close()
		k.mu.Unlock()
		delete(m.kiosks, branch)
		n++
		logger.Infof("kiosk %s closed after %v idle", branch, now.Sub(k.lastActivity).Round(time.Second))
	}
	return n
}

// Close shuts every session and cancels pending settlements.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for branch, k := range m.kiosks {
		k.session.Close()
		delete(m.kiosks, branch)
	}
}
