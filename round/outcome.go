package round

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Outcome is a settled, non-miss spin as written to the win ledger.
type Outcome struct {
	ID        string    `json:"id"`
	Branch    string    `json:"branch"`
	Tier      string    `json:"tier"`
	PrizeName string    `json:"prize_name"`
	Icon      string    `json:"icon,omitempty"`
	Jackpot   bool      `json:"jackpot,omitempty"`
	SettledAt time.Time `json:"created_at"`
}

// NewOutcome stamps a fresh ledger id.
func NewOutcome(branch, tier, prize, icon string, jackpot bool, at time.Time) Outcome {
	return Outcome{
		ID:        uuid.New().String(),
		Branch:    branch,
		Tier:      tier,
		PrizeName: prize,
		Icon:      icon,
		Jackpot:   jackpot,
		SettledAt: at.UTC(),
	}
}

// Recorder persists settled wins. Callers treat it as fire-and-forget: an error is
// reported but never changes the spin's result.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Query filters a win log listing. Zero values mean no filter.
type Query struct {
	Branch string
	Tier   string
	Limit  int
}

// Ledger is a Recorder that can also list what it stored.
type Ledger interface {
	Recorder
	List(ctx context.Context, q Query) ([]Outcome, error)
}

// Discard drops every outcome. Used when recording is switched off.
type Discard struct{}

func (Discard) Record(context.Context, Outcome) error { return nil }

func (Discard) List(context.Context, Query) ([]Outcome, error) { return []Outcome{}, nil }

// Multi records to every recorder in turn and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, o Outcome) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Summary aggregates a win log for the admin view.
type Summary struct {
	TotalWins int            `json:"total_wins"`
	Jackpots  int            `json:"jackpots"`
	ByPrize   map[string]int `json:"by_prize"`
	ByBranch  map[string]int `json:"by_branch"`
	ByTier    map[string]int `json:"by_tier"`
	FirstWin  *time.Time     `json:"first_win,omitempty"`
	LastWin   *time.Time     `json:"last_win,omitempty"`
}

// Summarize counts wins by prize, branch and tier.
func Summarize(list []Outcome) Summary {
	s := Summary{
		ByPrize:  make(map[string]int),
		ByBranch: make(map[string]int),
		ByTier:   make(map[string]int),
	}
	for i := range list {
		o := &list[i]
		s.TotalWins++
		if o.Jackpot {
			s.Jackpots++
		}
		s.ByPrize[o.PrizeName]++
		s.ByBranch[o.Branch]++
		s.ByTier[o.Tier]++
		at := o.SettledAt
		if s.FirstWin == nil || at.Before(*s.FirstWin) {
			s.FirstWin = &at
		}
		if s.LastWin == nil || at.After(*s.LastWin) {
			s.LastWin = &at
		}
	}
	return s
}

// filter applies q to list, newest first.
func filter(list []Outcome, q Query) []Outcome {
	out := make([]Outcome, 0, len(list))
	for _, o := range list {
		if q.Branch != "" && o.Branch != q.Branch {
			continue
		}
		if q.Tier != "" && o.Tier != q.Tier {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SettledAt.After(out[j].SettledAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
