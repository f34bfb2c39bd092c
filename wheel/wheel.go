package wheel

import (
	"fmt"
	"math"
)

// Prize is one segment of the wheel.
type Prize struct {
	Name   string  `json:"name" yaml:"name"`
	Icon   string  `json:"icon,omitempty" yaml:"icon,omitempty"`
	Weight float64 `json:"weight" yaml:"weight"`
	// Miss marks the consolation segment. Miss outcomes are never recorded.
	Miss bool `json:"miss,omitempty" yaml:"miss,omitempty"`
	// Jackpot flags the headline prizes for the win screen and the admin summary.
	Jackpot bool `json:"jackpot,omitempty" yaml:"jackpot,omitempty"`
}

// Tier is a named, ordered prize list. Prize i occupies [i*360/N, (i+1)*360/N) on the wheel.
type Tier struct {
	ID       string  `json:"id" yaml:"id"`
	Label    string  `json:"label" yaml:"label"`
	RecordAs string  `json:"recordAs,omitempty" yaml:"record_as,omitempty"`
	Prizes   []Prize `json:"prizes" yaml:"prizes"`
}

// RecordName is the tier value written to the win ledger.
func (t *Tier) RecordName() string {
	if t.RecordAs != "" {
		return t.RecordAs
	}
	return t.ID
}

// SegmentAngle returns the angular width of one segment in degrees.
func (t *Tier) SegmentAngle() float64 {
	if len(t.Prizes) == 0 {
		return 0
	}
	return 360 / float64(len(t.Prizes))
}

// Validate reports the first configuration problem in the tier.
func (t *Tier) Validate() error {
	if t == nil {
		return &ConfigurationError{Reason: "tier is nil"}
	}
	if t.ID == "" {
		return &ConfigurationError{Reason: "tier id is empty"}
	}
	if len(t.Prizes) == 0 {
		return &ConfigurationError{Tier: t.ID, Reason: "tier has no prizes"}
	}
	seen := make(map[string]bool, len(t.Prizes))
	for i, p := range t.Prizes {
		if p.Name == "" {
			return &ConfigurationError{Tier: t.ID, Reason: fmt.Sprintf("prize %d has no name", i)}
		}
		if seen[p.Name] {
			return &ConfigurationError{Tier: t.ID, Prize: p.Name, Reason: "duplicate prize name"}
		}
		seen[p.Name] = true
		if !validWeight(p.Weight) {
			return &ConfigurationError{Tier: t.ID, Prize: p.Name, Reason: fmt.Sprintf("weight %v must be a positive number", p.Weight)}
		}
	}
	return nil
}

// Pick draws a prize from the tier by weight.
func (t *Tier) Pick(src Source) (int, Prize, error) {
	idx, err := SelectWinner(t.Prizes, src)
	if err != nil {
		if ce, ok := err.(*ConfigurationError); ok && ce.Tier == "" {
			ce.Tier = t.ID
		}
		return 0, Prize{}, err
	}
	return idx, t.Prizes[idx], nil
}

// Probability returns each prize's share of the tier's total weight, in tier order.
func (t *Tier) Probability() []float64 {
	var total float64
	for _, p := range t.Prizes {
		total += p.Weight
	}
	out := make([]float64, len(t.Prizes))
	if total <= 0 {
		return out
	}
	for i, p := range t.Prizes {
		out[i] = p.Weight / total
	}
	return out
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
