package wheel

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// CryptoSource draws from crypto/rand. It is the default for live spins.
type CryptoSource struct{}

var float53 = big.NewInt(1 << 53)

// Float64 returns a uniform float in [0, 1) with 53 bits of CSPRNG entropy.
func (CryptoSource) Float64() float64 {
	v, err := rand.Int(rand.Reader, float53)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(fmt.Sprintf("wheel: crypto/rand: %v", err))
	}
	return float64(v.Int64()) / (1 << 53)
}

// NewSeededSource returns a deterministic source for tests and simulations.
func NewSeededSource(seed uint64) Source {
	return mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SelectWinner draws an index from prizes by cumulative weight.
// r is drawn from [0, total) and the first prize whose range [run, run+weight) holds r wins.
func SelectWinner(prizes []Prize, src Source) (int, error) {
	if len(prizes) == 0 {
		return 0, &ConfigurationError{Reason: "no prizes to draw from"}
	}
	var total float64
	for _, p := range prizes {
		if !validWeight(p.Weight) {
			return 0, &ConfigurationError{Prize: p.Name, Reason: fmt.Sprintf("weight %v must be a positive number", p.Weight)}
		}
		total += p.Weight
	}
	if src == nil {
		src = CryptoSource{}
	}
	r := src.Float64() * total
	var run float64
	for i, p := range prizes {
		if r < run+p.Weight {
			return i, nil
		}
		run += p.Weight
	}
	// r rounded up to total.
	return len(prizes) - 1, nil
}
