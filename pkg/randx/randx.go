// Package randx provides the pseudo-random source shared by the simulated
// payment and shipping integrations.
package randx

import (
	"math/rand/v2"
	"sync"
	"time"
)

type Source interface {
	IntN(n int) int
	Float64() float64
}

// Locked is a goroutine-safe wrapper around a seeded PCG generator.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New seeds from the clock when seed is 0.
func New(seed uint64) *Locked {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Locked{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

// Fixed always yields the same values. Useful for forcing outcomes.
type Fixed struct {
	Int   int
	Float float64
}

func (f Fixed) IntN(n int) int {
	if f.Int >= n {
		return n - 1
	}
	return f.Int
}

func (f Fixed) Float64() float64 { return f.Float }
