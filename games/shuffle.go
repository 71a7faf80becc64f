/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Shuffler produces voting orders. A fixed seed yields the same sequence of
// orders every time, which keeps tests and demos reproducible.
type Shuffler struct {
	rng *rand.Rand
}

// NewShuffler seeds a shuffler. A seed of 0 draws one from crypto/rand.
func NewShuffler(seed uint64) *Shuffler {
	if seed == 0 {
		var b [8]byte
		if _, err := crand.Read(b[:]); err == nil {
			seed = binary.LittleEndian.Uint64(b[:])
		}
	}

	return &Shuffler{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Shuffle permutes n elements in place with Fisher-Yates, calling swap for
// each exchange.
func (s *Shuffler) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, s.rng.IntN(i+1))
	}
}
