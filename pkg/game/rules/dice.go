package rules

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Dice is the source of randomness used by the engine.
type Dice interface {
	// RollD6 returns a value in [1, 6].
	RollD6() int
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// RandomDice is a Dice backed by a PCG generator. It is safe for
// concurrent use.
type RandomDice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDice returns dice seeded from the operating system's entropy
// source.
func NewRandomDice() *RandomDice {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic(err)
	}
	return NewSeededDice(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:]))
}

// NewSeededDice returns reproducible dice for the given seed pair.
func NewSeededDice(seed1, seed2 uint64) *RandomDice {
	return &RandomDice{
		rng: rand.New(rand.NewPCG(seed1, seed2)),
	}
}

func (d *RandomDice) RollD6() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(6) + 1
}

func (d *RandomDice) Intn(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(n)
}

// roll rolls count d6 and returns the individual faces and their sum.
func roll(d Dice, count int) ([]int, int) {
	faces := make([]int, 0, count)
	sum := 0
	for i := 0; i < count; i++ {
		v := d.RollD6()
		faces = append(faces, v)
		sum += v
	}
	return faces, sum
}
