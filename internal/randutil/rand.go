// Package randutil derives reproducible random sources for rooms.
package randutil

import (
	"hash/fnv"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Both PCG words are derived from the one seed so every call site gets the
// same sequence for the same seed.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// ForRoom returns a source unique to roomID under seed. Two servers started
// with the same seed deal identical games in rooms with the same id.
func ForRoom(seed int64, roomID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(roomID))
	return New(seed ^ int64(mix(h.Sum64())))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
