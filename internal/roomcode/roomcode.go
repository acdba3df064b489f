// Package roomcode generates short, human friendly room codes.
package roomcode

import "crypto/rand"

// Crockford's base32 alphabet, lowercase
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length is the number of characters in a generated code
const Length = 6

// RandSource interface for dependency injection of randomness
type RandSource interface {
	IntN(n int) int
}

// Generator produces room codes from a RandSource
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator. A nil RandSource uses crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate returns an unpredictable room code
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new room code
func (g *Generator) Generate() string {
	result := make([]byte, Length)

	if g.randSource != nil {
		for i := range result {
			result[i] = alphabet[g.randSource.IntN(len(alphabet))]
		}
		return string(result)
	}

	var buf [Length]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	for i, b := range buf {
		result[i] = alphabet[b&0x1f]
	}
	return string(result)
}
