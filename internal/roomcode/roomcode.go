// Package roomcode generates the short join codes that identify rooms.
package roomcode

import (
	"crypto/rand"
	"fmt"
)

// Alphabet is the room code character set.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the fixed room code length.
const Length = 6

// RandSource allows deterministic generation in tests.
type RandSource interface {
	IntN(n int) int
}

// Generator produces room codes with configurable randomness.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil RandSource uses crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new room code using crypto/rand.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a 6-character uppercase alphanumeric room code.
func (g *Generator) Generate() string {
	buf := make([]byte, Length)
	if g.randSource != nil {
		for i := range buf {
			buf[i] = Alphabet[g.randSource.IntN(len(Alphabet))]
		}
		return string(buf)
	}

	raw := make([]byte, Length)
	filled := 0
	for filled < Length {
		if _, err := rand.Read(raw); err != nil {
			panic("failed to generate random bytes: " + err.Error())
		}
		for _, b := range raw {
			ch, ok := charFor(b)
			if !ok {
				continue
			}
			buf[filled] = ch
			filled++
			if filled == Length {
				break
			}
		}
	}
	return string(buf)
}

// byteLimit is the largest multiple of len(Alphabet) that fits in a
// byte. Bytes at or above it are redrawn; mapping them through the
// modulo would make the first few characters of the alphabet more
// likely than the rest.
const byteLimit = byte(256 - 256%len(Alphabet))

// charFor maps one random byte onto the alphabet, reporting false for
// bytes that must be redrawn.
func charFor(b byte) (byte, bool) {
	if b >= byteLimit {
		return 0, false
	}
	return Alphabet[int(b)%len(Alphabet)], true
}

// Validate checks that a string is a well-formed room code.
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("room code must be exactly %d characters, got %d", Length, len(code))
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return fmt.Errorf("invalid character %c at position %d", c, i)
		}
	}
	return nil
}
