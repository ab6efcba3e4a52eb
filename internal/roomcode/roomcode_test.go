package roomcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playone/oneserver/internal/randutil"
)

func TestGenerateShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := Generate()
		require.NoError(t, Validate(code))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := NewGenerator(randutil.New(7))
	b := NewGenerator(randutil.New(7))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}

func TestCharForUniform(t *testing.T) {
	counts := make(map[byte]int)
	rejected := 0
	for b := 0; b < 256; b++ {
		ch, ok := charFor(byte(b))
		if !ok {
			rejected++
			continue
		}
		counts[ch]++
	}

	// 256 is not a multiple of 36, so the leftover byte values must be
	// redrawn rather than wrapped onto the start of the alphabet.
	assert.Equal(t, 256%len(Alphabet), rejected)
	require.Len(t, counts, len(Alphabet))
	want := int(byteLimit) / len(Alphabet)
	for i := 0; i < len(Alphabet); i++ {
		assert.Equalf(t, want, counts[Alphabet[i]], "character %c", Alphabet[i])
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("AB12CD"))
	assert.Error(t, Validate("ab12cd"))
	assert.Error(t, Validate("AB12C"))
	assert.Error(t, Validate("AB12CDE"))
	assert.Error(t, Validate("AB-2CD"))
}
