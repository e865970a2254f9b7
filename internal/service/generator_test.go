package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unilocator/pairing-server-go/internal/util"
)

func TestGenerate_Format(t *testing.T) {
	gen := NewCodeGenerator()

	for i := 0; i < 100; i++ {
		code := gen.Generate()
		assert.True(t, util.IsValidPairingCode(code), "unexpected code %q", code)
		assert.Len(t, code, 9)
		assert.Equal(t, byte('-'), code[4])
	}
}

func TestGenerate_NotConstant(t *testing.T) {
	gen := NewCodeGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[gen.Generate()] = true
	}
	// 36^8 possible codes; 50 draws colliding into one bucket would mean
	// the generator is broken, not unlucky.
	assert.Greater(t, len(seen), 1)
}
