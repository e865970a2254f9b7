package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeAlphabet is the full uppercase alphanumeric set: 36 symbols per
// position, about 41 bits of entropy across the 8 positions.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeGenerator produces pairing code candidates. Generation is pure and
// does not guarantee uniqueness; the pairing service verifies a candidate
// against active unexpired codes before accepting it.
type CodeGenerator interface {
	Generate() string
}

type randomCodeGenerator struct{}

// NewCodeGenerator returns a crypto/rand backed generator emitting
// XXXX-XXXX codes.
func NewCodeGenerator() CodeGenerator {
	return randomCodeGenerator{}
}

func (randomCodeGenerator) Generate() string {
	chars := []byte(codeAlphabet)
	part1 := make([]byte, 4)
	part2 := make([]byte, 4)

	for i := 0; i < 4; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		part1[i] = chars[n.Int64()]
	}
	for i := 0; i < 4; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		part2[i] = chars[n.Int64()]
	}

	return fmt.Sprintf("%s-%s", string(part1), string(part2))
}
