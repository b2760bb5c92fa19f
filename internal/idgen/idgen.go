// Package idgen produces the short random identifiers used for link codes,
// user ids and anonymous visitor ids. The generator gives no uniqueness
// guarantee; callers own their collision policy.
package idgen

import (
	"crypto/rand"
	"math/big"
)

const (
	// TokenLength is the length of every generated identifier.
	TokenLength = 6

	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator mints short identifiers. It is an interface so tests can
// substitute a deterministic sequence.
type Generator interface {
	Generate() string
}

// Random is the default Generator drawing from crypto/rand.
type Random struct {
	length int
}

// New returns a Random generator producing TokenLength-character tokens.
func New() *Random {
	return &Random{length: TokenLength}
}

// Generate returns a pseudo-random alphanumeric token.
func (g *Random) Generate() string {
	result := make([]byte, g.length)
	for i := range result {
		randomIndex, _ := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		result[i] = alphabet[randomIndex.Int64()]
	}

	return string(result)
}
