package media

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

const (
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	DefaultSuffixLength = 10
)

// KeyGenerator builds storage keys of the form <unixMillis>_<suffix>.<ext>.
// The random suffix is what keeps two keys from the same millisecond apart.
type KeyGenerator struct {
	Now    func() time.Time
	Suffix func() (string, error)
}

func NewKeyGenerator(suffixLength int) *KeyGenerator {
	if suffixLength <= 0 {
		suffixLength = DefaultSuffixLength
	}
	return &KeyGenerator{
		Now: time.Now,
		Suffix: func() (string, error) {
			return RandomSuffix(suffixLength)
		},
	}
}

func (g *KeyGenerator) Generate(f File) (string, error) {
	suffix, err := g.Suffix()
	if err != nil {
		return "", fmt.Errorf("generate key suffix: %w", err)
	}
	millis := strconv.FormatInt(g.Now().UnixMilli(), 10)
	return millis + "_" + suffix + "." + f.Extension(), nil
}

// RandomSuffix draws n characters from [0-9a-z] using crypto/rand.
func RandomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(suffixAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = suffixAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
