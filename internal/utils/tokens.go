package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// NewSalt returns nBytes of random salt, hex encoded.
func NewSalt(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 16
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewNumericCode returns a uniformly random zero-padded code of nDigits digits.
func NewNumericCode(nDigits int) (string, error) {
	if nDigits <= 0 {
		nDigits = 6
	}
	max := big.NewInt(1)
	for i := 0; i < nDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", nDigits, n), nil
}
