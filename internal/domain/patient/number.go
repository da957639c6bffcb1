package patient

import (
	"crypto/rand"
	"math/big"
)

const (
	numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	NumberLength   = 6
)

var alphabetSize = big.NewInt(int64(len(numberAlphabet)))

// GenerateNumber draws a patient number uniformly from [A-Z0-9]{6}.
// Uniqueness is enforced by the store, not here.
func GenerateNumber() string {
	b := make([]byte, NumberLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is gone.
			panic("patient: reading random source: " + err.Error())
		}
		b[i] = numberAlphabet[n.Int64()]
	}
	return string(b)
}

// ValidNumber reports whether s has the shape of a generated patient number.
func ValidNumber(s string) bool {
	if len(s) != NumberLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
