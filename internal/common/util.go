package common

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// RandomDigits returns a string of n decimal digits drawn from crypto/rand.
// Leading zeros are kept, so the length is always n.
func RandomDigits(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

// NormalizeEmail lower-cases and trims an email address so lookups and the
// unique index agree on one spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
