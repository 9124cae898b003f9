package util

import (
	"crypto/rand"
	"math/big"
)

const randomCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString returns a string of length n drawn from an alphanumeric
// charset using crypto/rand. It panics only if the OS entropy source is
// broken, which is not a recoverable condition.
func RandomString(n int) string {
	max := big.NewInt(int64(len(randomCharset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("util: entropy source unavailable: " + err.Error())
		}
		b[i] = randomCharset[idx.Int64()]
	}
	return string(b)
}
