package security

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
)

const resetCodeDigits = 6

// NewResetCode returns a crypto-random numeric one-time code, zero padded to
// six digits so "004217" round-trips as a string.
func NewResetCode() (string, error) {
	max := big.NewInt(1)

	for i := 0; i < resetCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)

	if err != nil {
		return "", err
	}

	code := n.String()

	for len(code) < resetCodeDigits {
		code = "0" + code
	}

	return code, nil
}

// CompareResetCode does a constant-time comparison so a mismatch does not
// leak how many leading digits were right.
func CompareResetCode(stored, presented string) bool {
	if len(stored) == 0 || len(presented) == 0 {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
