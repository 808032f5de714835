package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// NewNumericCode returns a numeric OTP of the given length, each digit drawn
// independently from crypto/rand.
func NewNumericCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// NewResetCode returns a 6-character uppercase alphanumeric reset code.
func NewResetCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:6])
}

// HashCode returns the SHA-256 digest of a one-time code for at-rest storage.
func HashCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

// CodeMatches compares a candidate code against a stored digest without
// leaking timing information.
func CodeMatches(candidate string, digest [32]byte) bool {
	computed := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(computed[:], digest[:]) == 1
}
