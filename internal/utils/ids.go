package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// Unambiguous characters for codes customers read back over chat.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReference returns a short human-friendly code such as "ORD-7K3M9Q".
func GenerateReference(prefix string) string {
	code := make([]byte, 6)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			return prefix + "-" + uuid.NewString()[:6]
		}
		code[i] = referenceAlphabet[n.Int64()]
	}
	return prefix + "-" + string(code)
}

// NewCommitKey returns the idempotency key attached to a draft when it is opened.
func NewCommitKey() string {
	return uuid.NewString()
}
