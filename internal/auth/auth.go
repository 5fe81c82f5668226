package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/google/uuid"
)

func HashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// NewToken returns a fresh bearer token and the hash to store for it.
func NewToken() (token, hash string) {
	token = uuid.NewString()
	return token, HashToken(token)
}

// CheckToken reports whether tok hashes to hash, in constant time.
func CheckToken(tok, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(tok)), []byte(hash)) == 1
}
