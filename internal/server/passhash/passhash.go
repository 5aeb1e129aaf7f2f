// Package passhash derives and checks salted password digests.
//
// A digest is a single string: 64 hex characters of salt followed by the
// hex-encoded PBKDF2-HMAC-SHA512 output. The salt itself is hex(SHA-256 of 60
// random bytes) and is fed to the KDF as its ASCII text, which keeps the
// format readable by digests produced before this service existed.
package passhash

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen    = 64
	iterations = 100000
	keyLen     = 64
)

// Hash returns a fresh digest for plaintext. Two calls never share a salt.
func Hash(plaintext string) (string, error) {
	seed := make([]byte, 60)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	sum := sha256.Sum256(seed)
	salt := hex.EncodeToString(sum[:])

	return salt + derive(plaintext, salt), nil
}

// Verify reports whether plaintext matches digest. Malformed digests simply
// do not match.
func Verify(digest, plaintext string) bool {
	if len(digest) <= saltLen {
		return false
	}
	salt, stored := digest[:saltLen], digest[saltLen:]
	if _, err := hex.DecodeString(stored); err != nil {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(derive(plaintext, salt)), []byte(stored)) == 1
}

func derive(plaintext, salt string) string {
	dk := pbkdf2.Key([]byte(plaintext), []byte(salt), iterations, keyLen, sha512.New)
	return hex.EncodeToString(dk)
}
