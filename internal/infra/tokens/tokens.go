// Package tokens holds the credential and signed-token schemes: opaque API
// keys, verification codes, no-login email action tokens and expiring link
// tokens. Everything here is pure apart from randomness.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const (
	APIKeyPrefix     = "molt_"
	apiKeyBodyLen    = 32
	apiKeyAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	displayPrefixLen = 12

	// No 0/O/1/I/L so codes survive being retyped from a screenshot.
	CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	CodeLength   = 8
)

// GenerateAPIKey returns a fresh bearer secret. Callers persist only HashSecret(key).
func GenerateAPIKey() (string, error) {
	body, err := randomFrom(apiKeyAlphabet, apiKeyBodyLen)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + body, nil
}

// KeyPrefix is the non-secret portion shown in key listings.
func KeyPrefix(secret string) string {
	if len(secret) <= displayPrefixLen {
		return secret
	}
	return secret[:displayPrefixLen]
}

func GenerateVerificationCode() (string, error) {
	return randomFrom(CodeAlphabet, CodeLength)
}

// HashSecret is hex SHA-256 over the UTF-8 bytes; used for keys, codes and claim tokens.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func randomFrom(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
