package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

// Token sizes in bytes before encoding.
const (
	// TokenSize256 gives 43 base64url characters.
	TokenSize256 = 32
	// TokenSizeResetForm matches the 40 random bytes used for password reset
	// form tokens (54 base64url characters).
	TokenSizeResetForm = 40
)

// GenerateToken returns size random bytes encoded as unpadded base64url.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateNumericCode returns a uniformly random decimal code of exactly
// digits characters, zero padded (e.g. "004217").
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("code length must be within 1..18, got %d", digits)
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate numeric code: %w", err)
	}

	code := n.String()
	return strings.Repeat("0", digits-len(code)) + code, nil
}

// FingerprintToken returns the base64url SHA-256 of token (43 chars). Stores
// keep fingerprints so a database leak does not leak live credentials.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
