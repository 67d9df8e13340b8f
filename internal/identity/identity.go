package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Id prefixes and widths for each table.
const (
	AccountPrefix     = "A"
	ProjectPrefix     = "P"
	TransactionPrefix = "T"

	AccountIDWidth     = 5
	ProjectIDWidth     = 5
	TransactionIDWidth = 6
)

// NextID returns prefix followed by count+1, zero-padded to width digits.
// It is not safe for concurrent callers reading the same count; callers
// must serialize allocation.
func NextID(prefix string, width, count int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, count+1)
}

// Digest returns the lowercase hex SHA-256 of input.
func Digest(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
