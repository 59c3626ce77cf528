// Package contenthash derives storage keys from payload content.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a key in hex characters.
const Size = sha256.Size * 2

// Of returns the lowercase hex SHA-256 digest of the payload's UTF-8 bytes.
// Equal payloads always map to the same key.
func Of(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
