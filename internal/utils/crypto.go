// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// NewFileHasher returns the hash used for artifact checksums.
func NewFileHasher() hash.Hash {
	return sha256.New()
}

func HexDigest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

func HashBytes(data []byte) string {
	hasher := NewFileHasher()
	hasher.Write(data)
	return HexDigest(hasher)
}

func ValidateFileHash(fileData []byte, expectedHash string) bool {
	return HashBytes(fileData) == expectedHash
}
