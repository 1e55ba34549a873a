package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Build derives the cache identity for a model call: the SHA-256 digest of
// the prompt text followed directly by the raw file bytes. The concatenation
// deliberately has no delimiter; the byte-level layout is part of the cache
// contract and must not change, or existing entries become unreachable.
// A nil fileBytes hashes the same as an empty slice.
func Build(promptText string, fileBytes []byte) string {
	h := sha256.New()
	h.Write([]byte(promptText))
	h.Write(fileBytes)
	return hex.EncodeToString(h.Sum(nil))
}
