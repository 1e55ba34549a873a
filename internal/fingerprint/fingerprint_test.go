package fingerprint_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"invoflow/internal/fingerprint"
)

func TestBuild_Deterministic(t *testing.T) {
	prompt := "Is this document an invoice?"
	file := []byte("%PDF-1.4 fake invoice content")

	first := fingerprint.Build(prompt, file)
	second := fingerprint.Build(prompt, file)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex-encoded sha256
}

func TestBuild_MatchesPromptPlusFileDigest(t *testing.T) {
	prompt := "extract the data"
	file := []byte{0x01, 0x02, 0x03}

	sum := sha256.Sum256(append([]byte(prompt), file...))

	assert.Equal(t, hex.EncodeToString(sum[:]), fingerprint.Build(prompt, file))
}

func TestBuild_SingleByteChangeChangesDigest(t *testing.T) {
	prompt := "classify this"
	file := []byte("invoice body")

	base := fingerprint.Build(prompt, file)

	mutated := make([]byte, len(file))
	copy(mutated, file)
	mutated[len(mutated)-1] ^= 0x01
	assert.NotEqual(t, base, fingerprint.Build(prompt, mutated))

	assert.NotEqual(t, base, fingerprint.Build(prompt+" ", file))
}

func TestBuild_NilAndEmptyFileEquivalent(t *testing.T) {
	prompt := "text-only prompt"

	assert.Equal(t, fingerprint.Build(prompt, nil), fingerprint.Build(prompt, []byte{}))
}

func TestBuild_ExactConcatenationContract(t *testing.T) {
	// "ab"+"c" and "a"+"bc" concatenate to the same bytes. The contract is a
	// digest over the exact concatenation, so these must stay equal; adding a
	// delimiter would break compatibility with existing cache entries.
	assert.Equal(t,
		fingerprint.Build("ab", []byte("c")),
		fingerprint.Build("a", []byte("bc")))

	// Distinct total content never collides.
	assert.NotEqual(t,
		fingerprint.Build("ab", []byte("c")),
		fingerprint.Build("ab", []byte("d")))
}
