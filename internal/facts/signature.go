package facts

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// sigDelimiter separates fields inside the pre-hash canonical string. The
// unit separator cannot appear in normalized fact values.
const sigDelimiter = "\x1f"

// Signature returns a deterministic fingerprint for a set of facts. The
// input is normalized (sorted, deduplicated) first, so any insertion order
// of equal facts yields the same signature. A SHA-256 digest keeps the
// collision probability negligible.
func Signature(in []Fact) string {
	normalized := Normalize(in)

	var sb strings.Builder
	for _, f := range normalized {
		sb.WriteString(string(f.Kind))
		sb.WriteString("=")
		sb.WriteString(f.Value)
		sb.WriteString(sigDelimiter)
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
