// Package cache builds hardened cache keys and stores generation results.
// The key covers every input that can change the correct answer, so any
// knowledge-base update, prompt revision or provider change invalidates
// entries automatically without an explicit invalidation call.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/epoch"
)

// keyDelimiter separates key fields in the pre-hash canonical string.
const keyDelimiter = "|"

// KeyInputs are all correctness-affecting inputs of one generation.
type KeyInputs struct {
	Signature        string
	AttachmentHashes []string
	Epochs           epoch.Set
	PromptVersion    string
	ProviderID       string
	ModelID          string
	Temperature      float64
	ToolsUsed        bool
}

// Key derives the cache key: an ordered, delimiter-joined concatenation of
// every field, digested with SHA-256. Attachment hashes are sorted first so
// their order never matters; temperature is rendered at fixed precision so
// equal values always serialize identically.
func Key(in KeyInputs) string {
	hashes := append([]string(nil), in.AttachmentHashes...)
	sort.Strings(hashes)

	tools := "0"
	if in.ToolsUsed {
		tools = "1"
	}

	parts := []string{
		in.Signature,
		strings.Join(hashes, ","),
		fmt.Sprintf("%d", in.Epochs.KB),
		fmt.Sprintf("%d", in.Epochs.Golden),
		fmt.Sprintf("%d", in.Epochs.Ruleset),
		fmt.Sprintf("%d", in.Epochs.ParserVersion),
		in.PromptVersion,
		in.ProviderID,
		in.ModelID,
		fmt.Sprintf("%.2f", in.Temperature),
		tools,
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, keyDelimiter)))
	return hex.EncodeToString(sum[:])
}
