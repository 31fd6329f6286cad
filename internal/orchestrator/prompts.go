package orchestrator

import (
	"fmt"
	"strings"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/llm"
)

// PromptVersion feeds the cache key so any template change invalidates
// every cached answer produced with the old wording.
const PromptVersion = "v3"

const systemPrompt = `You are PratikoAI, an assistant for Italian tax, legal, labor and accounting professionals.

Rules:
- Answer in the language of the question.
- Ground every normative claim in the provided context when context is present; cite the source document for each claim.
- When the context does not cover the question, say so explicitly instead of guessing.
- Monetary amounts use two decimals; dates use ISO 8601.
- Never invent article numbers, circolari or rulings.`

// buildMessages composes the conversation for one generation pass: system
// prompt, retrieved grounding context, an optional stale golden draft to be
// verified and updated, then the user query.
func buildMessages(req Request, st *State) []llm.Message {
	var sb strings.Builder

	if len(st.Chunks) > 0 {
		sb.WriteString("Context documents, most relevant first:\n\n")
		for i, c := range st.Chunks {
			fmt.Fprintf(&sb, "[%d] %s", i+1, c.Source)
			if c.Title != "" {
				fmt.Fprintf(&sb, " — %s", c.Title)
			}
			sb.WriteString("\n")
			sb.WriteString(c.Content)
			sb.WriteString("\n\n")
		}
	} else if st.NeedsRetrieval {
		sb.WriteString("No relevant context documents were found. Say so if the question requires normative sources.\n\n")
	}

	if st.GoldenDraft != nil {
		sb.WriteString("A previously validated answer to an equivalent question exists, but the knowledge base has been updated since it was written. Verify it against the context above and correct anything outdated:\n\n")
		sb.WriteString(st.GoldenDraft.Text)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Question: ")
	sb.WriteString(req.Query)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}
}

// citations collects the distinct grounding sources in fused-rank order,
// with the golden draft's citations appended when a draft was merged.
func (st *State) citations() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, c := range st.Chunks {
		add(c.Source)
	}
	if st.GoldenDraft != nil {
		for _, c := range st.GoldenDraft.Citations {
			add(c)
		}
	}
	return out
}
