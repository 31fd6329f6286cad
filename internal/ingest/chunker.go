package ingest

import "strings"

// DefaultMaxChunkSize bounds one chunk's length in bytes.
const DefaultMaxChunkSize = 1600

// chunkText splits document text into retrieval-sized chunks on paragraph
// boundaries. Paragraphs are merged until the next one would push a chunk
// past maxSize; a single paragraph longer than maxSize is split hard.
func chunkText(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}

	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, p := range paragraphs {
		if len(p) > maxSize {
			flush()
			for len(p) > maxSize {
				cut := maxSize
				// Prefer a newline or space near the limit over a mid-word cut.
				if i := strings.LastIndexAny(p[:maxSize], "\n "); i > maxSize/2 {
					cut = i
				}
				chunks = append(chunks, strings.TrimSpace(p[:cut]))
				p = strings.TrimSpace(p[cut:])
			}
			if p != "" {
				chunks = append(chunks, p)
			}
			continue
		}
		if current.Len() > 0 && current.Len()+2+len(p) > maxSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()

	return chunks
}

// titleOf returns the first markdown heading, or "" when there is none.
func titleOf(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
		if line != "" {
			return ""
		}
	}
	return ""
}
