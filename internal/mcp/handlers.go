package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/orchestrator"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/retrieval"
)

// handleAsk runs the full pipeline for one question.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	res, err := s.engine.Handle(ctx, orchestrator.Request{Query: query})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("answering failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatAnswer(res)), nil
}

// handleSearchKnowledge runs hybrid retrieval only.
func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	res, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	chunks := res.Chunks
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	if len(chunks) == 0 {
		return mcp.NewToolResultText("No relevant documents found. The knowledge base may be empty; run `pratiko ingest` to index documents."), nil
	}

	return mcp.NewToolResultText(formatChunks(chunks)), nil
}

func formatAnswer(res orchestrator.Result) string {
	var sb strings.Builder
	sb.WriteString(res.Answer)
	if len(res.Citations) > 0 {
		sb.WriteString("\n\nSources:\n")
		for _, c := range res.Citations {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	fmt.Fprintf(&sb, "\n[cache: %s", res.CacheStatus)
	if res.ProviderID != "" {
		fmt.Fprintf(&sb, ", provider: %s", res.ProviderID)
	}
	if res.CostUSD > 0 {
		fmt.Fprintf(&sb, ", cost: $%.4f", res.CostUSD)
	}
	sb.WriteString("]")
	return sb.String()
}

func formatChunks(chunks []retrieval.ScoredChunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d relevant chunks:\n\n", len(chunks))
	for i, c := range chunks {
		fmt.Fprintf(&sb, "## %d. %s (score %.3f)\n", i+1, c.Source, c.Score)
		if c.Title != "" {
			fmt.Fprintf(&sb, "%s\n", c.Title)
		}
		sb.WriteString(c.Content)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
