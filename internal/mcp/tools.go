package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askTool defines the ask MCP tool.
var askTool = mcp.NewTool("ask",
	mcp.WithDescription("Ask the Italian tax/legal assistant a question. Returns a grounded answer with citations, the provider used and the cost."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The question, in Italian or English"),
	),
)

// searchKnowledgeTool defines the search_knowledge MCP tool.
var searchKnowledgeTool = mcp.NewTool("search_knowledge",
	mcp.WithDescription("Search the normative knowledge base directly (hybrid lexical + semantic search) without generating an answer."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of chunks to return (default 5)"),
	),
)
