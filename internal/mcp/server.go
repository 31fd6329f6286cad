package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/orchestrator"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/retrieval"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Engine answers questions end to end.
type Engine interface {
	Handle(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error)
}

// Retriever exposes hybrid knowledge search on its own, without generation.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
}

// Server wraps an MCP server that exposes the assistant over stdio.
type Server struct {
	engine    Engine
	retriever Retriever
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(engine Engine, retriever Retriever) *Server {
	s := &Server{
		engine:    engine,
		retriever: retriever,
	}

	s.mcp = server.NewMCPServer(
		"pratiko",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(askTool, s.handleAsk)
	s.mcp.AddTool(searchKnowledgeTool, s.handleSearchKnowledge)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
