package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Starts an MCP server exposing the assistant to AI agents over stdio.
Tools: ask (full question answering) and search_knowledge (hybrid
retrieval only). Protocol messages use stdout; logs go to stderr.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp()
		exitOnError(err)
		defer a.Close()

		srv := mcp.NewServer(a.engine, a.retriever)
		exitOnError(srv.Serve())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
