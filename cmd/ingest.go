package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/ingest"
)

var ingestDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index normative documents into the knowledge base",
	Long: `Walks a document directory, chunks every matching text/markdown file,
indexes the chunks into both the full-text and the vector store, and
bumps the knowledge epoch once so stale cached answers regenerate.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp()
		exitOnError(err)
		defer a.Close()

		ing := ingest.New(a.store, a.vectors, a.epochs, ingest.Config{
			Dir:          ingestDir,
			Include:      a.cfg.Ingest.Include,
			Exclude:      a.cfg.Ingest.Exclude,
			MaxChunkSize: a.cfg.Ingest.MaxChunkSize,
		})

		stats, err := ing.Run(context.Background())
		exitOnError(err)

		if stats.Files == 0 {
			fmt.Println("No matching documents found.")
			return
		}
		fmt.Printf("Indexed %d files (%d chunks). Knowledge epoch is now %d.\n",
			stats.Files, stats.Chunks, stats.KBEpoch)
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDir, "dir", "d", "documents", "directory of documents to index")
	rootCmd.AddCommand(ingestCmd)
}
