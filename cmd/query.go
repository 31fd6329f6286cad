package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/facts"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/orchestrator"
)

var (
	queryJSON  bool
	queryFacts []string
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer one question from the command line",
	Long: `Runs a single question through the full pipeline and prints the answer.
Facts sharpen the query signature used for golden-answer and cache
lookups; pass them as kind=value, e.g. --fact date=2025-03-01.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp()
		exitOnError(err)
		defer a.Close()

		parsed, err := parseFacts(queryFacts)
		exitOnError(err)

		res, err := a.engine.Handle(context.Background(), orchestrator.Request{
			Query: strings.Join(args, " "),
			Facts: parsed,
		})
		exitOnError(err)

		if queryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			exitOnError(enc.Encode(res))
			return
		}

		fmt.Println(res.Answer)
		if len(res.Citations) > 0 {
			fmt.Println("\nSources:")
			for _, c := range res.Citations {
				fmt.Printf("  - %s\n", c)
			}
		}
		fmt.Printf("\n[cache: %s", res.CacheStatus)
		if res.ProviderID != "" {
			fmt.Printf(", provider: %s", res.ProviderID)
		}
		if res.CostUSD > 0 {
			fmt.Printf(", cost: $%.4f", res.CostUSD)
		}
		if res.Degraded {
			fmt.Print(", degraded grounding")
		}
		fmt.Println("]")
	},
}

// parseFacts turns kind=value flags into facts.
func parseFacts(raw []string) ([]facts.Fact, error) {
	out := make([]facts.Fact, 0, len(raw))
	for _, r := range raw {
		kind, value, ok := strings.Cut(r, "=")
		if !ok || kind == "" || value == "" {
			return nil, fmt.Errorf("invalid fact %q: expected kind=value", r)
		}
		out = append(out, facts.Fact{Kind: facts.Kind(kind), Value: value})
	}
	return out, nil
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the full result as JSON")
	queryCmd.Flags().StringArrayVar(&queryFacts, "fact", nil, "canonical fact as kind=value (repeatable)")
	rootCmd.AddCommand(queryCmd)
}
