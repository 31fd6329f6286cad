package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/epoch"
)

var epochCmd = &cobra.Command{
	Use:   "epoch",
	Short: "Inspect or advance the versioning epochs",
}

var epochShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current epoch counters",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp()
		exitOnError(err)
		defer a.Close()

		set, err := a.epochs.Snapshot(context.Background())
		exitOnError(err)

		fmt.Printf("%s:      %d\n", epoch.KB, set.KB)
		fmt.Printf("%s:  %d\n", epoch.Golden, set.Golden)
		fmt.Printf("%s: %d\n", epoch.Ruleset, set.Ruleset)
		fmt.Printf("%s:  %d\n", epoch.Parser, set.ParserVersion)
	},
}

var epochBumpCmd = &cobra.Command{
	Use:   "bump <kb|golden|ruleset|parser>",
	Short: "Increment one epoch counter",
	Long: `Increments the named counter. Every cached answer keyed on the old
value regenerates on its next request; no explicit invalidation runs.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp()
		exitOnError(err)
		defer a.Close()

		value, err := a.epochs.Bump(context.Background(), args[0])
		exitOnError(err)

		fmt.Printf("%s is now %d\n", args[0], value)
	},
}

func init() {
	epochCmd.AddCommand(epochShowCmd)
	epochCmd.AddCommand(epochBumpCmd)
	rootCmd.AddCommand(epochCmd)
}
