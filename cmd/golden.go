package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/facts"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/golden"
)

var (
	goldenAnswerFile string
	goldenAnswerText string
	goldenConfidence float64
	goldenCitations  []string
	goldenFactFlags  []string
)

var goldenCmd = &cobra.Command{
	Use:   "golden",
	Short: "Manage validated golden answers",
}

var goldenPublishCmd = &cobra.Command{
	Use:   "publish <question>",
	Short: "Publish an expert-validated answer",
	Long: `Publishes a validated answer for the fast path. The answer is stored
under the signature of the given facts and indexed semantically, so
equivalent future questions are served without generation while the
knowledge base stays at or below the current epoch.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp()
		exitOnError(err)
		defer a.Close()

		text := goldenAnswerText
		if goldenAnswerFile != "" {
			content, err := os.ReadFile(goldenAnswerFile)
			exitOnError(err)
			text = string(content)
		}
		if strings.TrimSpace(text) == "" {
			exitOnError(fmt.Errorf("an answer is required: pass --answer or --answer-file"))
		}

		parsed, err := parseFacts(goldenFactFlags)
		exitOnError(err)

		ctx := context.Background()
		set, err := a.epochs.Snapshot(ctx)
		exitOnError(err)

		question := strings.Join(args, " ")
		published, err := golden.NewStore(a.database, a.vectors).Publish(ctx, golden.Answer{
			Signature:  facts.Signature(parsed),
			Question:   question,
			Text:       text,
			Citations:  goldenCitations,
			Confidence: goldenConfidence,
			Epoch:      set.KB,
		})
		exitOnError(err)

		fmt.Printf("Published golden answer %s (epoch %d, confidence %.2f)\n",
			published.ID, published.Epoch, published.Confidence)
	},
}

func init() {
	goldenPublishCmd.Flags().StringVar(&goldenAnswerText, "answer", "", "answer text")
	goldenPublishCmd.Flags().StringVar(&goldenAnswerFile, "answer-file", "", "file containing the answer text")
	goldenPublishCmd.Flags().Float64Var(&goldenConfidence, "confidence", 0.95, "expert confidence in [0,1]")
	goldenPublishCmd.Flags().StringArrayVar(&goldenCitations, "citation", nil, "source citation (repeatable)")
	goldenPublishCmd.Flags().StringArrayVar(&goldenFactFlags, "fact", nil, "canonical fact as kind=value (repeatable)")
	goldenCmd.AddCommand(goldenPublishCmd)
	rootCmd.AddCommand(goldenCmd)
}
