package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"agentrag/internal/message"
)

var (
	askFiles []string
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the given documents",
	Long: `Ingests --file documents, asks a single question and prints the answer
with its sources. With --json the full message transcript is printed instead,
one JSON object per line.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askFiles, "file", "f", nil, "document path or glob (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the message transcript as JSON lines")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, results, err := newApp(cmd.Context(), askFiles)
	if err != nil {
		return err
	}
	defer app.Close()

	ans, err := app.Ask(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return outputTranscript(cmd, app.Transcript())
	}

	for _, r := range results {
		if r.Err != nil {
			cmd.PrintErrf("warning: %s was not indexed: %v\n", r.Path, r.Err)
		}
	}
	cmd.Println(ans.Answer)
	if len(ans.SourceContext) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, s := range ans.SourceContext {
			cmd.Printf("  %s\n", s)
		}
	}
	return nil
}

func outputTranscript(cmd *cobra.Command, msgs []message.Message) error {
	for _, m := range msgs {
		data, err := message.Encode(m)
		if err != nil {
			return fmt.Errorf("failed to encode message %s: %w", m.ID, err)
		}
		cmd.Println(string(data))
	}
	return nil
}
