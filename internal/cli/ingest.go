package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"agentrag/internal/service"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Parse, chunk and index documents",
	Long: `Ingests the given files (glob patterns allowed) and reports the chunk IDs
assigned to each. The index lives in memory, so this is mostly useful to
check that documents extract cleanly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	app, results, err := newApp(cmd.Context(), args)
	if err != nil {
		return err
	}
	defer app.Close()

	printResults(cmd, results)
	cmd.Printf("%d chunks indexed with %s\n", app.Indexed(), app.EmbedderName())
	return nil
}

func printResults(cmd *cobra.Command, results []service.FileResult) {
	for _, r := range results {
		if r.Skipped {
			cmd.Printf("  skip %s: already ingested\n", r.Path)
			continue
		}
		if r.Err != nil {
			cmd.Printf("  FAIL %s: %v\n", r.Path, r.Err)
			continue
		}
		cmd.Printf("  ok   %s [%s] %s\n", r.Path, r.Type, chunkRange(r.ChunkIDs))
	}
}

func chunkRange(ids []int) string {
	switch len(ids) {
	case 0:
		return "no chunks"
	case 1:
		return fmt.Sprintf("chunk %d", ids[0])
	default:
		return fmt.Sprintf("chunks %d-%d", ids[0], ids[len(ids)-1])
	}
}
