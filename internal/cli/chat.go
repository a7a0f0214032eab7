package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"agentrag/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [files...]",
	Short: "Launch the interactive chat UI",
	Long: `Ingests the given files and opens a terminal chat over them.

Controls:
  Enter        - Ask / run command
  /add <glob>  - Ingest more documents
  PgUp/PgDn    - Scroll history
  Ctrl+C       - Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	app, results, err := newApp(cmd.Context(), args)
	if err != nil {
		return err
	}
	defer app.Close()

	p := tea.NewProgram(tui.New(cmd.Context(), app, results), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
