package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/awt/internal/output"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List known coding agents",
	Long: `List the built-in coding agents plus any custom agents defined in
the agents file (see 'awt config show' for its location).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentsRun()
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}

func agentsRun() error {
	reg, err := getRegistry()
	if err != nil {
		return err
	}

	table := ui.Table([]string{"ID", "Name", "Command", "Type", "Sessions"})
	for _, a := range reg.List() {
		kind := "built-in"
		if a.Custom {
			kind = "custom"
		}
		_ = table.Append([]string{
			output.Cyan(a.ID),
			a.Name,
			a.Command,
			kind,
			a.SessionsDir,
		})
	}
	_ = table.Render()
	return nil
}
