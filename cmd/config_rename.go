package cmd

import (
	"fmt"

	"github.com/brogergvhs/novelpipe/internal/config"

	"github.com/spf13/cobra"
)

var configRenameCmd = &cobra.Command{
	Use:   "rename <old_label> <new_label>",
	Short: "Rename a config profile, keeping it active if it was",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to := args[0], args[1]
		if from == config.DefaultLabel {
			return usagef("the %s config cannot be renamed; copy it with `novelpipe config add <label> <file>`", config.DefaultLabel)
		}

		wasActive := false
		if active, err := config.CurrentLabel(); err == nil {
			wasActive = active == from
		}

		if err := config.RenameConfig(from, to); err != nil {
			return err
		}

		path, _ := config.ConfigPathByLabel(to)
		fmt.Printf("Renamed config %q → %q (%s)\n", from, to, path)
		if wasActive {
			fmt.Printf("Active config is now %q\n", to)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configRenameCmd)
}
