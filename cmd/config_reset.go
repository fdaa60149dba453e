package cmd

import (
	"fmt"

	"github.com/brogergvhs/novelpipe/internal/config"

	"github.com/spf13/cobra"
)

var configResetCmd = &cobra.Command{
	Use:   "reset [label]",
	Short: "Reset the current or the given config to default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string
		if len(args) == 1 {
			label = args[0]
		} else {
			var err error
			if label, err = config.CurrentLabel(); err != nil {
				return err
			}
		}

		path, err := config.ResetConfig(label)
		if err != nil {
			return err
		}

		fmt.Printf("Reset config %q: %s\n", label, path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
}
