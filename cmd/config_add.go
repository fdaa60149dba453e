package cmd

import (
	"fmt"

	"github.com/brogergvhs/novelpipe/internal/config"

	"github.com/spf13/cobra"
)

var configAddCmd = &cobra.Command{
	Use:   "add <label> [file]",
	Short: "Add a config profile from a YAML file, or from the defaults when no file is given",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]

		var (
			path string
			err  error
		)
		if len(args) == 2 {
			path, err = config.AddConfig(label, args[1])
		} else {
			path, err = config.CreateConfig(label)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Created config %q: %s\n", label, path)
		fmt.Printf("Run `novelpipe config switch %s` to use it.\n", label)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configAddCmd)
}
