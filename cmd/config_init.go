package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/brogergvhs/novelpipe/internal/config"

	"github.com/spf13/cobra"
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Default config",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaultPath, err := config.ConfigPathByLabel(config.DefaultLabel)
		if err != nil {
			return err
		}

		if _, err := os.Stat(defaultPath); err == nil {
			fmt.Println("Configuration already exists at:")
			fmt.Println("  ", defaultPath)
			fmt.Println("Use `novelpipe config reset` to recreate it.")
			return nil
		}

		fmt.Println("Configuration file will be saved at:")
		fmt.Println("  ", defaultPath)
		fmt.Println()

		fmt.Println("Default configuration:")
		config.DefaultConfig().Print()
		fmt.Println()

		if !confirm(fmt.Sprintf("Create Default config at %s?", defaultPath)) {
			fmt.Println("Aborted.")
			return nil
		}

		path, err := config.InitDefaultConfig()
		if err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Println("Config created at:", path)
		fmt.Printf("This config is now active (label: %s).\n", config.DefaultLabel)
		fmt.Println("Secrets such as OPENAI_API_KEY and DATABASE_URL are read from the environment or .env.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
