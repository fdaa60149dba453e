package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/brogergvhs/novelpipe/internal/ui"

	"github.com/spf13/cobra"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitPartial = 3
)

var (
	flagIgnoreConfig bool
	flagDebug        bool
	flagDataDir      string
	flagEnvFile      string
)

var rootCmd = &cobra.Command{
	Use:           "novelpipe",
	Short:         "Scrape, translate and import web novels",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagIgnoreConfig, "ignore-config", false, "ignore config and use only CLI flags")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory holding listings, raw and translated documents")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "file with OPENAI_API_KEY, DATABASE_URL and other secrets")
}

// usageError is a missing or unknown input; it exits with ExitUsage.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// errPartial marks a run where some items failed and the rest were saved.
var errPartial = errors.New("some items failed; rerun the same command to retry them")

func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue):
		return ExitUsage
	case errors.Is(err, errPartial):
		return ExitPartial
	}
	return ExitFailure
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		ui.NewLogger(flagDebug).Errorf("%v", err)
	}
	os.Exit(exitCode(err))
}
