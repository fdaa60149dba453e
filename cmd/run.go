package cmd

import (
	"errors"
	"fmt"

	"github.com/brogergvhs/novelpipe/internal/config"

	"github.com/spf13/cobra"
)

var flagRunFill bool

func init() {
	runCmd := &cobra.Command{
		Use:   "run <novel-url|slug>",
		Short: "Scrape, translate and import a novel in one go",
		Long: "Run scrape, translate and import in sequence for one novel.\n" +
			"A stage with failed chapters does not stop the next one; the exit code reports the partial run.",
		RunE: runPipeline,
	}

	addSelectionFlags(runCmd)
	runCmd.Flags().StringVar(&flagSlug, "slug", "", "override the slug derived from the novel title")
	addFetchFlags(runCmd)
	addTranslateFlags(runCmd)
	runCmd.Flags().StringVar(&flagStorage, "storage", "", "object storage backend (none|fs|s3)")
	runCmd.Flags().BoolVar(&flagRunFill, "fill-translations", true, "set translations on stored chapters whose translated column is empty")
	runCmd.Flags().BoolVar(&flagMigrate, "migrate", false, "create missing tables before importing (for local databases)")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	opts := fetchOptions()
	opts.Concurrency = flagConcurrency
	opts.Model = flagModel
	opts.CheckpointBackend = flagCheckpoint

	e, err := setup(opts)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return missingInput(cmd.OutOrStdout(), "novelpipe run <novel-url|slug>", e.ws)
	}
	if err := e.validate(config.StageScrape, config.StageTranslate, config.StageImport); err != nil {
		return err
	}

	ctx, cancel := e.interruptible(cmd.Context())
	defer cancel()

	partial := false
	stage := func(name string, err error) error {
		if err == nil {
			return nil
		}
		if errors.Is(err, errPartial) {
			partial = true
			return nil
		}
		return fmt.Errorf("%s: %w", name, err)
	}

	fmt.Println("== scrape")
	slug, err := e.scrape(ctx, args[0], flagSlug)
	if err := stage("scrape", err); err != nil {
		return err
	}
	if slug == "" {
		return nil
	}

	fmt.Println("\n== translate")
	if err := stage("translate", e.translate(ctx, slug)); err != nil {
		return err
	}

	fmt.Println("\n== import")
	if err := stage("import", e.importNovel(ctx, slug, importMode{translated: true, fill: flagRunFill})); err != nil {
		return err
	}

	if partial {
		return errPartial
	}
	return nil
}
