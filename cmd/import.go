package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/brogergvhs/novelpipe/internal/config"
	"github.com/brogergvhs/novelpipe/internal/novel"
	"github.com/brogergvhs/novelpipe/internal/store"
	"github.com/brogergvhs/novelpipe/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	flagTranslated       bool
	flagFillTranslations bool
	flagMigrate          bool
)

func init() {
	importCmd := &cobra.Command{
		Use:   "import <slug>",
		Short: "Insert a scraped (or translated) novel and its chapters into the database",
		Long: "Upsert the novel by slug and insert every chapter not stored yet.\n" +
			"Existing chapters are never overwritten; --fill-translations only fills empty translated columns.\n" +
			"The database comes from DATABASE_URL (postgres:// or sqlite:).",
		RunE: runImport,
	}

	addImportFlags(importCmd)
	rootCmd.AddCommand(importCmd)
}

func addImportFlags(c *cobra.Command) {
	c.Flags().BoolVar(&flagTranslated, "translated", false, "import the translated document alongside the raw one")
	c.Flags().BoolVar(&flagFillTranslations, "fill-translations", false, "set translations on stored chapters whose translated column is empty")
	c.Flags().BoolVar(&flagMigrate, "migrate", false, "create missing tables before importing (for local databases)")
}

func runImport(cmd *cobra.Command, args []string) error {
	e, err := setup(config.Options{})
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return missingInput(cmd.OutOrStdout(), "novelpipe import <slug> [--translated]", e.ws)
	}
	if err := e.validate(config.StageImport); err != nil {
		return err
	}

	ctx, cancel := e.interruptible(cmd.Context())
	defer cancel()

	return e.importNovel(ctx, workspace.Resolve(args[0]), importMode{
		translated: flagTranslated || flagFillTranslations,
		fill:       flagFillTranslations,
		strict:     true,
	})
}

type importMode struct {
	translated bool
	fill       bool
	// strict turns a missing translated document into a usage error
	// instead of a raw-only import.
	strict bool
}

func (e *env) importNovel(ctx context.Context, slug string, mode importMode) error {
	raw, err := e.ws.LoadRaw(slug)
	if err != nil {
		if errors.Is(err, workspace.ErrNoInput) {
			fmt.Fprintf(os.Stdout, "No raw document for %q.\n\n", slug)
			printInputs(os.Stdout, e.ws)
			return usagef("%v", err)
		}
		return err
	}

	var tr *novel.TranslatedNovel
	if mode.translated {
		_, err := os.Stat(e.ws.TranslatedPath(slug))
		switch {
		case errors.Is(err, fs.ErrNotExist) && mode.strict:
			return usagef("no translated document for %q; run `novelpipe translate %s` first", slug, slug)
		case errors.Is(err, fs.ErrNotExist):
			e.log.Warnf("%s: no translated document, importing source chapters only\n", slug)
		default:
			if tr, err = e.ws.LoadTranslated(slug); err != nil {
				return err
			}
		}
	}

	db, err := store.Open(e.cfg.Secrets.DatabaseURL, store.Options{Log: e.log, SQLDebug: e.cfg.Debug})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if flagMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			return err
		}
	}

	res, err := db.ImportNovel(ctx, store.FromDocuments(raw, tr), store.ImportOptions{
		FillTranslations: mode.fill,
	})
	if err != nil {
		return err
	}

	state := "updated"
	if res.NovelCreated {
		state = "created"
	}
	e.log.OK(raw.Listing.Title, fmt.Sprintf("novel %s (%s)", res.NovelID, state))
	for _, f := range res.Failed {
		e.log.Fail(fmt.Sprintf("Ch.%d", f.Number), f.Err)
	}

	fmt.Println()
	fmt.Println("Import Summary:")
	fmt.Printf("Inserted: %d\n", res.Inserted)
	fmt.Printf("Skipped:  %d\n", res.Skipped)
	if mode.fill {
		fmt.Printf("Filled:   %d\n", res.Filled)
	}
	fmt.Printf("Failed:   %d\n", len(res.Failed))

	if len(res.Failed) > 0 {
		return errPartial
	}
	return nil
}
