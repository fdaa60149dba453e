package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/brogergvhs/novelpipe/internal/chapters"
	"github.com/brogergvhs/novelpipe/internal/config"
	"github.com/brogergvhs/novelpipe/internal/novel"
	"github.com/brogergvhs/novelpipe/internal/source"
	"github.com/brogergvhs/novelpipe/internal/ui"
	"github.com/brogergvhs/novelpipe/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	// selection
	flagRange  string
	flagList   string
	flagDryRun bool
	flagSlug   string

	// fetch identity
	flagFetchMode  string
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string

	flagStorage string
)

func init() {
	scrapeCmd := &cobra.Command{
		Use:   "scrape <novel-url|slug>",
		Short: "Scrape a novel page and every free chapter into the raw document",
		Long: "Scrape a novel page and every free chapter into {data}/raw/{slug}.json.\n" +
			"The document is rewritten after each chapter; chapters it already holds are skipped.",
		RunE: runScrape,
	}

	addSelectionFlags(scrapeCmd)
	scrapeCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "list the selected chapters without fetching them")
	scrapeCmd.Flags().StringVar(&flagSlug, "slug", "", "override the slug derived from the novel title")
	addFetchFlags(scrapeCmd)
	scrapeCmd.Flags().StringVar(&flagStorage, "storage", "", "object storage backend for artifacts and covers (none|fs|s3)")

	rootCmd.AddCommand(scrapeCmd)
}

func addSelectionFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagRange, "range", "", "chapter range by number (e.g. 5-12 or 40-)")
	c.Flags().StringVar(&flagList, "list", "", "specific chapter numbers (e.g. 1,3,5 or 1,10-12)")
}

func addFetchFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagFetchMode, "fetch-mode", "", "how pages are fetched (http|browser|curl)")
	c.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	c.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	c.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
}

func fetchOptions() config.Options {
	return config.Options{
		FetchMode:      flagFetchMode,
		Cookie:         flagCookie,
		CookieFile:     flagCookieFile,
		UserAgent:      flagUserAgent,
		StorageBackend: flagStorage,
	}
}

func runScrape(cmd *cobra.Command, args []string) error {
	e, err := setup(fetchOptions())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return missingInput(cmd.OutOrStdout(), "novelpipe scrape <novel-url|slug>", e.ws)
	}
	if err := e.validate(config.StageScrape); err != nil {
		return err
	}

	ctx, cancel := e.interruptible(cmd.Context())
	defer cancel()

	_, err = e.scrape(ctx, args[0], flagSlug)
	return err
}

// novelURL accepts a URL or the slug of an already scraped novel.
func (e *env) novelURL(arg string) (string, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return arg, nil
	}
	raw, err := e.ws.LoadRaw(workspace.Resolve(arg))
	if err != nil {
		return "", usagef("%q is neither a URL nor a scraped novel: %v", arg, err)
	}
	if raw.Listing.URL == "" {
		return "", usagef("%s has no source URL; pass the novel URL instead", e.ws.RawPath(raw.Slug))
	}
	return raw.Listing.URL, nil
}

// scrape runs the scrape stage and returns the slug it wrote.
func (e *env) scrape(ctx context.Context, arg, slugOverride string) (string, error) {
	url, err := e.novelURL(arg)
	if err != nil {
		return "", err
	}
	sel, err := chapters.Numbers(flagRange, flagList)
	if err != nil {
		return "", usagef("%v", err)
	}

	pages, images, closeFetch, err := e.fetchers(ctx)
	if err != nil {
		return "", err
	}
	defer closeFetch()

	bucket, err := e.bucket(ctx)
	if err != nil {
		return "", err
	}

	stats := ui.NewStats()
	var bar *ui.ProgressHandle
	scr := source.New(pages, e.ws, source.Options{
		Profile:  e.cfg.Site,
		Sanitize: e.cfg.Sanitize,
		Delay:    e.cfg.Fetch.Delay,
		Bucket:   bucket,
		Images:   images,
		Log:      e.log,
		OnChapter: func(r source.ChapterResult) {
			label := chapters.Label(novel.ChapterRef{Number: r.Number, Title: r.Title})
			switch {
			case r.Skipped:
				stats.Skipped.Add(1)
				e.log.Skip(label, "already scraped")
			case r.Err != nil:
				stats.Failed.Add(1)
				e.log.Fail(label, r.Err)
			default:
				stats.Succeeded.Add(1)
				detail := fmt.Sprintf("%.1fs", r.Duration.Seconds())
				if r.Suspect {
					detail += "  (short)"
				}
				e.log.OK(label, detail)
			}
			bar.Done(r.Err != nil)
		},
	})

	listing, idx, err := scr.Index(ctx, url)
	if err != nil {
		return "", err
	}
	selected, err := chapters.Filter(idx.Chapters, flagRange, flagList)
	if err != nil {
		return "", usagef("%v", err)
	}
	if err := checkSelection(sel, len(selected), len(idx.Chapters)); err != nil {
		return "", err
	}

	fmt.Printf("%s: %d free chapters, %d premium excluded\n", listing.Title, len(idx.Chapters), idx.Premium)

	if flagDryRun {
		fmt.Printf("Dry-run: %d chapters selected.\n\n", len(selected))
		for _, ref := range selected {
			fmt.Printf("%4d) %s\n      %s\n", ref.Number, ref.Title, ref.URL)
		}
		return "", nil
	}

	pm := ui.NewProgressManager()
	bar = pm.Register("Scraping", len(selected))
	prev := e.log.SetOutput(pm.Writer())

	_, sum, runErr := scr.Scrape(ctx, source.Job{
		URL:  url,
		Slug: slugOverride,
		Only: sel.Map(chapters.RefNumbers(idx.Chapters)),
	})

	bar.MarkDone()
	pm.Close()
	e.log.SetOutput(prev)

	stats.Summary(os.Stdout, "Scrape")
	if sum.Slug != "" {
		fmt.Printf("Raw document: %s\n", relPath(e.ws.RawPath(sum.Slug)))
	}
	if len(sum.Suspect) > 0 {
		fmt.Printf("Short chapters kept: %v\n", sum.Suspect)
	}

	if runErr != nil {
		if ctx.Err() != nil {
			fmt.Println("Interrupted; rerun the same command to resume.")
		}
		return sum.Slug, runErr
	}
	if stats.Partial() {
		return sum.Slug, errPartial
	}
	return sum.Slug, nil
}

// checkSelection rejects a --range or --list matching none of the free
// chapters. Without one, a novel with no free chapters is still written.
func checkSelection(sel chapters.Set, selected, total int) error {
	if !sel.Empty() && selected == 0 {
		return usagef("no chapters selected out of %d", total)
	}
	return nil
}
