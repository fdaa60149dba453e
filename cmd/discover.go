package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/brogergvhs/novelpipe/internal/config"
	"github.com/brogergvhs/novelpipe/internal/source"
	"github.com/brogergvhs/novelpipe/internal/util"
	"github.com/brogergvhs/novelpipe/internal/workspace"

	"github.com/spf13/cobra"
)

var flagPages int

func init() {
	discoverCmd := &cobra.Command{
		Use:   "discover <listing-url>",
		Short: "Collect the free novels of a catalog page into {data}/listings/{host}.json",
		RunE:  runDiscover,
	}

	discoverCmd.Flags().IntVar(&flagPages, "pages", 1, "catalog pages to follow through the next-page link")
	addFetchFlags(discoverCmd)

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	e, err := setup(fetchOptions())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Usage: novelpipe discover <listing-url> [--pages N]")
		return usagef("missing listing URL")
	}
	if err := e.validate(config.StageDiscover); err != nil {
		return err
	}
	if flagPages < 1 {
		return usagef("--pages must be at least 1")
	}

	ctx, cancel := e.interruptible(cmd.Context())
	defer cancel()

	pages, _, closeFetch, err := e.fetchers(ctx)
	if err != nil {
		return err
	}
	defer closeFetch()

	scr := source.New(pages, e.ws, source.Options{
		Profile: e.cfg.Site,
		Delay:   e.cfg.Fetch.Delay,
		Log:     e.log,
	})

	lf, runErr := scr.Discover(ctx, args[0], flagPages)
	if lf == nil || lf.Pages == 0 {
		return runErr
	}

	host := workspace.HostOf(args[0])
	if err := e.ws.SaveListings(lf); err != nil {
		return fmt.Errorf("save listings: %w", err)
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tSTATUS\tTITLE\tURL")
	for i, n := range lf.Novels {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, n.Status, n.Title, n.URL)
	}
	_ = tw.Flush()

	fmt.Fprintf(out, "\n%s on %s, %d premium skipped\n", util.Plural(len(lf.Novels), "novel"), util.Plural(lf.Pages, "page"), lf.Premium)
	fmt.Fprintf(out, "Saved to %s\n", relPath(e.ws.ListingPath(host)))
	if runErr != nil {
		return fmt.Errorf("stopped after %d pages: %w", lf.Pages, runErr)
	}
	return nil
}
