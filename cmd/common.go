package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/brogergvhs/novelpipe/internal/config"
	"github.com/brogergvhs/novelpipe/internal/fetch"
	"github.com/brogergvhs/novelpipe/internal/objstore"
	"github.com/brogergvhs/novelpipe/internal/ui"
	"github.com/brogergvhs/novelpipe/internal/util"
	"github.com/brogergvhs/novelpipe/internal/workspace"
)

// env is what every stage command starts from.
type env struct {
	cfg *config.Config
	log *ui.Logger
	ws  *workspace.Workspace
}

// setup loads the merged configuration. Stage requirements are checked
// separately by validate so a missing argument is reported first.
func setup(opts config.Options) (*env, error) {
	opts.IgnoreConfig = flagIgnoreConfig
	opts.Debug = flagDebug
	opts.DataDir = flagDataDir
	if flagEnvFile != "" {
		opts.EnvFiles = []string{flagEnvFile}
	}

	cfg, used, err := config.LoadMerged(opts)
	if err != nil {
		return nil, err
	}
	log := ui.NewLogger(cfg.Debug)
	log.Debugf("config: %s\n", used)

	return &env{cfg: cfg, log: log, ws: workspace.New(cfg.DataDir)}, nil
}

func (e *env) validate(stages ...config.Stage) error {
	if err := e.cfg.Validate(stages...); err != nil {
		return usagef("invalid configuration:\n%v", err)
	}
	return nil
}

// interruptible cancels on the first Ctrl+C so the current item can flush.
func (e *env) interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	util.SetupInterruptHandler(cancel, e.ws.Dirs()...)
	return ctx, cancel
}

func (e *env) identity() fetch.Identity {
	f := e.cfg.Fetch
	return fetch.Identity{
		UserAgent:  f.UserAgent,
		Cookie:     f.Cookie,
		CookieFile: f.CookieFile,
		Headers:    f.Headers,
	}
}

// fetchers builds the page fetcher for the configured mode and the HTTP
// fetcher used for cover images in every mode.
func (e *env) fetchers(ctx context.Context) (fetch.Fetcher, *fetch.HTTPFetcher, func(), error) {
	f := e.cfg.Fetch
	id := e.identity()
	ro := fetch.RetryOptions{Retries: f.Retries, Delay: f.RetryDelay, Log: e.log}

	client := fetch.NewClient(fetch.ClientOptions{
		Timeout:          f.Timeout,
		Identity:         id,
		BypassCloudflare: f.BypassCloudflare,
		DebugLogger:      e.log,
	})
	httpFetcher := fetch.NewHTTPFetcher(client, ro)

	var pages fetch.Fetcher
	switch f.Mode {
	case config.FetchBrowser:
		pages = fetch.NewBrowserFetcher(fetch.BrowserOptions{
			Identity:    id,
			SettleDelay: f.SettleDelay,
			Timeout:     f.Timeout,
			Headless:    f.Headless,
			ExecPath:    f.BrowserPath,
		}, ro)
	case config.FetchCurl:
		cf := fetch.NewCurlFetcher(f.CurlBinary, id, f.Timeout, ro)
		if err := cf.CheckBinary(); err != nil {
			return nil, nil, nil, err
		}
		pages = cf
	default:
		pages = httpFetcher
	}

	closeFn := func() {}
	if f.CacheTTL > 0 {
		cached, err := fetch.NewCachedFetcher(ctx, pages, f.CacheTTL)
		if err != nil {
			return nil, nil, nil, err
		}
		pages = cached
		closeFn = func() { _ = cached.Close() }
	}

	e.log.Debugf("fetch mode %s, %d retries every %s\n", f.Mode, f.Retries, f.RetryDelay)
	return pages, httpFetcher, closeFn, nil
}

func (e *env) bucket(ctx context.Context) (objstore.Bucket, error) {
	s := e.cfg.Storage
	dir := s.Dir
	if dir == "" {
		dir = e.ws.StorageDir()
	}
	publicURL := s.PublicURL
	if e.cfg.Secrets.S3PublicURL != "" {
		publicURL = e.cfg.Secrets.S3PublicURL
	}
	return objstore.Open(ctx, objstore.Options{
		Backend:   s.Backend,
		Dir:       dir,
		Endpoint:  e.cfg.Secrets.S3Endpoint,
		AccessKey: e.cfg.Secrets.S3AccessKey,
		SecretKey: e.cfg.Secrets.S3SecretKey,
		Bucket:    e.cfg.Secrets.S3Bucket,
		PublicURL: publicURL,
		UseSSL:    s.UseSSL,
	})
}

// printInputs lists the raw documents a stage command can take.
func printInputs(w io.Writer, ws *workspace.Workspace) {
	inputs, err := ws.ListInputs()
	if err != nil {
		fmt.Fprintf(w, "Cannot list %s: %v\n", ws.RawDir(), err)
		return
	}
	if len(inputs) == 0 {
		fmt.Fprintf(w, "No scraped novels in %s yet. Run `novelpipe scrape <novel-url>` first.\n", ws.RawDir())
		return
	}

	fmt.Fprintf(w, "Available inputs in %s:\n", ws.RawDir())
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SLUG\tCHAPTERS\tTRANSLATED\tTITLE")
	for _, in := range inputs {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", in.Slug, in.Chapters, in.Translated, in.Title)
	}
	_ = tw.Flush()
}

// missingInput prints usage plus the inputs listing and returns a usage error.
func missingInput(out io.Writer, usage string, ws *workspace.Workspace) error {
	fmt.Fprintf(out, "Usage: %s\n\n", usage)
	printInputs(out, ws)
	return usagef("missing argument")
}

func relPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
