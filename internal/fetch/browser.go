package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const DefaultSettleDelay = 3 * time.Second

// Patches the most common headless fingerprints before any page script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
window.chrome = window.chrome || {runtime: {}};
`

type BrowserOptions struct {
	Identity Identity
	// SettleDelay is waited after navigation so client-side rendering can finish.
	SettleDelay time.Duration
	Timeout     time.Duration
	Headless    bool
	ExecPath    string
}

// BrowserFetcher drives a real Chrome through the DevTools protocol to get
// past JS challenges that the plain client cannot solve.
type BrowserFetcher struct {
	opts  BrowserOptions
	retry RetryOptions
}

func NewBrowserFetcher(opts BrowserOptions, ro RetryOptions) *BrowserFetcher {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &BrowserFetcher{opts: opts, retry: ro}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return withRetry(ctx, f.retry, func(ctx context.Context) ([]byte, error) {
		return f.once(ctx, url)
	})
}

func (f *BrowserFetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.UserAgent(f.opts.Identity.UA()),
		chromedp.Flag("headless", f.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1366, 900),
	)
	if f.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.opts.ExecPath))
	}
	return opts
}

func (f *BrowserFetcher) once(ctx context.Context, url string) ([]byte, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.opts.Timeout)
	defer cancelTimeout()

	headers := network.Headers{}
	for k, v := range f.opts.Identity.Headers {
		headers[k] = v
	}
	if c := f.opts.Identity.CookieHeader(); c != "" {
		headers["Cookie"] = c
	}

	var doc documentResponse
	chromedp.ListenTarget(tabCtx, doc.observe)

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(url),
		chromedp.Sleep(f.opts.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transportError(url, fmt.Errorf("browser: %w", err))
	}

	body := []byte(html)
	code, cfMitigated := doc.result()
	if err := checkResponse(url, code, cfMitigated, body); err != nil {
		return nil, err
	}

	return body, nil
}

// documentResponse records the first document response of a tab. observe
// runs on chromedp's event goroutine while result is read after Run.
type documentResponse struct {
	status    atomic.Int64
	mitigated atomic.Pointer[string]
}

func (d *documentResponse) observe(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	if d.status.CompareAndSwap(0, resp.Response.Status) {
		v := headerValue(resp.Response.Headers, "cf-mitigated")
		d.mitigated.Store(&v)
	}
}

// result defaults to 200 when no document response was seen.
func (d *documentResponse) result() (int, string) {
	code := int(d.status.Load())
	if code == 0 {
		code = 200
	}
	mitigated := ""
	if v := d.mitigated.Load(); v != nil {
		mitigated = *v
	}
	return code, mitigated
}

func headerValue(h network.Headers, name string) string {
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return fmt.Sprint(v)
		}
	}
	return ""
}
