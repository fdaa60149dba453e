package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
)

const maxPageBytes = 16 << 20

type ClientOptions struct {
	Timeout  time.Duration
	Identity Identity
	// Transport replaces the default transport (tests).
	Transport http.RoundTripper
	// BypassCloudflare wraps the transport with a browser-like TLS fingerprint.
	BypassCloudflare bool
	DebugLogger      Logger
}

// NewClient builds an http.Client that stamps every request with the identity.
func NewClient(opts ClientOptions) *http.Client {
	jar, _ := cookiejar.New(nil)

	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
	if opts.BypassCloudflare {
		base = cloudflarebp.AddCloudFlareByPass(base)
	}

	log := opts.DebugLogger
	if log == nil {
		log = nopLogger{}
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: identityTransport{
			base:    base,
			ua:      opts.Identity.UA(),
			cookie:  opts.Identity.CookieHeader(),
			headers: opts.Identity.Headers,
			log:     log,
		},
		Jar: jar,
	}

	log.Debugf("HTTP client initialized (timeout=%s, ua=%q, cookieFile=%q, cf-bypass=%t)\n",
		opts.Timeout, opts.Identity.UA(), opts.Identity.CookieFile, opts.BypassCloudflare)

	return client
}

type identityTransport struct {
	base    http.RoundTripper
	ua      string
	cookie  string
	headers map[string]string
	log     Logger
}

func (rt identityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	req.Header.Set("User-Agent", rt.ua)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	for k, v := range rt.headers {
		req.Header.Set(k, v)
	}
	if rt.cookie != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", rt.cookie)
	}

	rt.log.Debugf("HTTP %s %s\n", req.Method, req.URL.String())

	return rt.base.RoundTrip(req)
}

// HTTPFetcher is the default fetch mode.
type HTTPFetcher struct {
	client *http.Client
	retry  RetryOptions
}

func NewHTTPFetcher(client *http.Client, ro RetryOptions) *HTTPFetcher {
	return &HTTPFetcher{client: client, retry: ro}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return withRetry(ctx, f.retry, func(ctx context.Context) ([]byte, error) {
		return f.once(ctx, url)
	})
}

func (f *HTTPFetcher) once(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, transportError(url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, transportError(url, err)
	}

	if err := checkResponse(url, resp.StatusCode, resp.Header.Get("Cf-Mitigated"), body); err != nil {
		return nil, err
	}

	return body, nil
}
