// Package fetch retrieves raw pages from the source site. Three modes share
// one Identity: a plain HTTP client with WAF evasion, a headless browser and
// a shelled-out curl binary.
package fetch

import (
	"bufio"
	"context"
	"os"
	"strings"
	"time"

	"github.com/brogergvhs/novelpipe/internal/retry"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Identity is what the source site sees of us.
type Identity struct {
	UserAgent  string
	Cookie     string
	CookieFile string
	Headers    map[string]string
}

func (id Identity) UA() string {
	if id.UserAgent != "" {
		return id.UserAgent
	}
	return DefaultUserAgent
}

// CookieHeader joins the inline cookie with the first non-empty line of CookieFile.
func (id Identity) CookieHeader() string {
	s := strings.TrimSpace(id.Cookie)
	if id.CookieFile == "" {
		return s
	}

	b, err := os.ReadFile(id.CookieFile)
	if err != nil {
		return s
	}

	sc := bufio.NewScanner(strings.NewReader(string(b)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if s == "" {
			return line
		}
		return s + "; " + line
	}

	return s
}

const (
	DefaultRetries    = 3
	DefaultRetryDelay = 5 * time.Second
)

// RetryOptions configures transient-failure handling for every fetch mode.
type RetryOptions struct {
	Retries int
	Delay   time.Duration
	Sleep   func(ctx context.Context, d time.Duration) error
	Log     Logger
}

func (o RetryOptions) policy() retry.Policy {
	retries := o.Retries
	if retries < 0 {
		retries = 0
	}
	log := o.Log
	if log == nil {
		log = nopLogger{}
	}

	return retry.Policy{
		MaxAttempts: retries + 1,
		Backoff:     retry.Fixed(o.Delay),
		Retryable:   Retryable,
		Sleep:       o.Sleep,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Debugf("fetch attempt %d failed (%v), retrying in %s\n", attempt, err, wait)
		},
	}
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{Retries: DefaultRetries, Delay: DefaultRetryDelay}
}

// withRetry runs one fetch attempt under the retry policy.
func withRetry(ctx context.Context, o RetryOptions, once func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	var body []byte
	err := o.policy().Do(ctx, func(ctx context.Context) error {
		b, err := once(ctx)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
