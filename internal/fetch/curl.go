package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// statusMarker separates the body from the status code written by -w.
const statusMarker = "\n__NOVELPIPE_STATUS__:"

// CurlFetcher shells out to curl (or a drop-in such as curl-impersonate) whose
// TLS and HTTP/2 fingerprint matches a real browser more closely than Go's.
type CurlFetcher struct {
	Binary   string
	Identity Identity
	Timeout  time.Duration
	retry    RetryOptions
}

func NewCurlFetcher(binary string, id Identity, timeout time.Duration, ro RetryOptions) *CurlFetcher {
	if binary == "" {
		binary = "curl"
	}
	return &CurlFetcher{Binary: binary, Identity: id, Timeout: timeout, retry: ro}
}

// CheckBinary reports whether the configured binary is on PATH.
func (f *CurlFetcher) CheckBinary() error {
	if _, err := exec.LookPath(f.Binary); err != nil {
		return fmt.Errorf("missing dependency %q: %w", f.Binary, err)
	}
	return nil
}

func (f *CurlFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return withRetry(ctx, f.retry, func(ctx context.Context) ([]byte, error) {
		return f.once(ctx, url)
	})
}

func (f *CurlFetcher) args(url string) []string {
	args := []string{
		"--silent", "--show-error", "--location", "--compressed",
		"--user-agent", f.Identity.UA(),
		"--header", "Accept: text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"--header", "Accept-Language: en-US,en;q=0.9",
		"--write-out", statusMarker + "%{http_code}",
	}
	if f.Timeout > 0 {
		args = append(args, "--max-time", strconv.Itoa(int(f.Timeout.Seconds())))
	}
	for k, v := range f.Identity.Headers {
		args = append(args, "--header", k+": "+v)
	}
	if c := f.Identity.CookieHeader(); c != "" {
		args = append(args, "--cookie", c)
	}
	return append(args, url)
}

func (f *CurlFetcher) once(ctx context.Context, url string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.Binary, f.args(url)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, curlError(url, err, stderr.String())
	}

	body, status, err := splitStatus(stdout.Bytes())
	if err != nil {
		return nil, &Error{Kind: KindConnection, URL: url, Err: err}
	}

	if err := checkResponse(url, status, "", body); err != nil {
		return nil, err
	}
	return body, nil
}

func splitStatus(out []byte) ([]byte, int, error) {
	i := bytes.LastIndex(out, []byte(statusMarker))
	if i < 0 {
		return nil, 0, errors.New("curl output has no status marker")
	}

	code, err := strconv.Atoi(string(bytes.TrimSpace(out[i+len(statusMarker):])))
	if err != nil {
		return nil, 0, fmt.Errorf("parse curl status: %w", err)
	}

	return out[:i], code, nil
}

// curl exit codes: 28 timeout, 5/6/7 resolve/connect failures.
func curlError(url string, err error, stderr string) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		wrapped := fmt.Errorf("curl exit %d: %s", ee.ExitCode(), bytes.TrimSpace([]byte(stderr)))
		if ee.ExitCode() == 28 {
			return &Error{Kind: KindTimeout, URL: url, Err: wrapped}
		}
		return &Error{Kind: KindConnection, URL: url, Err: wrapped}
	}
	return &Error{Kind: KindConnection, URL: url, Err: err}
}
