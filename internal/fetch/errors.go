package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

type Kind int

const (
	KindConnection Kind = iota + 1
	KindBlocked
	KindBotChallenge
	KindTimeout
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindBlocked:
		return "blocked"
	case KindBotChallenge:
		return "bot-challenge"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	}
	return "unknown"
}

var (
	ErrConnection   = errors.New("connection error")
	ErrBlocked      = errors.New("blocked by source (HTTP 403)")
	ErrBotChallenge = errors.New("bot challenge page")
	ErrTimeout      = errors.New("request timed out")
	ErrHTTP         = errors.New("unexpected HTTP status")

	errNotImage = errors.New("response is not an image")
)

// Error is the classified failure of one fetch attempt.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fetch %s: %s", e.URL, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrConnection:
		return e.Kind == KindConnection
	case ErrBlocked:
		return e.Kind == KindBlocked
	case ErrBotChallenge:
		return e.Kind == KindBotChallenge
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrHTTP:
		return e.Kind == KindHTTP
	}
	return false
}

// Retryable reports whether another attempt with the same identity can help.
// Blocks and challenges are terminal for the identity and go to the operator.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !errors.Is(err, ErrBlocked) && !errors.Is(err, ErrBotChallenge) && !errors.Is(err, errNotImage)
}

func transportError(url string, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}
	return &Error{Kind: KindConnection, URL: url, Err: err}
}

// interstitialMarkers identify a challenge page whatever its status.
var interstitialMarkers = []string{
	"<title>just a moment",
	"attention required! | cloudflare",
	"checking your browser",
	"<title>ddos-guard",
}

// widgetMarkers appear on challenge pages but also in scripts Cloudflare
// injects into ordinary pages, so they only count on a non-2xx response.
var widgetMarkers = []string{
	"cf-chl-",
	"challenge-platform",
}

func containsAny(body []byte, markers []string) bool {
	head := body
	if len(head) > 64*1024 {
		head = head[:64*1024]
	}
	lower := strings.ToLower(string(head))
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func looksLikeChallenge(status int, mitigated string, body []byte) bool {
	if strings.EqualFold(strings.TrimSpace(mitigated), "challenge") {
		return true
	}
	if containsAny(body, interstitialMarkers) {
		return true
	}
	switch status {
	case 403, 429, 503:
		return containsAny(body, widgetMarkers)
	}
	return false
}

// checkResponse classifies a completed response. mitigated is the
// cf-mitigated header value, empty when the transport cannot see it.
func checkResponse(url string, status int, mitigated string, body []byte) error {
	if looksLikeChallenge(status, mitigated, body) {
		return &Error{Kind: KindBotChallenge, URL: url, Status: status}
	}
	switch {
	case status == 403:
		return &Error{Kind: KindBlocked, URL: url, Status: status}
	case status < 200 || status >= 300:
		return &Error{Kind: KindHTTP, URL: url, Status: status}
	}
	return nil
}
