// Package source drives the source site: listing discovery, chapter index
// and chapter bodies, each fetched, extracted and sanitized one at a time.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brogergvhs/novelpipe/internal/extract"
	"github.com/brogergvhs/novelpipe/internal/fetch"
	"github.com/brogergvhs/novelpipe/internal/novel"
	"github.com/brogergvhs/novelpipe/internal/objstore"
	"github.com/brogergvhs/novelpipe/internal/retry"
	"github.com/brogergvhs/novelpipe/internal/sanitize"
	"github.com/brogergvhs/novelpipe/internal/workspace"
)

// DefaultDelay is slept between requests to the source site.
const DefaultDelay = 1500 * time.Millisecond

var (
	ErrNoNovel   = errors.New("page has no novel title")
	ErrNoContent = errors.New("chapter page has no body")
)

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}

// ImageFetcher downloads cover art.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url, referer string) (fetch.Asset, error)
}

type Options struct {
	Profile  extract.Profile
	Sanitize sanitize.Options
	// Delay between source requests; negative disables it.
	Delay time.Duration

	// Bucket stages raw artifacts and covers when set.
	Bucket objstore.Bucket
	Images ImageFetcher

	Sleep     func(ctx context.Context, d time.Duration) error
	Log       Logger
	OnChapter func(ChapterResult)
}

type Scraper struct {
	f  fetch.Fetcher
	ws *workspace.Workspace
	o  Options

	requests int
}

func New(f fetch.Fetcher, ws *workspace.Workspace, o Options) *Scraper {
	o.Profile = o.Profile.WithDefaults()
	if o.Delay == 0 {
		o.Delay = DefaultDelay
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.Sleep == nil {
		o.Sleep = retry.SleepContext
	}
	if o.Log == nil {
		o.Log = nopLogger{}
	}
	return &Scraper{f: f, ws: ws, o: o}
}

// get paces requests so the source never sees back-to-back hits.
func (s *Scraper) get(ctx context.Context, url string) ([]byte, error) {
	if s.requests > 0 && s.o.Delay > 0 {
		if err := s.o.Sleep(ctx, s.o.Delay); err != nil {
			return nil, err
		}
	}
	s.requests++

	s.o.Log.Debugf("GET %s\n", url)
	return s.f.Fetch(ctx, url)
}

// Terminal reports fetch errors that end the run for the current identity.
func Terminal(err error) bool {
	return errors.Is(err, fetch.ErrBlocked) || errors.Is(err, fetch.ErrBotChallenge) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Discover walks up to pages catalog pages starting at listingURL, following
// the next-page link. Premium cards are counted and dropped.
func (s *Scraper) Discover(ctx context.Context, listingURL string, pages int) (*workspace.ListingFile, error) {
	if pages <= 0 {
		pages = 1
	}

	lf := &workspace.ListingFile{Source: listingURL}
	seen := map[string]bool{}
	visited := map[string]bool{}

	next := listingURL
	for next != "" && lf.Pages < pages && !visited[next] {
		visited[next] = true

		body, err := s.get(ctx, next)
		if err != nil {
			if lf.Pages == 0 || Terminal(err) {
				return lf, fmt.Errorf("listing page %s: %w", next, err)
			}
			s.o.Log.Warnf("listing page %s: %v\n", next, err)
			break
		}

		page, err := extract.ParseListing(body, next, s.o.Profile)
		if err != nil {
			return lf, fmt.Errorf("parse listing %s: %w", next, err)
		}
		lf.Pages++
		lf.Premium += page.Premium

		for _, n := range page.Novels {
			if seen[n.URL] {
				continue
			}
			seen[n.URL] = true
			lf.Novels = append(lf.Novels, n)
		}
		s.o.Log.Debugf("page %d: %d novels, %d premium\n", lf.Pages, len(page.Novels), page.Premium)

		if len(page.Novels) == 0 && page.Premium == 0 {
			break
		}
		next = page.NextPage
	}

	return lf, nil
}

// Index fetches a novel page and extracts its metadata and chapter list.
func (s *Scraper) Index(ctx context.Context, novelURL string) (*novel.SourceListing, extract.ChapterIndex, error) {
	body, err := s.get(ctx, novelURL)
	if err != nil {
		return nil, extract.ChapterIndex{}, fmt.Errorf("novel page: %w", err)
	}

	listing, err := extract.ParseDetail(body, novelURL, s.o.Profile)
	if err != nil {
		return nil, extract.ChapterIndex{}, fmt.Errorf("parse novel page: %w", err)
	}
	if listing == nil {
		return nil, extract.ChapterIndex{}, fmt.Errorf("%s: %w", novelURL, ErrNoNovel)
	}

	idx, err := extract.ParseChapterIndex(body, novelURL, s.o.Profile)
	if err != nil {
		return nil, extract.ChapterIndex{}, fmt.Errorf("parse chapter index: %w", err)
	}

	s.reportNumbering(idx.Numbering)
	return listing, idx, nil
}

func (s *Scraper) reportNumbering(n extract.Numbering) {
	if n.OK() {
		return
	}
	for _, g := range n.Gaps {
		if g.From == g.To {
			s.o.Log.Warnf("chapter numbering: link text skips chapter %d\n", g.From)
		} else {
			s.o.Log.Warnf("chapter numbering: link text skips chapters %d-%d\n", g.From, g.To)
		}
	}
	if len(n.Duplicates) > 0 {
		s.o.Log.Warnf("chapter numbering: duplicate numbers in link text: %v\n", n.Duplicates)
	}
	for _, m := range n.Mismatches {
		s.o.Log.Warnf("chapter numbering: position %d is labelled %d\n", m.Position, m.Parsed)
	}
}
