package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/brogergvhs/novelpipe/internal/extract"
	"github.com/brogergvhs/novelpipe/internal/fetch"
	"github.com/brogergvhs/novelpipe/internal/novel"
	"github.com/brogergvhs/novelpipe/internal/objstore"
	"github.com/brogergvhs/novelpipe/internal/sanitize"
	"github.com/brogergvhs/novelpipe/internal/slug"
	"github.com/brogergvhs/novelpipe/internal/util"
)

// Job is one novel to scrape.
type Job struct {
	URL string
	// Slug overrides the slug derived from the scraped title.
	Slug string
	// Only restricts the run to these chapter numbers when non-empty.
	Only map[int]bool
}

type ChapterResult struct {
	Number   int
	Title    string
	Skipped  bool
	Suspect  bool
	Err      error
	Duration time.Duration
}

type ChapterError struct {
	Number int
	Err    error
}

type Summary struct {
	Slug      string
	Total     int
	Premium   int
	Succeeded int
	Skipped   int
	Suspect   []int
	Failed    []ChapterError
}

// Scrape fetches the novel page and every chapter the raw document does not
// hold yet. The raw document is rewritten after every chapter, so an
// interrupted scrape resumes at the first missing chapter. A blocked or
// challenged fetch stops the run; any other chapter failure is recorded and
// the next chapter is tried.
func (s *Scraper) Scrape(ctx context.Context, job Job) (*novel.RawNovel, Summary, error) {
	listing, idx, err := s.Index(ctx, job.URL)
	if err != nil {
		return nil, Summary{}, err
	}

	sl := job.Slug
	if sl == "" {
		sl = slug.Make(listing.Title)
	}
	sum := Summary{Slug: sl, Total: len(idx.Chapters), Premium: idx.Premium}

	raw, err := s.ws.LoadRaw(sl)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, sum, err
		}
		raw = &novel.RawNovel{Slug: sl}
	}
	raw.Listing = *listing

	if idx.Premium > 0 {
		s.o.Log.Infof("%s: %d premium chapters excluded\n", sl, idx.Premium)
	}

	if err := s.stageCover(ctx, raw); err != nil {
		if Terminal(err) {
			return raw, sum, err
		}
		s.o.Log.Warnf("%s: cover: %v\n", sl, err)
	}
	if err := s.ws.SaveRaw(raw); err != nil {
		return raw, sum, fmt.Errorf("save raw document: %w", err)
	}

	for _, ref := range idx.Chapters {
		if len(job.Only) > 0 && !job.Only[ref.Number] {
			continue
		}

		if have, ok := raw.Chapter(ref.Number); ok && strings.TrimSpace(have.Content) != "" {
			sum.Skipped++
			s.report(ChapterResult{Number: ref.Number, Title: ref.Title, Skipped: true})
			continue
		}

		began := time.Now()
		ch, err := s.chapter(ctx, ref)
		res := ChapterResult{Number: ref.Number, Title: ref.Title, Err: err, Duration: time.Since(began)}

		if err != nil {
			sum.Failed = append(sum.Failed, ChapterError{Number: ref.Number, Err: err})
			s.report(res)
			if Terminal(err) {
				return raw, sum, err
			}
			continue
		}

		raw.Put(ch)
		if err := s.ws.SaveRaw(raw); err != nil {
			return raw, sum, fmt.Errorf("save raw document: %w", err)
		}
		s.stageChapter(ctx, sl, ch)

		sum.Succeeded++
		if ch.Suspect {
			sum.Suspect = append(sum.Suspect, ch.Number)
			s.o.Log.Warnf("%s: chapter %d is suspiciously short (%d words), kept anyway\n", sl, ch.Number, ch.WordCount)
		}
		res.Title, res.Suspect = ch.Title, ch.Suspect
		s.report(res)
	}

	s.stageDocument(ctx, raw)
	return raw, sum, nil
}

func (s *Scraper) report(r ChapterResult) {
	if s.o.OnChapter != nil {
		s.o.OnChapter(r)
	}
}

func (s *Scraper) chapter(ctx context.Context, ref novel.ChapterRef) (novel.RawChapter, error) {
	body, err := s.get(ctx, ref.URL)
	if err != nil {
		return novel.RawChapter{}, err
	}

	page, err := extract.ParseChapter(body, s.o.Profile)
	if err != nil {
		return novel.RawChapter{}, fmt.Errorf("parse chapter %d: %w", ref.Number, err)
	}
	if page == nil {
		return novel.RawChapter{}, fmt.Errorf("chapter %d: %w", ref.Number, ErrNoContent)
	}
	if page.Embedded {
		s.o.Log.Debugf("chapter %d: body taken from embedded page state\n", ref.Number)
	}

	res, err := sanitize.Clean(page.HTML, s.o.Sanitize)
	if err != nil {
		return novel.RawChapter{}, fmt.Errorf("sanitize chapter %d: %w", ref.Number, err)
	}

	if ref.Title == "" {
		ref.Title = page.Title
	}
	return novel.RawChapter{
		ChapterRef: ref,
		Content:    res.HTML,
		WordCount:  res.WordCount,
		Suspect:    res.Suspect,
		ScrapedAt:  time.Now().UTC(),
	}, nil
}

// stageCover uploads the cover once per slug and points raw.Cover at the
// stored copy.
func (s *Scraper) stageCover(ctx context.Context, raw *novel.RawNovel) error {
	if s.o.Bucket == nil || s.o.Images == nil || raw.Listing.CoverURL == "" || raw.Cover != "" {
		return nil
	}

	asset, err := s.o.Images.FetchImage(ctx, raw.Listing.CoverURL, raw.Listing.URL)
	if err != nil {
		return err
	}

	key := objstore.CoverKey(raw.Slug, fetch.ImageExt(asset.ContentType))
	if err := s.o.Bucket.Put(ctx, key, asset.Data, asset.ContentType); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	raw.Cover = s.o.Bucket.URL(key)
	s.o.Log.Debugf("%s: cover stored at %s (%s)\n", raw.Slug, raw.Cover, util.HumanBytes(int64(len(asset.Data))))
	return nil
}

func (s *Scraper) stageChapter(ctx context.Context, sl string, ch novel.RawChapter) {
	if s.o.Bucket == nil {
		return
	}
	key := objstore.RawChapterKey(sl, ch.Number)
	if err := s.o.Bucket.Put(ctx, key, []byte(ch.Content), objstore.ContentTypeHTML); err != nil {
		s.o.Log.Warnf("%s: stage %s: %v\n", sl, key, err)
	}
}

func (s *Scraper) stageDocument(ctx context.Context, raw *novel.RawNovel) {
	if s.o.Bucket == nil {
		return
	}
	if err := StageJSON(ctx, s.o.Bucket, objstore.RawNovelKey(raw.Slug), raw); err != nil {
		s.o.Log.Warnf("%s: %v\n", raw.Slug, err)
	}
}

// StageJSON writes v to the bucket under key.
func StageJSON(ctx context.Context, b objstore.Bucket, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := b.Put(ctx, key, data, objstore.ContentTypeJSON); err != nil {
		return fmt.Errorf("stage %s: %w", key, err)
	}
	return nil
}

// StageTranslated stages the translated document and each chapter body.
func StageTranslated(ctx context.Context, b objstore.Bucket, out *novel.TranslatedNovel) error {
	for _, ch := range out.Chapters {
		key := objstore.TranslatedChapterKey(out.Slug, ch.Number)
		if err := b.Put(ctx, key, []byte(ch.Content), objstore.ContentTypeHTML); err != nil {
			return fmt.Errorf("stage %s: %w", key, err)
		}
	}
	return StageJSON(ctx, b, objstore.TranslatedNovelKey(out.Slug), out)
}
