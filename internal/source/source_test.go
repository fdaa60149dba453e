package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/novelpipe/internal/fetch"
	"github.com/brogergvhs/novelpipe/internal/novel"
	"github.com/brogergvhs/novelpipe/internal/objstore"
	"github.com/brogergvhs/novelpipe/internal/store"
	"github.com/brogergvhs/novelpipe/internal/workspace"
)

var longParagraph = strings.Repeat("The rain fell on the iron roofs of the capital all night long. ", 4)

type site struct {
	*httptest.Server

	mu      sync.Mutex
	hits    map[string]int
	blocked map[string]bool
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{hits: map[string]int{}, blocked: map[string]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `<html><body>
<div class="novel-item" data-id="1003"><h3><a href="/novel/sky-garden">Sky Garden</a></h3></div>
</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>
<div class="novel-item" data-id="1001">
  <h3><a href="/novel/the-iron-saint">The Iron Saint</a></h3>
  <span class="author">Kim Hana</span>
</div>
<div class="novel-item premium" data-id="1002">
  <h3><a href="/payment/novel/gold-road">Gold Road</a></h3>
</div>
<ul class="pagination"><li class="next"><a href="/list?page=2">Next</a></li></ul>
</body></html>`)
	})
	mux.HandleFunc("/novel/the-iron-saint", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<div class="novel-info">
  <h1>The Iron Saint</h1>
  <div class="author">Author: Kim Hana</div>
  <div class="status">Status: Ongoing</div>
  <div class="genres"><a>Fantasy</a><a>Action</a></div>
</div>
<div class="summary"><div class="content"><p>A saint made of iron.</p></div></div>
<div class="novel-cover"><img src="/covers/iron.jpg"></div>
<ul class="chapter-list">
  <li><a href="/c/1">Chapter 1 - Dawn</a></li>
  <li><a href="/c/2">Chapter 2 - Noon</a></li>
  <li><a href="/c/3">Chapter 3 - Dusk</a></li>
  <li><a href="/payment/c/4">Chapter 4 - Night</a></li>
</ul>
</body></html>`)
	})
	mux.HandleFunc("/covers/iron.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("\xff\xd8\xff\xe0fake-jpeg"))
	})
	mux.HandleFunc("/c/", func(w http.ResponseWriter, r *http.Request) {
		if s.isBlocked(r.URL.Path) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		n := strings.TrimPrefix(r.URL.Path, "/c/")
		extra := ""
		if n == "2" {
			extra = `<script>track()</script><div class="ad-banner">Buy coins now</div>`
		}
		fmt.Fprintf(w, `<html><body><h1 class="chapter-title">Chapter %s</h1>
<div id="chapter-content">%s<p>%s</p><p>Chapter %s ends here.</p></div>
</body></html>`, n, extra, longParagraph, n)
	})

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *site) isBlocked(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked[path]
}

func (s *site) block(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[path] = true
}

func (s *site) hit(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func noSleep(context.Context, time.Duration) error { return nil }

func newScraper(t *testing.T, srv *site, o Options) (*Scraper, *workspace.Workspace) {
	t.Helper()
	f := fetch.NewHTTPFetcher(
		fetch.NewClient(fetch.ClientOptions{Timeout: 5 * time.Second}),
		fetch.RetryOptions{Retries: fetch.DefaultRetries, Delay: time.Millisecond, Sleep: noSleep},
	)
	if o.Images == nil {
		o.Images = f
	}
	o.Sleep = noSleep
	ws := workspace.New(t.TempDir())
	return New(f, ws, o), ws
}

func TestDiscover_FollowsPagesAndDropsPremium(t *testing.T) {
	srv := newSite(t)
	s, _ := newScraper(t, srv, Options{})

	lf, err := s.Discover(context.Background(), srv.URL+"/list", 1)
	require.NoError(t, err)
	require.Len(t, lf.Novels, 1)
	assert.Equal(t, "The Iron Saint", lf.Novels[0].Title)
	assert.Equal(t, 1, lf.Premium)

	lf, err = s.Discover(context.Background(), srv.URL+"/list", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, lf.Pages)
	require.Len(t, lf.Novels, 2)
	assert.Equal(t, "Sky Garden", lf.Novels[1].Title)
}

func TestScrape_EndToEnd(t *testing.T) {
	ctx := context.Background()
	srv := newSite(t)

	lf, err := func() (*workspace.ListingFile, error) {
		s, _ := newScraper(t, srv, Options{})
		return s.Discover(ctx, srv.URL+"/list", 1)
	}()
	require.NoError(t, err)
	require.Len(t, lf.Novels, 1)

	bucket := objstore.NewFSBucket(t.TempDir(), "https://cdn.example")
	s, ws := newScraper(t, srv, Options{Bucket: bucket})

	var results []ChapterResult
	s.o.OnChapter = func(r ChapterResult) { results = append(results, r) }

	raw, sum, err := s.Scrape(ctx, Job{URL: lf.Novels[0].URL})
	require.NoError(t, err)

	assert.Equal(t, "the-iron-saint", sum.Slug)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Premium)
	assert.Equal(t, 3, sum.Succeeded)
	assert.Empty(t, sum.Failed)
	assert.Len(t, results, 3)
	assert.Zero(t, srv.hit("/payment/c/4"))

	require.Len(t, raw.Chapters, 3)
	for i, ch := range raw.Chapters {
		assert.Equal(t, i+1, ch.Number)
		assert.False(t, ch.Suspect)
		assert.Positive(t, ch.WordCount)
	}
	assert.Equal(t, "Chapter 2 - Noon", raw.Chapters[1].Title)
	assert.NotContains(t, raw.Chapters[1].Content, "<script")
	assert.NotContains(t, raw.Chapters[1].Content, "track()")
	assert.NotContains(t, raw.Chapters[1].Content, "Buy coins")
	assert.Contains(t, raw.Chapters[1].Content, "<p>Chapter 2 ends here.</p>")

	assert.Equal(t, "https://cdn.example/covers/the-iron-saint.jpg", raw.Cover)
	cover, err := bucket.Get(ctx, objstore.CoverKey("the-iron-saint", ".jpg"))
	require.NoError(t, err)
	assert.Equal(t, "\xff\xd8\xff\xe0fake-jpeg", string(cover))

	staged, err := bucket.Get(ctx, objstore.RawChapterKey("the-iron-saint", 2))
	require.NoError(t, err)
	assert.Equal(t, raw.Chapters[1].Content, string(staged))
	_, err = bucket.Get(ctx, objstore.RawNovelKey("the-iron-saint"))
	require.NoError(t, err)

	onDisk, err := ws.LoadRaw("the-iron-saint")
	require.NoError(t, err)
	assert.Len(t, onDisk.Chapters, 3)

	st, err := store.Open("sqlite:file:scrape_e2e?mode=memory&cache=shared", store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.AutoMigrate(ctx))

	rec := store.FromDocuments(onDisk, nil)
	first, err := st.ImportNovel(ctx, rec, store.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)

	second, err := st.ImportNovel(ctx, rec, store.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)

	var novels, chapters int64
	require.NoError(t, st.DB().Model(&store.Novel{}).Count(&novels).Error)
	require.NoError(t, st.DB().Model(&store.Chapter{}).Count(&chapters).Error)
	assert.Equal(t, int64(1), novels)
	assert.Equal(t, int64(3), chapters)
}

func TestScrape_ResumesAndSkipsScrapedChapters(t *testing.T) {
	ctx := context.Background()
	srv := newSite(t)
	s, _ := newScraper(t, srv, Options{})

	_, sum, err := s.Scrape(ctx, Job{URL: srv.URL + "/novel/the-iron-saint", Only: map[int]bool{1: true}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 0, srv.hit("/c/2"))

	raw, sum, err := s.Scrape(ctx, Job{URL: srv.URL + "/novel/the-iron-saint"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, srv.hit("/c/1"))
	assert.Len(t, raw.Chapters, 3)
}

func TestScrape_BlockedStopsRun(t *testing.T) {
	ctx := context.Background()
	srv := newSite(t)
	srv.block("/c/2")
	s, ws := newScraper(t, srv, Options{})

	_, sum, err := s.Scrape(ctx, Job{URL: srv.URL + "/novel/the-iron-saint", Slug: "iron"})
	require.ErrorIs(t, err, fetch.ErrBlocked)
	assert.True(t, Terminal(err))

	assert.Equal(t, 1, sum.Succeeded)
	require.Len(t, sum.Failed, 1)
	assert.Equal(t, 2, sum.Failed[0].Number)
	assert.Equal(t, 1, srv.hit("/c/2"))
	assert.Zero(t, srv.hit("/c/3"))

	raw, err := ws.LoadRaw("iron")
	require.NoError(t, err)
	assert.Len(t, raw.Chapters, 1)
}

type pages map[string]string

func (p pages) Fetch(_ context.Context, url string) ([]byte, error) {
	body, ok := p[url]
	if !ok {
		return nil, &fetch.Error{Kind: fetch.KindHTTP, URL: url, Status: http.StatusNotFound}
	}
	return []byte(body), nil
}

func TestScrape_MissingBodyAndSuspectChapters(t *testing.T) {
	f := pages{
		"https://n.example/novel": `<h1>Short Novel</h1><ul class="chapter-list">
<a href="/c/1">Chapter 1</a><a href="/c/2">Chapter 2</a><a href="/c/3">Chapter 3</a></ul>`,
		"https://n.example/c/1": `<div id="chapter-content"><p>Too short.</p></div>`,
		"https://n.example/c/2": `<div class="nothing">no body</div>`,
	}
	var sleeps int
	s := New(f, workspace.New(t.TempDir()), Options{Sleep: func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}})

	raw, sum, err := s.Scrape(context.Background(), Job{URL: "https://n.example/novel"})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, []int{1}, sum.Suspect)
	require.Len(t, sum.Failed, 2)
	assert.ErrorIs(t, sum.Failed[0].Err, ErrNoContent)
	assert.Equal(t, 3, sum.Failed[1].Number)
	require.Len(t, raw.Chapters, 1)
	assert.True(t, raw.Chapters[0].Suspect)
	assert.Equal(t, 3, sleeps)
}

func TestIndex_NoNovel(t *testing.T) {
	s := New(pages{"https://n.example/x": `<div></div>`}, workspace.New(t.TempDir()), Options{Delay: -1})
	_, _, err := s.Index(context.Background(), "https://n.example/x")
	assert.ErrorIs(t, err, ErrNoNovel)
}

func TestStageTranslated(t *testing.T) {
	ctx := context.Background()
	b := objstore.NewFSBucket(t.TempDir(), "")

	doc := &novel.TranslatedNovel{Slug: "iron", Chapters: []novel.TranslatedChapter{
		{Number: 1, Content: "<p>one</p>"},
		{Number: 2, Content: "<p>two</p>"},
	}}
	require.NoError(t, StageTranslated(ctx, b, doc))

	got, err := b.Get(ctx, objstore.TranslatedChapterKey("iron", 2))
	require.NoError(t, err)
	assert.Equal(t, "<p>two</p>", string(got))
	_, err = b.Get(ctx, objstore.TranslatedNovelKey("iron"))
	require.NoError(t, err)
}
