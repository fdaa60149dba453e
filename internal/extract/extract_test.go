package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/novelpipe/internal/novel"
)

const listingHTML = `<html><body>
<div class="list">
  <div class="novel-item" data-id="1001">
    <h3><a href="/novel/the-iron-saint">The Iron Saint</a></h3>
    <img src="/covers/iron-saint-300x400.jpg" srcset="/covers/iron-saint-150x200.jpg 150w, /covers/iron-saint-300x400.jpg 300w">
    <span class="author">Kim Hana</span>
    <span class="status">Completed</span>
  </div>
  <div class="novel-item" data-id="1002">
    <h3><a href="/payment/novel/gold-road">Gold Road</a></h3>
  </div>
</div>
<ul class="pagination"><li class="next"><a href="?page=2">Next</a></li></ul>
</body></html>`

func TestParseListing_ExcludesPremium(t *testing.T) {
	page, err := ParseListing([]byte(listingHTML), "https://novels.example/list", Profile{})
	require.NoError(t, err)

	require.Len(t, page.Novels, 1)
	assert.Equal(t, 1, page.Premium)

	n := page.Novels[0]
	assert.Equal(t, "1001", n.ExternalID)
	assert.Equal(t, "The Iron Saint", n.Title)
	assert.Equal(t, "https://novels.example/novel/the-iron-saint", n.URL)
	assert.Equal(t, "https://novels.example/covers/iron-saint-300x400.jpg", n.CoverURL)
	assert.Equal(t, "Kim Hana", n.Author)
	assert.Equal(t, novel.StatusCompleted, n.Status)
	assert.Equal(t, "https://novels.example/list?page=2", page.NextPage)
}

func TestParseListing_IDFromURLAndEmptyPage(t *testing.T) {
	html := `<div class="book-item"><a href="https://novels.example/n/sky-garden/">Sky Garden</a></div>`
	page, err := ParseListing([]byte(html), "https://novels.example/", Profile{})
	require.NoError(t, err)
	require.Len(t, page.Novels, 1)
	assert.Equal(t, "sky-garden", page.Novels[0].ExternalID)
	assert.Equal(t, "Sky Garden", page.Novels[0].Title)

	page, err = ParseListing([]byte(`<html><body><p>nothing here</p></body></html>`), "https://novels.example/", Profile{})
	require.NoError(t, err)
	assert.Empty(t, page.Novels)
	assert.Empty(t, page.NextPage)
}

func TestParseListing_ProfileOverridesSelectors(t *testing.T) {
	html := `<section><div class="card"><a class="go" href="/b/7">Seven</a></div></section>`
	p := Profile{ListingCards: []string{".card"}, CardLink: []string{"a.go"}}

	page, err := ParseListing([]byte(html), "https://novels.example/", p)
	require.NoError(t, err)
	require.Len(t, page.Novels, 1)
	assert.Equal(t, "7", page.Novels[0].ExternalID)
}

const detailHTML = `<html><head>
<meta property="og:image" content="https://cdn.example/og.jpg">
</head><body>
<div class="novel-info">
  <h1>The Iron Saint</h1>
  <div class="author">Author: Kim Hana</div>
  <div class="status">Status: 연재중</div>
  <div class="genres"><a>Fantasy</a><a>Action</a><a>fantasy</a></div>
</div>
<div class="summary"><div class="content"><p>First line.</p><p>Second line.</p></div></div>
<div class="novel-cover"><img data-src="/covers/iron.jpg" src="/img/placeholder.png"></div>
<ul class="chapter-list">
  <li><a href="/n/iron/1">Chapter 1 - Dawn</a></li>
</ul>
</body></html>`

func TestParseDetail(t *testing.T) {
	n, err := ParseDetail([]byte(detailHTML), "https://novels.example/n/iron", Profile{})
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, "The Iron Saint", n.Title)
	assert.Equal(t, "Kim Hana", n.Author)
	assert.Equal(t, novel.StatusOngoing, n.Status)
	assert.Equal(t, []string{"Fantasy", "Action"}, n.Genres)
	assert.Equal(t, "First line.\n\nSecond line.", n.Synopsis)
	assert.Equal(t, "https://novels.example/covers/iron.jpg", n.CoverURL)
	assert.Equal(t, "iron", n.ExternalID)
}

func TestParseDetail_NoTitle(t *testing.T) {
	n, err := ParseDetail([]byte(`<html><body><div>empty</div></body></html>`), "https://novels.example/x", Profile{})
	require.NoError(t, err)
	assert.Nil(t, n)
}

const indexHTML = `<html><body>
<ul class="chapter-list">
  <li><a href="/n/iron/c/901">Chapter 1 - Dawn</a></li>
  <li><a href="/n/iron/c/902">Chapter 2 - Noon</a></li>
  <li><a href="/n/iron/c/903">Chapter 3 - Dusk</a></li>
</ul>
</body></html>`

func TestParseChapterIndex_PositionalNumbering(t *testing.T) {
	idx, err := ParseChapterIndex([]byte(indexHTML), "https://novels.example/n/iron", Profile{})
	require.NoError(t, err)

	require.Len(t, idx.Chapters, 3)
	for i, c := range idx.Chapters {
		assert.Equal(t, i+1, c.Number)
	}
	assert.Equal(t, "Chapter 2 - Noon", idx.Chapters[1].Title)
	assert.Equal(t, "https://novels.example/n/iron/c/902", idx.Chapters[1].URL)
	assert.True(t, idx.Numbering.OK())
	assert.Equal(t, 3, idx.Numbering.Checked)
}

func TestParseChapterIndex_PremiumKeepsPositions(t *testing.T) {
	html := `<ul class="chapter-list">
<li><a href="/c/1">Chapter 1</a></li>
<li><a href="/c/2?payment=1">Chapter 2</a></li>
<li class="locked"><a href="/c/3">Chapter 3</a></li>
<li><a href="/c/4">Chapter 4</a></li>
<li><a href="/c/4">Chapter 4 (dup link)</a></li>
</ul>`
	idx, err := ParseChapterIndex([]byte(html), "https://novels.example/", Profile{})
	require.NoError(t, err)

	require.Len(t, idx.Chapters, 2)
	assert.Equal(t, 2, idx.Premium)
	assert.Equal(t, 1, idx.Chapters[0].Number)
	assert.Equal(t, 4, idx.Chapters[1].Number)
}

func TestParseChapterIndex_Reverse(t *testing.T) {
	html := `<ul class="chapter-list">
<li><a href="/c/3">Chapter 3</a></li>
<li><a href="/c/2">Chapter 2</a></li>
<li><a href="/c/1">Chapter 1</a></li>
</ul>`

	idx, err := ParseChapterIndex([]byte(html), "https://novels.example/", Profile{})
	require.NoError(t, err)
	assert.False(t, idx.Numbering.OK())
	assert.NotEmpty(t, idx.Numbering.Mismatches)

	idx, err = ParseChapterIndex([]byte(html), "https://novels.example/", Profile{ReverseChapterOrder: true})
	require.NoError(t, err)
	require.Len(t, idx.Chapters, 3)
	assert.Equal(t, "https://novels.example/c/1", idx.Chapters[0].URL)
	assert.True(t, idx.Numbering.OK())
}

func TestValidateNumbering(t *testing.T) {
	n := ValidateNumbering([]parsedNumber{
		{Position: 1, Parsed: 0},
		{Position: 2, Parsed: 1},
		{Position: 3, Parsed: 2},
		{Position: 4, Parsed: 2},
		{Position: 5, Parsed: 6},
	})

	assert.Equal(t, []int{2}, n.Duplicates)
	assert.Equal(t, []Span{{From: 3, To: 5}}, n.Gaps)
	assert.Equal(t, []Mismatch{{Position: 4, Parsed: 2}, {Position: 5, Parsed: 6}}, n.Mismatches)
}

func TestParseChapterNumber(t *testing.T) {
	cases := []struct {
		href, title string
		want        int
		ok          bool
	}{
		{"/c/901", "Chapter 12 - Rain", 12, true},
		{"/c/901", "Ch.7", 7, true},
		{"/c/901", "Episode 3", 3, true},
		{"/c/901", "第15章 归来", 15, true},
		{"/c/901", "23화", 23, true},
		{"/c/901", "004. Beginning", 4, true},
		{"/novel/x/chapter-88", "Read now", 88, true},
		{"/c/901", "Prologue", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseChapterNumber(c.href, c.title)
		assert.Equal(t, c.ok, ok, c.title)
		assert.Equal(t, c.want, got, c.title)
	}
}

func TestParseChapter(t *testing.T) {
	html := `<html><body><h1 class="chapter-title">Chapter 2 - Noon</h1>
<div id="chapter-content"><p>One.</p><script>track()</script><div class="ad-banner">BUY</div><p>Two.</p></div>
</body></html>`

	ch, err := ParseChapter([]byte(html), Profile{})
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, "Chapter 2 - Noon", ch.Title)
	assert.Contains(t, ch.HTML, "<p>One.</p>")
	assert.False(t, ch.Embedded)
}

func TestParseChapter_EmbeddedState(t *testing.T) {
	body := strings.Repeat("<p>The wind moved across the hills and the army waited.</p>", 5)
	html := `<html><body><div id="app"></div>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"chapter":{"title":"x","content":` +
		jsonString(body) + `}}}}</script></body></html>`

	ch, err := ParseChapter([]byte(html), Profile{})
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.True(t, ch.Embedded)
	assert.Equal(t, body, ch.HTML)
}

func TestParseChapter_Empty(t *testing.T) {
	ch, err := ParseChapter([]byte(`<html><body><div id="app"></div></body></html>`), Profile{})
	require.NoError(t, err)
	assert.Nil(t, ch)
}

func TestBestCover(t *testing.T) {
	html := `<div class="cover">
<img src="/c/iron-150x200.jpg" srcset="/c/iron-300x400.jpg 300w, /c/iron-600x800.jpg 600w">
</div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, "https://x.example/c/iron-600x800.jpg", BestCover(doc.Selection, []string{".cover img"}, "https://x.example/"))

	html = `<div class="cover"><img src="/c/iron-150x200.jpg"><img src="/c/iron.jpg"></div>`
	doc, err = goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, "https://x.example/c/iron.jpg", BestCover(doc.Selection, []string{".missing img", ".cover img"}, "https://x.example/"))
}

func TestChainFirstMatchWins(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div><span class="b">B</span><span class="c">C</span></div>`))
	require.NoError(t, err)

	v, ok := TextChain(".a", ".b", ".c").First(doc.Selection)
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	_, ok = TextChain(".x", ".y").First(doc.Selection)
	assert.False(t, ok)
}

func jsonString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
