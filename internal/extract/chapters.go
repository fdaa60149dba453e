package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/novelpipe/internal/novel"
)

// ChapterIndex is the ordered, premium-free chapter list of one novel.
type ChapterIndex struct {
	Chapters  []novel.ChapterRef
	Premium   int
	Numbering Numbering
}

type indexEntry struct {
	ref     novel.ChapterRef
	premium bool
	parsed  int
	hasNum  bool
}

// ParseChapterIndex walks the chapter anchors in document order. A chapter's
// number is its 1-based position among all matched anchors, counted before
// premium entries are dropped, so free chapters keep their site numbering
// when locked ones sit between them. Numbers found in the link text are only
// used to validate that ordering.
func ParseChapterIndex(body []byte, pageURL string, p Profile) (ChapterIndex, error) {
	p = p.WithDefaults()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ChapterIndex{}, err
	}

	var entries []indexEntry
	seen := map[string]bool{}

	findFirst(doc.Selection, p.ChapterLinks).Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(attrOr(a, "href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}

		u := resolveURL(pageURL, href)
		if seen[u] {
			return
		}
		seen[u] = true

		title := collapseSpace(a.Text())
		if t := strings.TrimSpace(attrOr(a, "title", "")); title == "" && t != "" {
			title = t
		}

		cls, _ := a.Attr("class")
		parent, _ := a.Parent().Attr("class")
		n, ok := ParseChapterNumber(href, title)

		entries = append(entries, indexEntry{
			ref:     novel.ChapterRef{Title: title, URL: u},
			premium: p.IsPremium(href, cls, parent),
			parsed:  n,
			hasNum:  ok,
		})
	})

	if p.ReverseChapterOrder {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}

	var out ChapterIndex
	var parsed []parsedNumber
	for i := range entries {
		e := &entries[i]
		e.ref.Number = i + 1
		if e.ref.Title == "" {
			e.ref.Title = fmt.Sprintf("Chapter %d", e.ref.Number)
		}
		if e.hasNum {
			parsed = append(parsed, parsedNumber{Position: e.ref.Number, Parsed: e.parsed})
		}
		if e.premium {
			out.Premium++
			continue
		}
		out.Chapters = append(out.Chapters, e.ref)
	}

	out.Numbering = ValidateNumbering(parsed)
	return out, nil
}

// Chapter is the extracted body of one chapter page.
type Chapter struct {
	Title string
	HTML  string
	// Embedded is set when the body came from serialized page state.
	Embedded bool
}

// ParseChapter returns nil when neither a body selector nor the embedded
// page state yields any content.
func ParseChapter(body []byte, p Profile) (*Chapter, error) {
	p = p.WithDefaults()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	title := fieldChain(p.ChapterTitle).Value(doc.Selection)

	if h, ok := HTMLChain(p.ChapterBody...).First(doc.Selection); ok {
		return &Chapter{Title: title, HTML: h}, nil
	}

	if h, ok := EmbeddedHTML(doc, body); ok {
		return &Chapter{Title: title, HTML: h, Embedded: true}, nil
	}

	return nil, nil
}
