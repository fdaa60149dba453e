package extract

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/novelpipe/internal/novel"
)

// ListingPage is what one catalog page yields.
type ListingPage struct {
	Novels   []novel.SourceListing
	Premium  int
	NextPage string
}

// ParseListing extracts the novel cards of a catalog page. Cards whose link
// or markup carries a payment marker are dropped and only counted.
func ParseListing(body []byte, pageURL string, p Profile) (ListingPage, error) {
	p = p.WithDefaults()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ListingPage{}, err
	}

	var out ListingPage
	seen := map[string]bool{}

	link := AttrChain([]string{"href"}, p.CardLink...)
	title := append(fieldChain(p.CardTitle), Text("a[href]"))
	author := fieldChain(p.Author)
	status := fieldChain(p.Status)

	findFirst(doc.Selection, p.ListingCards).Each(func(_ int, card *goquery.Selection) {
		href, ok := link.First(card)
		if !ok {
			return
		}
		u := resolveURL(pageURL, href)
		if seen[u] {
			return
		}
		seen[u] = true

		cls, _ := card.Attr("class")
		if p.IsPremium(href, cls, attrOr(card, "data-premium", "")) {
			out.Premium++
			return
		}

		t, ok := title.First(card)
		if !ok {
			return
		}

		out.Novels = append(out.Novels, novel.SourceListing{
			ExternalID: externalID(card, p.CardIDAttrs, u),
			Title:      t,
			URL:        u,
			CoverURL:   BestCover(card, append(append([]string{}, p.Cover...), "img"), pageURL),
			Author:     author.Value(card),
			Genres:     texts(card, p.Genres),
			Status:     novel.ParseStatus(status.Value(card)),
		})
	})

	if next, ok := AttrChain([]string{"href"}, p.NextPage...).First(doc.Selection); ok {
		if n := resolveURL(pageURL, next); n != pageURL {
			out.NextPage = n
		}
	}

	return out, nil
}

// ParseDetail extracts the novel's own metadata from its detail page.
// It returns nil when no title can be found.
func ParseDetail(body []byte, pageURL string, p Profile) (*novel.SourceListing, error) {
	p = p.WithDefaults()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	root := doc.Selection

	title, ok := fieldChain(p.Title).First(root)
	if !ok {
		return nil, nil
	}

	return &novel.SourceListing{
		ExternalID: lastSegment(pageURL),
		Title:      title,
		URL:        pageURL,
		CoverURL:   BestCover(root, append(append([]string{}, p.Cover...), "meta[property='og:image']"), pageURL),
		Author:     stripLabel(fieldChain(p.Author).Value(root), "author"),
		Synopsis:   synopsis(root, p.Synopsis),
		Genres:     texts(root, p.Genres),
		Status:     novel.ParseStatus(stripLabel(fieldChain(p.Status).Value(root), "status")),
	}, nil
}

// fieldChain reads meta tags by their content attribute and everything else by text.
func fieldChain(selectors []string) Chain {
	c := make(Chain, 0, len(selectors))
	for _, s := range selectors {
		if strings.HasPrefix(s, "meta") {
			c = append(c, Attr(s, "content"))
			continue
		}
		c = append(c, Text(s))
	}
	return c
}

// synopsis keeps paragraph breaks of the first matching block.
func synopsis(root *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		n := root.Find(s).First()
		if n.Length() == 0 {
			continue
		}
		if strings.HasPrefix(s, "meta") {
			if v := strings.TrimSpace(attrOr(n, "content", "")); v != "" {
				return v
			}
			continue
		}

		var paras []string
		n.Find("p").Each(func(_ int, p *goquery.Selection) {
			if t := collapseSpace(p.Text()); t != "" {
				paras = append(paras, t)
			}
		})
		if len(paras) > 0 {
			return strings.Join(paras, "\n\n")
		}
		if t := collapseSpace(n.Text()); t != "" {
			return t
		}
	}
	return ""
}

// texts collects the distinct texts of every node matched by the first
// selector that matches anything.
func texts(root *goquery.Selection, selectors []string) []string {
	var out []string
	seen := map[string]bool{}
	findFirst(root, selectors).Each(func(_ int, s *goquery.Selection) {
		t := collapseSpace(s.Text())
		if t == "" || seen[strings.ToLower(t)] {
			return
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	})
	return out
}

// stripLabel removes a leading "Author:" style label.
func stripLabel(s, label string) string {
	ls := strings.ToLower(s)
	if strings.HasPrefix(ls, label) {
		s = strings.TrimSpace(s[len(label):])
		s = strings.TrimSpace(strings.TrimLeft(s, ":："))
	}
	return s
}

func externalID(card *goquery.Selection, attrs []string, u string) string {
	for _, a := range attrs {
		if v := strings.TrimSpace(attrOr(card, a, "")); v != "" {
			return v
		}
	}
	return lastSegment(u)
}

func lastSegment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

func attrOr(s *goquery.Selection, name, def string) string {
	if v, ok := s.Attr(name); ok {
		return v
	}
	return def
}

func resolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return baseURL
	}

	u, err := url.Parse(href)
	if err == nil && u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(baseURL)
	if err != nil || u == nil {
		return href
	}

	return b.ResolveReference(u).String()
}
