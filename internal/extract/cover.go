package extract

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSizeSuffix = regexp.MustCompile(`[-_]\d{2,5}x\d{2,5}`)
	reParseSize  = regexp.MustCompile(`[-_](\d{2,5})x(\d{2,5})(?:\.[A-Za-z0-9]+)?$`)
	reWidthDesc  = regexp.MustCompile(`^(\d+)w$`)
)

var coverAttrs = []string{"data-src", "data-lazy-src", "data-original", "src", "content"}

type coverCandidate struct {
	URL   string
	Width int
	Order int
}

// BestCover returns the best cover image URL found under the first selector
// that yields any candidate. Among the candidates of one image the unsized
// original wins, then the largest WxH or srcset width.
func BestCover(root *goquery.Selection, selectors []string, pageURL string) string {
	for _, sel := range selectors {
		var cands []coverCandidate
		root.Find(sel).Each(func(_ int, n *goquery.Selection) {
			cands = append(cands, coverCandidates(n, pageURL, len(cands))...)
		})
		if len(cands) > 0 {
			return pickCover(cands).URL
		}
	}
	return ""
}

func coverCandidates(n *goquery.Selection, pageURL string, order int) []coverCandidate {
	var out []coverCandidate
	add := func(raw string, width int) {
		raw = strings.TrimSpace(raw)
		lu := strings.ToLower(raw)
		if raw == "" || strings.HasPrefix(lu, "data:") || strings.HasPrefix(lu, "javascript:") ||
			strings.Contains(lu, "placeholder") || strings.Contains(lu, "lazy.") {
			return
		}
		order++
		out = append(out, coverCandidate{URL: resolveURL(pageURL, raw), Width: width, Order: order})
	}

	if ss, ok := n.Attr("srcset"); ok {
		for p := range strings.SplitSeq(ss, ",") {
			parts := strings.Fields(strings.TrimSpace(p))
			if len(parts) == 0 {
				continue
			}
			w := 0
			if len(parts) > 1 {
				if m := reWidthDesc.FindStringSubmatch(parts[1]); m != nil {
					w, _ = strconv.Atoi(m[1])
				}
			}
			add(parts[0], w)
		}
	}
	for _, a := range coverAttrs {
		if v, ok := n.Attr(a); ok {
			add(v, 0)
		}
	}
	return out
}

func pickCover(cands []coverCandidate) coverCandidate {
	var plain, sized []coverCandidate
	for _, c := range cands {
		if c.Width == 0 && !reSizeSuffix.MatchString(c.URL) {
			plain = append(plain, c)
		} else {
			sized = append(sized, c)
		}
	}

	if len(plain) > 0 {
		sort.SliceStable(plain, func(i, j int) bool { return plain[i].Order < plain[j].Order })
		// the unsized URL of a resized image is the original upload
		for _, p := range plain {
			for _, s := range sized {
				if normalizeBase(s.URL) == normalizeBase(p.URL) {
					return p
				}
			}
		}
		return plain[0]
	}

	best, bestArea := sized[0], coverArea(sized[0])
	for _, c := range sized[1:] {
		if a := coverArea(c); a > bestArea {
			best, bestArea = c, a
		}
	}
	return best
}

func coverArea(c coverCandidate) int {
	if w, h := parseWxH(c.URL); w > 0 {
		return w * h
	}
	return c.Width * c.Width
}

func parseWxH(u string) (int, int) {
	if m := reParseSize.FindStringSubmatch(stripQuery(u)); m != nil {
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		return w, h
	}
	return 0, 0
}

// normalizeBase strips a -WxH size suffix so resized variants share one key.
func normalizeBase(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	ext := path.Ext(u.Path)
	base := strings.TrimSuffix(u.Path, ext)
	base = reSizeSuffix.ReplaceAllString(base, "")
	base = strings.TrimRight(base, "-_")

	return base + ext
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}
