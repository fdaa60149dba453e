package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var reNuxt = regexp.MustCompile(`(?s)window\.__NUXT__\s*=\s*(\{.*?\});?\s*</script>`)

// minEmbeddedLen keeps short HTML snippets such as links out of the result.
const minEmbeddedLen = 200

// EmbeddedHTML looks for the chapter body inside serialized framework state
// (Next.js __NEXT_DATA__ or a JSON-literal window.__NUXT__) and returns the
// longest string that looks like body HTML.
func EmbeddedHTML(doc *goquery.Document, body []byte) (string, bool) {
	var roots []any

	doc.Find("script#__NEXT_DATA__").Each(func(_ int, s *goquery.Selection) {
		var v any
		if json.Unmarshal([]byte(s.Text()), &v) == nil {
			roots = append(roots, v)
		}
	})

	if m := reNuxt.FindSubmatch(body); m != nil {
		var v any
		if json.Unmarshal(m[1], &v) == nil {
			roots = append(roots, v)
		}
	}

	best := ""
	for _, r := range roots {
		walkStrings(r, func(s string) {
			if len(s) > len(best) && looksLikeBody(s) {
				best = s
			}
		})
	}

	return best, len(best) >= minEmbeddedLen
}

func walkStrings(v any, fn func(string)) {
	switch t := v.(type) {
	case string:
		fn(t)
	case []any:
		for _, x := range t {
			walkStrings(x, fn)
		}
	case map[string]any:
		for _, x := range t {
			walkStrings(x, fn)
		}
	}
}

func looksLikeBody(s string) bool {
	ls := strings.ToLower(s)
	return strings.Contains(ls, "<p") || strings.Contains(ls, "<br")
}
