// Package sanitize cleans extracted chapter HTML into plain paragraphs.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const DefaultMinLength = 200

// Options tune the cleaner per source site. Empty lists use the defaults.
type Options struct {
	// AdMarkers are matched at word starts in class and id attributes; a
	// trailing hyphen makes the marker a whole word.
	AdMarkers []string `yaml:"ad_markers"`
	// JunkPhrases are removed from the text, case-insensitively.
	JunkPhrases []string `yaml:"junk_phrases"`
	MinLength   int      `yaml:"min_length"`
}

func DefaultOptions() Options {
	return Options{
		AdMarkers: []string{"ad-", "ads", "advert", "banner", "sponsor", "promo"},
		JunkPhrases: []string{
			"Please support the translator",
			"Read the latest chapters at",
			"If you find any errors ( broken links, non-standard content, etc.. ), Please let us know",
			"Find authorized novels in Webnovel",
			"Tip: You can use left, right, A and D keyboard keys to browse between chapters.",
			"This chapter is updated by",
		},
		MinLength: DefaultMinLength,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.AdMarkers) == 0 {
		o.AdMarkers = d.AdMarkers
	}
	if len(o.JunkPhrases) == 0 {
		o.JunkPhrases = d.JunkPhrases
	}
	if o.MinLength <= 0 {
		o.MinLength = d.MinLength
	}
	return o
}

type Result struct {
	// HTML is one <p> element per paragraph, joined by newlines.
	HTML       string
	Paragraphs []string
	WordCount  int
	// Suspect is set when the cleaned text is shorter than MinLength.
	Suspect bool
}

// Text joins the paragraphs with blank lines.
func (r Result) Text() string {
	return strings.Join(r.Paragraphs, "\n\n")
}

var dropTags = "script, style, noscript, iframe, ins, form, button, select, svg, template"

// Clean removes scripts, ad containers and junk phrases from body and
// rebuilds it as flat paragraphs. A short result is flagged, never dropped.
func Clean(body string, o Options) (Result, error) {
	o = o.withDefaults()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Result{}, err
	}

	doc.Find(dropTags).Remove()
	doc.Find("div, section, aside, span, p, a, ins, figure").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return isAd(s, o.AdMarkers)
	}).Remove()

	paras := paragraphs(doc.Find("body"))

	junk := junkPatterns(o.JunkPhrases)
	out := paras[:0]
	for _, p := range paras {
		if p = stripJunk(p, junk); p != "" {
			out = append(out, p)
		}
	}

	return FromParagraphs(out, o.MinLength), nil
}

// FromText builds a Result from plain text with blank-line separated paragraphs.
func FromText(text string, minLength int) Result {
	return FromParagraphs(splitParagraphs(text), minLength)
}

func FromParagraphs(paras []string, minLength int) Result {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	var b strings.Builder
	chars := 0
	for i, p := range paras {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(p))
		b.WriteString("</p>")
		chars += len([]rune(p))
	}

	return Result{
		HTML:       b.String(),
		Paragraphs: paras,
		WordCount:  WordCount(strings.Join(paras, " ")),
		Suspect:    chars < minLength,
	}
}

// isAd matches markers against the words of class and id, so "ads" hits
// "ads-slot" and "adsbygoogle" but not "threads".
func isAd(s *goquery.Selection, markers []string) bool {
	for _, attr := range []string{"class", "id"} {
		v, ok := s.Attr(attr)
		if !ok {
			continue
		}
		words := attrWords(v)
		if strings.Contains(words, " ad ") {
			return true
		}
		for _, m := range markers {
			if markerMatch(words, m) {
				return true
			}
		}
	}
	return false
}

// attrWords lowercases v and splits it on anything but letters and digits,
// padding the result with spaces.
func attrWords(v string) string {
	f := strings.FieldsFunc(strings.ToLower(v), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(f, " ") + " "
}

// markerMatch reports whether marker starts on a word boundary. A marker
// with a trailing hyphen must end on one too.
func markerMatch(words, marker string) bool {
	m := strings.TrimSpace(attrWords(marker))
	if m == "" {
		return false
	}
	if strings.HasSuffix(marker, "-") {
		return strings.Contains(words, " "+m+" ")
	}
	return strings.Contains(words, " "+m)
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "pre": true, "table": true, "tr": true, "hr": true,
}

// paragraphs flattens the tree into text blocks: every block element and
// every <br> starts a new paragraph.
func paragraphs(root *goquery.Selection) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		for _, line := range strings.Split(cur.String(), "\n") {
			if t := strings.Join(strings.Fields(line), " "); t != "" {
				out = append(out, t)
			}
		}
		cur.Reset()
	}

	var walk func(s *goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				cur.WriteString(c.Text())
				return
			case "br":
				cur.WriteByte('\n')
				return
			}
			if blockTags[goquery.NodeName(c)] {
				flush()
				walk(c)
				flush()
				return
			}
			walk(c)
		})
	}
	walk(root)
	flush()

	return out
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if t := strings.Join(strings.Fields(block), " "); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func junkPatterns(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, ph := range phrases {
		if ph = strings.TrimSpace(ph); ph != "" {
			out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(ph)))
		}
	}
	return out
}

func stripJunk(p string, junk []*regexp.Regexp) string {
	for _, re := range junk {
		p = re.ReplaceAllString(p, "")
	}
	return strings.Join(strings.Fields(p), " ")
}

// WordCount counts whitespace-separated words; Han and Kana characters, which
// are written without spaces, count one each.
func WordCount(text string) int {
	n := 0
	for _, f := range strings.Fields(text) {
		cjk, other := 0, false
		for _, r := range f {
			if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) {
				cjk++
			} else if unicode.IsLetter(r) || unicode.IsDigit(r) {
				other = true
			}
		}
		n += cjk
		if other {
			n++
		}
	}
	return n
}
