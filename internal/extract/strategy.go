package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy reads one value from a selection. ok=false passes to the next strategy.
type Strategy func(root *goquery.Selection) (value string, ok bool)

// Chain is evaluated in order; the first strategy that yields a value wins.
type Chain []Strategy

func (c Chain) First(root *goquery.Selection) (string, bool) {
	for _, s := range c {
		if v, ok := s(root); ok {
			return v, true
		}
	}
	return "", false
}

// Value is First without the ok flag.
func (c Chain) Value(root *goquery.Selection) string {
	v, _ := c.First(root)
	return v
}

// Text returns the trimmed text of the first node matching selector.
func Text(selector string) Strategy {
	return func(root *goquery.Selection) (string, bool) {
		v := collapseSpace(root.Find(selector).First().Text())
		return v, v != ""
	}
}

// Attr returns the first non-empty attribute value among attrs on the first
// node matching selector.
func Attr(selector string, attrs ...string) Strategy {
	return func(root *goquery.Selection) (string, bool) {
		n := root.Find(selector).First()
		if n.Length() == 0 {
			return "", false
		}
		for _, a := range attrs {
			if v, ok := n.Attr(a); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}
}

// HTML returns the inner HTML of the first node matching selector when that
// node carries visible text.
func HTML(selector string) Strategy {
	return func(root *goquery.Selection) (string, bool) {
		n := root.Find(selector).First()
		if n.Length() == 0 || strings.TrimSpace(n.Text()) == "" {
			return "", false
		}
		h, err := n.Html()
		if err != nil {
			return "", false
		}
		return h, true
	}
}

// Self reads the root's own text; used as the last step of title chains on cards.
func Self() Strategy {
	return func(root *goquery.Selection) (string, bool) {
		v := collapseSpace(root.Text())
		return v, v != ""
	}
}

func TextChain(selectors ...string) Chain {
	c := make(Chain, 0, len(selectors))
	for _, s := range selectors {
		c = append(c, Text(s))
	}
	return c
}

func AttrChain(attrs []string, selectors ...string) Chain {
	c := make(Chain, 0, len(selectors))
	for _, s := range selectors {
		c = append(c, Attr(s, attrs...))
	}
	return c
}

func HTMLChain(selectors ...string) Chain {
	c := make(Chain, 0, len(selectors))
	for _, s := range selectors {
		c = append(c, HTML(s))
	}
	return c
}

// findFirst returns the matches of the first selector that matches anything.
func findFirst(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, s := range selectors {
		if m := root.Find(s); m.Length() > 0 {
			return m
		}
	}
	return root.Find("__none__")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
