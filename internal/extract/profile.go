package extract

import "strings"

// Profile describes one source site: selector fallback lists per field,
// payment markers and chapter ordering. Empty lists fall back to defaults.
type Profile struct {
	ListingCards   []string `yaml:"listing_cards"`
	CardLink       []string `yaml:"card_link"`
	CardTitle      []string `yaml:"card_title"`
	CardIDAttrs    []string `yaml:"card_id_attrs"`
	NextPage       []string `yaml:"next_page"`
	Title          []string `yaml:"title"`
	Author         []string `yaml:"author"`
	Synopsis       []string `yaml:"synopsis"`
	Cover          []string `yaml:"cover"`
	Genres         []string `yaml:"genres"`
	Status         []string `yaml:"status"`
	ChapterLinks   []string `yaml:"chapter_links"`
	ChapterTitle   []string `yaml:"chapter_title"`
	ChapterBody    []string `yaml:"chapter_body"`
	PaymentMarkers []string `yaml:"payment_markers"`
	// ReverseChapterOrder is set for sites that list the newest chapter first.
	ReverseChapterOrder bool `yaml:"reverse_chapter_order"`
}

func DefaultProfile() Profile {
	return Profile{
		ListingCards:   []string{".novel-item", ".book-item", "li.novel", ".list-novel .row", "article.novel"},
		CardLink:       []string{"h3 a[href]", ".novel-title a[href]", ".title a[href]", "a[href]"},
		CardTitle:      []string{"h3", ".novel-title", ".title", "a[title]"},
		CardIDAttrs:    []string{"data-id", "data-novel-id", "data-book-id"},
		NextPage:       []string{"a[rel=next]", ".pagination .next a", "li.next a", "a.next"},
		Title:          []string{"h1.novel-title", ".novel-info h1", "h1.title", "h1", "meta[property='og:title']"},
		Author:         []string{".author a", ".author", "[itemprop=author]", ".novel-info .writer"},
		Synopsis:       []string{".summary .content", ".synopsis", "[itemprop=description]", ".description", "meta[name=description]"},
		Cover:          []string{".novel-cover img", ".book-cover img", ".cover img", "img.cover"},
		Genres:         []string{".genres a", ".categories a", "[itemprop=genre]", ".tags a"},
		Status:         []string{".status", ".novel-status", "[itemprop=status]"},
		ChapterLinks:   []string{".chapter-list a[href]", "ul.chapters a[href]", "#chapters a[href]", ".list-chapter a[href]"},
		ChapterTitle:   []string{"h1.chapter-title", ".chapter-title", "h1", "h2"},
		ChapterBody:    []string{"#chapter-content", ".chapter-content", "#content", ".reading-content", "article .entry-content", ".text-left"},
		PaymentMarkers: []string{"payment", "purchase", "premium", "locked", "/buy"},
	}
}

// WithDefaults fills every empty list from DefaultProfile.
func (p Profile) WithDefaults() Profile {
	d := DefaultProfile()
	fill := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = src
		}
	}
	fill(&p.ListingCards, d.ListingCards)
	fill(&p.CardLink, d.CardLink)
	fill(&p.CardTitle, d.CardTitle)
	fill(&p.CardIDAttrs, d.CardIDAttrs)
	fill(&p.NextPage, d.NextPage)
	fill(&p.Title, d.Title)
	fill(&p.Author, d.Author)
	fill(&p.Synopsis, d.Synopsis)
	fill(&p.Cover, d.Cover)
	fill(&p.Genres, d.Genres)
	fill(&p.Status, d.Status)
	fill(&p.ChapterLinks, d.ChapterLinks)
	fill(&p.ChapterTitle, d.ChapterTitle)
	fill(&p.ChapterBody, d.ChapterBody)
	fill(&p.PaymentMarkers, d.PaymentMarkers)
	return p
}

// IsPremium reports whether any of the values carries a payment marker.
func (p Profile) IsPremium(values ...string) bool {
	for _, v := range values {
		lv := strings.ToLower(v)
		if lv == "" {
			continue
		}
		for _, m := range p.PaymentMarkers {
			if m != "" && strings.Contains(lv, strings.ToLower(m)) {
				return true
			}
		}
	}
	return false
}
