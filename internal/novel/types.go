// Package novel holds the records that flow between pipeline stages.
package novel

import "time"

// SourceListing is one novel as discovered on the source site.
type SourceListing struct {
	ExternalID string   `json:"external_id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	CoverURL   string   `json:"cover_url,omitempty"`
	Author     string   `json:"author,omitempty"`
	Synopsis   string   `json:"synopsis,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Status     Status   `json:"status"`
}

// ChapterRef identifies a chapter without its body. Number is positional.
type ChapterRef struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

type RawChapter struct {
	ChapterRef
	Content   string    `json:"content"`
	WordCount int       `json:"word_count"`
	Suspect   bool      `json:"suspect,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// RawNovel is the on-disk document produced by the scrape stage.
type RawNovel struct {
	Slug      string        `json:"slug"`
	Listing   SourceListing `json:"listing"`
	Cover     string        `json:"cover,omitempty"`
	Chapters  []RawChapter  `json:"chapters"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Chapter returns the scraped chapter with the given number.
func (r *RawNovel) Chapter(n int) (RawChapter, bool) {
	for _, c := range r.Chapters {
		if c.Number == n {
			return c, true
		}
	}
	return RawChapter{}, false
}

// Put inserts or replaces a chapter, keeping chapters ordered by number.
func (r *RawNovel) Put(ch RawChapter) {
	r.Chapters = putOrdered(r.Chapters, ch, func(c RawChapter) int { return c.Number })
}

type TranslatedChapter struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// TranslatedNovel is the partial output document written after every wave.
type TranslatedNovel struct {
	Slug       string              `json:"slug"`
	SourceFile string              `json:"source_file"`
	Title      string              `json:"title,omitempty"`
	Synopsis   string              `json:"synopsis,omitempty"`
	Chapters   []TranslatedChapter `json:"chapters"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func (t *TranslatedNovel) Chapter(n int) (TranslatedChapter, bool) {
	for _, c := range t.Chapters {
		if c.Number == n {
			return c, true
		}
	}
	return TranslatedChapter{}, false
}

// Put inserts or replaces a chapter, keeping chapters ordered by number.
func (t *TranslatedNovel) Put(ch TranslatedChapter) {
	t.Chapters = putOrdered(t.Chapters, ch, func(c TranslatedChapter) int { return c.Number })
}

func putOrdered[T any](list []T, v T, number func(T) int) []T {
	n := number(v)
	for i := range list {
		if number(list[i]) == n {
			list[i] = v
			return list
		}
	}

	i := len(list)
	for i > 0 && number(list[i-1]) > n {
		i--
	}
	var zero T
	list = append(list, zero)
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
