package store

import "github.com/brogergvhs/novelpipe/internal/novel"

// FromDocuments builds the import record from the scrape output and, when
// present, the translation output. Translated title and synopsis replace
// the source ones; chapters without a translation keep an empty column.
func FromDocuments(raw *novel.RawNovel, tr *novel.TranslatedNovel) NovelRecord {
	rec := NovelRecord{
		Title:     raw.Listing.Title,
		Slug:      raw.Slug,
		Author:    raw.Listing.Author,
		Synopsis:  raw.Listing.Synopsis,
		Cover:     raw.Cover,
		Status:    raw.Listing.Status,
		SourceURL: raw.Listing.URL,
		Genres:    raw.Listing.Genres,
	}
	if rec.Cover == "" {
		rec.Cover = raw.Listing.CoverURL
	}
	if tr != nil {
		if tr.Title != "" {
			rec.Title = tr.Title
		}
		if tr.Synopsis != "" {
			rec.Synopsis = tr.Synopsis
		}
	}

	for _, c := range raw.Chapters {
		cr := ChapterRecord{
			Number:    c.Number,
			Title:     c.Title,
			Original:  c.Content,
			WordCount: c.WordCount,
		}
		if tr != nil {
			if t, ok := tr.Chapter(c.Number); ok {
				cr.Translated = t.Content
				if t.Title != "" {
					cr.Title = t.Title
				}
				if t.WordCount > 0 {
					cr.WordCount = t.WordCount
				}
			}
		}
		rec.Chapters = append(rec.Chapters, cr)
	}

	return rec
}
