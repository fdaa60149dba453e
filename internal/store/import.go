package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brogergvhs/novelpipe/internal/novel"
	"github.com/brogergvhs/novelpipe/internal/slug"
)

// NovelRecord is the input of one import.
type NovelRecord struct {
	Title     string
	Slug      string
	Author    string
	Synopsis  string
	Cover     string
	Status    novel.Status
	SourceURL string
	Genres    []string
	Chapters  []ChapterRecord
}

type ChapterRecord struct {
	Number     int
	Title      string
	Original   string
	Translated string
	WordCount  int
}

type ImportOptions struct {
	// FillTranslations sets contentTranslated on existing chapters whose
	// translated column is still empty. Nothing else is touched.
	FillTranslations bool
}

type ChapterError struct {
	Number int
	Err    error
}

type ImportResult struct {
	NovelID      string
	NovelCreated bool
	Inserted     int
	Skipped      int
	Filled       int
	Failed       []ChapterError
}

var ErrInvalidNovel = errors.New("invalid novel record")

// ImportNovel upserts the novel and its genres in one transaction, then
// inserts every chapter not yet stored. A failing chapter is logged and
// recorded in the result; the remaining chapters are still written. All
// statements run on one pooled connection that is released on return.
func (s *Store) ImportNovel(ctx context.Context, rec NovelRecord, o ImportOptions) (ImportResult, error) {
	if rec.Slug == "" {
		rec.Slug = slug.Make(rec.Title)
	}
	if rec.Slug == "" || strings.TrimSpace(rec.Title) == "" {
		return ImportResult{}, fmt.Errorf("%w: title and slug are required", ErrInvalidNovel)
	}

	var res ImportResult
	err := s.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var err error
		if err = conn.Transaction(func(tx *gorm.DB) error {
			res.NovelID, res.NovelCreated, err = upsertNovel(tx, rec)
			if err != nil {
				return err
			}
			return s.linkGenres(tx, res.NovelID, rec.Genres)
		}); err != nil {
			return err
		}

		return s.insertChapters(ctx, conn, res.NovelID, rec, o, &res)
	})
	if err != nil {
		return res, fmt.Errorf("import %s: %w", rec.Slug, err)
	}

	return res, nil
}

func upsertNovel(tx *gorm.DB, rec NovelRecord) (string, bool, error) {
	status := rec.Status
	if status == "" {
		status = novel.StatusOngoing
	}

	n := Novel{
		Title:     rec.Title,
		Slug:      rec.Slug,
		Author:    rec.Author,
		Synopsis:  rec.Synopsis,
		Cover:     rec.Cover,
		Status:    string(status),
		SourceURL: rec.SourceURL,
	}
	_ = n.BeforeCreate(tx)
	fresh := n.ID

	// identity fields (title, slug, author, status) are kept; empty display
	// fields never erase stored values
	updates := []string{colUpdatedAt}
	if rec.Cover != "" {
		updates = append(updates, colCover)
	}
	if rec.Synopsis != "" {
		updates = append(updates, colSynopsis)
	}
	if rec.SourceURL != "" {
		updates = append(updates, colSourceURL)
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: colSlug}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&n).Error
	if err != nil {
		return "", false, fmt.Errorf("upsert novel: %w", err)
	}

	var stored Novel
	if err := tx.Select(colID).Where(eq(colSlug, rec.Slug)).First(&stored).Error; err != nil {
		return "", false, fmt.Errorf("reload novel: %w", err)
	}

	return stored.ID, stored.ID == fresh, nil
}

func (s *Store) linkGenres(tx *gorm.DB, novelID string, names []string) error {
	seen := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		gs := slug.Make(name)
		if gs == "" || seen[gs] {
			continue
		}
		seen[gs] = true

		g := Genre{Name: name, Slug: gs}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: colSlug}},
			DoNothing: true,
		}).Create(&g).Error; err != nil {
			return fmt.Errorf("upsert genre %q: %w", name, err)
		}

		var stored Genre
		if err := tx.Select(colID).Where(eq(colSlug, gs)).First(&stored).Error; err != nil {
			return fmt.Errorf("reload genre %q: %w", name, err)
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&NovelGenre{NovelID: novelID, GenreID: stored.ID}).Error; err != nil {
			return fmt.Errorf("link genre %q: %w", name, err)
		}
	}
	return nil
}

func (s *Store) insertChapters(ctx context.Context, conn *gorm.DB, novelID string, rec NovelRecord, o ImportOptions, res *ImportResult) error {
	var existing []int
	if err := conn.Model(&Chapter{}).Where(eq(colNovelID, novelID)).
		Pluck(colChapterNumber, &existing).Error; err != nil {
		return fmt.Errorf("list chapters: %w", err)
	}
	have := make(map[int]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	for _, ch := range rec.Chapters {
		if err := ctx.Err(); err != nil {
			return err
		}

		if have[ch.Number] {
			if o.FillTranslations && ch.Translated != "" {
				filled, err := fillTranslation(conn, novelID, ch)
				if err != nil {
					s.log.Warnf("%s chapter %d: fill translation: %v\n", rec.Slug, ch.Number, err)
					res.Failed = append(res.Failed, ChapterError{Number: ch.Number, Err: err})
					continue
				}
				if filled {
					res.Filled++
					continue
				}
			}
			res.Skipped++
			continue
		}

		row := Chapter{
			NovelID:           novelID,
			ChapterNumber:     ch.Number,
			Title:             ch.Title,
			ContentOriginal:   ch.Original,
			ContentTranslated: ch.Translated,
			WordCount:         ch.WordCount,
		}
		tx := conn.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: colNovelID}, {Name: colChapterNumber}},
			DoNothing: true,
		}).Create(&row)
		if tx.Error != nil {
			s.log.Warnf("%s chapter %d: insert: %v\n", rec.Slug, ch.Number, tx.Error)
			res.Failed = append(res.Failed, ChapterError{Number: ch.Number, Err: tx.Error})
			continue
		}
		if tx.RowsAffected == 0 {
			res.Skipped++
			continue
		}

		have[ch.Number] = true
		res.Inserted++
	}

	return nil
}

func fillTranslation(conn *gorm.DB, novelID string, ch ChapterRecord) (bool, error) {
	updates := map[string]any{colContentTranslated: ch.Translated}
	if ch.WordCount > 0 {
		updates[colWordCount] = ch.WordCount
	}

	tx := conn.Model(&Chapter{}).
		Where(eq(colNovelID, novelID), eq(colChapterNumber, ch.Number)).
		Where(clause.Or(eq(colContentTranslated, nil), eq(colContentTranslated, ""))).
		Updates(updates)
	return tx.RowsAffected > 0, tx.Error
}

// eq quotes the column, which the camelCase schema needs on Postgres.
func eq(col string, v any) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: col}, Value: v}
}
