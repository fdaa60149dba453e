package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tables and columns follow the web app's schema: PascalCase model tables,
// camelCase columns and the implicit _GenreToNovel join table.
const (
	tableNovel      = "Novel"
	tableChapter    = "Chapter"
	tableGenre      = "Genre"
	tableNovelGenre = "_GenreToNovel"

	colID                = "id"
	colSlug              = "slug"
	colCover             = "cover"
	colSynopsis          = "synopsis"
	colSourceURL         = "sourceUrl"
	colUpdatedAt         = "updatedAt"
	colNovelID           = "novelId"
	colChapterNumber     = "chapterNumber"
	colContentTranslated = "contentTranslated"
	colWordCount         = "wordCount"
)

type Novel struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	Title     string    `gorm:"column:title;not null"`
	Slug      string    `gorm:"column:slug;uniqueIndex:Novel_slug_key;not null"`
	Author    string    `gorm:"column:author"`
	Synopsis  string    `gorm:"column:synopsis;type:text"`
	Cover     string    `gorm:"column:cover"`
	Status    string    `gorm:"column:status;not null;default:ONGOING"`
	SourceURL string    `gorm:"column:sourceUrl"`
	CreatedAt time.Time `gorm:"column:createdAt"`
	UpdatedAt time.Time `gorm:"column:updatedAt"`
}

func (Novel) TableName() string {
	return tableNovel
}

func (n *Novel) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Chapter is unique on (novelId, chapterNumber). IsPremium and Cost are
// owned by the web app and never written here.
type Chapter struct {
	ID                string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	NovelID           string    `gorm:"column:novelId;type:varchar(36);not null;uniqueIndex:Chapter_novelId_chapterNumber_key"`
	ChapterNumber     int       `gorm:"column:chapterNumber;not null;uniqueIndex:Chapter_novelId_chapterNumber_key"`
	Title             string    `gorm:"column:title"`
	ContentOriginal   string    `gorm:"column:contentOriginal;type:text"`
	ContentTranslated string    `gorm:"column:contentTranslated;type:text"`
	WordCount         int       `gorm:"column:wordCount"`
	IsPremium         bool      `gorm:"column:isPremium;not null;default:false"`
	Cost              int       `gorm:"column:cost;not null;default:0"`
	CreatedAt         time.Time `gorm:"column:createdAt"`
	UpdatedAt         time.Time `gorm:"column:updatedAt"`
}

func (Chapter) TableName() string {
	return tableChapter
}

func (c *Chapter) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Genre struct {
	ID   string `gorm:"column:id;primaryKey;type:varchar(36)"`
	Name string `gorm:"column:name;not null"`
	Slug string `gorm:"column:slug;uniqueIndex:Genre_slug_key;not null"`
}

func (Genre) TableName() string {
	return tableGenre
}

func (g *Genre) BeforeCreate(*gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// NovelGenre is the implicit many-to-many table: A is the genre, B the
// novel. The composite key makes linking idempotent.
type NovelGenre struct {
	GenreID string `gorm:"column:A;primaryKey;type:varchar(36)"`
	NovelID string `gorm:"column:B;primaryKey;type:varchar(36)"`
}

func (NovelGenre) TableName() string {
	return tableNovelGenre
}

func allModels() []any {
	return []any{&Novel{}, &Chapter{}, &Genre{}, &NovelGenre{}}
}
