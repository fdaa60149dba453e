// Package workspace lays out the pipeline's intermediate JSON documents
// under one data directory. These files are the resume state of every stage.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brogergvhs/novelpipe/internal/novel"
	"github.com/brogergvhs/novelpipe/internal/util"
)

const DefaultDir = "data"

var ErrNoInput = errors.New("no such input")

type Workspace struct {
	Root string
}

func New(root string) *Workspace {
	if root == "" {
		root = DefaultDir
	}
	return &Workspace{Root: root}
}

func (w *Workspace) ListingsDir() string   { return filepath.Join(w.Root, "listings") }
func (w *Workspace) RawDir() string        { return filepath.Join(w.Root, "raw") }
func (w *Workspace) TranslatedDir() string { return filepath.Join(w.Root, "translated") }
func (w *Workspace) CheckpointDir() string { return filepath.Join(w.Root, "checkpoints") }
func (w *Workspace) StorageDir() string    { return filepath.Join(w.Root, "storage") }

func (w *Workspace) ListingPath(host string) string {
	return filepath.Join(w.ListingsDir(), host+".json")
}

func (w *Workspace) RawPath(slug string) string {
	return filepath.Join(w.RawDir(), slug+".json")
}

func (w *Workspace) TranslatedPath(slug string) string {
	return filepath.Join(w.TranslatedDir(), slug+".json")
}

// Dirs lists every directory that can hold in-flight temp files.
func (w *Workspace) Dirs() []string {
	return []string{w.ListingsDir(), w.RawDir(), w.TranslatedDir(), w.CheckpointDir(), w.StorageDir()}
}

// Resolve maps a CLI argument to a slug. It accepts a bare slug, a file name
// such as "my-novel.json" or a path into the raw or translated directory.
func Resolve(arg string) string {
	arg = strings.TrimSpace(arg)
	base := filepath.Base(arg)
	return strings.TrimSuffix(base, ".json")
}

// ListingFile is the document written by discover.
type ListingFile struct {
	Source    string                `json:"source"`
	Pages     int                   `json:"pages"`
	Novels    []novel.SourceListing `json:"novels"`
	Premium   int                   `json:"premium_skipped"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// HostOf names a listing file after the source host.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "listing"
	}
	return u.Hostname()
}

func (w *Workspace) SaveListings(lf *ListingFile) error {
	lf.UpdatedAt = time.Now().UTC()
	return util.WriteJSON(w.ListingPath(HostOf(lf.Source)), lf)
}

func (w *Workspace) LoadListings(host string) (*ListingFile, error) {
	var lf ListingFile
	if err := util.ReadJSON(w.ListingPath(host), &lf); err != nil {
		return nil, err
	}
	return &lf, nil
}

// LoadRaw reads the scraped document for slug. A missing document wraps
// both ErrNoInput and fs.ErrNotExist.
func (w *Workspace) LoadRaw(slug string) (*novel.RawNovel, error) {
	var raw novel.RawNovel
	if err := util.ReadJSON(w.RawPath(slug), &raw); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: raw document for %q: %w", ErrNoInput, slug, err)
		}
		return nil, err
	}
	return &raw, nil
}

func (w *Workspace) SaveRaw(raw *novel.RawNovel) error {
	raw.UpdatedAt = time.Now().UTC()
	return util.WriteJSON(w.RawPath(raw.Slug), raw)
}

// LoadTranslated returns the partial output document for slug, or an empty
// one bound to the raw document when none exists yet.
func (w *Workspace) LoadTranslated(slug string) (*novel.TranslatedNovel, error) {
	var out novel.TranslatedNovel
	err := util.ReadJSON(w.TranslatedPath(slug), &out)
	switch {
	case err == nil:
		return &out, nil
	case errors.Is(err, fs.ErrNotExist):
		return &novel.TranslatedNovel{Slug: slug, SourceFile: w.RawPath(slug)}, nil
	}
	return nil, err
}

// SaveTranslated has the signature the translator flushes through.
func (w *Workspace) SaveTranslated(_ context.Context, out *novel.TranslatedNovel) error {
	return util.WriteJSON(w.TranslatedPath(out.Slug), out)
}

// Input summarizes one raw document for usage listings.
type Input struct {
	Slug       string
	Title      string
	Chapters   int
	Translated int
	UpdatedAt  time.Time
}

// ListInputs returns the raw documents in the workspace ordered by slug.
// Unreadable documents are skipped.
func (w *Workspace) ListInputs() ([]Input, error) {
	entries, err := os.ReadDir(w.RawDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []Input
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, util.TempPrefix) {
			continue
		}
		slug := strings.TrimSuffix(name, ".json")
		raw, err := w.LoadRaw(slug)
		if err != nil {
			continue
		}

		in := Input{
			Slug:      slug,
			Title:     raw.Listing.Title,
			Chapters:  len(raw.Chapters),
			UpdatedAt: raw.UpdatedAt,
		}
		var tr novel.TranslatedNovel
		if util.ReadJSON(w.TranslatedPath(slug), &tr) == nil {
			in.Translated = len(tr.Chapters)
		}
		out = append(out, in)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}
