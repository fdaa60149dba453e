// Package checkpoint records which chapters of a translation job are done.
//
// The completed set is only a claim: callers reconcile it against the output
// document on load, and a number whose content is missing is treated as not
// translated. Writers flush the output document before the checkpoint.
package checkpoint

import (
	"context"
	"errors"
	"slices"
	"time"
)

var ErrNotFound = errors.New("checkpoint not found")

type Checkpoint struct {
	Slug       string    `json:"slug"`
	SourceFile string    `json:"source_file"`
	Completed  []int     `json:"completed"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func New(slug, sourceFile string) *Checkpoint {
	return &Checkpoint{Slug: slug, SourceFile: sourceFile, Completed: []int{}}
}

func (c *Checkpoint) Done(n int) bool {
	_, ok := slices.BinarySearch(c.Completed, n)
	return ok
}

// Mark adds chapter numbers, keeping Completed sorted and unique.
func (c *Checkpoint) Mark(ns ...int) {
	for _, n := range ns {
		if i, ok := slices.BinarySearch(c.Completed, n); !ok {
			c.Completed = slices.Insert(c.Completed, i, n)
		}
	}
}

// Reconcile drops completed numbers for which hasContent is false and
// returns them.
func (c *Checkpoint) Reconcile(hasContent func(n int) bool) []int {
	var dropped []int
	kept := c.Completed[:0]
	for _, n := range c.Completed {
		if hasContent(n) {
			kept = append(kept, n)
		} else {
			dropped = append(dropped, n)
		}
	}
	c.Completed = kept
	return dropped
}

func (c *Checkpoint) normalize() {
	slices.Sort(c.Completed)
	c.Completed = slices.Compact(c.Completed)
	if c.Completed == nil {
		c.Completed = []int{}
	}
}

// Store persists checkpoints keyed by novel slug.
type Store interface {
	// Load returns ErrNotFound when no checkpoint exists for slug.
	Load(ctx context.Context, slug string) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
	Delete(ctx context.Context, slug string) error
	Close() error
}

// LoadOrNew returns the stored checkpoint or a fresh one.
func LoadOrNew(ctx context.Context, s Store, slug, sourceFile string) (*Checkpoint, error) {
	cp, err := s.Load(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return New(slug, sourceFile), nil
	}
	if err != nil {
		return nil, err
	}
	if cp.SourceFile == "" {
		cp.SourceFile = sourceFile
	}
	return cp, nil
}
