package checkpoint

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/brogergvhs/novelpipe/internal/util"
)

// FileStore keeps one sidecar JSON file per novel next to the output document.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) Path(slug string) string {
	return filepath.Join(s.Dir, slug+".checkpoint.json")
}

func (s *FileStore) Load(_ context.Context, slug string) (*Checkpoint, error) {
	var cp Checkpoint
	if err := util.ReadJSON(s.Path(slug), &cp); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	cp.normalize()
	return &cp, nil
}

func (s *FileStore) Save(_ context.Context, cp *Checkpoint) error {
	cp.normalize()
	cp.UpdatedAt = time.Now().UTC()
	return util.WriteJSON(s.Path(cp.Slug), cp)
}

func (s *FileStore) Delete(_ context.Context, slug string) error {
	if err := os.Remove(s.Path(slug)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
