// Package fsstore stores results as files: <dir>/<id>.xml for raw documents
// and <dir>/<id>.tsv for tables.
package fsstore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx"
	"github.com/letmevibethatforyou/blastx/store"
)

const (
	rawExt   = ".xml"
	tableExt = ".tsv"
)

// Store implements store.Store on a directory.
type Store struct {
	dir string
}

var _ store.Store = (*Store)(nil)

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create store directory %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// RawPath returns the file holding the raw document for id.
func (s *Store) RawPath(id string) string {
	return filepath.Join(s.dir, id+rawExt)
}

// TablePath returns the file holding the table for id.
func (s *Store) TablePath(id string) string {
	return filepath.Join(s.dir, id+tableExt)
}

func (s *Store) put(ctx context.Context, id, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.Mark(err, blastx.ErrCanceled)
	}
	if err := store.ValidateID(id); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

func (s *Store) get(ctx context.Context, id, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Mark(err, blastx.ErrCanceled)
	}
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(blastx.ErrNotFound, "%s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return data, nil
}

// PutRaw writes the raw document for id.
func (s *Store) PutRaw(ctx context.Context, id string, doc []byte) error {
	return s.put(ctx, id, s.RawPath(id), doc)
}

// GetRaw reads the raw document for id.
func (s *Store) GetRaw(ctx context.Context, id string) ([]byte, error) {
	return s.get(ctx, id, s.RawPath(id))
}

// PutTable writes the table for id.
func (s *Store) PutTable(ctx context.Context, id string, table string) error {
	return s.put(ctx, id, s.TablePath(id), []byte(table))
}

// GetTable reads the table for id.
func (s *Store) GetTable(ctx context.Context, id string) (string, error) {
	data, err := s.get(ctx, id, s.TablePath(id))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ListRaw implements store.Store.
func (s *Store) ListRaw(ctx context.Context) ([]string, error) {
	return s.list(ctx, rawExt)
}

// ListTables implements store.Store.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	return s.list(ctx, tableExt)
}

func (s *Store) list(ctx context.Context, ext string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Mark(err, blastx.ErrCanceled)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", s.dir)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if store.ValidateID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
