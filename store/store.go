// Package store persists raw result documents and extracted tables keyed by
// sequence identifier.
package store

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx"
)

// Store holds one raw document and at most one table per sequence id.
// Writing an existing id overwrites it. Missing entries are
// blastx.ErrNotFound.
type Store interface {
	PutRaw(ctx context.Context, id string, doc []byte) error
	GetRaw(ctx context.Context, id string) ([]byte, error)
	PutTable(ctx context.Context, id string, table string) error
	GetTable(ctx context.Context, id string) (string, error)
	// ListRaw returns the ids with a stored raw document, sorted.
	ListRaw(ctx context.Context) ([]string, error)
	// ListTables returns the ids with a stored table, sorted.
	ListTables(ctx context.Context) ([]string, error)
}

// ValidateID rejects ids that cannot name a stored entry.
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return errors.Wrap(blastx.ErrInvalidInput, "empty sequence id")
	case id == "." || id == "..":
		return errors.Wrapf(blastx.ErrInvalidInput, "invalid sequence id %q", id)
	case strings.ContainsAny(id, `/\`):
		return errors.Wrapf(blastx.ErrInvalidInput, "sequence id %q contains a path separator", id)
	case strings.ContainsRune(id, 0):
		return errors.Wrapf(blastx.ErrInvalidInput, "sequence id %q contains a NUL byte", id)
	}
	return nil
}

type runIDKey struct{}

// WithRunID returns a context carrying the id of the batch run writing to
// the store.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the run id carried by ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
