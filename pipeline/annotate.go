package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx"
	"github.com/letmevibethatforyou/blastx/blastxml"
	"github.com/letmevibethatforyou/blastx/store"
)

// DefaultLookupPause is the pause after each taxonomy lookup.
const DefaultLookupPause = 500 * time.Millisecond

// AnnotationHeader lists the columns written by Annotator.Annotate.
var AnnotationHeader = []string{"Sequence_id", "BLASTn", "Max_Ident", "Score", "E_value", "Hit_accession", "Taxopath"}

// TaxonomyFunc returns the lineage of a hit accession.
type TaxonomyFunc func(ctx context.Context, accession string) (string, error)

// Annotator joins stored tables into one table with a taxonomy lineage per
// hit.
type Annotator struct {
	store  store.Store
	lookup TaxonomyFunc
	pause  time.Duration
	wait   blastx.WaitFunc
	logger *slog.Logger
	below  float64
	cache  map[string]string
}

// AnnotatorOption configures an Annotator.
type AnnotatorOption func(*Annotator)

// WithLookupPause sets the pause after each remote lookup.
func WithLookupPause(d time.Duration) AnnotatorOption {
	return func(a *Annotator) {
		a.pause = d
	}
}

// WithLookupWait replaces the wait used for the lookup pause.
func WithLookupWait(w blastx.WaitFunc) AnnotatorOption {
	return func(a *Annotator) {
		a.wait = w
	}
}

// WithAnnotatorLogger sets the logger.
func WithAnnotatorLogger(l *slog.Logger) AnnotatorOption {
	return func(a *Annotator) {
		a.logger = l
	}
}

// WithIdentityBelow keeps only hits whose percent identity is below pct.
func WithIdentityBelow(pct float64) AnnotatorOption {
	return func(a *Annotator) {
		a.below = pct
	}
}

// NewAnnotator creates an annotator reading tables from st.
func NewAnnotator(st store.Store, lookup TaxonomyFunc, opts ...AnnotatorOption) *Annotator {
	a := &Annotator{
		store:  st,
		lookup: lookup,
		pause:  DefaultLookupPause,
		wait:   blastx.SleepContext,
		logger: slog.Default(),
		cache:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Annotate writes the annotated rows of the tables stored for ids to w. A nil
// ids annotates every stored table. A missing or malformed table is logged
// and skipped. A failed lookup leaves the lineage empty. It returns the
// number of rows written.
func (a *Annotator) Annotate(ctx context.Context, ids []string, w io.Writer) (int, error) {
	if ids == nil {
		all, err := a.store.ListTables(ctx)
		if err != nil {
			return 0, errors.Wrap(err, "failed to list tables")
		}
		ids = all
	}

	if _, err := io.WriteString(w, strings.Join(AnnotationHeader, "\t")+"\n"); err != nil {
		return 0, errors.Wrap(err, "failed to write header")
	}

	written := 0
	for _, id := range ids {
		rows, err := a.rows(ctx, id)
		if err != nil {
			if blastx.CodeOf(err) == blastx.ErrCodeCanceled {
				return written, err
			}
			a.logger.WarnContext(ctx, "skipping table",
				"sequence_id", id,
				"error_kind", blastx.CodeOf(err).String(),
				"error", err,
			)
			continue
		}

		for _, row := range rows {
			taxopath, err := a.taxopath(ctx, row.Accession)
			if err != nil {
				return written, err
			}
			line := []string{id, row.Species(), row.MaxIdent, row.Score, row.EValue, row.Accession, taxopath}
			if _, err := io.WriteString(w, strings.Join(line, "\t")+"\n"); err != nil {
				return written, errors.Wrap(err, "failed to write row")
			}
			written++
		}
	}
	return written, nil
}

func (a *Annotator) rows(ctx context.Context, id string) ([]blastx.Row, error) {
	table, err := a.store.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := blastxml.ParseTable(strings.NewReader(table))
	if err != nil {
		return nil, errors.Wrapf(err, "table for %s", id)
	}
	if a.below <= 0 {
		return rows, nil
	}
	kept := rows[:0]
	for _, r := range rows {
		if pct, ok := r.Identity(); ok && pct < a.below {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// taxopath looks up accession once per annotator. Only cancellation is
// returned as an error.
func (a *Annotator) taxopath(ctx context.Context, accession string) (string, error) {
	if path, ok := a.cache[accession]; ok {
		return path, nil
	}

	a.logger.InfoContext(ctx, "looking up taxonomy", "accession", accession)
	path, err := a.lookup(ctx, accession)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.Mark(errors.Wrap(err, "taxonomy lookup"), blastx.ErrCanceled)
		}
		a.logger.WarnContext(ctx, "taxonomy lookup failed", "accession", accession, "error", err)
		path = ""
	}
	a.cache[accession] = path

	if err := a.wait(ctx, a.pause); err != nil {
		return "", err
	}
	return path, nil
}
