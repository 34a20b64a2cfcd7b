// Package pipeline runs batches of sequences through search, persistence and
// extraction, isolating failures per sequence.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"

	"github.com/letmevibethatforyou/blastx"
	"github.com/letmevibethatforyou/blastx/blastxml"
	"github.com/letmevibethatforyou/blastx/store"
)

// Runner processes batches sequentially. It is not safe for concurrent use.
type Runner struct {
	searcher   blastx.Searcher
	store      store.Store
	cfg        blastx.Config
	logger     *slog.Logger
	wait       blastx.WaitFunc
	registerer prometheus.Registerer
	metrics    *metrics
	runID      string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithRegisterer records pipeline metrics in reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Runner) {
		r.registerer = reg
	}
}

// WithWait replaces the wait used for the pause before each submission.
func WithWait(w blastx.WaitFunc) Option {
	return func(r *Runner) {
		r.wait = w
	}
}

// WithRunID sets the run id instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = id
	}
}

// New creates a runner. The search configuration is validated and metrics
// are registered when a registerer is set.
func New(searcher blastx.Searcher, st store.Store, cfg blastx.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		searcher: searcher,
		store:    st,
		cfg:      cfg,
		logger:   slog.Default(),
		wait:     blastx.SleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = ksuid.New().String()
	}
	if r.registerer != nil {
		m, err := newMetrics(r.registerer)
		if err != nil {
			return nil, err
		}
		r.metrics = m
	}
	r.logger = r.logger.With("run_id", r.runID)
	return r, nil
}

// RunID returns the id stamped on everything this runner writes.
func (r *Runner) RunID() string {
	return r.runID
}

func (r *Runner) record(ctx context.Context, report *Report, o Outcome) {
	if o.Err != nil {
		o.Code = blastx.CodeOf(o.Err)
		r.logger.ErrorContext(ctx, "sequence failed",
			"stage", o.Stage,
			"sequence_id", o.ID,
			"error_kind", o.Code.String(),
			"error", o.Err,
		)
	}
	r.metrics.observe(o)
	report.add(o)
}

// cancelRest records every remaining sequence as canceled.
func (r *Runner) cancelRest(ctx context.Context, report *Report, stage Stage, ids []string, cause error) {
	for _, id := range ids {
		r.record(ctx, report, Outcome{
			ID:    id,
			Stage: stage,
			Err:   errors.Mark(errors.Wrap(cause, "batch stopped"), blastx.ErrCanceled),
		})
	}
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && blastx.CodeOf(err) == blastx.ErrCodeCanceled
}

// Search submits each sequence in order, pausing before every submission,
// and stores each raw document as soon as it is ready. A failed sequence is
// logged and recorded; the batch continues. Cancellation stops the batch and
// records the remaining sequences as canceled.
func (r *Runner) Search(ctx context.Context, seqs []blastx.Sequence) Report {
	report := Report{RunID: r.runID}
	ctx = store.WithRunID(ctx, r.runID)
	r.logger.InfoContext(ctx, "starting search", "sequences", len(seqs))

	for i, seq := range seqs {
		start := time.Now()
		if err := store.ValidateID(seq.ID); err != nil {
			r.record(ctx, &report, Outcome{ID: seq.ID, Stage: StageSearch, Err: err})
			continue
		}

		if err := r.wait(ctx, r.cfg.SubmitPause); err != nil {
			r.cancelRest(ctx, &report, StageSearch, sequenceIDs(seqs[i:]), err)
			break
		}

		r.logger.InfoContext(ctx, "submitting sequence",
			"sequence_id", seq.ID,
			"position", i+1,
			"total", len(seqs),
		)
		res, err := r.searcher.Search(ctx, seq)
		if err != nil {
			if canceled(ctx, err) {
				r.cancelRest(ctx, &report, StageSearch, sequenceIDs(seqs[i:]), err)
				break
			}
			r.record(ctx, &report, Outcome{ID: seq.ID, Stage: StageSearch, Err: err, Duration: time.Since(start)})
			continue
		}

		if err := r.store.PutRaw(ctx, seq.ID, res.Document); err != nil {
			r.record(ctx, &report, Outcome{
				ID:       seq.ID,
				Stage:    StageSearch,
				Err:      errors.Wrapf(err, "failed to store raw result for %s", seq.ID),
				Attempts: res.Attempts,
				Duration: time.Since(start),
			})
			continue
		}

		r.logger.InfoContext(ctx, "raw result stored",
			"sequence_id", seq.ID,
			"rid", res.Job.RID,
			"attempts", res.Attempts,
			"bytes", len(res.Document),
		)
		r.record(ctx, &report, Outcome{
			ID:       seq.ID,
			Stage:    StageSearch,
			Attempts: res.Attempts,
			Duration: time.Since(start),
		})
	}

	ok, failed := report.Counts()
	r.logger.InfoContext(ctx, "search finished", "succeeded", ok, "failed", failed)
	return report
}

// Extract builds and stores the table for each id from its stored raw
// document. A nil ids extracts every stored raw document. A document that
// fails to parse gets no table and its raw document is left untouched.
func (r *Runner) Extract(ctx context.Context, ids []string) Report {
	report := Report{RunID: r.runID}
	ctx = store.WithRunID(ctx, r.runID)

	if ids == nil {
		all, err := r.store.ListRaw(ctx)
		if err != nil {
			r.record(ctx, &report, Outcome{Stage: StageExtract, Err: errors.Wrap(err, "failed to list raw results")})
			return report
		}
		ids = all
	}
	r.logger.InfoContext(ctx, "starting extraction", "sequences", len(ids))

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			r.cancelRest(ctx, &report, StageExtract, ids[i:], err)
			break
		}
		start := time.Now()

		rows, err := r.extractOne(ctx, id)
		o := Outcome{ID: id, Stage: StageExtract, Err: err, Rows: rows, Duration: time.Since(start)}
		if err == nil {
			r.logger.InfoContext(ctx, "table stored", "sequence_id", id, "rows", rows)
		}
		r.record(ctx, &report, o)
	}

	ok, failed := report.Counts()
	r.logger.InfoContext(ctx, "extraction finished", "succeeded", ok, "failed", failed)
	return report
}

func (r *Runner) extractOne(ctx context.Context, id string) (int, error) {
	doc, err := r.store.GetRaw(ctx, id)
	if err != nil {
		return 0, err
	}
	rows, err := blastxml.Extract(doc)
	if err != nil {
		return 0, errors.Wrapf(err, "result document for %s", id)
	}
	if err := r.store.PutTable(ctx, id, blastxml.FormatTable(rows)); err != nil {
		return 0, errors.Wrapf(err, "failed to store table for %s", id)
	}
	return len(rows), nil
}

// Run searches seqs, then extracts the sequences whose raw documents were
// stored. The report holds the outcomes of both stages.
func (r *Runner) Run(ctx context.Context, seqs []blastx.Sequence) Report {
	report := r.Search(ctx, seqs)
	acquired := report.Succeeded(StageSearch)
	if len(acquired) == 0 {
		return report
	}
	extracted := r.Extract(ctx, acquired)
	report.Outcomes = append(report.Outcomes, extracted.Outcomes...)
	return report
}

func sequenceIDs(seqs []blastx.Sequence) []string {
	ids := make([]string, len(seqs))
	for i, s := range seqs {
		ids[i] = s.ID
	}
	return ids
}
