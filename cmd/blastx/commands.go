package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/blastx"
	"github.com/letmevibethatforyou/blastx/blastxml"
	"github.com/letmevibethatforyou/blastx/fasta"
	"github.com/letmevibethatforyou/blastx/ncbi"
	"github.com/letmevibethatforyou/blastx/pipeline"
)

// signalContext cancels on SIGINT or SIGTERM so a batch stops between
// waits instead of being killed mid-write.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

// searchConfig applies the search flags of c to the configured search
// settings.
func (a *app) searchConfig(c *cli.Context) blastx.Config {
	cfg := a.cfg.SearchConfig()
	if c.IsSet("max-attempts") {
		cfg.MaxAttempts = c.Int("max-attempts")
	}
	if c.IsSet("poll-delay") {
		cfg.PollDelay = c.Duration("poll-delay")
	}
	if c.IsSet("submit-pause") {
		cfg.SubmitPause = c.Duration("submit-pause")
	}
	if c.IsSet("fail-fast") {
		cfg.FailFast = c.Bool("fail-fast")
	}
	if c.IsSet("database") {
		cfg.Database = c.String("database")
	}
	return cfg
}

func readSequences(paths []string) ([]blastx.Sequence, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one FASTA file is required")
	}
	var seqs []blastx.Sequence
	for _, path := range paths {
		records, err := fasta.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		seqs = append(seqs, records...)
	}
	return seqs, nil
}

func (a *app) newRunner(ctx context.Context, c *cli.Context) (*pipeline.Runner, error) {
	cfg := a.searchConfig(c)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search settings: %w", err)
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	client, err := a.ncbiClient(ctx, c)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithRegisterer(a.registry),
	}
	if c.IsSet("run-id") {
		opts = append(opts, pipeline.WithRunID(c.String("run-id")))
	}
	return pipeline.New(ncbi.NewSearcher(client, cfg), st, cfg, opts...)
}

func (a *app) searchAction(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	seqs, err := readSequences(c.Args().Slice())
	if err != nil {
		return err
	}
	runner, err := a.newRunner(ctx, c)
	if err != nil {
		return err
	}
	return summarize(c.App.ErrWriter, runner.Search(ctx, seqs))
}

func (a *app) runAction(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	seqs, err := readSequences(c.Args().Slice())
	if err != nil {
		return err
	}
	runner, err := a.newRunner(ctx, c)
	if err != nil {
		return err
	}
	return summarize(c.App.ErrWriter, runner.Run(ctx, seqs))
}

func (a *app) extractAction(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	// Extraction never contacts NCBI, so no searcher is needed.
	runner, err := pipeline.New(nil, st, a.cfg.SearchConfig(),
		pipeline.WithLogger(a.logger),
		pipeline.WithRegisterer(a.registry),
	)
	if err != nil {
		return err
	}
	return summarize(c.App.ErrWriter, runner.Extract(ctx, idsArg(c)))
}

func (a *app) annotateAction(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	client, err := a.ncbiClient(ctx, c)
	if err != nil {
		return err
	}

	opts := []pipeline.AnnotatorOption{pipeline.WithAnnotatorLogger(a.logger)}
	if a.cfg.NCBI.LookupPause != nil {
		opts = append(opts, pipeline.WithLookupPause(*a.cfg.NCBI.LookupPause))
	}
	if below := c.Float64("identity-below"); below > 0 {
		opts = append(opts, pipeline.WithIdentityBelow(below))
	}
	annotator := pipeline.NewAnnotator(st, client.Taxonomy, opts...)

	var w io.Writer = c.App.Writer
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	n, err := annotator.Annotate(ctx, idsArg(c), w)
	if err != nil {
		return fmt.Errorf("annotation stopped after %d rows: %w", n, err)
	}
	a.logger.InfoContext(ctx, "annotation finished", "rows", n)
	return nil
}

func (a *app) indexAction(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	indexName := strings.TrimSpace(c.String("index"))
	if indexName == "" {
		indexName = a.cfg.Algolia.Index
	}
	if indexName == "" {
		return fmt.Errorf("an Algolia index name is required (--index or algolia.index)")
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	client, err := a.algoliaClient(ctx, c)
	if err != nil {
		return err
	}

	ids := idsArg(c)
	if ids == nil {
		if ids, err = st.ListTables(ctx); err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}
	}

	failed := 0
	for _, id := range ids {
		table, err := st.GetTable(ctx, id)
		if err == nil {
			var rows []blastx.Row
			if rows, err = blastxml.ParseTable(strings.NewReader(table)); err == nil {
				if err = client.DeleteSequence(ctx, indexName, id); err == nil {
					err = client.SaveHits(ctx, indexName, blastx.NewHitDocuments(id, rows))
				}
			}
		}
		if err != nil {
			failed++
			a.logger.ErrorContext(ctx, "failed to index sequence",
				"sequence_id", id,
				"error_kind", blastx.CodeOf(err).String(),
				"error", err,
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		a.logger.InfoContext(ctx, "indexed sequence", "sequence_id", id, "index", indexName)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sequences failed to index", failed, len(ids))
	}
	return nil
}

func idsArg(c *cli.Context) []string {
	if c.NArg() == 0 {
		return nil
	}
	return c.Args().Slice()
}

// summarize writes one line per failed outcome and returns an error when any
// sequence failed.
func summarize(w io.Writer, report pipeline.Report) error {
	for _, o := range report.Failed() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", o.Stage, o.ID, o.Code, o.Err)
	}
	ok, failed := report.Counts()
	fmt.Fprintf(w, "run %s: %d succeeded, %d failed\n", report.RunID, ok, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d outcomes failed", failed, ok+failed)
	}
	return nil
}
