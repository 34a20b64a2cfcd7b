package ncbi

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx"
)

// Searcher implements the blastx.Searcher interface against NCBI BLAST.
type Searcher struct {
	client *Client
	cfg    blastx.Config
	wait   blastx.WaitFunc
}

// NewSearcher creates a searcher that submits with cfg's program and
// database and polls under cfg's retry policy.
func NewSearcher(client *Client, cfg blastx.Config) *Searcher {
	return &Searcher{
		client: client,
		cfg:    cfg,
		wait:   blastx.SleepContext,
	}
}

// WithWait returns a copy of the searcher that waits with w between status
// checks.
func (s *Searcher) WithWait(w blastx.WaitFunc) *Searcher {
	cp := *s
	cp.wait = w
	return &cp
}

// Search implements the blastx.Searcher interface: submit, then poll until
// the result document is ready.
func (s *Searcher) Search(ctx context.Context, seq blastx.Sequence) (*blastx.RawResult, error) {
	if strings.TrimSpace(seq.Residues) == "" {
		return nil, errors.Wrapf(blastx.ErrSubmission, "sequence %q has no residues", seq.ID)
	}

	rid, err := s.client.Submit(ctx, seq.Residues, s.cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "sequence %s", seq.ID)
	}
	s.client.logger.InfoContext(ctx, "search submitted", "sequence_id", seq.ID, "rid", rid)

	policy := s.cfg.Policy()
	policy.Wait = s.wait

	doc, attempts, err := s.client.Poll(ctx, rid, policy, s.cfg.FailFast)
	if err != nil {
		return nil, errors.Wrapf(err, "sequence %s (RID %s)", seq.ID, rid)
	}

	return &blastx.RawResult{
		Job:      blastx.Job{RID: rid, Sequence: seq},
		Document: doc,
		Attempts: attempts,
	}, nil
}
