package blastx

import "context"

// Sequence is a single FASTA record: a free-text identifier and its residues.
type Sequence struct {
	// ID is the identifier line without the '>' marker.
	ID string
	// Residues holds the concatenated residue lines.
	Residues string
}

// Job is a submitted remote search. It is created at submission and never
// modified afterwards.
type Job struct {
	// RID is the tracking token assigned by the remote service.
	RID string
	// Sequence is the record the job was submitted for.
	Sequence Sequence
}

// RawResult is the unparsed result document of a completed Job.
type RawResult struct {
	Job Job
	// Document is the raw XML result document.
	Document []byte
	// Attempts is the number of status checks performed before the
	// document was ready.
	Attempts int
}

// Searcher runs a remote similarity search for one sequence.
type Searcher interface {
	// Search submits seq, waits for completion and returns the raw result.
	Search(ctx context.Context, seq Sequence) (*RawResult, error)
}

// SearcherFunc is a function type that implements the Searcher interface.
// This allows using a function as a Searcher, similar to http.HandlerFunc.
type SearcherFunc func(context.Context, Sequence) (*RawResult, error)

// Search implements the Searcher interface for SearcherFunc.
func (f SearcherFunc) Search(ctx context.Context, seq Sequence) (*RawResult, error) {
	return f(ctx, seq)
}

// Querier defines the hit catalog query interface.
type Querier interface {
	// Query executes a catalog query with the given free text and options.
	Query(ctx context.Context, text string, opts ...QueryOption) (*HitPage, error)
}

// QuerierFunc is a function type that implements the Querier interface.
type QuerierFunc func(context.Context, string, ...QueryOption) (*HitPage, error)

// Query implements the Querier interface for QuerierFunc.
func (f QuerierFunc) Query(ctx context.Context, text string, opts ...QueryOption) (*HitPage, error) {
	return f(ctx, text, opts...)
}
