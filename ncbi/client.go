// Package ncbi submits searches to the NCBI BLAST URL API, polls for their
// results and looks up GenBank taxonomy through E-utilities.
package ncbi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/letmevibethatforyou/blastx"
	"github.com/letmevibethatforyou/blastx/blastxml"
)

const (
	// DefaultBaseURL is the BLAST URL API endpoint.
	DefaultBaseURL = "https://blast.ncbi.nlm.nih.gov/blast/Blast.cgi"
	// DefaultEutilsURL is the E-utilities efetch endpoint.
	DefaultEutilsURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// Client talks to NCBI. Credentials are fetched once, on first use.
type Client struct {
	getCredentials func() (Credentials, error)
	transport      Transport
	baseURL        string
	eutilsURL      string
	logger         *slog.Logger
	tracer         trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) {
		c.transport = t
	}
}

// WithBaseURL overrides the BLAST URL API endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithEutilsURL overrides the efetch endpoint.
func WithEutilsURL(u string) ClientOption {
	return func(c *Client) {
		c.eutilsURL = u
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client. A nil fetchCredentials means anonymous access.
func NewClient(fetchCredentials FetchCredentials, opts ...ClientOption) *Client {
	if fetchCredentials == nil {
		fetchCredentials = Anonymous()
	}
	getCredentials := sync.OnceValues(func() (Credentials, error) {
		creds, err := fetchCredentials()
		if err != nil {
			return Credentials{}, errors.Wrap(err, "failed to fetch NCBI credentials")
		}
		return creds, nil
	})

	c := &Client{
		getCredentials: getCredentials,
		transport:      &HTTPTransport{UserAgent: "blastx"},
		baseURL:        DefaultBaseURL,
		eutilsURL:      DefaultEutilsURL,
		logger:         slog.Default(),
		tracer:         otel.Tracer("blastx-ncbi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// callError wraps a transport error with sentinel, adding ErrCanceled when
// the context ended.
func callError(ctx context.Context, err error, sentinel error, msg string) error {
	err = errors.Mark(errors.Wrap(err, msg), sentinel)
	if ctx.Err() != nil {
		err = errors.Mark(err, blastx.ErrCanceled)
	}
	return err
}

func failSpan(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// Submit sends residues as a new search and returns its tracking token.
// It fails with blastx.ErrSubmission when the call fails, the status is not
// 2xx, or the body carries no token. No status checks are made.
func (c *Client) Submit(ctx context.Context, residues string, cfg blastx.Config) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ncbi.submit",
		trace.WithAttributes(
			attribute.String("ncbi.program", cfg.Program),
			attribute.String("ncbi.database", cfg.Database),
			attribute.Int("ncbi.query_length", len(residues)),
		),
	)
	defer span.End()

	creds, err := c.getCredentials()
	if err != nil {
		failSpan(span, err, "failed to get NCBI credentials")
		return "", errors.Mark(err, blastx.ErrSubmission)
	}

	params := url.Values{}
	params.Set("CMD", "Put")
	params.Set("PROGRAM", cfg.Program)
	params.Set("DATABASE", cfg.Database)
	params.Set("QUERY", residues)
	creds.blastParams(params)

	resp, err := c.transport.Do(ctx, &Request{Method: http.MethodPost, URL: c.baseURL, Params: params})
	if err != nil {
		err = callError(ctx, err, blastx.ErrSubmission, "submission request failed")
		failSpan(span, err, "submission request failed")
		return "", err
	}
	if !resp.OK() {
		err := errors.Wrapf(blastx.ErrSubmission, "submission returned HTTP %d", resp.StatusCode)
		failSpan(span, err, "submission rejected")
		return "", err
	}

	rid := ExtractRID(resp.Body)
	if rid == "" {
		err := errors.Wrap(blastx.ErrSubmission, "no RID in submission response")
		failSpan(span, err, "no RID in response")
		return "", err
	}

	span.SetAttributes(attribute.String("ncbi.rid", rid))
	span.SetStatus(codes.Ok, "search submitted")
	return rid, nil
}

// ExtractRID returns the token following "RID = " on the first line that
// contains it, or "" if there is none.
func ExtractRID(body []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		_, rest, found := strings.Cut(scanner.Text(), "RID = ")
		if !found {
			continue
		}
		token, _, _ := strings.Cut(rest, " ")
		return strings.TrimSpace(token)
	}
	return ""
}

// JobStatus returns the value of the "Status=" field of a status page, or ""
// if the page has none.
func JobStatus(body []byte) string {
	_, rest, found := bytes.Cut(body, []byte("Status="))
	if !found {
		return ""
	}
	if i := bytes.IndexFunc(rest, func(r rune) bool { return r == ' ' || r == '\n' || r == '\r' || r == '\t' }); i >= 0 {
		rest = rest[:i]
	}
	return string(rest)
}

// Check makes one status request for rid and returns the response body.
// A failed call or a non-2xx status is blastx.ErrBackendUnavailable.
func (c *Client) Check(ctx context.Context, rid string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "ncbi.status",
		trace.WithAttributes(attribute.String("ncbi.rid", rid)),
	)
	defer span.End()

	params := url.Values{}
	params.Set("CMD", "Get")
	params.Set("FORMAT_TYPE", "XML")
	params.Set("RID", rid)

	resp, err := c.transport.Do(ctx, &Request{Method: http.MethodGet, URL: c.baseURL, Params: params})
	if err != nil {
		err = callError(ctx, err, blastx.ErrBackendUnavailable, "status request failed")
		failSpan(span, err, "status request failed")
		return nil, err
	}
	if !resp.OK() {
		err := errors.Wrapf(blastx.ErrBackendUnavailable, "status check for %s returned HTTP %d", rid, resp.StatusCode)
		failSpan(span, err, "status check rejected")
		return nil, err
	}

	span.SetStatus(codes.Ok, "status checked")
	return resp.Body, nil
}

// Poll checks rid under policy until the result document is ready.
//
// The document is ready once it contains blastxml.ReadyMarker. When the
// budget runs out the error is blastx.ErrTimeout. Unless failFast is set, a
// job the service reports as failed is treated like one still running.
func (c *Client) Poll(ctx context.Context, rid string, policy blastx.RetryPolicy, failFast bool) ([]byte, int, error) {
	ctx, span := c.tracer.Start(ctx, "ncbi.poll",
		trace.WithAttributes(
			attribute.String("ncbi.rid", rid),
			attribute.Int("ncbi.max_attempts", policy.MaxAttempts),
		),
	)
	defer span.End()

	var doc []byte
	attempts, err := policy.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		c.logger.InfoContext(ctx, "waiting for results",
			"rid", rid,
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
		)
		body, err := c.Check(ctx, rid)
		if err != nil {
			return false, err
		}
		if bytes.Contains(body, []byte(blastxml.ReadyMarker)) {
			doc = body
			return true, nil
		}
		if failFast {
			if status := JobStatus(body); status == "FAILED" || status == "UNKNOWN" {
				return false, errors.Wrapf(blastx.ErrJobFailed, "RID %s reported status %s", rid, status)
			}
		}
		return false, nil
	})
	span.SetAttributes(attribute.Int("ncbi.attempts", attempts))
	if err != nil {
		failSpan(span, err, "polling failed")
		return nil, attempts, err
	}

	span.SetStatus(codes.Ok, "results ready")
	return doc, attempts, nil
}

type gbSet struct {
	Seqs []struct {
		Taxonomy string `xml:"GBSeq_taxonomy"`
	} `xml:"GBSeq"`
}

// Taxonomy returns the GenBank taxonomy lineage of a nucleotide accession.
func (c *Client) Taxonomy(ctx context.Context, accession string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ncbi.taxonomy",
		trace.WithAttributes(attribute.String("ncbi.accession", accession)),
	)
	defer span.End()

	creds, err := c.getCredentials()
	if err != nil {
		failSpan(span, err, "failed to get NCBI credentials")
		return "", errors.Mark(err, blastx.ErrBackendUnavailable)
	}

	params := url.Values{}
	params.Set("db", "nucleotide")
	params.Set("id", accession)
	params.Set("rettype", "gb")
	params.Set("retmode", "xml")
	creds.eutilsParams(params)

	resp, err := c.transport.Do(ctx, &Request{Method: http.MethodGet, URL: c.eutilsURL, Params: params})
	if err != nil {
		err = callError(ctx, err, blastx.ErrBackendUnavailable, "efetch request failed")
		failSpan(span, err, "efetch request failed")
		return "", err
	}
	if !resp.OK() {
		err := errors.Wrapf(blastx.ErrBackendUnavailable, "efetch for %s returned HTTP %d", accession, resp.StatusCode)
		failSpan(span, err, "efetch rejected")
		return "", err
	}

	var set gbSet
	if err := xml.Unmarshal(resp.Body, &set); err != nil {
		err = errors.Mark(errors.Wrapf(err, "efetch response for %s", accession), blastx.ErrParse)
		failSpan(span, err, "invalid efetch response")
		return "", err
	}
	if len(set.Seqs) == 0 || strings.TrimSpace(set.Seqs[0].Taxonomy) == "" {
		err := errors.Wrapf(blastx.ErrNotFound, "no taxonomy for %s", accession)
		failSpan(span, err, "no taxonomy")
		return "", err
	}

	span.SetStatus(codes.Ok, "taxonomy fetched")
	return strings.TrimSpace(set.Seqs[0].Taxonomy), nil
}
