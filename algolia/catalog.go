package algolia

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/letmevibethatforyou/blastx"
)

// DefaultLimit is the page size used when a query sets none.
const DefaultLimit = 10

// Catalog implements the blastx.Querier interface over an Algolia index of
// hit records.
type Catalog struct {
	client    *Client
	indexName string
}

var _ blastx.Querier = (*Catalog)(nil)

// NewCatalog creates a catalog reading indexName.
func NewCatalog(client *Client, indexName string) *Catalog {
	return &Catalog{
		client:    client,
		indexName: indexName,
	}
}

// Query implements the blastx.Querier interface. Offsets are rounded down to
// a multiple of the page size. Sort fields are not applied; Algolia sorts
// through replica indices configured on the dashboard.
func (c *Catalog) Query(ctx context.Context, text string, opts ...blastx.QueryOption) (*blastx.HitPage, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, errors.Mark(err, blastx.ErrCanceled)
	}

	cfg := &blastx.QueryConfig{}
	for _, o := range opts {
		o.Apply(cfg)
	}
	if cfg.Limit < 0 || cfg.Offset < 0 {
		return nil, errors.Wrapf(blastx.ErrInvalidOption, "limit %d and offset %d must not be negative", cfg.Limit, cfg.Offset)
	}
	if cfg.Limit == 0 {
		cfg.Limit = DefaultLimit
	}

	_, span := c.client.tracer.Start(ctx, "algolia.query",
		trace.WithAttributes(
			attribute.String("algolia.index_name", c.indexName),
			attribute.Int("algolia.limit", cfg.Limit),
		),
	)
	defer span.End()

	idx, err := c.client.openIndex(c.indexName)
	if err != nil {
		failSpan(span, err, "failed to get Algolia client")
		return nil, err
	}

	res, err := idx.search(text, buildQueryParams(cfg)...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = errors.Mark(err, blastx.ErrCanceled)
		} else {
			err = errors.Mark(errors.Wrap(err, "Algolia search failed"), blastx.ErrBackendUnavailable)
		}
		failSpan(span, err, "search failed")
		return nil, err
	}

	page := &blastx.HitPage{
		Items: make([]blastx.Hit, 0, len(res.Hits)),
		Total: int64(res.NbHits),
		Query: text,
	}
	for i, hit := range res.Hits {
		objectID, _ := hit["objectID"].(string)
		fields := make(map[string]interface{}, len(hit))
		for k, v := range hit {
			if k == "objectID" || strings.HasPrefix(k, "_") {
				continue
			}
			fields[k] = v
		}
		score := rankScore(len(res.Hits), i)
		page.MaxScore = max(page.MaxScore, score)
		page.Items = append(page.Items, blastx.Hit{
			ID:     objectID,
			Score:  score,
			Fields: fields,
		})
	}
	if next := res.Page + 1; next < res.NbPages {
		nextOffset := next * cfg.Limit
		page.NextOffset = &nextOffset
	}
	page.Took = time.Since(start).Milliseconds()

	span.SetAttributes(attribute.Int("algolia.hits", len(page.Items)))
	return page, nil
}

// buildQueryParams converts a query configuration to Algolia search
// parameters.
func buildQueryParams(cfg *blastx.QueryConfig) []interface{} {
	params := []interface{}{opt.HitsPerPage(cfg.Limit)}
	if cfg.Offset > 0 {
		params = append(params, opt.Page(cfg.Offset/cfg.Limit))
	}

	filters := make([]string, 0, len(cfg.Filters))
	for _, expr := range cfg.Filters {
		if f := filterString(expr); f != "" {
			filters = append(filters, f)
		}
	}
	if len(filters) > 0 {
		params = append(params, opt.Filters(strings.Join(filters, " AND ")))
	}
	return params
}

// rankScore turns a result position into a score in (0, 1]; Algolia
// reports ranking, not scores.
func rankScore(total, position int) float64 {
	if total == 0 {
		return 1.0
	}
	return float64(total-position) / float64(total)
}

// filterString converts an expression to Algolia filter syntax. Expressions
// Algolia cannot express become "".
func filterString(expr blastx.Expression) string {
	switch e := expr.(type) {
	case blastx.AndExpr:
		return joinFilters(e.Exprs, " AND ")
	case blastx.OrExpr:
		return joinFilters(e.Exprs, " OR ")
	case blastx.NotExpr:
		inner := filterString(e.Inner)
		if inner == "" {
			return ""
		}
		return "NOT (" + inner + ")"
	case blastx.CompareExpr:
		return compareFilter(e)
	case blastx.RangeExpr:
		var parts []string
		if e.Min != nil {
			parts = append(parts, fmt.Sprintf("%s >= %s", escapeField(e.Field), numericValue(e.Min)))
		}
		if e.Max != nil {
			parts = append(parts, fmt.Sprintf("%s <= %s", escapeField(e.Field), numericValue(e.Max)))
		}
		return strings.Join(parts, " AND ")
	case blastx.ExistsExpr:
		return fmt.Sprintf("%s:*", escapeField(e.Field))
	default:
		return ""
	}
}

func joinFilters(exprs []blastx.Expression, sep string) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		if f := filterString(e); f != "" {
			parts = append(parts, "("+f+")")
		}
	}
	return strings.Join(parts, sep)
}

func compareFilter(e blastx.CompareExpr) string {
	field := escapeField(e.Field)
	switch e.Op {
	case blastx.OpEq:
		if _, ok := asNumber(e.Value); ok {
			return fmt.Sprintf("%s = %s", field, numericValue(e.Value))
		}
		return fmt.Sprintf("%s:%s", field, quoteValue(e.Value))
	case blastx.OpNe:
		if _, ok := asNumber(e.Value); ok {
			return fmt.Sprintf("%s != %s", field, numericValue(e.Value))
		}
		return fmt.Sprintf("NOT %s:%s", field, quoteValue(e.Value))
	case blastx.OpGt:
		return fmt.Sprintf("%s > %s", field, numericValue(e.Value))
	case blastx.OpGte:
		return fmt.Sprintf("%s >= %s", field, numericValue(e.Value))
	case blastx.OpLt:
		return fmt.Sprintf("%s < %s", field, numericValue(e.Value))
	case blastx.OpLte:
		return fmt.Sprintf("%s <= %s", field, numericValue(e.Value))
	default:
		return ""
	}
}

// escapeField quotes field names containing filter syntax characters.
func escapeField(field string) string {
	if strings.ContainsAny(field, " :-()") {
		return fmt.Sprintf(`"%s"`, field)
	}
	return field
}

// quoteValue quotes a facet value, escaping inner quotes.
func quoteValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	case bool:
		return `"` + strconv.FormatBool(v) + `"`
	default:
		return fmt.Sprintf(`"%v"`, v)
	}
}

func asNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// numericValue formats value for a numeric comparison. Strings that parse as
// numbers are used verbatim; anything else is quoted.
func numericValue(value interface{}) string {
	if value == nil {
		return "0"
	}
	if f, ok := asNumber(value); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if s, ok := value.(string); ok {
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return s
		}
	}
	return quoteValue(value)
}
