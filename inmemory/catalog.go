// Package inmemory provides a hit catalog held in memory, for querying
// extracted tables without a hosted index.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx"
)

// DefaultLimit is the page size used when a query sets none.
const DefaultLimit = 10

// Catalog implements the blastx.Querier interface over hit documents.
// It is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	docs    []blastx.HitDocument
	idIndex map[string]int // maps document ID to index in docs
}

var _ blastx.Querier = (*Catalog)(nil)

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		docs:    make([]blastx.HitDocument, 0),
		idIndex: make(map[string]int),
	}
}

// Add inserts docs, replacing any document with the same ID.
func (c *Catalog) Add(docs ...blastx.HitDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range docs {
		if idx, exists := c.idIndex[doc.ID]; exists {
			c.docs[idx] = doc
			continue
		}
		c.idIndex[doc.ID] = len(c.docs)
		c.docs = append(c.docs, doc)
	}
}

// AddRows replaces the hits of sequenceID with rows. Ranks follow row order.
func (c *Catalog) AddRows(sequenceID string, rows []blastx.Row) {
	c.RemoveSequence(sequenceID)
	c.Add(blastx.NewHitDocuments(sequenceID, rows)...)
}

// RemoveSequence removes every hit of sequenceID and returns how many were
// removed.
func (c *Catalog) RemoveSequence(sequenceID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.docs[:0]
	removed := 0
	for _, doc := range c.docs {
		if doc.Fields[blastx.FieldSequenceID] == sequenceID {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	if removed == 0 {
		return 0
	}

	c.docs = kept
	c.idIndex = make(map[string]int, len(kept))
	for i, doc := range kept {
		c.idIndex[doc.ID] = i
	}
	return removed
}

// Get returns the document with the given ID.
func (c *Catalog) Get(id string) (blastx.HitDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.idIndex[id]
	if !ok {
		return blastx.HitDocument{}, false
	}
	return c.docs[idx], true
}

// Clear removes all documents.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.docs = make([]blastx.HitDocument, 0)
	c.idIndex = make(map[string]int)
}

// Size returns the number of documents in the catalog.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Query implements the blastx.Querier interface. Every whitespace-separated
// term of text must appear in some string field; an empty text matches all
// documents.
func (c *Catalog) Query(ctx context.Context, text string, opts ...blastx.QueryOption) (*blastx.HitPage, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, errors.Mark(err, blastx.ErrCanceled)
	}

	cfg := &blastx.QueryConfig{}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	if cfg.Limit < 0 || cfg.Offset < 0 {
		return nil, errors.Wrapf(blastx.ErrInvalidOption, "limit %d and offset %d must not be negative", cfg.Limit, cfg.Offset)
	}
	if cfg.Limit == 0 {
		cfg.Limit = DefaultLimit
	}
	terms := strings.Fields(strings.ToLower(text))

	c.mu.RLock()
	var matches []scored
	for _, doc := range c.docs {
		if !matchesAll(doc, cfg.Filters) {
			continue
		}
		if score := scoreDocument(doc, terms); score > 0 {
			matches = append(matches, scored{doc: doc, score: score})
		}
	}
	c.mu.RUnlock()

	sortMatches(matches, cfg.Sort)

	from := min(cfg.Offset, len(matches))
	to := min(cfg.Offset+cfg.Limit, len(matches))

	page := &blastx.HitPage{
		Items: make([]blastx.Hit, 0, to-from),
		Total: int64(len(matches)),
		Query: text,
	}
	for _, m := range matches[from:to] {
		page.MaxScore = max(page.MaxScore, m.score)
		page.Items = append(page.Items, blastx.Hit{
			ID:     m.doc.ID,
			Score:  m.score,
			Fields: m.doc.Fields,
		})
	}
	if to < len(matches) {
		next := to
		page.NextOffset = &next
	}
	page.Took = time.Since(start).Milliseconds()
	return page, nil
}

type scored struct {
	doc   blastx.HitDocument
	score float64
}

// scoreDocument counts the string fields containing each term; a document
// missing any term scores zero.
func scoreDocument(doc blastx.HitDocument, terms []string) float64 {
	if len(terms) == 0 {
		return 1
	}
	score := 0.0
	for _, term := range terms {
		hits := 0
		for _, v := range doc.Fields {
			if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), term) {
				hits++
			}
		}
		if hits == 0 {
			return 0
		}
		score += float64(hits)
	}
	return score
}

// sortMatches orders by the sort fields, then by score descending, then by
// ID so results are stable.
func sortMatches(matches []scored, fields []blastx.SortField) {
	sort.SliceStable(matches, func(i, j int) bool {
		for _, sf := range fields {
			var cmp int
			if sf.Field == "_score" {
				cmp = compareValues(matches[i].score, matches[j].score)
			} else {
				cmp = compareValues(matches[i].doc.Fields[sf.Field], matches[j].doc.Fields[sf.Field])
			}
			if cmp != 0 {
				if sf.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].doc.ID < matches[j].doc.ID
	})
}

// compareValues orders numbers numerically and everything else by its
// string form. Missing values sort first.
func compareValues(v1, v2 interface{}) int {
	switch {
	case v1 == nil && v2 == nil:
		return 0
	case v1 == nil:
		return -1
	case v2 == nil:
		return 1
	}
	if f1, ok := toFloat64(v1); ok {
		if f2, ok := toFloat64(v2); ok {
			switch {
			case f1 < f2:
				return -1
			case f1 > f2:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(v1), fmt.Sprint(v2))
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
