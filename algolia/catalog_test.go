package algolia

import (
	"context"
	"testing"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx"
)

func TestCatalog_Query(t *testing.T) {
	fake := &fakeIndex{searchRes: search.QueryRes{
		Hits: []map[string]interface{}{
			{"objectID": "otu_1#1", "species": "Escherichia coli", "max_ident": 99.5, "_highlightResult": map[string]interface{}{}},
			{"objectID": "otu_2#1", "species": "Escherichia fergusonii", "max_ident": 96.1},
		},
		NbHits:  12,
		Page:    0,
		NbPages: 6,
	}}
	client, opened := newFakeClient(fake)
	catalog := NewCatalog(client, "hits")

	page, err := catalog.Query(context.Background(), "escherichia",
		blastx.WithLimit(2),
		blastx.Lt(blastx.FieldMaxIdent, 97),
	)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if (*opened)[0] != "hits" {
		t.Errorf("Expected index hits, got %v", *opened)
	}
	if fake.queries[0] != "escherichia" {
		t.Errorf("Expected query text to be passed through, got %q", fake.queries[0])
	}
	if len(fake.params[0]) != 2 {
		t.Errorf("Expected hits-per-page and filters params, got %d", len(fake.params[0]))
	}

	if page.Total != 12 || len(page.Items) != 2 {
		t.Fatalf("Unexpected page total=%d items=%d", page.Total, len(page.Items))
	}
	if page.Items[0].ID != "otu_1#1" || page.Items[0].Score != 1.0 || page.Items[1].Score != 0.5 {
		t.Errorf("Unexpected items %+v", page.Items)
	}
	if _, ok := page.Items[0].Fields["_highlightResult"]; ok {
		t.Error("Algolia metadata should be stripped from fields")
	}
	if _, ok := page.Items[0].Fields["objectID"]; ok {
		t.Error("objectID should be stripped from fields")
	}
	if page.NextOffset == nil || *page.NextOffset != 2 {
		t.Errorf("Expected next offset 2, got %v", page.NextOffset)
	}
	if page.MaxScore != 1.0 {
		t.Errorf("Expected max score 1, got %v", page.MaxScore)
	}
}

func TestCatalog_QueryErrors(t *testing.T) {
	t.Run("backend failure", func(t *testing.T) {
		client, _ := newFakeClient(&fakeIndex{err: errors.New("boom")})
		_, err := NewCatalog(client, "hits").Query(context.Background(), "x")
		if !errors.Is(err, blastx.ErrBackendUnavailable) {
			t.Errorf("Expected ErrBackendUnavailable, got %v", err)
		}
	})

	t.Run("deadline from client", func(t *testing.T) {
		client, _ := newFakeClient(&fakeIndex{err: errors.Wrap(context.DeadlineExceeded, "http")})
		_, err := NewCatalog(client, "hits").Query(context.Background(), "x")
		if !errors.Is(err, blastx.ErrCanceled) {
			t.Errorf("Expected ErrCanceled, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		fake := &fakeIndex{}
		client, _ := newFakeClient(fake)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewCatalog(client, "hits").Query(ctx, "x")
		if !errors.Is(err, blastx.ErrCanceled) {
			t.Errorf("Expected ErrCanceled, got %v", err)
		}
		if len(fake.queries) != 0 {
			t.Error("Expected no search for a canceled context")
		}
	})

	t.Run("invalid credentials", func(t *testing.T) {
		client := NewClient(StaticSecrets("", ""))
		_, err := NewCatalog(client, "hits").Query(context.Background(), "x")
		if !errors.Is(err, blastx.ErrBackendUnavailable) {
			t.Errorf("Expected ErrBackendUnavailable, got %v", err)
		}
	})

	t.Run("negative offset", func(t *testing.T) {
		client, _ := newFakeClient(&fakeIndex{})
		_, err := NewCatalog(client, "hits").Query(context.Background(), "x", blastx.WithOffset(-5))
		if !errors.Is(err, blastx.ErrInvalidOption) {
			t.Errorf("Expected ErrInvalidOption, got %v", err)
		}
	})
}

func TestBuildQueryParams(t *testing.T) {
	tests := []struct {
		name  string
		cfg   *blastx.QueryConfig
		count int
	}{
		{"defaults", &blastx.QueryConfig{Limit: 10}, 1},
		{"with offset", &blastx.QueryConfig{Limit: 20, Offset: 40}, 2},
		{"with filter", &blastx.QueryConfig{Limit: 10, Filters: []blastx.Expression{blastx.Eq("species", "x")}}, 2},
		{"untranslatable filter", &blastx.QueryConfig{Limit: 10, Filters: []blastx.Expression{blastx.Or()}}, 1},
		{"sort is ignored", &blastx.QueryConfig{Limit: 10, Sort: []blastx.SortField{{Field: "score", Desc: true}}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(buildQueryParams(tt.cfg)); got != tt.count {
				t.Errorf("Expected %d params, got %d", tt.count, got)
			}
		})
	}
}

func TestFilterString(t *testing.T) {
	tests := []struct {
		name string
		expr blastx.Expression
		want string
	}{
		{"eq string", blastx.Eq("species", "Escherichia coli"), `species:"Escherichia coli"`},
		{"eq number", blastx.Eq("rank", 1), `rank = 1`},
		{"ne string", blastx.Ne("species", "x"), `NOT species:"x"`},
		{"ne number", blastx.Ne("rank", 2), `rank != 2`},
		{"gt", blastx.Gt("score", 90.5), `score > 90.5`},
		{"gte", blastx.Gte("score", 90), `score >= 90`},
		{"lt", blastx.Lt("max_ident", 97), `max_ident < 97`},
		{"lte numeric string", blastx.Lte("max_ident", "97.5"), `max_ident <= 97.5`},
		{"range", blastx.Range("e_value", 0, 1e-5), `e_value >= 0 AND e_value <= 0.00001`},
		{"range open", blastx.Range("e_value", nil, 1), `e_value <= 1`},
		{"exists", blastx.Exists("taxopath"), `taxopath:*`},
		{"not", blastx.Not(blastx.Eq("species", "x")), `NOT (species:"x")`},
		{"and", blastx.And(blastx.Gt("score", 1), blastx.Lt("score", 2)), `(score > 1) AND (score < 2)`},
		{"or", blastx.Or(blastx.Eq("sequence_id", "a"), blastx.Eq("sequence_id", "b")), `(sequence_id:"a") OR (sequence_id:"b")`},
		{"empty not", blastx.Not(blastx.Or()), ``},
		{"quoted field", blastx.Eq("hit accession", "X"), `"hit accession":"X"`},
		{"escaped quote", blastx.Eq("organism", `say "hi"`), `organism:"say \"hi\""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filterString(tt.expr); got != tt.want {
				t.Errorf("filterString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRankScore(t *testing.T) {
	tests := []struct {
		total, position int
		want            float64
	}{
		{0, 0, 1.0},
		{4, 0, 1.0},
		{4, 1, 0.75},
		{4, 3, 0.25},
	}

	for _, tt := range tests {
		if got := rankScore(tt.total, tt.position); got != tt.want {
			t.Errorf("rankScore(%d, %d) = %v, want %v", tt.total, tt.position, got, tt.want)
		}
	}
}
