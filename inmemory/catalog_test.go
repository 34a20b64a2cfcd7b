package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx"
	"github.com/letmevibethatforyou/blastx/store/fsstore"
)

func testRows() map[string][]blastx.Row {
	return map[string][]blastx.Row{
		"otu_1": {
			{Score: "505", EValue: "1e-140", MaxIdent: "100.00%", Accession: "MN908947", Description: "Escherichia coli strain K-12 16S ribosomal RNA"},
			{Score: "499", EValue: "2e-138", MaxIdent: "99.27%", Accession: "CP009072", Description: "Escherichia fergusonii ATCC 35469 chromosome"},
			{Score: "410", EValue: "5e-110", MaxIdent: "93.10%", Accession: "AB001234", Description: "Shigella flexneri 2a strain 301"},
		},
		"otu_2": {
			{Score: "300", EValue: "1e-80", MaxIdent: "88.50%", Accession: "KX000001", Description: "Bacillus subtilis subsp. spizizenii"},
			{Score: "150", EValue: "3e-35", MaxIdent: "81.00%", Accession: "KX000002", Description: "uncultured bacterium clone B12"},
		},
	}
}

func newTestCatalog() *Catalog {
	c := New()
	for id, rows := range testRows() {
		c.AddRows(id, rows)
	}
	return c
}

func TestCatalog(t *testing.T) {
	c := newTestCatalog()
	ctx := context.Background()

	if c.Size() != 5 {
		t.Fatalf("Expected 5 documents, got %d", c.Size())
	}

	t.Run("EmptyQueryMatchesAll", func(t *testing.T) {
		page, err := c.Query(ctx, "", blastx.WithLimit(50))
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if page.Total != 5 || len(page.Items) != 5 {
			t.Errorf("Expected 5 hits, got total=%d items=%d", page.Total, len(page.Items))
		}
	})

	t.Run("FreeText", func(t *testing.T) {
		page, err := c.Query(ctx, "escherichia")
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if page.Total != 2 {
			t.Errorf("Expected 2 Escherichia hits, got %d", page.Total)
		}
	})

	t.Run("AllTermsRequired", func(t *testing.T) {
		page, err := c.Query(ctx, "escherichia shigella")
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if page.Total != 0 {
			t.Errorf("Expected no hits, got %d", page.Total)
		}
	})

	t.Run("IdentityFilter", func(t *testing.T) {
		page, err := c.Query(ctx, "", blastx.Lt(blastx.FieldMaxIdent, 97.0), blastx.WithSort(blastx.FieldMaxIdent, true))
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if page.Total != 3 {
			t.Fatalf("Expected 3 low-identity hits, got %d", page.Total)
		}
		if page.Items[0].ID != "otu_1#3" {
			t.Errorf("Expected otu_1#3 first, got %s", page.Items[0].ID)
		}
	})

	t.Run("SequenceFilter", func(t *testing.T) {
		page, err := c.Query(ctx, "", blastx.Eq(blastx.FieldSequenceID, "otu_2"), blastx.WithSort(blastx.FieldRank, false))
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if page.Total != 2 || page.Items[0].ID != "otu_2#1" || page.Items[1].ID != "otu_2#2" {
			t.Errorf("Unexpected page %+v", page.Items)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		page, err := c.Query(ctx, "", blastx.WithLimit(2), blastx.WithSort(blastx.FieldScore, true))
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(page.Items) != 2 || page.NextOffset == nil || *page.NextOffset != 2 {
			t.Fatalf("Unexpected first page: items=%d next=%v", len(page.Items), page.NextOffset)
		}

		last, err := c.Query(ctx, "", blastx.WithLimit(2), blastx.WithOffset(4), blastx.WithSort(blastx.FieldScore, true))
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(last.Items) != 1 || last.NextOffset != nil {
			t.Errorf("Unexpected last page: items=%d next=%v", len(last.Items), last.NextOffset)
		}
		if last.Items[0].ID != "otu_2#2" {
			t.Errorf("Expected lowest score last, got %s", last.Items[0].ID)
		}
	})

	t.Run("OffsetBeyondEnd", func(t *testing.T) {
		page, err := c.Query(ctx, "", blastx.WithOffset(100))
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(page.Items) != 0 || page.Total != 5 {
			t.Errorf("Expected empty page with total 5, got %d/%d", len(page.Items), page.Total)
		}
	})

	t.Run("NegativeLimit", func(t *testing.T) {
		_, err := c.Query(ctx, "", blastx.WithLimit(-1))
		if !errors.Is(err, blastx.ErrInvalidOption) {
			t.Errorf("Expected ErrInvalidOption, got %v", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Query(cctx, "")
		if !errors.Is(err, blastx.ErrCanceled) {
			t.Errorf("Expected ErrCanceled, got %v", err)
		}
	})
}

func TestCatalog_AddRowsReplacesSequence(t *testing.T) {
	c := newTestCatalog()

	c.AddRows("otu_1", testRows()["otu_1"][:1])
	if c.Size() != 3 {
		t.Errorf("Expected 3 documents after replacing otu_1, got %d", c.Size())
	}
	if _, ok := c.Get("otu_1#2"); ok {
		t.Error("Stale hit otu_1#2 should be gone")
	}
	doc, ok := c.Get("otu_1#1")
	if !ok {
		t.Fatal("Expected otu_1#1")
	}
	if doc.Fields[blastx.FieldSpecies] != "Escherichia coli" {
		t.Errorf("Unexpected species %v", doc.Fields[blastx.FieldSpecies])
	}
}

func TestCatalog_RemoveSequence(t *testing.T) {
	c := newTestCatalog()

	if n := c.RemoveSequence("otu_2"); n != 2 {
		t.Errorf("Expected 2 removed, got %d", n)
	}
	if n := c.RemoveSequence("otu_2"); n != 0 {
		t.Errorf("Expected nothing removed, got %d", n)
	}
	if _, ok := c.Get("otu_1#3"); !ok {
		t.Error("Index should still resolve otu_1#3")
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Expected empty catalog, got %d", c.Size())
	}
}

func TestCatalog_ConcurrentAccess(t *testing.T) {
	c := New()
	ctx := context.Background()
	rows := testRows()["otu_1"]

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := blastx.HitID("seq", i)
			c.AddRows(id, rows)
			if _, err := c.Query(ctx, "coli"); err != nil {
				t.Errorf("Query failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if c.Size() != 8*len(rows) {
		t.Errorf("Expected %d documents, got %d", 8*len(rows), c.Size())
	}
}

func TestCatalog_LoadStore(t *testing.T) {
	ctx := context.Background()
	st, err := fsstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("fsstore.New failed: %v", err)
	}
	table := "Score\tE_value\tMax_Ident\tHit_accession\tOrganism\n" +
		"92.5\t1e-20\t90.00%\tCP000001\tEscherichia coli K-12"
	if err := st.PutTable(ctx, "otu_9", table); err != nil {
		t.Fatalf("PutTable failed: %v", err)
	}
	_ = st.PutRaw(ctx, "otu_10", []byte("<raw/>"))

	c := New()
	n, err := c.LoadStore(ctx, st)
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}
	if n != 1 || c.Size() != 1 {
		t.Fatalf("Expected 1 table and 1 hit, got %d and %d", n, c.Size())
	}
	doc, _ := c.Get("otu_9#1")
	if doc.Fields[blastx.FieldMaxIdent] != 90.0 {
		t.Errorf("Expected numeric identity 90, got %v", doc.Fields[blastx.FieldMaxIdent])
	}
}
