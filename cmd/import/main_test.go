package main

import (
	"context"
	"reflect"
	"testing"

	"github.com/letmevibethatforyou/blastx/store/fsstore"
)

func TestCopyStore(t *testing.T) {
	ctx := context.Background()
	src, err := fsstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("fsstore.New failed: %v", err)
	}
	dst, err := fsstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("fsstore.New failed: %v", err)
	}

	for _, id := range []string{"otu_1", "otu_2"} {
		if err := src.PutRaw(ctx, id, []byte("<BlastOutput/>")); err != nil {
			t.Fatalf("PutRaw failed: %v", err)
		}
	}
	if err := src.PutTable(ctx, "otu_1", "Score\tE_value\tMax_Ident\tHit_accession\tOrganism"); err != nil {
		t.Fatalf("PutTable failed: %v", err)
	}

	n, err := copyStore(ctx, src, dst, false)
	if err != nil {
		t.Fatalf("copyStore failed: %v", err)
	}
	if n != 2 {
		t.Errorf("copyStore wrote %d entries, want 2", n)
	}
	if tables, _ := dst.ListTables(ctx); len(tables) != 0 {
		t.Errorf("Expected no tables without --tables, got %v", tables)
	}

	n, err = copyStore(ctx, src, dst, true)
	if err != nil {
		t.Fatalf("copyStore failed: %v", err)
	}
	if n != 3 {
		t.Errorf("copyStore wrote %d entries, want 3", n)
	}
	raw, _ := dst.ListRaw(ctx)
	if !reflect.DeepEqual(raw, []string{"otu_1", "otu_2"}) {
		t.Errorf("Raw = %v", raw)
	}
	table, err := dst.GetTable(ctx, "otu_1")
	if err != nil || table != "Score\tE_value\tMax_Ident\tHit_accession\tOrganism" {
		t.Errorf("GetTable = %q, %v", table, err)
	}
}
