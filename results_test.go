package blastx

import "testing"

func TestRow_Species(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{desc: "Paramecium tetraurelia strain d4-2 18S ribosomal RNA gene", want: "Paramecium tetraurelia"},
		{desc: "Uncultured", want: "Uncultured"},
		{desc: "", want: ""},
	}
	for _, tt := range tests {
		if got := (Row{Description: tt.desc}).Species(); got != tt.want {
			t.Errorf("Species(%q) = %q, want %q", tt.desc, got, tt.want)
		}
	}
}

func TestNewHitDocuments(t *testing.T) {
	rows := []Row{
		{Score: "182.4", EValue: "3.1e-42", MaxIdent: "98.00%", Accession: "MK123", Description: "Vorticella convallaria 18S"},
		{Score: "150", EValue: "n/a", MaxIdent: "90.00%", Accession: "AB9", Description: "Uncultured eukaryote"},
	}

	docs := NewHitDocuments("otu_1", rows)
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "otu_1#1" || docs[1].ID != "otu_1#2" {
		t.Errorf("Unexpected ids %q, %q", docs[0].ID, docs[1].ID)
	}
	if docs[0].Fields[FieldMaxIdent] != 98.0 {
		t.Errorf("Expected max_ident 98, got %v", docs[0].Fields[FieldMaxIdent])
	}
	if docs[0].Fields[FieldSpecies] != "Vorticella convallaria" {
		t.Errorf("Unexpected species %v", docs[0].Fields[FieldSpecies])
	}
	if _, ok := docs[1].Fields[FieldEValue]; ok {
		t.Error("Unparseable e-value should be left out")
	}
	if docs[1].Fields[FieldRank] != 2 {
		t.Errorf("Expected rank 2, got %v", docs[1].Fields[FieldRank])
	}
}
