package store

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"otu_1", false},
		{"OTU 12;size=40", false},
		{"", true},
		{"   ", true},
		{".", true},
		{"..", true},
		{"a/b", true},
		{`a\b`, true},
		{"a\x00b", true},
	}

	for _, tt := range tests {
		err := ValidateID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, blastx.ErrInvalidInput) {
			t.Errorf("ValidateID(%q) should be ErrInvalidInput, got %v", tt.id, err)
		}
	}
}

func TestRunID(t *testing.T) {
	ctx := context.Background()
	if got := RunID(ctx); got != "" {
		t.Errorf("Expected empty run id, got %q", got)
	}
	if got := RunID(WithRunID(ctx, "2abc")); got != "2abc" {
		t.Errorf("Expected 2abc, got %q", got)
	}
}
