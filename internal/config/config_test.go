package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/letmevibethatforyou/blastx"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := cfg.SearchConfig()
	if got != blastx.DefaultConfig() {
		t.Errorf("SearchConfig = %+v, want %+v", got, blastx.DefaultConfig())
	}
	if cfg.Storage.Driver != DriverFS || cfg.Storage.Dir != "results" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if *cfg.NCBI.LookupPause != 500*time.Millisecond {
		t.Errorf("LookupPause = %s", *cfg.NCBI.LookupPause)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("BLASTX_TABLE", "blastx-results-dev")

	path := filepath.Join(t.TempDir(), "blastx.yaml")
	data := `
search:
  database: core_nt
  max_attempts: 3
  poll_delay: 30s
  submit_pause: 0s
  fail_fast: true
storage:
  driver: dynamodb
  table: ${BLASTX_TABLE}
ncbi:
  email: ${NCBI_EMAIL_UNSET_FOR_TEST:-lab@example.org}
logging:
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := blastx.Config{
		Program:     blastx.DefaultProgram,
		Database:    "core_nt",
		MaxAttempts: 3,
		PollDelay:   30 * time.Second,
		SubmitPause: 0,
		FailFast:    true,
	}
	if got := cfg.SearchConfig(); got != want {
		t.Errorf("SearchConfig = %+v, want %+v", got, want)
	}
	if cfg.Storage.Table != "blastx-results-dev" {
		t.Errorf("Storage.Table = %q", cfg.Storage.Table)
	}
	if cfg.NCBI.Email != "lab@example.org" {
		t.Errorf("NCBI.Email = %q", cfg.NCBI.Email)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Storage.Driver = "s3" },
			wantErr: `storage.driver must be "fs" or "dynamodb", got "s3"`,
		},
		{
			name:    "dynamodb without table",
			mutate:  func(c *Config) { c.Storage.Driver = DriverDynamoDB },
			wantErr: "storage.table is required for the dynamodb driver",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: `logging.level must be one of debug, info, warn, error, got "trace"`,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: `logging.format must be "text" or "json", got "xml"`,
		},
		{
			name: "negative poll delay",
			mutate: func(c *Config) {
				d := -time.Second
				c.Search.PollDelay = &d
			},
			wantErr: "search: poll delay cannot be negative, got -1s: blastx: invalid option",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("BLASTX_SET", "value")

	tests := []struct {
		in, want string
	}{
		{"a: ${BLASTX_SET}", "a: value"},
		{"a: ${BLASTX_SET:-fallback}", "a: value"},
		{"a: ${BLASTX_UNSET_FOR_TEST:-fallback}", "a: fallback"},
		{"a: ${BLASTX_UNSET_FOR_TEST}", "a: "},
		{"a: plain", "a: plain"},
	}
	for _, tt := range tests {
		if got := string(expandEnvVars([]byte(tt.in))); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
