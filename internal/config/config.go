// Package config loads the blastx YAML configuration file.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/letmevibethatforyou/blastx"
)

// Storage drivers.
const (
	DriverFS       = "fs"
	DriverDynamoDB = "dynamodb"
)

// Config holds the blastx configuration.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Storage StorageConfig `yaml:"storage"`
	NCBI    NCBIConfig    `yaml:"ncbi"`
	Algolia AlgoliaConfig `yaml:"algolia"`
	Logging LoggingConfig `yaml:"logging"`
}

// SearchConfig holds the remote search settings. Unset durations take the
// blastx defaults; an explicit 0 disables the wait.
type SearchConfig struct {
	Program     string         `yaml:"program"`
	Database    string         `yaml:"database"`
	MaxAttempts int            `yaml:"max_attempts"`
	PollDelay   *time.Duration `yaml:"poll_delay"`
	SubmitPause *time.Duration `yaml:"submit_pause"`
	FailFast    bool           `yaml:"fail_fast"`
}

// StorageConfig selects where raw documents and tables are kept.
type StorageConfig struct {
	Driver string `yaml:"driver"` // fs, dynamodb (default: fs)
	Dir    string `yaml:"dir"`
	Table  string `yaml:"table"`
}

// NCBIConfig holds the remote service endpoints and credentials.
type NCBIConfig struct {
	BaseURL     string         `yaml:"base_url"`
	EutilsURL   string         `yaml:"eutils_url"`
	Email       string         `yaml:"email"`
	APIKey      string         `yaml:"api_key"`
	Tool        string         `yaml:"tool"`
	SecretARN   string         `yaml:"secret_arn"`
	LookupPause *time.Duration `yaml:"lookup_pause"`
}

// AlgoliaConfig holds the hit catalog settings.
type AlgoliaConfig struct {
	Index     string `yaml:"index"`
	SecretARN string `yaml:"secret_arn"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // text, json (default: text)
}

// Load reads configuration from a YAML file, applies defaults and
// validates it. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// Read reads and parses a YAML file without applying defaults. An empty path
// yields the zero Config.
func Read(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML after substituting ${VAR} and ${VAR:-default}.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Search.Program == "" {
		c.Search.Program = blastx.DefaultProgram
	}
	if c.Search.Database == "" {
		c.Search.Database = blastx.DefaultDatabase
	}
	if c.Search.MaxAttempts <= 0 {
		c.Search.MaxAttempts = blastx.DefaultMaxAttempts
	}
	if c.Search.PollDelay == nil {
		d := blastx.DefaultPollDelay
		c.Search.PollDelay = &d
	}
	if c.Search.SubmitPause == nil {
		d := blastx.DefaultSubmitPause
		c.Search.SubmitPause = &d
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverFS
	}
	if c.Storage.Driver == DriverFS && c.Storage.Dir == "" {
		c.Storage.Dir = "results"
	}
	if c.NCBI.Tool == "" {
		c.NCBI.Tool = "blastx"
	}
	if c.NCBI.LookupPause == nil {
		d := 500 * time.Millisecond
		c.NCBI.LookupPause = &d
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFS:
		if c.Storage.Dir == "" {
			return errors.New("storage.dir is required for the fs driver")
		}
	case DriverDynamoDB:
		if c.Storage.Table == "" {
			return errors.New("storage.table is required for the dynamodb driver")
		}
	default:
		return errors.Newf("storage.driver must be %q or %q, got %q", DriverFS, DriverDynamoDB, c.Storage.Driver)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.Newf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	if c.NCBI.LookupPause != nil && *c.NCBI.LookupPause < 0 {
		return errors.Newf("ncbi.lookup_pause cannot be negative, got %s", *c.NCBI.LookupPause)
	}
	if err := c.SearchConfig().Validate(); err != nil {
		return errors.Wrap(err, "search")
	}
	return nil
}

// SearchConfig converts the search section into a blastx.Config.
func (c *Config) SearchConfig() blastx.Config {
	opts := []blastx.Option{
		blastx.WithProgram(c.Search.Program),
		blastx.WithDatabase(c.Search.Database),
		blastx.WithMaxAttempts(c.Search.MaxAttempts),
		blastx.WithFailFast(c.Search.FailFast),
	}
	if c.Search.PollDelay != nil {
		opts = append(opts, blastx.WithPollDelay(*c.Search.PollDelay))
	}
	if c.Search.SubmitPause != nil {
		opts = append(opts, blastx.WithSubmitPause(*c.Search.SubmitPause))
	}
	return blastx.NewConfig(opts...)
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
