package blastx

import (
	"time"

	"github.com/cockroachdb/errors"
)

// HitCap is the maximum number of hits extracted from a result document.
const HitCap = 20

const (
	// DefaultMaxAttempts is the default number of status checks per job.
	DefaultMaxAttempts = 50
	// DefaultPollDelay is the default wait before each status check.
	DefaultPollDelay = 150 * time.Second
	// DefaultSubmitPause is the default pause before each submission.
	DefaultSubmitPause = 10 * time.Second
	// DefaultProgram is the default search program.
	DefaultProgram = "blastn"
	// DefaultDatabase is the default search database.
	DefaultDatabase = "nt"
)

// Config holds the search configuration shared by the submitter, the poller
// and the batch runner.
type Config struct {
	// Program is the remote search program (e.g. blastn).
	Program string
	// Database is the remote database to search (e.g. nt).
	Database string

	// MaxAttempts bounds the number of status checks per job.
	MaxAttempts int
	// PollDelay is the fixed wait before every status check.
	PollDelay time.Duration
	// SubmitPause is the fixed pause before every submission in a batch.
	SubmitPause time.Duration

	// FailFast stops polling as soon as the remote service reports a
	// failed or unknown job. When false such jobs run out the poll budget
	// and surface as ErrTimeout.
	FailFast bool
}

// DefaultConfig returns the configuration with all defaults applied.
func DefaultConfig() Config {
	return Config{
		Program:     DefaultProgram,
		Database:    DefaultDatabase,
		MaxAttempts: DefaultMaxAttempts,
		PollDelay:   DefaultPollDelay,
		SubmitPause: DefaultSubmitPause,
	}
}

// NewConfig returns DefaultConfig with opts applied.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt.Apply(&cfg)
	}
	return cfg
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	if c.Program == "" {
		return errors.Wrap(ErrInvalidOption, "program is required")
	}
	if c.Database == "" {
		return errors.Wrap(ErrInvalidOption, "database is required")
	}
	if c.MaxAttempts <= 0 {
		return errors.Wrapf(ErrInvalidOption, "max attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.PollDelay < 0 {
		return errors.Wrapf(ErrInvalidOption, "poll delay cannot be negative, got %s", c.PollDelay)
	}
	if c.SubmitPause < 0 {
		return errors.Wrapf(ErrInvalidOption, "submit pause cannot be negative, got %s", c.SubmitPause)
	}
	return nil
}

// Policy returns the bounded retry policy described by the configuration.
func (c Config) Policy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.MaxAttempts,
		Delay:       c.PollDelay,
	}
}

// Option represents a search configuration option.
type Option interface {
	Apply(*Config)
}

// configFunc is a function that implements Option.
type configFunc func(*Config)

// Apply implements the Option interface for configFunc.
func (f configFunc) Apply(cfg *Config) {
	f(cfg)
}

// WithProgram sets the remote search program.
func WithProgram(program string) Option {
	return configFunc(func(cfg *Config) {
		cfg.Program = program
	})
}

// WithDatabase sets the remote database.
func WithDatabase(database string) Option {
	return configFunc(func(cfg *Config) {
		cfg.Database = database
	})
}

// WithMaxAttempts sets the maximum number of status checks per job.
func WithMaxAttempts(n int) Option {
	return configFunc(func(cfg *Config) {
		cfg.MaxAttempts = n
	})
}

// WithPollDelay sets the wait before each status check.
func WithPollDelay(d time.Duration) Option {
	return configFunc(func(cfg *Config) {
		cfg.PollDelay = d
	})
}

// WithSubmitPause sets the pause before each submission.
func WithSubmitPause(d time.Duration) Option {
	return configFunc(func(cfg *Config) {
		cfg.SubmitPause = d
	})
}

// WithFailFast enables detection of failed jobs while polling.
func WithFailFast(enabled bool) Option {
	return configFunc(func(cfg *Config) {
		cfg.FailFast = enabled
	})
}

// QueryOption represents a hit catalog query option.
type QueryOption interface {
	Apply(*QueryConfig)
}

// QueryConfig holds all catalog query parameters.
type QueryConfig struct {
	// Limit specifies the maximum number of hits to return.
	Limit int

	// Offset specifies the number of hits to skip for pagination.
	Offset int

	// Sort specifies sorting configuration.
	Sort []SortField

	// Filters contains filter expressions to apply.
	Filters []Expression
}

// SortField represents a field to sort by.
type SortField struct {
	// Field is the name of the field to sort by.
	Field string
	// Desc indicates whether to sort in descending order (true) or ascending order (false).
	Desc bool
}

// optionFunc is a function that implements QueryOption.
type optionFunc func(*QueryConfig)

// Apply implements the QueryOption interface for optionFunc.
func (f optionFunc) Apply(cfg *QueryConfig) {
	f(cfg)
}

// WithLimit sets the maximum number of hits to return.
func WithLimit(n int) QueryOption {
	return optionFunc(func(cfg *QueryConfig) {
		cfg.Limit = n
	})
}

// WithOffset sets the number of hits to skip for pagination.
func WithOffset(n int) QueryOption {
	return optionFunc(func(cfg *QueryConfig) {
		cfg.Offset = n
	})
}

// WithSort adds a sort field to the query.
func WithSort(field string, desc bool) QueryOption {
	return optionFunc(func(cfg *QueryConfig) {
		cfg.Sort = append(cfg.Sort, SortField{Field: field, Desc: desc})
	})
}
