package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/blastx"
	"github.com/letmevibethatforyou/blastx/algolia"
	"github.com/letmevibethatforyou/blastx/inmemory"
	"github.com/letmevibethatforyou/blastx/store/fsstore"
)

const (
	defaultLimit   = 10
	defaultTimeout = 5 * time.Second
)

// filterOperators is ordered so two-character operators match first.
var filterOperators = []string{">=", "<=", "!=", "=", ">", "<"}

func main() {
	_ = godotenv.Load()

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "query",
		Usage: "Query the hit catalog in Algolia or in a local results directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Algolia index name",
				EnvVars: []string{"ALGOLIA_INDEX"},
			},
			&cli.StringFlag{
				Name:  "tables",
				Usage: "Results directory whose tables are loaded into a local catalog",
			},
			&cli.StringFlag{
				Name:    "algolia-secret-arn",
				Usage:   "ARN of AWS Secrets Manager secret containing Algolia credentials",
				EnvVars: []string{"ALGOLIA_SECRET_ARN"},
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Query string to search for; positional arg is a fallback",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of hits to return",
				Value:   defaultLimit,
			},
			&cli.IntFlag{
				Name:    "offset",
				Aliases: []string{"o"},
				Usage:   "Number of hits to skip before returning results",
				Value:   0,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for the query",
				Value: defaultTimeout,
			},
			&cli.StringSliceFlag{
				Name:  "filter",
				Usage: "Filter in field<op>value format with op one of =, !=, >, >=, <, <=; repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "sort",
				Usage: "Sort field, prefix with - for descending; repeatable (local catalog only)",
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	ctx := c.Context

	query := strings.TrimSpace(c.String("query"))
	if query == "" && c.NArg() > 0 {
		query = strings.TrimSpace(c.Args().First())
	}

	limit := c.Int("limit")
	if limit <= 0 {
		slog.WarnContext(ctx, "limit must be positive; falling back to default", "limit", limit, "default", defaultLimit)
		limit = defaultLimit
	}

	offset := c.Int("offset")
	if offset < 0 {
		slog.WarnContext(ctx, "offset cannot be negative; resetting to 0", "offset", offset)
		offset = 0
	}

	timeout := c.Duration("timeout")
	if timeout <= 0 {
		slog.WarnContext(ctx, "timeout must be positive; using default", "timeout", timeout, "default", defaultTimeout)
		timeout = defaultTimeout
	}

	filterOptions, err := buildFilterOptions(c.StringSlice("filter"))
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	opts := []blastx.QueryOption{
		blastx.WithLimit(limit),
		blastx.WithOffset(offset),
	}
	opts = append(opts, filterOptions...)
	opts = append(opts, buildSortOptions(c.StringSlice("sort"))...)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	querier, source, err := newQuerier(ctx, c)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "executing query",
		"source", source,
		"query", query,
		"limit", limit,
		"offset", offset,
		"filter_count", len(filterOptions),
		"timeout", timeout,
	)

	results, err := querier.Query(ctx, query, opts...)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if err := printResults(results); err != nil {
		return fmt.Errorf("failed to serialize results: %w", err)
	}

	return nil
}

func newQuerier(ctx context.Context, c *cli.Context) (blastx.Querier, string, error) {
	indexName := strings.TrimSpace(c.String("index"))
	tablesDir := strings.TrimSpace(c.String("tables"))

	switch {
	case indexName != "" && tablesDir != "":
		return nil, "", fmt.Errorf("--index and --tables are mutually exclusive")

	case tablesDir != "":
		st, err := fsstore.New(tablesDir)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open results directory: %w", err)
		}
		catalog := inmemory.New()
		n, err := catalog.LoadStore(ctx, st)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load tables: %w", err)
		}
		slog.InfoContext(ctx, "loaded local catalog", "dir", tablesDir, "tables", n, "hits", catalog.Size())
		return catalog, tablesDir, nil

	case indexName != "":
		var fetchSecrets algolia.FetchSecrets
		if secretArn := strings.TrimSpace(c.String("algolia-secret-arn")); secretArn != "" {
			slog.InfoContext(ctx, "using AWS Secrets Manager for Algolia credentials", "secret_arn", secretArn)
			cfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, "", fmt.Errorf("failed to load AWS config: %w", err)
			}
			fetchSecrets = algolia.AWSSecretsFromARN(ctx, secretsmanager.NewFromConfig(cfg), secretArn)
		} else {
			fetchSecrets = algolia.EnvSecrets()
		}
		return algolia.NewCatalog(algolia.NewClient(fetchSecrets), indexName), indexName, nil

	default:
		return nil, "", fmt.Errorf("one of --index or --tables is required")
	}
}

func buildFilterOptions(raw []string) ([]blastx.QueryOption, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	options := make([]blastx.QueryOption, 0, len(raw))
	for _, item := range raw {
		expr, err := parseFilter(item)
		if err != nil {
			return nil, err
		}
		options = append(options, expr)
	}

	return options, nil
}

// parseFilter parses field<op>value. Values that parse as numbers compare
// numerically.
func parseFilter(item string) (blastx.Expression, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, fmt.Errorf("filter cannot be empty")
	}

	pos, opText := -1, ""
	for _, candidate := range filterOperators {
		i := strings.Index(item, candidate)
		if i < 0 {
			continue
		}
		if pos < 0 || i < pos {
			pos, opText = i, candidate
		}
	}
	if pos < 0 {
		return nil, fmt.Errorf("filter must be in field<op>value format: %q", item)
	}

	op, _ := blastx.ParseOperator(opText)
	field := strings.TrimSpace(item[:pos])
	value := strings.TrimSpace(item[pos+len(opText):])
	if field == "" || value == "" {
		return nil, fmt.Errorf("filter field and value must be non-empty: %q", item)
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return blastx.Compare(field, op, f), nil
	}
	return blastx.Compare(field, op, value), nil
}

func buildSortOptions(raw []string) []blastx.QueryOption {
	var options []blastx.QueryOption
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		field, desc := strings.TrimPrefix(item, "-"), strings.HasPrefix(item, "-")
		options = append(options, blastx.WithSort(field, desc))
	}
	return options
}

func printResults(res *blastx.HitPage) error {
	if res == nil {
		fmt.Println("{}")
		return nil
	}

	type item struct {
		ID     string                 `json:"id"`
		Score  float64                `json:"score"`
		Fields map[string]interface{} `json:"fields"`
	}
	items := make([]item, len(res.Items))
	for i, h := range res.Items {
		items[i] = item{ID: h.ID, Score: h.Score, Fields: h.Fields}
	}

	payload := struct {
		Total      int64   `json:"total"`
		Took       int64   `json:"took_ms"`
		Query      string  `json:"query"`
		MaxScore   float64 `json:"max_score"`
		NextOffset *int    `json:"next_offset,omitempty"`
		Items      []item  `json:"items"`
	}{
		Total:      res.Total,
		Took:       res.Took,
		Query:      res.Query,
		MaxScore:   res.MaxScore,
		NextOffset: res.NextOffset,
		Items:      items,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	fmt.Println(string(data))
	return nil
}
