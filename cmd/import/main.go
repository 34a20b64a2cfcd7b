package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/blastx/store"
	"github.com/letmevibethatforyou/blastx/store/dynamo"
	"github.com/letmevibethatforyou/blastx/store/fsstore"
)

// copyStore copies every raw document, and with tables every table, from src
// to dst. It returns the number of entries written.
func copyStore(ctx context.Context, src, dst store.Store, tables bool) (int, error) {
	ids, err := src.ListRaw(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list raw results: %w", err)
	}

	written := 0
	for _, id := range ids {
		doc, err := src.GetRaw(ctx, id)
		if err != nil {
			return written, fmt.Errorf("failed to read raw result %s: %w", id, err)
		}
		if err := dst.PutRaw(ctx, id, doc); err != nil {
			return written, fmt.Errorf("failed to write raw result %s: %w", id, err)
		}
		written++
		slog.InfoContext(ctx, "Imported raw result", "sequence_id", id, "bytes", len(doc))
	}

	if !tables {
		return written, nil
	}

	ids, err = src.ListTables(ctx)
	if err != nil {
		return written, fmt.Errorf("failed to list tables: %w", err)
	}
	for _, id := range ids {
		table, err := src.GetTable(ctx, id)
		if err != nil {
			return written, fmt.Errorf("failed to read table %s: %w", id, err)
		}
		if err := dst.PutTable(ctx, id, table); err != nil {
			return written, fmt.Errorf("failed to write table %s: %w", id, err)
		}
		written++
		slog.InfoContext(ctx, "Imported table", "sequence_id", id)
	}
	return written, nil
}

func runAction(c *cli.Context) error {
	runID := c.String("run-id")
	if runID == "" {
		runID = ksuid.New().String()
	}
	ctx := store.WithRunID(c.Context, runID)
	env := c.String("env")
	tableName := c.String("table-name")
	dir := c.String("dir")

	slog.InfoContext(ctx, "Starting results import",
		"environment", env,
		"table", tableName,
		"dir", dir,
		"run_id", runID,
	)

	src, err := fsstore.New(dir)
	if err != nil {
		return fmt.Errorf("failed to open results directory: %w", err)
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	dst := dynamo.New(dynamodb.NewFromConfig(cfg), tableName)

	n, err := copyStore(ctx, src, dst, c.Bool("tables"))
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Successfully imported results", "count", n)
	return nil
}

func main() {
	// Configure JSON logging for AWS environments
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "import",
		Usage: "Copy a local results directory into the DynamoDB results table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Environment name",
				EnvVars: []string{"ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:     "table-name",
				Aliases:  []string{"t"},
				Usage:    "DynamoDB table name",
				EnvVars:  []string{"TABLE_NAME"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "dir",
				Aliases:  []string{"d"},
				Usage:    "Results directory holding <id>.xml and <id>.tsv files",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "tables",
				Usage: "Also import extracted tables",
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run id stamped on imported items; generated when empty",
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}
