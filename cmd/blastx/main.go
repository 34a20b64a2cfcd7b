package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env")
	}

	a := &app{registry: prometheus.NewRegistry()}

	cliApp := &cli.App{
		Name:  "blastx",
		Usage: "Run remote NCBI BLAST searches for FASTA sequences and extract hit tables",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"BLASTX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Result store: fs or dynamodb",
				EnvVars: []string{"BLASTX_STORE"},
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Results directory for the fs store",
				EnvVars: []string{"BLASTX_DIR"},
			},
			&cli.StringFlag{
				Name:    "table",
				Usage:   "DynamoDB table for the dynamodb store",
				EnvVars: []string{"BLASTX_TABLE", "TABLE_NAME"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: debug, info, warn, error",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format: text or json",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics to this textfile on exit",
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name for AWS Secrets Manager credentials",
				EnvVars: []string{"ENV", "ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "ncbi-email",
				Usage:   "Contact email sent to NCBI",
				EnvVars: []string{"NCBI_EMAIL"},
			},
			&cli.StringFlag{
				Name:    "ncbi-api-key",
				Usage:   "NCBI API key",
				EnvVars: []string{"NCBI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "ncbi-secret-arn",
				Usage:   "ARN of AWS Secrets Manager secret containing NCBI credentials",
				EnvVars: []string{"NCBI_SECRET_ARN"},
			},
		},
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Submit every sequence of the FASTA files and store the raw result documents",
				ArgsUsage: "FASTA...",
				Flags:     searchFlags(),
				Action:    a.searchAction,
			},
			{
				Name:      "extract",
				Usage:     "Extract hit tables from stored raw result documents",
				ArgsUsage: "[SEQUENCE_ID...]",
				Action:    a.extractAction,
			},
			{
				Name:      "run",
				Usage:     "Search, then extract the tables of the acquired results",
				ArgsUsage: "FASTA...",
				Flags:     searchFlags(),
				Action:    a.runAction,
			},
			{
				Name:      "annotate",
				Usage:     "Combine stored tables into one table with the GenBank lineage of each hit",
				ArgsUsage: "[SEQUENCE_ID...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file; stdout when empty",
					},
					&cli.Float64Flag{
						Name:  "identity-below",
						Usage: "Keep only hits with a percent identity below this value",
					},
				},
				Action: a.annotateAction,
			},
			{
				Name:      "index",
				Usage:     "Save the hits of stored tables to an Algolia index",
				ArgsUsage: "[SEQUENCE_ID...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "index",
						Aliases: []string{"i"},
						Usage:   "Algolia index name",
						EnvVars: []string{"ALGOLIA_INDEX"},
					},
					&cli.StringFlag{
						Name:    "algolia-secret-arn",
						Usage:   "ARN of AWS Secrets Manager secret containing Algolia credentials",
						EnvVars: []string{"ALGOLIA_SECRET_ARN"},
					},
				},
				Action: a.indexAction,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "Maximum number of status checks per sequence",
		},
		&cli.DurationFlag{
			Name:  "poll-delay",
			Usage: "Wait before each status check",
		},
		&cli.DurationFlag{
			Name:  "submit-pause",
			Usage: "Pause before each submission",
		},
		&cli.BoolFlag{
			Name:  "fail-fast",
			Usage: "Stop polling a job as soon as NCBI reports it failed",
		},
		&cli.StringFlag{
			Name:  "database",
			Usage: "BLAST database",
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run id stamped on stored results; generated when empty",
		},
	}
}
