package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/blastx/algolia"
	"github.com/letmevibethatforyou/blastx/internal/config"
	"github.com/letmevibethatforyou/blastx/ncbi"
	"github.com/letmevibethatforyou/blastx/store"
	"github.com/letmevibethatforyou/blastx/store/dynamo"
	"github.com/letmevibethatforyou/blastx/store/fsstore"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	registry *prometheus.Registry
	cfg      config.Config
	logger   *slog.Logger
}

func (a *app) before(c *cli.Context) error {
	cfg, err := config.Read(c.String("config"))
	if err != nil {
		return err
	}

	overrides := map[string]*string{
		"store":           &cfg.Storage.Driver,
		"dir":             &cfg.Storage.Dir,
		"table":           &cfg.Storage.Table,
		"log-level":       &cfg.Logging.Level,
		"log-format":      &cfg.Logging.Format,
		"ncbi-email":      &cfg.NCBI.Email,
		"ncbi-api-key":    &cfg.NCBI.APIKey,
		"ncbi-secret-arn": &cfg.NCBI.SecretARN,
	}
	for flag, field := range overrides {
		if c.IsSet(flag) {
			*field = strings.TrimSpace(c.String(flag))
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = newLogger(cfg.Logging)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) after(c *cli.Context) error {
	path := c.String("metrics-file")
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" || os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		a.logger.InfoContext(ctx, "using DynamoDB store", "table", a.cfg.Storage.Table)
		return dynamo.New(dynamodb.NewFromConfig(awsCfg), a.cfg.Storage.Table), nil
	default:
		a.logger.InfoContext(ctx, "using directory store", "dir", a.cfg.Storage.Dir)
		st, err := fsstore.New(a.cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open results directory: %w", err)
		}
		return st, nil
	}
}

func (a *app) ncbiClient(ctx context.Context, c *cli.Context) (*ncbi.Client, error) {
	var fetch ncbi.FetchCredentials

	switch env := c.String("env"); {
	case a.cfg.NCBI.SecretARN != "" || env != "":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := secretsmanager.NewFromConfig(awsCfg)
		if a.cfg.NCBI.SecretARN != "" {
			a.logger.InfoContext(ctx, "using AWS Secrets Manager for NCBI credentials", "secret_arn", a.cfg.NCBI.SecretARN)
			fetch = ncbi.AWSCredentialsFromARN(ctx, client, a.cfg.NCBI.SecretARN)
		} else {
			a.logger.InfoContext(ctx, "using AWS Secrets Manager for NCBI credentials", "environment", env)
			fetch = ncbi.AWSCredentials(ctx, client, env)
		}
	default:
		fetch = ncbi.StaticCredentials(a.cfg.NCBI.Email, a.cfg.NCBI.APIKey, a.cfg.NCBI.Tool)
	}

	opts := []ncbi.ClientOption{ncbi.WithLogger(a.logger)}
	if a.cfg.NCBI.BaseURL != "" {
		opts = append(opts, ncbi.WithBaseURL(a.cfg.NCBI.BaseURL))
	}
	if a.cfg.NCBI.EutilsURL != "" {
		opts = append(opts, ncbi.WithEutilsURL(a.cfg.NCBI.EutilsURL))
	}
	return ncbi.NewClient(fetch, opts...), nil
}

func (a *app) algoliaClient(ctx context.Context, c *cli.Context) (*algolia.Client, error) {
	secretArn := strings.TrimSpace(c.String("algolia-secret-arn"))
	if secretArn == "" {
		secretArn = a.cfg.Algolia.SecretARN
	}
	env := c.String("env")

	if secretArn == "" && env == "" {
		return algolia.NewClient(algolia.EnvSecrets()), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := secretsmanager.NewFromConfig(awsCfg)
	if secretArn != "" {
		a.logger.InfoContext(ctx, "using AWS Secrets Manager for Algolia credentials", "secret_arn", secretArn)
		return algolia.NewClient(algolia.AWSSecretsFromARN(ctx, client, secretArn)), nil
	}
	a.logger.InfoContext(ctx, "using AWS Secrets Manager for Algolia credentials", "environment", env)
	return algolia.NewClient(algolia.AWSSecrets(ctx, client, env)), nil
}
