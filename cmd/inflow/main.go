// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/inflow"
	"github.com/poiesic/inflow/config"
	"github.com/poiesic/inflow/ingest"
	"github.com/poiesic/inflow/ingest/api"
)

func main() {
	app := &cli.App{
		Name:  "inflow",
		Usage: "Resilient data-ingestion pipeline with content deduplication",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML configuration file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "Ingest records from a source",
				Subcommands: []*cli.Command{
					{
						Name:      "file",
						Usage:     "Ingest a flat file (csv, jsonl, json)",
						ArgsUsage: "<path>",
						Action:    ingestFileCommand,
						Flags: append(storageFlags(),
							&cli.StringFlag{
								Name:     "format",
								Aliases:  []string{"f"},
								Usage:    "File format: csv, jsonl or json",
								Required: true,
							},
							&cli.IntFlag{
								Name:  "batch-size",
								Usage: "Number of records per storage batch",
								Value: 100,
							},
						),
					},
					{
						Name:      "zip",
						Usage:     "Ingest the members of a zip archive",
						ArgsUsage: "<path>",
						Action:    ingestZipCommand,
						Flags:     storageFlags(),
					},
					{
						Name:      "api",
						Usage:     "Ingest a paginated REST resource",
						ArgsUsage: "<url>",
						Action:    ingestAPICommand,
						Flags: append(storageFlags(),
							&cli.StringFlag{
								Name:  "pagination",
								Usage: "Pagination mode: none, page, offset or cursor",
								Value: "none",
							},
							&cli.StringFlag{
								Name:  "results-path",
								Usage: "Dotted path to the item list in the response body",
							},
							&cli.StringFlag{
								Name:  "cursor-path",
								Usage: "Dotted path to the next cursor (cursor mode)",
							},
							&cli.IntFlag{
								Name:  "page-size",
								Usage: "Requested page length",
								Value: 100,
							},
							&cli.IntFlag{
								Name:  "max-pages",
								Usage: "Stop after this many requests (0 = no cap)",
							},
							&cli.IntFlag{
								Name:  "batch-size",
								Usage: "Number of records per storage batch",
								Value: 100,
							},
						),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   "inflow.db",
		},
		&cli.BoolFlag{
			Name:  "no-dedup",
			Usage: "Disable fingerprint deduplication",
		},
		&cli.BoolFlag{
			Name:  "dual",
			Usage: "Also embed records and write them to the vector store",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL (dual mode)",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name (dual mode)",
			Value: "embeddinggemma",
		},
	}
}

// loadConfig builds the effective configuration from the optional config
// file overlaid with command-line flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.IsSet("db") || cfg.Storage.Path == "" {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("batch-size") {
		cfg.Pipeline.BatchSize = c.Int("batch-size")
	}
	if c.Bool("no-dedup") {
		cfg.Pipeline.Deduplication = false
	}
	if c.Bool("dual") {
		cfg.Storage.Dual = true
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}
	return cfg, nil
}

func openFramework(c *cli.Context) (*inflow.Framework, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return inflow.New(inflow.WithConfig(cfg))
}

func sourceArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one source argument")
	}
	return c.Args().First(), nil
}

func runIngest(c *cli.Context, f *inflow.Framework, sourceType, source string) error {
	start := time.Now()
	tracker := ingest.NewProgressTracker(os.Stderr, 100)
	tracker.Start()

	result, err := f.Ingest(context.Background(), sourceType, source, &ingest.Options{
		Progress: tracker.Hook(),
	})
	tracker.Finish()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Ingested %d records in %s\n", result.Count, time.Since(start).Round(time.Millisecond))
	if result.Partial() {
		fmt.Fprintf(os.Stderr, "Partial failure: %d write errors\n", len(result.Errors))
		for _, writeErr := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", writeErr.Error())
		}
	}
	return nil
}

func ingestFileCommand(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}

	f, err := openFramework(c)
	if err != nil {
		return err
	}
	defer f.Close()

	return runIngest(c, f, strings.ToLower(c.String("format")), source)
}

func ingestZipCommand(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}

	f, err := openFramework(c)
	if err != nil {
		return err
	}
	defer f.Close()

	return runIngest(c, f, "zip", source)
}

func ingestAPICommand(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}

	f, err := openFramework(c)
	if err != nil {
		return err
	}
	defer f.Close()

	connector, err := api.NewRESTConnector(api.RESTConfig{
		PaginationType: api.PaginationType(c.String("pagination")),
		PageSize:       c.Int("page-size"),
		MaxPages:       c.Int("max-pages"),
		ResultsPath:    c.String("results-path"),
		CursorPath:     c.String("cursor-path"),
	})
	if err != nil {
		return err
	}
	if err := f.RegisterConnector("rest_api", connector); err != nil {
		return err
	}

	return runIngest(c, f, "rest_api", source)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
