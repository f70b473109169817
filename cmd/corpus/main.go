// Copyright 2026 Poiesic Systems
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
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/corpus"
	"github.com/poiesic/corpus/config"
	"github.com/poiesic/corpus/core"
)

func main() {
	app := &cli.App{
		Name:  "corpus",
		Usage: "Content extraction and enrichment pipeline for CMS documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (defaults to the standard search paths)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the enrichment service and embedding backfill loops",
				Action: runCommand,
			},
			{
				Name:      "ingest",
				Usage:     "Ingest one JSON document and stage its changed fragments",
				Action:    ingestCommand,
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source-id",
						Aliases:  []string{"s"},
						Usage:    "Stable identifier of the source document",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "root-path",
						Usage: "Source path prefix for extracted fragments (defaults to source-id)",
					},
				},
			},
			{
				Name:   "backfill",
				Usage:  "Embed pending sections for batches awaiting embeddings",
				Action: backfillCommand,
			},
			{
				Name:   "status",
				Usage:  "Show batch progress, element outcomes, and section state",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "batch",
						Aliases:  []string{"b"},
						Usage:    "Batch ID to inspect",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func openSystem(c *cli.Context, opts ...corpus.SystemOption) (*corpus.System, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return corpus.Open(cfg, opts...)
}

func runCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	slog.Info("service started")
	return system.Run(ctx)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one document file argument")
	}

	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	result, err := system.Ingest(context.Background(), c.String("source-id"), data, c.String("root-path"))
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if result.Unchanged {
		fmt.Printf("source %s unchanged at version %d\n", result.Raw.SourceID, result.Raw.Version)
		return nil
	}

	fmt.Printf("source:    %s\n", result.Raw.SourceID)
	fmt.Printf("version:   %d\n", result.Raw.Version)
	fmt.Printf("batch:     %s\n", result.Batch.ID)
	fmt.Printf("fragments: %d extracted, %d changed, %d new\n",
		result.Delta.Total, result.Delta.Changed, result.Delta.New)
	return nil
}

func backfillCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	system, err := openSystem(c, corpus.WithProgress(os.Stderr))
	if err != nil {
		return err
	}
	defer system.Close()

	return system.Backfill(ctx)
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	batchID := c.String("batch")
	repos := system.Repositories()

	batch, err := repos.Batch.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}

	fmt.Printf("batch:    %s\n", batch.ID)
	fmt.Printf("source:   %s (version %d)\n", batch.SourceID, batch.Version)
	fmt.Printf("status:   %s\n", batch.Status)
	fmt.Printf("expected: %d jobs\n", batch.Expected)
	for _, e := range batch.Errors {
		fmt.Printf("error:    %s\n", e)
	}

	elements, err := repos.Element.ListElements(ctx, batchID)
	if err != nil {
		return fmt.Errorf("list elements: %w", err)
	}
	counts := map[core.ElementStatus]int{}
	for _, element := range elements {
		counts[element.Status]++
	}
	fmt.Printf("elements: %d total\n", len(elements))
	for status, n := range counts {
		fmt.Printf("  %-20s %d\n", status, n)
	}

	sections, err := repos.Section.ListSections(ctx, batchID)
	if err != nil {
		return fmt.Errorf("list sections: %w", err)
	}
	pending := 0
	for _, section := range sections {
		if section.EmbeddingStatus != core.Embedded {
			pending++
		}
	}
	fmt.Printf("sections: %d total, %d awaiting embeddings\n", len(sections), pending)
	return nil
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
