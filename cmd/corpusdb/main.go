// Copyright 2025 Veldt Labs
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
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/veldtlabs/corpusdb"
	"github.com/veldtlabs/corpusdb/ai"
	"github.com/veldtlabs/corpusdb/ai/mock"
	"github.com/veldtlabs/corpusdb/ai/openai"
	"github.com/veldtlabs/corpusdb/chunk"
	"github.com/veldtlabs/corpusdb/core"
	"github.com/veldtlabs/corpusdb/ingestion"
	"github.com/veldtlabs/corpusdb/reindex"
	"github.com/veldtlabs/corpusdb/search"
	"github.com/veldtlabs/corpusdb/storage"
	"github.com/veldtlabs/corpusdb/storage/badger"
	"github.com/veldtlabs/corpusdb/storage/snapshot"
)

func main() {
	app := &cli.App{
		Name:  "corpusdb",
		Usage: "Passage retrieval over document collections",
		Flags: []cli.Flag{
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
				Name:      "index",
				Usage:     "Ingest documents (files or directories) into the corpus",
				ArgsUsage: "PATH [PATH ...]",
				Action:    indexCommand,
				Flags:     append(corpusFlags(), ingestFlags()...),
			},
			{
				Name:      "query",
				Usage:     "Find the passages most relevant to a query",
				ArgsUsage: "QUERY",
				Action:    queryCommand,
				Flags: append(corpusFlags(),
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum relevance score for a hit",
						Value: float64(search.DefaultThreshold),
					},
					&cli.IntFlag{
						Name:    "hits",
						Aliases: []string{"n"},
						Usage:   "Maximum number of passages to return",
						Value:   1,
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Show corpus size and registered sources",
				Action: statsCommand,
				Flags:  corpusFlags(),
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed a corpus with a new model into a fresh corpus",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "src",
						Usage:    "Path to the source corpus directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "dst",
						Usage:    "Path to the destination corpus directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "backend",
						Usage: "Storage backend for both corpora (badger, snapshot)",
						Value: string(corpusdb.BackendBadger),
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N passages",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func corpusFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the corpus directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Storage backend (badger, snapshot)",
			Value: string(corpusdb.BackendBadger),
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.IntFlag{
			Name:  "dimension",
			Usage: "Embedding vector dimension (0 follows the stored corpus)",
		},
		&cli.BoolFlag{
			Name:  "mock",
			Usage: "Use a deterministic hash embedder instead of a model service",
		},
	}
}

func ingestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "min-chars",
			Usage: "Minimum passage length in characters",
			Value: 120,
		},
	}
}

func openCorpus(c *cli.Context) (*corpusdb.Corpus, error) {
	dimension := c.Int("dimension")
	if c.Bool("mock") && dimension == 0 {
		dimension = 384 // the mock embedder's native dimension
	}

	opts := []corpusdb.CorpusOption{
		corpusdb.WithBackend(corpusdb.Backend(c.String("backend"))),
		corpusdb.WithAIConfig(ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
			ai.WithDimension(dimension),
		)),
	}
	if c.Bool("mock") {
		opts = append(opts, corpusdb.WithProvider(mock.NewMockProvider()))
	}
	return corpusdb.Open(c.String("db"), opts...)
}

func indexCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one document path is required")
	}

	corpus, err := openCorpus(c)
	if err != nil {
		return fmt.Errorf("failed to open corpus: %w", err)
	}
	defer corpus.Close()

	docs, err := collectDocuments(c.Context, c.Args().Slice())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no readable documents found")
	}

	pipeline, err := corpus.NewIngestionPipeline(
		ingestion.WithChunker(chunk.New(c.Int("min-chars"))),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	result := pipeline.IngestDocuments(c.Context, docs)

	fmt.Fprintf(os.Stderr, "Documents: %d\n", len(docs))
	fmt.Fprintf(os.Stderr, "Passages added: %d\n", result.Added)
	if len(result.Failed) > 0 {
		fmt.Fprintf(os.Stderr, "Failed: %d\n", len(result.Failed))
		for source, err := range result.Failed {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", source, err)
		}
		return fmt.Errorf("%d of %d documents failed", len(result.Failed), len(docs))
	}
	return nil
}

// collectDocuments expands the given paths into ingestible documents.
// Directories are walked recursively; each file becomes one document whose
// source identifier is derived from its content, so a renamed file is still
// recognized as already ingested.
func collectDocuments(ctx context.Context, paths []string) ([]ingestion.Document, error) {
	var extractor ingestion.FileExtractor
	var docs []ingestion.Document

	addFile := func(path string) error {
		text, err := extractor.ExtractText(ctx, path)
		if err != nil {
			if errors.Is(err, ingestion.ErrNoUsableText) {
				slog.Warn("skipping empty document", "path", path)
				return nil
			}
			return err
		}
		docs = append(docs, ingestion.Document{
			Source: core.SourceIDFromContent([]byte(text)),
			Text:   text,
		})
		return nil
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := addFile(path); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(path, func(entry string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			return addFile(entry)
		})
		if err != nil {
			return nil, err
		}
	}

	return docs, nil
}

func queryCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query text is required")
	}

	corpus, err := openCorpus(c)
	if err != nil {
		return fmt.Errorf("failed to open corpus: %w", err)
	}
	defer corpus.Close()

	engine, err := corpus.NewEngine(
		search.WithThreshold(float32(c.Float64("threshold"))),
	)
	if err != nil {
		return fmt.Errorf("failed to create query engine: %w", err)
	}

	results, err := engine.Search(c.Context, query, c.Int("hits"))
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No relevant passage found")
		return nil
	}

	for i, hit := range results {
		fmt.Printf("%d: [%0.3f] (%s) %s\n", i, hit.Score, hit.Passage.Source, hit.Passage.Text)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	corpus, err := openCorpus(c)
	if err != nil {
		return fmt.Errorf("failed to open corpus: %w", err)
	}
	defer corpus.Close()

	size, err := corpus.Store().Size(c.Context)
	if err != nil {
		return err
	}
	sources, err := corpus.Store().Sources(c.Context)
	if err != nil {
		return err
	}
	sort.Strings(sources)

	fmt.Printf("Passages: %d\n", size)
	fmt.Printf("Dimension: %d\n", corpus.Index().Dimension())
	fmt.Printf("Sources: %d\n", len(sources))
	for _, source := range sources {
		fmt.Printf("  %s\n", source)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	openStore := func(path string) (storage.PassageStore, error) {
		switch corpusdb.Backend(c.String("backend")) {
		case corpusdb.BackendBadger:
			return badger.NewPassageStore(path)
		case corpusdb.BackendSnapshot:
			return snapshot.Open(path)
		default:
			return nil, fmt.Errorf("unknown backend %q", c.String("backend"))
		}
	}

	src, err := openStore(c.String("src"))
	if err != nil {
		return fmt.Errorf("failed to open source corpus: %w", err)
	}
	defer src.Close()

	dst, err := openStore(c.String("dst"))
	if err != nil {
		return fmt.Errorf("failed to open destination corpus: %w", err)
	}
	defer dst.Close()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	config := &reindex.Config{
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reindexer, err := reindex.NewReindexer(src, dst, embedder, config, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Source: %s\n", c.String("src"))
	fmt.Fprintf(os.Stderr, "Destination: %s\n", c.String("dst"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n\n", c.String("embedding-model"))

	if err := reindexer.Run(c.Context); err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}
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
