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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/substrate"
	"github.com/poiesic/substrate/ai"
	"github.com/poiesic/substrate/ai/openai"
	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/draft"
	"github.com/poiesic/substrate/pipeline"
	"github.com/poiesic/substrate/vector/qdrant"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "substrate",
		Usage: "Knowledge base ingestion and staging",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Data directory for relational and staging stores",
				Value: "./data",
			},
			&cli.StringFlag{
				Name:  "qdrant-host",
				Usage: "Qdrant host",
				Value: "localhost",
			},
			&cli.IntFlag{
				Name:  "qdrant-port",
				Usage: "Qdrant gRPC port",
				Value: 6334,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:  "draft",
				Usage: "Stage, validate and deploy drafts",
				Subcommands: []*cli.Command{
					{
						Name:   "create",
						Usage:  "Create a knowledge-base draft",
						Action: draftCreateCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "workspace",
								Aliases:  []string{"w"},
								Usage:    "Workspace the draft belongs to",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "created-by",
								Usage: "User creating the draft",
								Value: "cli",
							},
							&cli.StringFlag{
								Name:     "name",
								Usage:    "Knowledge base name",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "description",
								Usage: "Knowledge base description",
							},
							&cli.StringSliceFlag{
								Name:  "url",
								Usage: "Web source URL (repeatable)",
							},
							&cli.StringSliceFlag{
								Name:  "file",
								Usage: "File source path (repeatable)",
							},
							&cli.IntFlag{
								Name:  "max-pages",
								Usage: "Pages per web source",
								Value: 50,
							},
							&cli.IntFlag{
								Name:  "max-depth",
								Usage: "Crawl depth per web source",
								Value: 2,
							},
							&cli.StringFlag{
								Name:  "strategy",
								Usage: "Chunking strategy",
								Value: "recursive",
							},
							&cli.IntFlag{
								Name:  "max-size",
								Usage: "Chunk size limit",
								Value: 1000,
							},
							&cli.IntFlag{
								Name:  "overlap",
								Usage: "Chunk overlap",
								Value: 100,
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
						},
					},
					{
						Name:      "update",
						Usage:     "Update a draft (extends its TTL)",
						ArgsUsage: "<draft-id>",
						Action:    draftUpdateCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "name",
								Usage: "New knowledge base name",
							},
							&cli.StringFlag{
								Name:  "description",
								Usage: "New description",
							},
							&cli.StringFlag{
								Name:  "strategy",
								Usage: "New chunking strategy",
							},
							&cli.IntFlag{
								Name:  "max-size",
								Usage: "New chunk size limit",
								Value: 1000,
							},
							&cli.IntFlag{
								Name:  "overlap",
								Usage: "New chunk overlap",
								Value: 100,
							},
							&cli.StringSliceFlag{
								Name:  "url",
								Usage: "Replace the sources with these web URLs (repeatable)",
							},
						},
					},
					{
						Name:   "list",
						Usage:  "List live drafts",
						Action: draftListCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "workspace",
								Aliases: []string{"w"},
								Usage:   "Filter by workspace",
							},
						},
					},
					{
						Name:      "show",
						Usage:     "Show a draft",
						ArgsUsage: "<draft-id>",
						Action:    draftShowCommand,
					},
					{
						Name:      "validate",
						Usage:     "Validate a draft without deploying it",
						ArgsUsage: "<draft-id>",
						Action:    draftValidateCommand,
					},
					{
						Name:      "deploy",
						Usage:     "Deploy a draft and start ingestion",
						ArgsUsage: "<draft-id>",
						Action:    draftDeployCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "wait",
								Usage: "Block until the ingestion execution finishes",
							},
						},
					},
					{
						Name:      "delete",
						Usage:     "Discard a draft",
						ArgsUsage: "<draft-id>",
						Action:    draftDeleteCommand,
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Create a knowledge base from one source and ingest it, skipping the draft stage",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "workspace",
						Aliases:  []string{"w"},
						Usage:    "Workspace the knowledge base belongs to",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Knowledge base name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "url",
						Usage:    "Web source URL",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "Pages to crawl",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "max-depth",
						Usage: "Crawl depth",
						Value: 2,
					},
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Chunking strategy",
						Value: "recursive",
					},
					&cli.IntFlag{
						Name:  "max-size",
						Usage: "Chunk size limit",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "overlap",
						Usage: "Chunk overlap",
						Value: 100,
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
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Block until the ingestion execution finishes",
					},
				},
			},
			{
				Name:      "status",
				Usage:     "Show an execution's progress",
				ArgsUsage: "<execution-id>",
				Action:    statusCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "log",
						Usage: "Include the execution log",
					},
				},
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a running execution",
				ArgsUsage: "<execution-id>",
				Action:    cancelCommand,
			},
			{
				Name:      "docs",
				Usage:     "List a knowledge base's documents",
				ArgsUsage: "<knowledge-base-id>",
				Action:    docsCommand,
			},
			{
				Name:      "reprocess",
				Usage:     "Replace a document's chunks and vectors",
				ArgsUsage: "<document-id>",
				Action:    reprocessCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "content-file",
						Usage: "Read replacement content from a file instead of refetching the URL",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search a knowledge base",
				ArgsUsage: "<knowledge-base-id> <query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum results",
						Value: 5,
					},
					&cli.StringFlag{
						Name:  "document",
						Usage: "Restrict results to one document ID",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openSubstrate(c *cli.Context) (*substrate.Substrate, error) {
	return substrate.New(c.String("data"),
		substrate.WithQdrantConfig(&qdrant.Config{
			Host: c.String("qdrant-host"),
			Port: c.Int("qdrant-port"),
		}),
	)
}

func draftCreateCommand(c *cli.Context) error {
	urls := c.StringSlice("url")
	files := c.StringSlice("file")
	if len(urls) == 0 && len(files) == 0 {
		return fmt.Errorf("at least one --url or --file source is required")
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	data := core.DraftData{
		Name:        c.String("name"),
		Description: c.String("description"),
		Embedding: &core.EmbeddingConfig{
			Host:  c.String("embedding-host"),
			Model: c.String("embedding-model"),
		},
		Chunking: &core.ChunkingConfig{
			Strategy: c.String("strategy"),
			MaxSize:  c.Int("max-size"),
			Overlap:  c.Int("overlap"),
		},
	}
	for _, url := range urls {
		data.Sources = append(data.Sources, core.Source{
			Type:     core.SourceTypeWeb,
			Location: url,
			Web: &core.WebSourceConfig{
				MaxPages: c.Int("max-pages"),
				MaxDepth: c.Int("max-depth"),
			},
		})
	}
	for _, path := range files {
		data.Sources = append(data.Sources, core.Source{
			Type:     core.SourceTypeFile,
			Location: path,
		})
	}

	created, err := s.Drafts().Create(context.Background(), core.DraftTypeKnowledgeBase,
		c.String("workspace"), c.String("created-by"), data)
	if err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}

	fmt.Printf("Draft %s created, expires %s\n", created.Id, created.ExpiresAt.Format(time.RFC3339))
	return nil
}

func draftUpdateCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("draft ID is required")
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	var update draft.UpdateRequest
	if c.IsSet("name") {
		name := c.String("name")
		update.Name = &name
	}
	if c.IsSet("description") {
		description := c.String("description")
		update.Description = &description
	}
	if c.IsSet("strategy") || c.IsSet("max-size") || c.IsSet("overlap") {
		update.Chunking = &core.ChunkingConfig{
			Strategy: c.String("strategy"),
			MaxSize:  c.Int("max-size"),
			Overlap:  c.Int("overlap"),
		}
	}
	for _, url := range c.StringSlice("url") {
		update.Sources = append(update.Sources, core.Source{
			Type:     core.SourceTypeWeb,
			Location: url,
			Web: &core.WebSourceConfig{
				MaxPages: 50,
				MaxDepth: 2,
			},
		})
	}

	updated, err := s.Drafts().Update(context.Background(), id, update)
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	fmt.Printf("Draft %s updated, expires %s\n", updated.Id, updated.ExpiresAt.Format(time.RFC3339))
	return nil
}

func ingestCommand(c *cli.Context) error {
	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	kb := &core.KnowledgeBase{
		Id:          core.IDFromContent("kb:" + c.String("workspace") + ":" + c.String("name")),
		Name:        c.String("name"),
		WorkspaceId: c.String("workspace"),
		CreatedBy:   "cli",
		Embedding: core.EmbeddingConfig{
			Host:  c.String("embedding-host"),
			Model: c.String("embedding-model"),
		},
		Chunking: core.ChunkingConfig{
			Strategy: c.String("strategy"),
			MaxSize:  c.Int("max-size"),
			Overlap:  c.Int("overlap"),
		},
	}
	if err := s.KnowledgeBases().AddKnowledgeBase(ctx, kb); err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}

	source := core.Source{
		Id:       "cli",
		Type:     core.SourceTypeWeb,
		Location: c.String("url"),
		Web: &core.WebSourceConfig{
			MaxPages: c.Int("max-pages"),
			MaxDepth: c.Int("max-depth"),
		},
	}

	executionId, err := s.Pipeline().Enqueue(ctx, kb, []core.Source{source})
	if err != nil {
		return fmt.Errorf("failed to enqueue ingestion: %w", err)
	}
	fmt.Printf("Knowledge base %d created, execution %s\n", kb.Id, executionId)

	if !c.Bool("wait") {
		return nil
	}
	return watchExecution(ctx, s, executionId)
}

func draftListCommand(c *cli.Context) error {
	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	drafts, err := s.Drafts().List(context.Background(), c.String("workspace"))
	if err != nil {
		return fmt.Errorf("failed to list drafts: %w", err)
	}
	if len(drafts) == 0 {
		fmt.Println("No live drafts")
		return nil
	}
	for _, d := range drafts {
		fmt.Printf("%s  %-14s  %-24s  expires %s\n",
			d.Id, d.Type, d.Data.Name, d.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func draftShowCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("draft ID is required")
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	d, err := s.Drafts().Get(context.Background(), id)
	if err != nil {
		return fmt.Errorf("failed to load draft: %w", err)
	}

	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func draftValidateCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("draft ID is required")
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	result, err := s.Drafts().Validate(context.Background(), id)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	for _, warning := range result.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	if !result.Valid {
		for _, failure := range result.Errors {
			fmt.Printf("error: %s\n", failure)
		}
		return fmt.Errorf("draft is not deployable")
	}
	fmt.Println("Draft is valid")
	return nil
}

func draftDeployCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("draft ID is required")
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	result, err := s.Drafts().Deploy(ctx, id)
	if err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}
	for _, warning := range result.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	fmt.Printf("Knowledge base %d deployed, execution %s\n", result.KnowledgeBaseId, result.ExecutionId)

	if !c.Bool("wait") {
		return nil
	}
	return watchExecution(ctx, s, result.ExecutionId)
}

func draftDeleteCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("draft ID is required")
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	if err := s.Drafts().Delete(context.Background(), id); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	fmt.Printf("Draft %s deleted\n", id)
	return nil
}

func statusCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("execution ID is required")
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	execution, err := s.Executions().GetExecution(context.Background(), id)
	if err != nil {
		return fmt.Errorf("failed to load execution: %w", err)
	}

	printExecution(execution)
	if c.Bool("log") {
		for _, entry := range execution.Log {
			fmt.Printf("%s  %-5s  %s\n", entry.At.Format(time.RFC3339), entry.Level, entry.Message)
		}
	}
	return nil
}

func cancelCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("execution ID is required")
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	if err := s.Pipeline().Cancel(id); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	fmt.Printf("Cancellation requested for %s\n", id)
	return nil
}

func docsCommand(c *cli.Context) error {
	kbId, err := parseID(c.Args().First())
	if err != nil {
		return err
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	docs, err := s.Documents().ListDocuments(context.Background(), kbId)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		fmt.Printf("%d  %-18s  %4d chunks  %s\n", doc.Id, doc.Status, doc.ChunkCount, doc.URL)
	}
	return nil
}

func reprocessCommand(c *cli.Context) error {
	documentId, err := parseID(c.Args().First())
	if err != nil {
		return err
	}

	var content string
	if path := c.String("content-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read content file: %w", err)
		}
		content = string(data)
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	if err := s.Pipeline().Reprocess(context.Background(), documentId, content); err != nil {
		return fmt.Errorf("reprocess failed: %w", err)
	}
	fmt.Printf("Document %d reprocessed\n", documentId)
	return nil
}

func searchCommand(c *cli.Context) error {
	kbId, err := parseID(c.Args().First())
	if err != nil {
		return err
	}
	query := strings.TrimSpace(c.Args().Get(1))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	s, err := openSubstrate(c)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	kb, err := s.KnowledgeBases().GetKnowledgeBase(ctx, kbId)
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	embedder, err := openai.NewEmbedder(ai.NewConfig(
		ai.WithHost(kb.Embedding.Host),
		ai.WithModel(kb.Embedding.Model),
	))
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	queryVector, err := embedder.EmbedText(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	var filter map[string]string
	if doc := c.String("document"); doc != "" {
		if _, err := parseID(doc); err != nil {
			return fmt.Errorf("invalid document ID: %w", err)
		}
		filter = map[string]string{"document_id": doc}
	}

	matches, err := s.Vectors().Search(ctx, kb.Id, pipeline.NormalizeVector(queryVector), filter, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	for _, match := range matches {
		content, _ := match.Payload["content"].(string)
		if len(content) > 120 {
			content = content[:120] + "..."
		}
		fmt.Printf("%.4f  %s\n        %s\n", match.Score, match.ID, content)
	}
	return nil
}

func watchExecution(ctx context.Context, s *substrate.Substrate, executionId string) error {
	for {
		execution, err := s.Executions().GetExecution(ctx, executionId)
		if err != nil {
			return fmt.Errorf("failed to load execution: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\r%s  %5.1f%%  scraped %d  failed %d  chunks %d",
			execution.Status, execution.Progress(),
			execution.Stats.PagesScraped, execution.Stats.PagesFailed, execution.Stats.ChunksCreated)
		if execution.Status.Terminal() {
			fmt.Fprintln(os.Stderr)
			printExecution(execution)
			if execution.Status == core.ExecutionStatusFailed {
				return fmt.Errorf("ingestion failed: %s", execution.Error)
			}
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func printExecution(e *core.Execution) {
	fmt.Printf("Execution: %s\n", e.Id)
	fmt.Printf("Knowledge base: %d\n", e.KnowledgeBaseId)
	fmt.Printf("Status: %s (%.1f%%)\n", e.Status, e.Progress())
	fmt.Printf("Pages: %d discovered, %d scraped, %d failed\n",
		e.Stats.PagesDiscovered, e.Stats.PagesScraped, e.Stats.PagesFailed)
	fmt.Printf("Chunks: %d created, %d indexed\n", e.Stats.ChunksCreated, e.Stats.VectorsIndexed)
	if e.Error != "" {
		fmt.Printf("Error: %s\n", e.Error)
	}
}

func parseID(arg string) (core.ID, error) {
	if arg == "" {
		return 0, fmt.Errorf("ID argument is required")
	}
	raw, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q: %w", arg, err)
	}
	return core.ID(raw), nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
