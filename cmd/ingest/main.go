// Knowledge base loader. Reads documents from disk, chunks and embeds them,
// and replaces their passages in the vector store.
//
// Usage: go run ./cmd/ingest <file> [file...]
package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"ai-talkcoach-be/internal/config"
	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/repository/contract"
	"ai-talkcoach-be/internal/repository/implementation"
	"ai-talkcoach-be/pkg/database"
	"ai-talkcoach-be/pkg/embedding"
	"ai-talkcoach-be/pkg/utils"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		color.Red("Usage: ingest <file> [file...]")
		os.Exit(1)
	}

	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	passages := implementation.NewPassageRepository(db)

	var provider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "openai" {
		provider = embedding.NewOpenAIProvider(cfg.Keys.OpenAI, cfg.Ai.EmbeddingModel)
	} else {
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	}

	color.Cyan("🚀 Ingesting %d document(s) with %s/%s\n", len(os.Args)-1, cfg.Ai.EmbeddingProvider, cfg.Ai.EmbeddingModel)

	ctx := context.Background()
	failed := 0
	for _, path := range os.Args[1:] {
		if err := ingestFile(ctx, passages, provider, path); err != nil {
			color.Red("✗ %s: %v", path, err)
			failed++
			continue
		}
	}

	if failed > 0 {
		color.Red("\nDone with %d failure(s)", failed)
		os.Exit(1)
	}
	color.Green("\n✅ All documents indexed")
}

func ingestFile(ctx context.Context, passages contract.PassageRepository, provider embedding.EmbeddingProvider, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	source := filepath.Base(path)
	chunks := utils.SplitText(string(data), 1500, 200)
	color.Yellow("%s: %d chunk(s)", source, len(chunks))

	newPassages := make([]*entity.Passage, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := provider.Generate(ctx, chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			return err
		}
		newPassages = append(newPassages, &entity.Passage{
			Id:         uuid.New(),
			Source:     source,
			Content:    chunk,
			Embedding:  res.Embedding.Values,
			ChunkIndex: i,
			CreatedAt:  time.Now(),
		})
	}

	if err := passages.DeleteBySource(ctx, source); err != nil {
		return err
	}
	if err := passages.CreateBulk(ctx, newPassages); err != nil {
		return err
	}

	color.Green("✓ %s indexed", source)
	return nil
}
