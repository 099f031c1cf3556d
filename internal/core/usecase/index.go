package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amo-events/kb-assistant/internal/core/domain"
	"github.com/amo-events/kb-assistant/internal/core/ports"
)

// IndexUseCase runs on the worker. It turns a stored document into
// index vectors and keeps the catalog and the document mapping in step
// with the index.
type IndexUseCase struct {
	catalog   ports.DocumentCatalog
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndex
	mapping   ports.DocumentMapping
	log       *slog.Logger
}

func NewIndexUseCase(
	catalog ports.DocumentCatalog,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	mapping ports.DocumentMapping,
	log *slog.Logger,
) *IndexUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &IndexUseCase{
		catalog:   catalog,
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		mapping:   mapping,
		log:       log,
	}
}

// IndexByID extracts, chunks, embeds and upserts one document. Any
// failure flips the document to StatusFailed with the reason so the
// API can report why indexing stopped.
func (uc *IndexUseCase) IndexByID(ctx context.Context, documentID string) error {
	doc, err := uc.catalog.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}

	if err := uc.catalog.UpdateStatus(ctx, doc.ID, domain.StatusIndexing, ""); err != nil {
		return fmt.Errorf("mark document %s indexing: %w", doc.ID, err)
	}

	chunks, err := uc.prepare(ctx, doc)
	if err != nil {
		return uc.fail(ctx, doc.ID, err)
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return uc.fail(ctx, doc.ID, fmt.Errorf("embed chunks: %w", err))
	}
	if err := uc.index.Upsert(ctx, doc, chunks, vectors); err != nil {
		return uc.fail(ctx, doc.ID, fmt.Errorf("upsert vectors: %w", err))
	}

	entry := domain.MappingEntry{
		Title:      doc.Title,
		Source:     doc.SourcePath,
		Topics:     doc.Topics,
		ChunkCount: len(chunks),
	}
	if err := uc.mapping.Put(ctx, doc.ID, entry); err != nil {
		// Retrieval works without the mapping; topic listings will lag.
		uc.log.Error("update document mapping failed", "document_id", doc.ID, "error", err)
	}

	if err := uc.catalog.MarkIndexed(ctx, doc.ID, doc.Topics, len(chunks)); err != nil {
		return fmt.Errorf("mark document %s indexed: %w", doc.ID, err)
	}

	uc.log.Info("document indexed", "document_id", doc.ID, "chunks", len(chunks))
	return nil
}

func (uc *IndexUseCase) prepare(ctx context.Context, doc *domain.Document) ([]string, error) {
	body, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer body.Close()

	text, err := uc.extractor.Extract(body, doc.MimeType)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document produced no indexable text")
	}
	return chunks, nil
}

func (uc *IndexUseCase) fail(ctx context.Context, documentID string, cause error) error {
	if err := uc.catalog.UpdateStatus(ctx, documentID, domain.StatusFailed, cause.Error()); err != nil {
		uc.log.Error("record indexing failure failed", "document_id", documentID, "error", err)
	}
	return fmt.Errorf("index document %s: %w", documentID, cause)
}
