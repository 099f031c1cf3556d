package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amo-events/kb-assistant/internal/core/domain"
	"github.com/amo-events/kb-assistant/internal/core/ports"
)

// IngestUseCase accepts an uploaded document, stores the raw bytes and
// the catalog record, and hands indexing off to the worker through the
// queue. Upload returns as soon as the document is durably stored.
type IngestUseCase struct {
	catalog ports.DocumentCatalog
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	log     *slog.Logger
}

func NewIngestUseCase(
	catalog ports.DocumentCatalog,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	log *slog.Logger,
) *IngestUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &IngestUseCase{
		catalog: catalog,
		storage: storage,
		queue:   queue,
		log:     log,
	}
}

func (uc *IngestUseCase) Upload(
	ctx context.Context,
	title, mimeType string,
	topics []string,
	body io.Reader,
) (*domain.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("title must not be empty"))
	}
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("document body is required"))
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Title:     title,
		MimeType:  mimeType,
		Topics:    topics,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.StoragePath = path.Join("documents", doc.ID)
	doc.SourcePath = title

	if err := uc.storage.Save(ctx, doc.StoragePath, body); err != nil {
		return nil, fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	if err := uc.catalog.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record %s: %w", doc.ID, err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		// The record exists; the document can be re-queued later.
		uc.log.Error("publish ingestion event failed", "document_id", doc.ID, "error", err)
		return nil, fmt.Errorf("publish ingestion event for %s: %w", doc.ID, err)
	}

	uc.log.Info("document uploaded", "document_id", doc.ID, "title", title)
	return doc, nil
}

func (uc *IngestUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return uc.catalog.GetByID(ctx, id)
}
