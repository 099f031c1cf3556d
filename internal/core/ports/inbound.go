package ports

import (
	"context"
	"io"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

// QueryService is the inbound contract for question answering.
// ProcessQuery never returns an error across the boundary: every
// failure is folded into the discriminated QueryResult.
type QueryService interface {
	ProcessQuery(ctx context.Context, req domain.QueryRequest) domain.QueryResult
	Reformulate(query string, history []domain.ChatTurn) domain.ReformulationResult
}

// DocumentIngestor is the inbound contract for document upload.
type DocumentIngestor interface {
	Upload(ctx context.Context, title, mimeType string, topics []string, body io.Reader) (*domain.Document, error)
}

// DocumentIndexer is the inbound contract for asynchronous indexing.
type DocumentIndexer interface {
	IndexByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}
