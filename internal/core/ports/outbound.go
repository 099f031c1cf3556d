package ports

import (
	"context"
	"io"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the narrow contract over the external embedding
// index. Query decodes raw matches into DocumentChunks at the
// boundary; malformed individual matches are dropped there, never
// surfaced as errors.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, namespace string, filter domain.SearchFilter) ([]domain.DocumentChunk, error)
	DescribeStats(ctx context.Context) (domain.IndexStats, error)
	Upsert(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
}

// AnswerGenerator creates the final grounded answer from the question,
// the assembled context block, and prior conversation turns.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, contextBlock string, history []domain.ChatTurn) (string, error)
}

// DocumentCatalog persists source-document state.
type DocumentCatalog interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkIndexed(ctx context.Context, id string, topics []string, chunkCount int) error
}

// DocumentMapping is the read-mostly doc_id -> metadata lookup kept in
// step with the index by the ingestion pipeline.
type DocumentMapping interface {
	Topics(ctx context.Context) ([]string, error)
	Put(ctx context.Context, docID string, entry domain.MappingEntry) error
}

// ObjectStorage stores raw source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// Chunker splits extracted text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}

// TextExtractor pulls plain text out of a stored source document.
type TextExtractor interface {
	Extract(r io.Reader, mimeType string) (string, error)
}
