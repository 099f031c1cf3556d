package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEmbedder struct {
	err     error
	queries []string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, text)
	return []float32{0.1, 0.2}, nil
}

type indexCall struct {
	namespace string
	topK      int
}

type indexReply struct {
	chunks []domain.DocumentChunk
	err    error
}

// fakeIndex answers Query calls from a scripted reply queue, in call
// order. An exhausted queue answers empty.
type fakeIndex struct {
	replies  []indexReply
	calls    []indexCall
	stats    domain.IndexStats
	statsErr error

	upsertDoc    *domain.Document
	upsertChunks []string
	upsertErr    error
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int, namespace string, _ domain.SearchFilter) ([]domain.DocumentChunk, error) {
	f.calls = append(f.calls, indexCall{namespace: namespace, topK: topK})
	if len(f.replies) == 0 {
		return nil, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply.chunks, reply.err
}

func (f *fakeIndex) DescribeStats(_ context.Context) (domain.IndexStats, error) {
	if f.statsErr != nil {
		return domain.IndexStats{}, f.statsErr
	}
	return f.stats, nil
}

func (f *fakeIndex) Upsert(_ context.Context, doc *domain.Document, chunks []string, _ [][]float32) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertDoc = doc
	f.upsertChunks = chunks
	return nil
}

type fakeGenerator struct {
	answer string
	err    error

	gotQuestion string
	gotContext  string
	gotHistory  []domain.ChatTurn
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, question, contextBlock string, history []domain.ChatTurn) (string, error) {
	f.gotQuestion = question
	f.gotContext = contextBlock
	f.gotHistory = history
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeCatalog struct {
	docs       map[string]*domain.Document
	createErr  error
	getErr     error
	statusErr  error
	indexedErr error

	statuses []domain.DocumentStatus
	lastErr  string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{docs: map[string]*domain.Document{}}
}

func (f *fakeCatalog) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeCatalog) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statuses = append(f.statuses, status)
	f.lastErr = errMessage
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.Error = errMessage
	}
	return nil
}

func (f *fakeCatalog) MarkIndexed(_ context.Context, id string, topics []string, chunkCount int) error {
	if f.indexedErr != nil {
		return f.indexedErr
	}
	f.statuses = append(f.statuses, domain.StatusReady)
	if doc, ok := f.docs[id]; ok {
		doc.Status = domain.StatusReady
		doc.Topics = topics
		doc.ChunkCount = chunkCount
	}
	return nil
}

type fakeStorage struct {
	saved   map[string][]byte
	saveErr error
	openErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: map[string][]byte{}}
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = buf
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(bytes.NewReader(f.saved[key])), nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeDocumentIngested(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

type fakeMapping struct {
	entries map[string]domain.MappingEntry
	putErr  error
}

func newFakeMapping() *fakeMapping {
	return &fakeMapping{entries: map[string]domain.MappingEntry{}}
}

func (f *fakeMapping) Topics(_ context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, entry := range f.entries {
		for _, topic := range entry.Topics {
			if _, ok := seen[topic]; ok {
				continue
			}
			seen[topic] = struct{}{}
			out = append(out, topic)
		}
	}
	return out, nil
}

func (f *fakeMapping) Put(_ context.Context, docID string, entry domain.MappingEntry) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.entries[docID] = entry
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ io.Reader, _ string) (string, error) {
	return f.text, f.err
}

type fakeChunker struct {
	chunks []string
}

func (f *fakeChunker) Split(_ string) []string {
	return f.chunks
}

func chunkWith(id, text string, score float64) domain.DocumentChunk {
	return domain.DocumentChunk{ID: id, Text: text, Title: "Doc " + id, Source: "docs/" + id + ".md", Score: score}
}
