package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

// Client talks to a Pinecone index over its data-plane REST API. All
// decoding of the index-specific payload format happens here; the rest
// of the system only ever sees domain.DocumentChunk.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func New(host, apiKey string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

// nodeContent is the JSON document embedded as a string under the
// "_node_content" metadata key of every stored vector.
type nodeContent struct {
	Text     string `json:"text"`
	Metadata struct {
		Topics []string `json:"topics"`
	} `json:"metadata"`
}

type queryMatch struct {
	ID       string          `json:"id"`
	Score    float64         `json:"score"`
	Metadata json.RawMessage `json:"metadata"`
}

type matchMetadata struct {
	NodeContent string `json:"_node_content"`
	FilePath    string `json:"file_path"`
	FileName    string `json:"file_name"`
}

func (c *Client) Query(
	ctx context.Context,
	vector []float32,
	topK int,
	namespace string,
	filter domain.SearchFilter,
) ([]domain.DocumentChunk, error) {
	reqBody := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"namespace":       namespace,
		"includeMetadata": true,
	}
	if !filter.IsZero() {
		reqBody["filter"] = map[string]any{
			"topics": map[string]any{"$in": filter.Topics},
		}
	}

	var queryResp struct {
		Matches []queryMatch `json:"matches"`
	}
	if err := c.post(ctx, "/query", reqBody, &queryResp); err != nil {
		return nil, err
	}

	out := make([]domain.DocumentChunk, 0, len(queryResp.Matches))
	for _, match := range queryResp.Matches {
		chunk, ok := c.decodeMatch(match, namespace)
		if !ok {
			continue
		}
		out = append(out, chunk)
	}
	return out, nil
}

// decodeMatch unpacks one raw match. Malformed matches are logged and
// dropped; a single bad vector must not sink the whole result set.
func (c *Client) decodeMatch(match queryMatch, namespace string) (domain.DocumentChunk, bool) {
	var meta matchMetadata
	if err := json.Unmarshal(match.Metadata, &meta); err != nil {
		c.log.Error("skipping match with unreadable metadata", "match_id", match.ID, "error", err)
		return domain.DocumentChunk{}, false
	}
	if meta.NodeContent == "" {
		c.log.Warn("skipping match without node content", "match_id", match.ID)
		return domain.DocumentChunk{}, false
	}

	var node nodeContent
	if err := json.Unmarshal([]byte(meta.NodeContent), &node); err != nil {
		c.log.Error("skipping match with malformed node content", "match_id", match.ID, "error", err)
		return domain.DocumentChunk{}, false
	}
	if node.Text == "" {
		c.log.Warn("skipping match without text", "match_id", match.ID)
		return domain.DocumentChunk{}, false
	}

	return domain.DocumentChunk{
		ID:        match.ID,
		Text:      node.Text,
		Source:    meta.FilePath,
		Title:     meta.FileName,
		Topics:    node.Metadata.Topics,
		Score:     match.Score,
		Namespace: namespace,
	}, true
}

func (c *Client) DescribeStats(ctx context.Context) (domain.IndexStats, error) {
	var statsResp struct {
		Namespaces map[string]struct {
			VectorCount int `json:"vectorCount"`
		} `json:"namespaces"`
		TotalVectorCount int `json:"totalVectorCount"`
	}
	if err := c.post(ctx, "/describe_index_stats", map[string]any{}, &statsResp); err != nil {
		return domain.IndexStats{}, err
	}

	stats := domain.IndexStats{
		TotalVectors: statsResp.TotalVectorCount,
		Namespaces:   make(map[string]int, len(statsResp.Namespaces)),
	}
	for namespace, ns := range statsResp.Namespaces {
		stats.Namespaces[namespace] = ns.VectorCount
	}
	return stats, nil
}

func (c *Client) Upsert(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}

	type vectorRecord struct {
		ID       string         `json:"id"`
		Values   []float32      `json:"values"`
		Metadata map[string]any `json:"metadata"`
	}

	records := make([]vectorRecord, 0, len(chunks))
	for i := range chunks {
		node := nodeContent{Text: chunks[i]}
		node.Metadata.Topics = doc.Topics
		encoded, err := json.Marshal(node)
		if err != nil {
			return fmt.Errorf("marshal node content: %w", err)
		}
		records = append(records, vectorRecord{
			ID:     fmt.Sprintf("%s#%d", doc.ID, i),
			Values: vectors[i],
			Metadata: map[string]any{
				"_node_content": string(encoded),
				"file_path":     doc.SourcePath,
				"file_name":     doc.Title,
				"doc_id":        doc.ID,
				"chunk_index":   i,
			},
		})
	}

	reqBody := map[string]any{
		"vectors":   records,
		"namespace": doc.Namespace,
	}
	return c.post(ctx, "/vectors/upsert", reqBody, nil)
}

func (c *Client) post(ctx context.Context, path string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone %s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(snippet),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
