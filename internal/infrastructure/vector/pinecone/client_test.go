package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

func encodeNodeContent(t *testing.T, text string, topics []string) string {
	t.Helper()
	node := nodeContent{Text: text}
	node.Metadata.Topics = topics
	encoded, err := json.Marshal(node)
	if err != nil {
		t.Fatal(err)
	}
	return string(encoded)
}

func TestQueryDecodesMatchesAndSkipsMalformed(t *testing.T) {
	var gotBody map[string]any
	var gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAPIKey = r.Header.Get("Api-Key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		resp := map[string]any{
			"matches": []map[string]any{
				{
					"id":    "doc-1#0",
					"score": 0.92,
					"metadata": map[string]any{
						"_node_content": encodeNodeContent(t, "Check-in opens at 9am.", []string{"check-in"}),
						"file_path":     "kb/checkin.md",
						"file_name":     "Check-in Guide",
					},
				},
				{
					"id":    "doc-2#0",
					"score": 0.80,
					"metadata": map[string]any{
						"_node_content": "{not json",
					},
				},
				{
					"id":    "doc-3#0",
					"score": 0.75,
					"metadata": map[string]any{
						"_node_content": encodeNodeContent(t, "", nil),
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := New(server.URL, "secret-key", nil)
	chunks, err := client.Query(context.Background(), []float32{0.1, 0.2}, 5, "events",
		domain.SearchFilter{Topics: []string{"check-in"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAPIKey != "secret-key" {
		t.Errorf("Api-Key header = %q", gotAPIKey)
	}
	if gotBody["namespace"] != "events" {
		t.Errorf("namespace = %v", gotBody["namespace"])
	}
	if gotBody["includeMetadata"] != true {
		t.Error("includeMetadata not set")
	}
	if _, ok := gotBody["filter"]; !ok {
		t.Error("topic filter not forwarded")
	}

	if len(chunks) != 1 {
		t.Fatalf("expected the two malformed matches to be dropped, got %+v", chunks)
	}
	chunk := chunks[0]
	if chunk.ID != "doc-1#0" || chunk.Text != "Check-in opens at 9am." {
		t.Errorf("unexpected chunk: %+v", chunk)
	}
	if chunk.Title != "Check-in Guide" || chunk.Source != "kb/checkin.md" {
		t.Errorf("provenance not decoded: %+v", chunk)
	}
	if len(chunk.Topics) != 1 || chunk.Topics[0] != "check-in" {
		t.Errorf("topics not decoded: %+v", chunk.Topics)
	}
	if chunk.Score != 0.92 || chunk.Namespace != "events" {
		t.Errorf("score/namespace wrong: %+v", chunk)
	}
}

func TestQueryOmitsFilterWhenUnset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["filter"]; ok {
			t.Error("empty filter must not be sent")
		}
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "k", nil)
	if _, err := client.Query(context.Background(), []float32{0.1}, 5, "", domain.SearchFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryStatusErrorCarriesCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "index not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "k", nil)
	_, err := client.Query(context.Background(), []float32{0.1}, 5, "", domain.SearchFilter{})

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d", statusErr.StatusCode)
	}
}

func TestDescribeStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/describe_index_stats" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"namespaces": {"": {"vectorCount": 5}, "events": {"vectorCount": 12}},
			"totalVectorCount": 17
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "k", nil)
	stats, err := client.DescribeStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalVectors != 17 {
		t.Errorf("total = %d", stats.TotalVectors)
	}
	if stats.Namespaces["events"] != 12 || stats.Namespaces[""] != 5 {
		t.Errorf("namespaces = %+v", stats.Namespaces)
	}
}

func TestUpsertRoundTripsNodeContent(t *testing.T) {
	var gotBody struct {
		Vectors []struct {
			ID       string         `json:"id"`
			Values   []float32      `json:"values"`
			Metadata map[string]any `json:"metadata"`
		} `json:"vectors"`
		Namespace string `json:"namespace"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"upsertedCount":2}`))
	}))
	defer server.Close()

	doc := &domain.Document{
		ID:         "doc-9",
		Title:      "Venue Guide",
		SourcePath: "Venue Guide",
		Topics:     []string{"venue"},
		Namespace:  "events",
	}
	client := New(server.URL, "k", nil)
	err := client.Upsert(context.Background(), doc,
		[]string{"part one", "part two"},
		[][]float32{{0.1}, {0.2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotBody.Namespace != "events" || len(gotBody.Vectors) != 2 {
		t.Fatalf("unexpected upsert body: %+v", gotBody)
	}
	if gotBody.Vectors[0].ID != "doc-9#0" || gotBody.Vectors[1].ID != "doc-9#1" {
		t.Errorf("vector ids: %s, %s", gotBody.Vectors[0].ID, gotBody.Vectors[1].ID)
	}

	raw, _ := gotBody.Vectors[0].Metadata["_node_content"].(string)
	var node nodeContent
	if err := json.Unmarshal([]byte(raw), &node); err != nil {
		t.Fatalf("node content not valid JSON: %v", err)
	}
	if node.Text != "part one" || len(node.Metadata.Topics) != 1 {
		t.Errorf("node content round trip failed: %+v", node)
	}
	if gotBody.Vectors[0].Metadata["file_name"] != "Venue Guide" {
		t.Errorf("file_name metadata missing: %+v", gotBody.Vectors[0].Metadata)
	}
}

func TestUpsertChunkVectorMismatch(t *testing.T) {
	client := New("http://unused", "k", nil)
	err := client.Upsert(context.Background(), &domain.Document{ID: "d"}, []string{"a"}, [][]float32{{0.1}, {0.2}})
	if err == nil {
		t.Fatal("expected a mismatch error")
	}
}
