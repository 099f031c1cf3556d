package domain

// ChatRole tags a conversation turn.
type ChatRole string

const (
	RoleUser      ChatRole = "human"
	RoleAssistant ChatRole = "ai"
)

// ChatTurn is a single utterance in a conversation, oldest first in a
// history slice. Histories are caller-owned; the pipeline never
// mutates them.
type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ReformulationResult holds the rewritten primary query plus the
// alternative sub-queries produced by decomposition. Alternatives are
// present only when the query matched a complexity pattern.
type ReformulationResult struct {
	Primary      string   `json:"primary_query"`
	Alternatives []string `json:"alternative_queries"`
}

// SearchFilter narrows retrieval candidates by topic. The core passes
// it through to the vector index unchanged.
type SearchFilter struct {
	Topics []string
}

func (f SearchFilter) IsZero() bool {
	return len(f.Topics) == 0
}

// DocumentChunk is the atomic unit of retrieval: a bounded span of a
// source document together with its provenance. Chunks are created by
// the ingestion pipeline and read-only afterwards.
type DocumentChunk struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Source    string   `json:"source"`
	Title     string   `json:"title"`
	Topics    []string `json:"topics,omitempty"`
	Score     float64  `json:"score"`
	Namespace string   `json:"namespace,omitempty"`
}

// RetrievalResult is a deduplicated, capped chunk list plus the query
// string that actually produced it.
type RetrievalResult struct {
	Chunks    []DocumentChunk `json:"chunks"`
	UsedQuery string          `json:"used_query"`

	// FannedOut and FellBack record which retrieval policies fired.
	// Diagnostics and metrics only.
	FannedOut bool `json:"-"`
	FellBack  bool `json:"-"`
}

// Source is a chunk's metadata formatted for display alongside an
// answer.
type Source struct {
	Title     string   `json:"title"`
	Source    string   `json:"source"`
	Topics    []string `json:"topics"`
	Relevance float64  `json:"relevance"`
}

// QueryRequest is the inbound contract for a full question-answering
// pass.
type QueryRequest struct {
	Query            string
	TopK             int
	Filter           SearchFilter
	History          []ChatTurn
	UseReformulation bool
}

// QueryResult is the discriminated pipeline outcome. Success=false
// carries a non-empty Error; zero sources with Success=true means the
// knowledge base legitimately had nothing relevant.
type QueryResult struct {
	Success   bool     `json:"success"`
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	UsedQuery string   `json:"used_query"`
	Error     string   `json:"error,omitempty"`

	// Retrieval-path observations, surfaced for callers that track
	// them but kept out of the response body.
	FannedOut bool `json:"-"`
	FellBack  bool `json:"-"`
}

// IndexStats reports per-namespace vector counts from the index.
type IndexStats struct {
	TotalVectors int            `json:"total_vectors"`
	Namespaces   map[string]int `json:"namespaces"`
}
