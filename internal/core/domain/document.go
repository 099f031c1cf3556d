package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded DocumentStatus = "uploaded"
	StatusIndexing DocumentStatus = "indexing"
	StatusReady    DocumentStatus = "ready"
	StatusFailed   DocumentStatus = "failed"
)

// Document is a knowledge-base source document tracked by the catalog.
type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	SourcePath  string         `json:"source_path"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Topics      []string       `json:"topics,omitempty"`
	Namespace   string         `json:"namespace,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// MappingEntry is the per-document record held in the document mapping
// file. The retrieval core reads it only to enumerate known topics for
// filters; correctness of retrieval never depends on it.
type MappingEntry struct {
	Title      string   `json:"title"`
	Source     string   `json:"source"`
	Topics     []string `json:"topics"`
	ChunkCount int      `json:"chunk_count"`
}
