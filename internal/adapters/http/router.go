package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amo-events/kb-assistant/internal/core/domain"
	"github.com/amo-events/kb-assistant/internal/core/ports"
	"github.com/amo-events/kb-assistant/internal/observability/metrics"
)

type RouterConfig struct {
	Service        string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	OverloadWait   time.Duration
}

type Router struct {
	query    ports.QueryService
	ingestor ports.DocumentIngestor
	reader   ports.DocumentReader
	mapping  ports.DocumentMapping
	index    ports.VectorIndex
	metrics  *metrics.HTTPServerMetrics
	cfg      RouterConfig
	log      *slog.Logger
}

func NewRouter(
	query ports.QueryService,
	ingestor ports.DocumentIngestor,
	reader ports.DocumentReader,
	mapping ports.DocumentMapping,
	index ports.VectorIndex,
	serverMetrics *metrics.HTTPServerMetrics,
	cfg RouterConfig,
	log *slog.Logger,
) *Router {
	if cfg.Service == "" {
		cfg.Service = "kb-assistant-api"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		query:    query,
		ingestor: ingestor,
		reader:   reader,
		mapping:  mapping,
		index:    index,
		metrics:  serverMetrics,
		cfg:      cfg,
		log:      log,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.processQuery)
	mux.HandleFunc("/v1/reformulate", rt.reformulate)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/topics", rt.listTopics)
	mux.HandleFunc("/v1/stats", rt.indexStats)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxConcurrent, rt.cfg.OverloadWait)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.Service, handler)
	}
	handler = accessLogMiddleware(rt.log, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Question         string            `json:"question"`
	TopK             int               `json:"top_k"`
	Topics           []string          `json:"topics"`
	History          []domain.ChatTurn `json:"history"`
	UseReformulation *bool             `json:"use_reformulation"`
}

func (rt *Router) processQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	useReformulation := true
	if req.UseReformulation != nil {
		useReformulation = *req.UseReformulation
	}

	start := time.Now()
	result := rt.query.ProcessQuery(r.Context(), domain.QueryRequest{
		Query:            req.Question,
		TopK:             req.TopK,
		Filter:           domain.SearchFilter{Topics: req.Topics},
		History:          req.History,
		UseReformulation: useReformulation,
	})

	if rt.metrics != nil {
		rt.metrics.RecordQuery(rt.cfg.Service, result.Success, len(result.Sources), time.Since(start))
		if useReformulation {
			rt.metrics.RecordReformulated(rt.cfg.Service)
		}
		if result.FannedOut {
			rt.metrics.RecordNamespaceFanOut(rt.cfg.Service)
		}
		if result.FellBack {
			rt.metrics.RecordRawQueryFallback(rt.cfg.Service)
		}
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

func (rt *Router) reformulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query   string            `json:"query"`
		History []domain.ChatTurn `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	writeJSON(w, http.StatusOK, rt.query.Reformulate(req.Query, req.History))
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = fileHeader.Filename
	}
	topics := splitTopics(r.FormValue("topics"))

	doc, err := rt.ingestor.Upload(
		r.Context(),
		title,
		fileHeader.Header.Get("Content-Type"),
		topics,
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) listTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	topics, err := rt.mapping.Topics(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if topics == nil {
		topics = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"topics": topics})
}

func (rt *Router) indexStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats, err := rt.index.DescribeStats(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func splitTopics(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if topic := strings.TrimSpace(part); topic != "" {
			out = append(out, topic)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
