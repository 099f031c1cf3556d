package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/amo-events/kb-assistant/internal/core/domain"
	"github.com/amo-events/kb-assistant/internal/core/ports"
)

// QueryUseCase runs the full question answering pipeline: reformulate,
// retrieve, compose. Failures never escape as panics; the result carries
// a success flag so transport adapters can map outcomes uniformly.
type QueryUseCase struct {
	reformulator *Reformulator
	gateway      *SearchGateway
	generator    ports.AnswerGenerator
	log          *slog.Logger
}

func NewQueryUseCase(
	reformulator *Reformulator,
	gateway *SearchGateway,
	generator ports.AnswerGenerator,
	log *slog.Logger,
) *QueryUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &QueryUseCase{
		reformulator: reformulator,
		gateway:      gateway,
		generator:    generator,
		log:          log,
	}
}

// Reformulate exposes the query rewriting stage on its own, without
// touching the index or the generation backend.
func (uc *QueryUseCase) Reformulate(query string, history []domain.ChatTurn) domain.ReformulationResult {
	return uc.reformulator.Reformulate(query, history)
}

// ProcessQuery answers a question against the knowledge base. The
// returned result is always well formed: on failure Success is false
// and Error explains what went wrong, while UsedQuery and any sources
// gathered before the failure are still reported.
func (uc *QueryUseCase) ProcessQuery(ctx context.Context, req domain.QueryRequest) domain.QueryResult {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.QueryResult{
			Success: false,
			Sources: []domain.Source{},
			Error:   "query must not be empty",
		}
	}

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	retrieval, err := uc.retrieve(ctx, query, topK, req.Filter, req.History, req.UseReformulation)
	if err != nil {
		uc.log.Error("retrieval failed", "query", query, "error", err)
		return domain.QueryResult{
			Success:   false,
			Sources:   []domain.Source{},
			UsedQuery: retrieval.UsedQuery,
			Error:     err.Error(),
		}
	}

	answer, sources, err := uc.compose(ctx, query, retrieval.Chunks, req.History)
	if err != nil {
		uc.log.Error("answer generation failed", "query", query, "error", err)
		return domain.QueryResult{
			Success:   false,
			Sources:   sources,
			UsedQuery: retrieval.UsedQuery,
			Error:     err.Error(),
		}
	}

	uc.log.Info("query answered",
		"used_query", retrieval.UsedQuery,
		"chunks", len(retrieval.Chunks),
		"fanned_out", retrieval.FannedOut,
		"fell_back", retrieval.FellBack,
	)
	return domain.QueryResult{
		Success:   true,
		Answer:    answer,
		Sources:   sources,
		UsedQuery: retrieval.UsedQuery,
		FannedOut: retrieval.FannedOut,
		FellBack:  retrieval.FellBack,
	}
}
