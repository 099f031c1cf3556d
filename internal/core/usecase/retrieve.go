package usecase

import (
	"context"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

const defaultTopK = 5

// minDocsPerAlternative keeps alternative-query searches meaningful
// even when the primary search already filled most of the budget.
const minDocsPerAlternative = 2

// retrieve drives reformulation and gateway searches into a single
// deduplicated result. A failed individual search attempt counts as
// zero results for that attempt; the error surfaces only when no
// attempt produced anything and the last attempt itself failed.
func (uc *QueryUseCase) retrieve(
	ctx context.Context,
	query string,
	topK int,
	filter domain.SearchFilter,
	history []domain.ChatTurn,
	useReformulation bool,
) (domain.RetrievalResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	if !useReformulation {
		chunks, fannedOut, err := uc.gateway.Search(ctx, query, topK, filter)
		if err != nil {
			return domain.RetrievalResult{UsedQuery: query}, domain.WrapError(domain.ErrRetrieval, "search", err)
		}
		return domain.RetrievalResult{
			Chunks:    truncateChunks(chunks, topK),
			UsedQuery: query,
			FannedOut: fannedOut,
		}, nil
	}

	reformulated := uc.reformulator.Reformulate(query, history)
	uc.log.Info("reformulated query",
		"original", query,
		"primary", reformulated.Primary,
		"alternatives", len(reformulated.Alternatives),
	)

	usedQuery := reformulated.Primary
	fannedOut := false
	attempted := 0
	failed := 0
	var lastErr error

	search := func(q string, k int) []domain.DocumentChunk {
		attempted++
		chunks, fo, err := uc.gateway.Search(ctx, q, k, filter)
		fannedOut = fannedOut || fo
		if err != nil {
			failed++
			lastErr = err
			uc.log.Error("search attempt failed", "query", q, "error", err)
			return nil
		}
		return chunks
	}

	all := search(reformulated.Primary, topK)

	if len(all) < topK && len(reformulated.Alternatives) > 0 {
		remaining := topK - len(all)
		docsPerQuery := remaining / len(reformulated.Alternatives)
		if docsPerQuery < minDocsPerAlternative {
			docsPerQuery = minDocsPerAlternative
		}
		for _, alt := range reformulated.Alternatives {
			all = append(all, search(alt, docsPerQuery)...)
		}
		if len(all) > 0 {
			usedQuery = reformulated.Primary + " + alternatives"
		}
	}

	all = dedupeChunks(all)
	all = truncateChunks(all, topK)

	fellBack := false
	if len(all) == 0 {
		// Reformulation found nothing: the unmodified original query
		// is the last resort.
		uc.log.Info("no results with reformulated query, falling back", "original", query)
		all = truncateChunks(search(query, topK), topK)
		usedQuery = query
		fellBack = true
	}

	if len(all) == 0 && attempted > 0 && attempted == failed {
		return domain.RetrievalResult{UsedQuery: query}, domain.WrapError(domain.ErrRetrieval, "search", lastErr)
	}

	return domain.RetrievalResult{
		Chunks:    all,
		UsedQuery: usedQuery,
		FannedOut: fannedOut,
		FellBack:  fellBack,
	}, nil
}

// dedupeChunks drops repeated document identifiers, first occurrence
// wins. Primary-search results precede alternative-search results, so
// ordering encodes priority.
func dedupeChunks(chunks []domain.DocumentChunk) []domain.DocumentChunk {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]domain.DocumentChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.ID]; ok {
			continue
		}
		seen[chunk.ID] = struct{}{}
		out = append(out, chunk)
	}
	return out
}

func truncateChunks(chunks []domain.DocumentChunk, limit int) []domain.DocumentChunk {
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}
