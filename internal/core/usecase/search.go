package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/amo-events/kb-assistant/internal/core/domain"
	"github.com/amo-events/kb-assistant/internal/core/ports"
)

// SearchGateway embeds a query once and searches the vector index,
// fanning out across namespaces when the default namespace comes back
// empty. Fan-out stops at the first namespace that yields anything:
// an empty default namespace usually means content lives elsewhere,
// but results from different namespaces are never merged.
type SearchGateway struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	namespace string
	log       *slog.Logger
}

func NewSearchGateway(embedder ports.Embedder, index ports.VectorIndex, namespace string, log *slog.Logger) *SearchGateway {
	if log == nil {
		log = slog.Default()
	}
	return &SearchGateway{
		embedder:  embedder,
		index:     index,
		namespace: namespace,
		log:       log,
	}
}

// Search returns up to topK chunks for the query. The second return
// value reports whether namespace fan-out kicked in.
func (g *SearchGateway) Search(
	ctx context.Context,
	query string,
	topK int,
	filter domain.SearchFilter,
) ([]domain.DocumentChunk, bool, error) {
	vector, err := g.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := g.index.Query(ctx, vector, topK, g.namespace, filter)
	if err != nil {
		return nil, false, err
	}
	if len(chunks) > 0 || g.namespace != "" {
		return chunks, false, nil
	}

	// Default namespace is empty: probe the others, first hit wins.
	stats, err := g.index.DescribeStats(ctx)
	if err != nil {
		g.log.Error("describe index stats failed during fan-out", "error", err)
		return nil, false, nil
	}

	for _, namespace := range sortedNamespaces(stats) {
		if namespace == "" {
			continue
		}
		g.log.Info("trying namespace", "namespace", namespace, "query", query)
		probed, err := g.index.Query(ctx, vector, topK, namespace, filter)
		if err != nil {
			g.log.Error("namespace probe failed", "namespace", namespace, "error", err)
			continue
		}
		if len(probed) > 0 {
			return probed, true, nil
		}
	}
	return nil, true, nil
}

func sortedNamespaces(stats domain.IndexStats) []string {
	out := make([]string, 0, len(stats.Namespaces))
	for namespace := range stats.Namespaces {
		out = append(out, namespace)
	}
	sort.Strings(out)
	return out
}
