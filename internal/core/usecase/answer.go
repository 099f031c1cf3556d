package usecase

import (
	"context"
	"strings"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

// NoInformationAnswer is returned when retrieval legitimately finds
// nothing. Reporting absence of knowledge is a success, not a failure.
const NoInformationAnswer = "I don't have information about that topic in my knowledge base."

// compose turns retrieved chunks into a grounded answer with
// attributable sources.
func (uc *QueryUseCase) compose(
	ctx context.Context,
	question string,
	chunks []domain.DocumentChunk,
	history []domain.ChatTurn,
) (string, []domain.Source, error) {
	if len(chunks) == 0 {
		return NoInformationAnswer, []domain.Source{}, nil
	}

	sources := formatSources(chunks)
	contextBlock := buildContextBlock(chunks)

	answer, err := uc.generator.GenerateAnswer(ctx, question, contextBlock, history)
	if err != nil {
		return "", sources, domain.WrapError(domain.ErrGeneration, "generate answer", err)
	}
	return answer, sources, nil
}

// formatSources produces display descriptors with stable defaults for
// missing metadata.
func formatSources(chunks []domain.DocumentChunk) []domain.Source {
	out := make([]domain.Source, 0, len(chunks))
	for _, chunk := range chunks {
		source := domain.Source{
			Title:     chunk.Title,
			Source:    chunk.Source,
			Topics:    chunk.Topics,
			Relevance: chunk.Score,
		}
		if source.Title == "" {
			source.Title = "Untitled Document"
		}
		if source.Source == "" {
			source.Source = "Unknown Source"
		}
		if source.Topics == nil {
			source.Topics = []string{}
		}
		out = append(out, source)
	}
	return out
}

func buildContextBlock(chunks []domain.DocumentChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Text != "" {
			parts = append(parts, chunk.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
