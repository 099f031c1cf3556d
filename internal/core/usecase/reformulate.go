package usecase

import (
	"regexp"
	"strings"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

// historyWindow bounds how many recent turns feed context injection.
const historyWindow = 6

var (
	pronounPattern = regexp.MustCompile(`(?i)\b(it|they|them|those|these|this|that)\b`)

	// Patterns that mark a query as complex enough to decompose.
	complexQueryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(how|what).+?and.+?\?`),
		regexp.MustCompile(`(?i)(how|what).+?or.+?\?`),
		regexp.MustCompile(`(?i)(how|what|why).+?if.+?\?`),
		regexp.MustCompile(`(?i)compare.+?and.+?\?`),
		regexp.MustCompile(`(?i)what are the steps to.+?\?`),
	}

	interrogativePrefixPattern = regexp.MustCompile(`(?i)^(how|what|why|when|where|who|which).*?do\s+I\s+`)
	interrogativeStartPattern  = regexp.MustCompile(`(?i)^(how|what|why|when|where|who|which)\b`)
)

// Reformulator rewrites raw user queries to improve retrieval recall:
// conversation-context injection, then synonym expansion, then
// complex-query decomposition, in that fixed order. It never fails; on
// anything unexpected it degrades to passing the query through.
type Reformulator struct {
	synonyms []SynonymEntry
}

func NewReformulator(synonyms []SynonymEntry) *Reformulator {
	if len(synonyms) == 0 {
		synonyms = DefaultSynonyms()
	}
	return &Reformulator{synonyms: synonyms}
}

// Reformulate produces the primary search query plus alternative
// sub-queries. The primary query is the expanded form; alternatives
// come from decomposition, minus any entry equal to the primary.
func (r *Reformulator) Reformulate(query string, history []domain.ChatTurn) domain.ReformulationResult {
	contextAware := injectContext(query, history)
	expanded := r.expand(contextAware)
	decomposed := r.decompose(expanded)

	alternatives := make([]string, 0, len(decomposed))
	for _, sub := range decomposed {
		if sub != expanded {
			alternatives = append(alternatives, sub)
		}
	}

	return domain.ReformulationResult{
		Primary:      expanded,
		Alternatives: alternatives,
	}
}

// injectContext appends recent conversation text when the query leans
// on anaphora ("it", "those", "the same", ...) that a standalone
// vector search cannot resolve.
func injectContext(query string, history []domain.ChatTurn) string {
	if len(history) < 2 {
		return query
	}

	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	parts := make([]string, 0, len(recent))
	for _, turn := range recent {
		if turn.Content != "" {
			parts = append(parts, turn.Content)
		}
	}
	if len(parts) == 0 {
		return query
	}

	lower := strings.ToLower(query)
	hasReference := strings.Contains(lower, "the same") || strings.Contains(lower, "as mentioned")
	if !pronounPattern.MatchString(query) && !hasReference {
		return query
	}

	return query + " in the context of " + strings.Join(parts, " ")
}

// expand appends the canonical term and its synonyms for every
// vocabulary entry whose term or synonyms occur in the query. A term
// or synonym already literally present in the query is not appended
// again, which makes expansion converge on repeated application.
func (r *Reformulator) expand(query string) string {
	if query == "" {
		return query
	}
	lowerQuery := strings.ToLower(query)

	var expansion []string
	appended := make(map[string]struct{})
	add := func(term string) {
		if _, ok := appended[term]; ok {
			return
		}
		appended[term] = struct{}{}
		expansion = append(expansion, term)
	}

	for _, entry := range r.synonyms {
		if !entryMatches(entry, lowerQuery) {
			continue
		}
		if !strings.Contains(lowerQuery, strings.ToLower(entry.Term)) {
			add(entry.Term)
		}
		for _, synonym := range entry.Synonyms {
			if !strings.Contains(lowerQuery, strings.ToLower(synonym)) {
				add(synonym)
			}
		}
	}

	if len(expansion) == 0 {
		return query
	}
	return query + " " + strings.Join(expansion, " ")
}

func entryMatches(entry SynonymEntry, lowerQuery string) bool {
	if strings.Contains(lowerQuery, strings.ToLower(entry.Term)) {
		return true
	}
	for _, synonym := range entry.Synonyms {
		if strings.Contains(lowerQuery, strings.ToLower(synonym)) {
			return true
		}
	}
	return false
}

// decompose splits a complex query into independently searchable
// sub-queries. Queries that match no complexity pattern come back
// unchanged as a single-element slice.
func (r *Reformulator) decompose(query string) []string {
	if !isComplexQuery(query) {
		return []string{query}
	}

	if strings.Count(query, "?") > 1 {
		segments := strings.Split(query, "?")
		subs := make([]string, 0, len(segments))
		for _, segment := range segments {
			segment = strings.TrimSpace(segment)
			if segment != "" {
				subs = append(subs, segment+"?")
			}
		}
		if len(subs) > 0 {
			return subs
		}
	}

	if subs := splitConjunction(query); len(subs) > 0 {
		return subs
	}

	return []string{query}
}

func isComplexQuery(query string) bool {
	if strings.Count(query, "?") > 1 {
		return true
	}
	for _, pattern := range complexQueryPatterns {
		if pattern.MatchString(query) {
			return true
		}
	}
	return false
}

// splitConjunction handles the single "X and Y" case where the first
// clause is interrogative. When the first clause carries an
// "...do I..." prefix the prefix is re-applied to the second clause;
// when the second clause is already a full question it stands on its
// own.
func splitConjunction(query string) []string {
	parts := strings.Split(query, " and ")
	if len(parts) != 2 {
		return nil
	}
	first, second := parts[0], parts[1]
	if !interrogativeStartPattern.MatchString(first) {
		return nil
	}

	if prefix := interrogativePrefixPattern.FindString(first); prefix != "" {
		return []string{first, prefix + second}
	}
	if interrogativeStartPattern.MatchString(second) {
		return []string{first, second}
	}
	return nil
}
