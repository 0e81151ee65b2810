package service

import (
	"strings"

	"github.com/remardo/mkk-portal/internal/domain"
)

// RetrievalMatch is one chunk returned by semantic search, alive only
// for the duration of a single request.
type RetrievalMatch struct {
	ChunkID    string
	SourceType domain.SourceType
	SourceID   string
	ChunkIndex int
	Title      string
	Content    string
	Similarity float32
}

// FallbackArticle is a published article returned by the lexical fallback.
type FallbackArticle struct {
	ID      string
	Title   string
	Content string
}

// SourceCitation points the employee at the content an answer was
// grounded in. Derived per request, never stored.
type SourceCitation struct {
	Title string
	ID    string
	Type  domain.SourceType
}

// ConversationTurn is one prior message supplied by the caller.
type ConversationTurn struct {
	Role    string
	Content string
}

// assembleFromMatches concatenates matched chunk texts in result order and
// derives citations deduplicated by (source type, source id), first-seen
// order preserved.
func assembleFromMatches(matches []*RetrievalMatch) (string, []SourceCitation) {
	texts := make([]string, 0, len(matches))
	sources := make([]SourceCitation, 0, len(matches))
	seen := make(map[string]bool, len(matches))

	for _, m := range matches {
		if m == nil {
			continue
		}
		texts = append(texts, m.Content)

		key := string(m.SourceType) + ":" + m.SourceID
		if seen[key] {
			continue
		}
		seen[key] = true

		title := m.Title
		if title == "" {
			title = defaultSourceTitle
		}
		sources = append(sources, SourceCitation{
			Title: title,
			ID:    m.SourceID,
			Type:  m.SourceType,
		})
	}

	return strings.Join(texts, "\n\n"), sources
}

// assembleFromArticles builds context and citations from the lexical
// fallback. All citations carry the knowledge source type.
func assembleFromArticles(articles []*FallbackArticle) (string, []SourceCitation) {
	texts := make([]string, 0, len(articles))
	sources := make([]SourceCitation, 0, len(articles))
	seen := make(map[string]bool, len(articles))

	for _, a := range articles {
		if a == nil {
			continue
		}
		texts = append(texts, a.Content)

		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true

		title := a.Title
		if title == "" {
			title = defaultSourceTitle
		}
		sources = append(sources, SourceCitation{
			Title: title,
			ID:    a.ID,
			Type:  domain.SourceTypeKnowledge,
		})
	}

	return strings.Join(texts, "\n\n"), sources
}

// truncateSources caps the citation list for display.
func truncateSources(sources []SourceCitation, limit int) []SourceCitation {
	if limit <= 0 || len(sources) <= limit {
		return sources
	}
	return sources[:limit]
}

// lastTurns bounds the caller-supplied history to its most recent turns,
// preserving order. Truncation is local to prompt construction; the
// caller's stored history is untouched.
func lastTurns(history []ConversationTurn, window int) []ConversationTurn {
	if window <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}
