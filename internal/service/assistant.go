package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/remardo/mkk-portal/internal/domain"
	"github.com/remardo/mkk-portal/internal/telemetry"
)

// ChunkSearchRepository defines the vector search over the content index.
// The role/branch visibility predicate is evaluated inside the search
// itself, never as a post-filter on an unrestricted result set.
type ChunkSearchRepository interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, access *domain.AccessContext, threshold float32, count int) ([]*RetrievalMatch, error)
}

// ArticleSearchRepository defines the lexical fallback search over
// published knowledge articles.
type ArticleSearchRepository interface {
	SearchPublished(ctx context.Context, query string, limit int) ([]*FallbackArticle, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator defines the interface for the generative capability
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, systemPrompt string, history []ConversationTurn, question string) (string, error)
}

// AskInput represents one employee question with its prior conversation
type AskInput struct {
	Access  *domain.AccessContext
	Message string
	History []ConversationTurn
}

// AskOutput is the grounded answer with its citations
type AskOutput struct {
	Response string
	Sources  []SourceCitation
}

// AssistantConfig controls retrieval and generation policy.
type AssistantConfig struct {
	MatchThreshold     float32
	MatchCount         int
	FallbackLimit      int
	HistoryWindow      int
	SourceDisplayLimit int
	EmbeddingTimeout   time.Duration
	GenerationTimeout  time.Duration
}

// DefaultAssistantConfig returns the default pipeline configuration.
func DefaultAssistantConfig() AssistantConfig {
	return AssistantConfig{
		MatchThreshold:     0.7,
		MatchCount:         5,
		FallbackLimit:      3,
		HistoryWindow:      5,
		SourceDisplayLimit: 3,
		EmbeddingTimeout:   10 * time.Second,
		GenerationTimeout:  60 * time.Second,
	}
}

// AssistantService runs the retrieval-and-grounding pipeline behind the
// portal's AI assistant. It holds no mutable state; each question is an
// independent request over the injected capabilities.
type AssistantService struct {
	chunks    ChunkSearchRepository
	articles  ArticleSearchRepository
	embedding EmbeddingClient
	generator AnswerGenerator
	cfg       AssistantConfig
}

// NewAssistantService creates an AssistantService with default configuration.
func NewAssistantService(
	chunks ChunkSearchRepository,
	articles ArticleSearchRepository,
	embedding EmbeddingClient,
	generator AnswerGenerator,
) *AssistantService {
	return NewAssistantServiceWithConfig(chunks, articles, embedding, generator, DefaultAssistantConfig())
}

// NewAssistantServiceWithConfig creates an AssistantService with explicit configuration.
func NewAssistantServiceWithConfig(
	chunks ChunkSearchRepository,
	articles ArticleSearchRepository,
	embedding EmbeddingClient,
	generator AnswerGenerator,
	cfg AssistantConfig,
) *AssistantService {
	return &AssistantService{
		chunks:    chunks,
		articles:  articles,
		embedding: embedding,
		generator: generator,
		cfg:       cfg,
	}
}

// Ask answers an employee question grounded in the content the employee
// is permitted to see.
//
// Steps are strictly sequential: the access context gates retrieval,
// retrieval gates assembly, assembly gates generation. An embedding or
// semantic-search failure degrades to the lexical fallback; only a
// generation failure is terminal.
func (s *AssistantService) Ask(ctx context.Context, input AskInput) (*AskOutput, error) {
	if input.Access == nil {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(input.Message) == "" {
		return nil, domain.ErrEmptyMessage
	}

	ctx, span := telemetry.StartSpan(ctx, "AssistantService.Ask", telemetry.SpanAttributes{
		UserID:    input.Access.UserID,
		Role:      string(input.Access.Role),
		Operation: "ask",
	})
	defer span.End()

	matches := s.retrieveSemantic(ctx, input)

	var assembled string
	var sources []SourceCitation
	if len(matches) > 0 {
		assembled, sources = assembleFromMatches(matches)
	} else {
		articles := s.retrieveLexical(ctx, input.Message)
		assembled, sources = assembleFromArticles(articles)
	}

	systemPrompt := buildSystemPrompt(assembled)
	history := lastTurns(input.History, s.cfg.HistoryWindow)

	answer, err := s.generate(ctx, systemPrompt, history, input.Message)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate answer", err)
	}
	if strings.TrimSpace(answer) == "" {
		answer = emptyAnswerFallback
	}

	return &AskOutput{
		Response: answer,
		Sources:  truncateSources(sources, s.cfg.SourceDisplayLimit),
	}, nil
}

// retrieveSemantic embeds the question and queries the vector index.
// Any failure along the way yields an empty match list so the caller
// falls through to lexical search; a zero vector would only produce
// meaningless neighbors.
func (s *AssistantService) retrieveSemantic(ctx context.Context, input AskInput) []*RetrievalMatch {
	embedCtx := ctx
	if s.cfg.EmbeddingTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, s.cfg.EmbeddingTimeout)
		defer cancel()
	}

	embedding, err := s.embedding.GenerateEmbedding(embedCtx, input.Message)
	if err != nil {
		log.Printf("assistant: embedding unavailable, using lexical fallback: %v", err)
		return nil
	}

	matches, err := s.chunks.SearchByEmbedding(ctx, embedding, input.Access, s.cfg.MatchThreshold, s.cfg.MatchCount)
	if err != nil {
		log.Printf("assistant: semantic search failed, using lexical fallback: %v", err)
		return nil
	}

	return matches
}

// retrieveLexical runs the published-article text search. A failure here
// leaves the context empty; the sentinel takes over downstream.
func (s *AssistantService) retrieveLexical(ctx context.Context, query string) []*FallbackArticle {
	articles, err := s.articles.SearchPublished(ctx, query, s.cfg.FallbackLimit)
	if err != nil {
		log.Printf("assistant: lexical fallback failed: %v", err)
		return nil
	}
	return articles
}

func (s *AssistantService) generate(ctx context.Context, systemPrompt string, history []ConversationTurn, question string) (string, error) {
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}
	return s.generator.GenerateAnswer(ctx, systemPrompt, history, question)
}
