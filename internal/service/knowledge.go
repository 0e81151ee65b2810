package service

import (
	"context"
	"log"
	"strings"

	"github.com/remardo/mkk-portal/internal/domain"
	"github.com/remardo/mkk-portal/internal/pagination"
	"github.com/remardo/mkk-portal/internal/telemetry"
)

// ArticlePageResult is one page of a published-article listing.
type ArticlePageResult struct {
	Items      []*domain.KnowledgeArticle
	NextCursor string
	HasMore    bool
}

// ArticleRepository defines the article lookups behind the knowledge base.
type ArticleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeArticle, error)
	ListPublishedWithCursor(ctx context.Context, access *domain.AccessContext, cursor *pagination.Cursor, limit int) (*ArticlePageResult, error)
	SearchVisible(ctx context.Context, access *domain.AccessContext, query string, limit int) ([]*domain.KnowledgeArticle, error)
	IncrementViews(ctx context.Context, id string) error
}

// KnowledgeService serves knowledge base reads. Visibility is enforced
// on every path; an article the caller may not see behaves exactly like
// one that does not exist.
type KnowledgeService struct {
	articles ArticleRepository
}

func NewKnowledgeService(articles ArticleRepository) *KnowledgeService {
	return &KnowledgeService{articles: articles}
}

// GetArticle returns one published article visible to the caller and
// bumps its view counter.
func (s *KnowledgeService) GetArticle(ctx context.Context, access *domain.AccessContext, id string) (*domain.KnowledgeArticle, error) {
	if access == nil {
		return nil, domain.ErrUnauthorized
	}
	if id == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "article ID is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.GetArticle", telemetry.SpanAttributes{
		UserID:    access.UserID,
		Role:      string(access.Role),
		ArticleID: id,
		Operation: "get_article",
	})
	defer span.End()

	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !article.VisibleTo(access) {
		return nil, domain.ErrArticleNotFound
	}

	// View counting must never fail the read.
	if err := s.articles.IncrementViews(ctx, id); err != nil {
		log.Printf("knowledge: failed to increment views for article %s: %v", id, err)
	} else {
		article.Views++
	}

	return article, nil
}

// ListArticles pages through published articles visible to the caller.
func (s *KnowledgeService) ListArticles(ctx context.Context, access *domain.AccessContext, cursorStr string, limit int) (*ArticlePageResult, error) {
	if access == nil {
		return nil, domain.ErrUnauthorized
	}

	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.ListArticles", telemetry.SpanAttributes{
		UserID:    access.UserID,
		Role:      string(access.Role),
		Operation: "list_articles",
	})
	defer span.End()

	return s.articles.ListPublishedWithCursor(ctx, access, cursor, limit)
}

// SearchArticles runs full-text search over published articles visible
// to the caller. Unlike the assistant's lexical fallback this is a
// user-facing listing, so the role/branch predicate applies here too.
func (s *KnowledgeService) SearchArticles(ctx context.Context, access *domain.AccessContext, query string, limit int) ([]*domain.KnowledgeArticle, error) {
	if access == nil {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "search query is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.SearchArticles", telemetry.SpanAttributes{
		UserID:    access.UserID,
		Role:      string(access.Role),
		Operation: "search_articles",
	})
	defer span.End()

	return s.articles.SearchVisible(ctx, access, query, limit)
}
