package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/remardo/mkk-portal/internal/domain"
	"github.com/remardo/mkk-portal/internal/pagination"
	"github.com/remardo/mkk-portal/internal/service"
)

// ArticleRepository handles persistence of knowledge base articles.
type ArticleRepository struct {
	db dbtx
}

func NewArticleRepository(pool *pgxpool.Pool) *ArticleRepository {
	return &ArticleRepository{db: pool}
}

const articleColumns = `id, category_id, title, content, tags, status, visible_roles, visible_branch_ids, views, created_by, updated_by, created_at, updated_at`

func (r *ArticleRepository) Create(ctx context.Context, a *domain.KnowledgeArticle) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_articles (`+articleColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, nullableString(a.CategoryID), a.Title, a.Content, stringsOrEmpty(a.Tags), a.Status,
		rolesToStrings(a.VisibleRoles), stringsOrEmpty(a.VisibleBranchIDs),
		a.Views, nullableString(a.CreatedBy), nullableString(a.UpdatedBy), a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeArticle, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM knowledge_articles WHERE id = $1`,
		id,
	)
	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrArticleNotFound
		}
		return nil, err
	}
	return a, nil
}

// SearchPublished runs full-text search over published articles. It is
// the lexical fallback behind the assistant, so only title, content and
// tags participate and ranking follows ts_rank.
func (r *ArticleRepository) SearchPublished(ctx context.Context, query string, limit int) ([]*service.FallbackArticle, error) {
	if limit <= 0 {
		limit = 3
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, title, content
		 FROM knowledge_articles
		 WHERE status = $1
		   AND search_vector @@ websearch_to_tsquery('russian', $2)
		 ORDER BY ts_rank(search_vector, websearch_to_tsquery('russian', $2)) DESC, id
		 LIMIT $3`,
		domain.ArticleStatusPublished, query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := make([]*service.FallbackArticle, 0, limit)
	for rows.Next() {
		var a service.FallbackArticle
		if err := rows.Scan(&a.ID, &a.Title, &a.Content); err != nil {
			return nil, err
		}
		articles = append(articles, &a)
	}

	return articles, rows.Err()
}

// SearchVisible runs full-text search over published articles the given
// access context may read, best match first.
func (r *ArticleRepository) SearchVisible(ctx context.Context, access *domain.AccessContext, query string, limit int) ([]*domain.KnowledgeArticle, error) {
	if access == nil {
		return nil, domain.ErrUnauthorized
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+articleColumns+`
		 FROM knowledge_articles
		 WHERE status = $1
		   AND (cardinality(visible_roles) = 0 OR $2 = ANY(visible_roles))
		   AND (cardinality(visible_branch_ids) = 0 OR $3 = ANY(visible_branch_ids))
		   AND search_vector @@ websearch_to_tsquery('russian', $4)
		 ORDER BY ts_rank(search_vector, websearch_to_tsquery('russian', $4)) DESC, id
		 LIMIT $5`,
		domain.ArticleStatusPublished, string(access.Role), access.BranchID, query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := make([]*domain.KnowledgeArticle, 0, limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}

	return articles, rows.Err()
}

// ListPublishedWithCursor pages through published articles visible to
// the given access context, newest first.
func (r *ArticleRepository) ListPublishedWithCursor(ctx context.Context, access *domain.AccessContext, cursor *pagination.Cursor, limit int) (*service.ArticlePageResult, error) {
	if access == nil {
		return nil, domain.ErrUnauthorized
	}
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+articleColumns+`
			 FROM knowledge_articles
			 WHERE status = $1
			   AND (cardinality(visible_roles) = 0 OR $2 = ANY(visible_roles))
			   AND (cardinality(visible_branch_ids) = 0 OR $3 = ANY(visible_branch_ids))
			   AND (created_at, id) < ($4, $5)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $6`,
			domain.ArticleStatusPublished, string(access.Role), access.BranchID,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+articleColumns+`
			 FROM knowledge_articles
			 WHERE status = $1
			   AND (cardinality(visible_roles) = 0 OR $2 = ANY(visible_roles))
			   AND (cardinality(visible_branch_ids) = 0 OR $3 = ANY(visible_branch_ids))
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			domain.ArticleStatusPublished, string(access.Role), access.BranchID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.KnowledgeArticle
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &service.ArticlePageResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.HasMore = true
		last := result.Items[len(result.Items)-1]
		result.NextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return result, nil
}

// IncrementViews bumps the article's read counter. Lost updates under
// concurrency are acceptable for a popularity metric.
func (r *ArticleRepository) IncrementViews(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_articles SET views = views + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func scanArticle(row pgx.Row) (*domain.KnowledgeArticle, error) {
	var a domain.KnowledgeArticle
	var categoryID, createdBy, updatedBy *string
	var roles []string
	err := row.Scan(
		&a.ID, &categoryID, &a.Title, &a.Content, &a.Tags, &a.Status,
		&roles, &a.VisibleBranchIDs, &a.Views, &createdBy, &updatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if categoryID != nil {
		a.CategoryID = *categoryID
	}
	if createdBy != nil {
		a.CreatedBy = *createdBy
	}
	if updatedBy != nil {
		a.UpdatedBy = *updatedBy
	}
	a.VisibleRoles = make([]domain.UserRole, 0, len(roles))
	for _, role := range roles {
		a.VisibleRoles = append(a.VisibleRoles, domain.UserRole(role))
	}
	return &a, nil
}
