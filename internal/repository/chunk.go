package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/remardo/mkk-portal/internal/domain"
	"github.com/remardo/mkk-portal/internal/service"
)

// ChunkRepository handles persistence and retrieval of content chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

// SearchByEmbedding returns the nearest chunks the given access context
// is allowed to see. The visibility predicate runs inside the query so
// restricted rows never leave the database; similarity is cosine, and
// ties are broken by source identity and chunk position so the same
// query always returns the same order.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, access *domain.AccessContext, threshold float32, count int) ([]*service.RetrievalMatch, error) {
	if access == nil {
		return nil, domain.ErrUnauthorized
	}
	if count <= 0 {
		count = 5
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT id, source_type, source_id, chunk_index, title, content,
		        1 - (embedding <=> $1) AS similarity
		 FROM content_chunks
		 WHERE $2 = ANY(visible_roles)
		   AND (cardinality(visible_branch_ids) = 0 OR $3 = ANY(visible_branch_ids))
		   AND 1 - (embedding <=> $1) >= $4
		 ORDER BY embedding <=> $1, source_type, source_id, chunk_index
		 LIMIT $5`,
		vec, string(access.Role), access.BranchID, threshold, count,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*service.RetrievalMatch, 0, count)
	for rows.Next() {
		var m service.RetrievalMatch
		var title *string
		if err := rows.Scan(&m.ChunkID, &m.SourceType, &m.SourceID, &m.ChunkIndex, &title, &m.Content, &m.Similarity); err != nil {
			return nil, err
		}
		if title != nil {
			m.Title = *title
		}
		matches = append(matches, &m)
	}

	return matches, rows.Err()
}

// ReplaceForSource deletes existing chunks of one source and inserts the
// new set. Used by the ingestion path when a source is re-indexed.
func (r *ChunkRepository) ReplaceForSource(ctx context.Context, sourceType domain.SourceType, sourceID string, chunks []domain.ContentChunk) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM content_chunks WHERE source_type = $1 AND source_id = $2`,
		sourceType, sourceID,
	)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		updatedAt := c.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO content_chunks
				(id, source_type, source_id, chunk_index, title, content, embedding, visible_roles, visible_branch_ids, created_at, updated_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			c.ID,
			c.SourceType,
			c.SourceID,
			c.ChunkIndex,
			nullableString(c.Title),
			c.Content,
			pgvector.NewVector(c.Embedding),
			rolesToStrings(c.VisibleRoles),
			stringsOrEmpty(c.VisibleBranchIDs),
			createdAt,
			updatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func rolesToStrings(roles []domain.UserRole) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

// stringsOrEmpty normalizes nil to an empty array so NOT NULL array
// columns and the visibility predicate's cardinality check behave
// the same for both.
func stringsOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
