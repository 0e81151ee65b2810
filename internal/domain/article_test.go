package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArticle(t *testing.T) {
	tests := []struct {
		name    string
		article *KnowledgeArticle
		wantErr bool
	}{
		{
			name: "valid article",
			article: &KnowledgeArticle{
				ID:           "a1",
				Title:        "Дресс-код",
				Status:       ArticleStatusPublished,
				VisibleRoles: []UserRole{RoleAgent},
			},
			wantErr: false,
		},
		{
			name: "missing title",
			article: &KnowledgeArticle{
				ID:     "a1",
				Status: ArticleStatusPublished,
			},
			wantErr: true,
		},
		{
			name: "invalid status",
			article: &KnowledgeArticle{
				ID:     "a1",
				Title:  "Дресс-код",
				Status: ArticleStatus("pending"),
			},
			wantErr: true,
		},
		{
			name: "invalid visibility role",
			article: &KnowledgeArticle{
				ID:           "a1",
				Title:        "Дресс-код",
				Status:       ArticleStatusDraft,
				VisibleRoles: []UserRole{UserRole("ceo")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArticle(tt.article)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestKnowledgeArticle_VisibleTo(t *testing.T) {
	access := &AccessContext{UserID: "u1", Role: RoleAgent, BranchID: "branch1"}

	published := &KnowledgeArticle{
		ID:     "a1",
		Title:  "Дресс-код",
		Status: ArticleStatusPublished,
	}
	assert.True(t, published.VisibleTo(access), "published article with no restrictions is visible to everyone")

	draft := &KnowledgeArticle{ID: "a2", Title: "Черновик", Status: ArticleStatusDraft}
	assert.False(t, draft.VisibleTo(access))

	restricted := &KnowledgeArticle{
		ID:           "a3",
		Title:        "Инкассация",
		Status:       ArticleStatusPublished,
		VisibleRoles: []UserRole{RoleSecurity},
	}
	assert.False(t, restricted.VisibleTo(access))

	branchScoped := &KnowledgeArticle{
		ID:               "a4",
		Title:            "Регламент точки",
		Status:           ArticleStatusPublished,
		VisibleBranchIDs: []string{"branch2"},
	}
	assert.False(t, branchScoped.VisibleTo(access))
}
