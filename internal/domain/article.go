package domain

import (
	"fmt"
	"time"
)

// ArticleStatus represents the lifecycle status of a knowledge article
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusArchived  ArticleStatus = "archived"
)

// IsValid returns true if the status is known.
func (s ArticleStatus) IsValid() bool {
	switch s {
	case ArticleStatusDraft, ArticleStatusPublished, ArticleStatusArchived:
		return true
	}
	return false
}

// KnowledgeArticle represents an article in the company knowledge base.
// Only published articles participate in lexical fallback search.
type KnowledgeArticle struct {
	ID               string
	CategoryID       string
	Title            string
	Content          string
	Tags             []string
	Status           ArticleStatus
	VisibleRoles     []UserRole
	VisibleBranchIDs []string
	Views            int64
	CreatedBy        string
	UpdatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateArticle validates a KnowledgeArticle instance
func ValidateArticle(a *KnowledgeArticle) error {
	if a == nil {
		return fmt.Errorf("article cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("article ID is required")
	}

	if a.Title == "" {
		return fmt.Errorf("article Title is required")
	}

	if !a.Status.IsValid() {
		return ErrInvalidArticleStatus
	}

	for _, role := range a.VisibleRoles {
		if !role.IsValid() {
			return ErrInvalidRole
		}
	}

	return nil
}

// VisibleTo reports whether the article is readable under the given
// access context. Non-published articles are never visible here.
func (a *KnowledgeArticle) VisibleTo(access *AccessContext) bool {
	if access == nil || a.Status != ArticleStatusPublished {
		return false
	}

	if len(a.VisibleRoles) > 0 {
		roleOK := false
		for _, role := range a.VisibleRoles {
			if role == access.Role {
				roleOK = true
				break
			}
		}
		if !roleOK {
			return false
		}
	}

	if len(a.VisibleBranchIDs) == 0 {
		return true
	}
	for _, branchID := range a.VisibleBranchIDs {
		if branchID != "" && branchID == access.BranchID {
			return true
		}
	}
	return false
}
