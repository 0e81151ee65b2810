package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/remardo/mkk-portal/internal/api"
	"github.com/remardo/mkk-portal/internal/api/middleware"
	"github.com/remardo/mkk-portal/internal/domain"
	"github.com/remardo/mkk-portal/internal/service"
)

type KnowledgeService interface {
	GetArticle(ctx context.Context, access *domain.AccessContext, id string) (*domain.KnowledgeArticle, error)
	ListArticles(ctx context.Context, access *domain.AccessContext, cursor string, limit int) (*service.ArticlePageResult, error)
	SearchArticles(ctx context.Context, access *domain.AccessContext, query string, limit int) ([]*domain.KnowledgeArticle, error)
}

type KnowledgeHandler struct {
	access AccessResolver
	svc    KnowledgeService
}

func NewKnowledgeHandler(access AccessResolver, svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{access: access, svc: svc}
}

type ArticleResponse struct {
	ID         string   `json:"id"`
	CategoryID string   `json:"category_id,omitempty"`
	Title      string   `json:"title"`
	Content    string   `json:"content,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Views      int64    `json:"views"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

type ArticleListResponse struct {
	Items   []*ArticleResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

func articleToResponse(a *domain.KnowledgeArticle, includeContent bool) *ArticleResponse {
	resp := &ArticleResponse{
		ID:         a.ID,
		CategoryID: a.CategoryID,
		Title:      a.Title,
		Tags:       a.Tags,
		Views:      a.Views,
		CreatedAt:  a.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  a.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if includeContent {
		resp.Content = a.Content
	}
	return resp
}

// List handles GET /knowledge.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	access, err := h.access.Resolve(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > 100 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	page, err := h.svc.ListArticles(r.Context(), access, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*ArticleResponse, 0, len(page.Items))
	for _, a := range page.Items {
		items = append(items, articleToResponse(a, false))
	}

	api.Success(w, http.StatusOK, ArticleListResponse{
		Items:   items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

type ArticleSearchResponse struct {
	Items []*ArticleResponse `json:"items"`
}

// Search handles GET /knowledge/search.
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	access, err := h.access.Resolve(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		api.Error(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > 100 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	articles, err := h.svc.SearchArticles(r.Context(), access, query, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*ArticleResponse, 0, len(articles))
	for _, a := range articles {
		items = append(items, articleToResponse(a, false))
	}

	api.Success(w, http.StatusOK, ArticleSearchResponse{Items: items})
}

// Get handles GET /knowledge/{id}.
func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	access, err := h.access.Resolve(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	article, err := h.svc.GetArticle(r.Context(), access, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, articleToResponse(article, true))
}
