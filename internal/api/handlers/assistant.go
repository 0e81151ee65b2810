package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/remardo/mkk-portal/internal/api"
	"github.com/remardo/mkk-portal/internal/api/middleware"
	"github.com/remardo/mkk-portal/internal/domain"
	"github.com/remardo/mkk-portal/internal/service"
)

type AccessResolver interface {
	Resolve(ctx context.Context, userID string) (*domain.AccessContext, error)
}

type AssistantService interface {
	Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error)
}

type AssistantHandler struct {
	access    AccessResolver
	assistant AssistantService
}

func NewAssistantHandler(access AccessResolver, assistant AssistantService) *AssistantHandler {
	return &AssistantHandler{access: access, assistant: assistant}
}

type ChatMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message string               `json:"message"`
	History []ChatMessageRequest `json:"history,omitempty"`
}

type SourceResponse struct {
	Title string `json:"title"`
	ID    string `json:"id"`
	Type  string `json:"type"`
}

type ChatResponse struct {
	Response string           `json:"response"`
	Sources  []SourceResponse `json:"sources"`
}

// Chat handles POST /assistant/chat.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	access, err := h.access.Resolve(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	history := make([]service.ConversationTurn, 0, len(req.History))
	for _, m := range req.History {
		if m.Role != "user" && m.Role != "assistant" {
			api.Error(w, http.StatusBadRequest, "history role must be user or assistant")
			return
		}
		history = append(history, service.ConversationTurn{Role: m.Role, Content: m.Content})
	}

	out, err := h.assistant.Ask(r.Context(), service.AskInput{
		Access:  access,
		Message: req.Message,
		History: history,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := make([]SourceResponse, 0, len(out.Sources))
	for _, s := range out.Sources {
		sources = append(sources, SourceResponse{
			Title: s.Title,
			ID:    s.ID,
			Type:  string(s.Type),
		})
	}

	api.Success(w, http.StatusOK, ChatResponse{
		Response: out.Response,
		Sources:  sources,
	})
}
