package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/remardo/mkk-portal/internal/domain"
)

// MockChunkSearchRepository is a mock implementation of ChunkSearchRepository
type MockChunkSearchRepository struct {
	mock.Mock
}

func (m *MockChunkSearchRepository) SearchByEmbedding(ctx context.Context, embedding []float32, access *domain.AccessContext, threshold float32, count int) ([]*RetrievalMatch, error) {
	args := m.Called(ctx, embedding, access, threshold, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*RetrievalMatch), args.Error(1)
}

// MockArticleSearchRepository is a mock implementation of ArticleSearchRepository
type MockArticleSearchRepository struct {
	mock.Mock
}

func (m *MockArticleSearchRepository) SearchPublished(ctx context.Context, query string, limit int) ([]*FallbackArticle, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*FallbackArticle), args.Error(1)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockAnswerGenerator is a mock implementation of AnswerGenerator
type MockAnswerGenerator struct {
	mock.Mock
}

func (m *MockAnswerGenerator) GenerateAnswer(ctx context.Context, systemPrompt string, history []ConversationTurn, question string) (string, error) {
	args := m.Called(ctx, systemPrompt, history, question)
	return args.String(0), args.Error(1)
}

func testAccess() *domain.AccessContext {
	return &domain.AccessContext{
		UserID:   "user-1",
		Role:     domain.RoleAgent,
		BranchID: "branch-7",
	}
}

func newTestAssistant(chunks *MockChunkSearchRepository, articles *MockArticleSearchRepository, embedding *MockEmbeddingClient, generator *MockAnswerGenerator) *AssistantService {
	cfg := DefaultAssistantConfig()
	cfg.EmbeddingTimeout = 0
	cfg.GenerationTimeout = 0
	return NewAssistantServiceWithConfig(chunks, articles, embedding, generator, cfg)
}

func TestAssistantService_Ask_SemanticPath(t *testing.T) {
	chunks := new(MockChunkSearchRepository)
	articles := new(MockArticleSearchRepository)
	embedding := new(MockEmbeddingClient)
	generator := new(MockAnswerGenerator)
	svc := newTestAssistant(chunks, articles, embedding, generator)

	vector := []float32{0.1, 0.2, 0.3}
	embedding.On("GenerateEmbedding", mock.Anything, "как оформить займ").Return(vector, nil)
	chunks.On("SearchByEmbedding", mock.Anything, vector, testAccess(), float32(0.7), 5).Return([]*RetrievalMatch{
		{ChunkID: "c1", SourceType: domain.SourceTypeKnowledge, SourceID: "a1", Title: "Оформление займа", Content: "Шаг первый.", Similarity: 0.91},
		{ChunkID: "c2", SourceType: domain.SourceTypeKnowledge, SourceID: "a1", Title: "Оформление займа", Content: "Шаг второй.", Similarity: 0.85},
	}, nil)
	generator.On("GenerateAnswer", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Шаг первый.\n\nШаг второй.")
	}), mock.Anything, "как оформить займ").Return("Следуйте инструкции.", nil)

	out, err := svc.Ask(context.Background(), AskInput{
		Access:  testAccess(),
		Message: "как оформить займ",
	})

	require.NoError(t, err)
	assert.Equal(t, "Следуйте инструкции.", out.Response)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "Оформление займа", out.Sources[0].Title)
	assert.Equal(t, "a1", out.Sources[0].ID)
	articles.AssertNotCalled(t, "SearchPublished", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssistantService_Ask_FallbackOnEmptyMatches(t *testing.T) {
	chunks := new(MockChunkSearchRepository)
	articles := new(MockArticleSearchRepository)
	embedding := new(MockEmbeddingClient)
	generator := new(MockAnswerGenerator)
	svc := newTestAssistant(chunks, articles, embedding, generator)

	vector := []float32{0.5}
	embedding.On("GenerateEmbedding", mock.Anything, "график отпусков").Return(vector, nil)
	chunks.On("SearchByEmbedding", mock.Anything, vector, mock.Anything, float32(0.7), 5).Return([]*RetrievalMatch{}, nil)
	articles.On("SearchPublished", mock.Anything, "график отпусков", 3).Return([]*FallbackArticle{
		{ID: "a9", Title: "Отпуска", Content: "Отпуск согласуется заранее."},
	}, nil)
	generator.On("GenerateAnswer", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Отпуск согласуется заранее.")
	}), mock.Anything, "график отпусков").Return("Согласуйте с руководителем.", nil)

	out, err := svc.Ask(context.Background(), AskInput{
		Access:  testAccess(),
		Message: "график отпусков",
	})

	require.NoError(t, err)
	assert.Equal(t, "Согласуйте с руководителем.", out.Response)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, domain.SourceTypeKnowledge, out.Sources[0].Type)
}

func TestAssistantService_Ask_FallbackOnEmbeddingError(t *testing.T) {
	chunks := new(MockChunkSearchRepository)
	articles := new(MockArticleSearchRepository)
	embedding := new(MockEmbeddingClient)
	generator := new(MockAnswerGenerator)
	svc := newTestAssistant(chunks, articles, embedding, generator)

	embedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))
	articles.On("SearchPublished", mock.Anything, "вопрос", 3).Return([]*FallbackArticle{
		{ID: "a2", Title: "Регламент", Content: "Текст регламента."},
	}, nil)
	generator.On("GenerateAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("Ответ.", nil)

	out, err := svc.Ask(context.Background(), AskInput{Access: testAccess(), Message: "вопрос"})

	require.NoError(t, err)
	assert.Equal(t, "Ответ.", out.Response)
	chunks.AssertNotCalled(t, "SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAssistantService_Ask_FallbackOnSearchError(t *testing.T) {
	chunks := new(MockChunkSearchRepository)
	articles := new(MockArticleSearchRepository)
	embedding := new(MockEmbeddingClient)
	generator := new(MockAnswerGenerator)
	svc := newTestAssistant(chunks, articles, embedding, generator)

	embedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	chunks.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("index offline"))
	articles.On("SearchPublished", mock.Anything, "вопрос", 3).Return([]*FallbackArticle{}, nil)
	generator.On("GenerateAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("Ответ.", nil)

	out, err := svc.Ask(context.Background(), AskInput{Access: testAccess(), Message: "вопрос"})

	require.NoError(t, err)
	assert.Equal(t, "Ответ.", out.Response)
	articles.AssertExpectations(t)
}

func TestAssistantService_Ask_SentinelWhenNothingFound(t *testing.T) {
	chunks := new(MockChunkSearchRepository)
	articles := new(MockArticleSearchRepository)
	embedding := new(MockEmbeddingClient)
	generator := new(MockAnswerGenerator)
	svc := newTestAssistant(chunks, articles, embedding, generator)

	embedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	chunks.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*RetrievalMatch{}, nil)
	articles.On("SearchPublished", mock.Anything, mock.Anything, mock.Anything).Return([]*FallbackArticle{}, nil)
	generator.On("GenerateAnswer", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, noContextSentinel)
	}), mock.Anything, mock.Anything).Return("Информация не найдена.", nil)

	out, err := svc.Ask(context.Background(), AskInput{Access: testAccess(), Message: "вопрос"})

	require.NoError(t, err)
	assert.Equal(t, "Информация не найдена.", out.Response)
	assert.Empty(t, out.Sources)
	generator.AssertExpectations(t)
}

func TestAssistantService_Ask_SourcesDedupedAndCapped(t *testing.T) {
	chunks := new(MockChunkSearchRepository)
	articles := new(MockArticleSearchRepository)
	embedding := new(MockEmbeddingClient)
	generator := new(MockAnswerGenerator)
	svc := newTestAssistant(chunks, articles, embedding, generator)

	matches := []*RetrievalMatch{
		{ChunkID: "c1", SourceType: domain.SourceTypeKnowledge, SourceID: "a1", Title: "Первый", Content: "x"},
		{ChunkID: "c2", SourceType: domain.SourceTypeKnowledge, SourceID: "a1", Title: "Первый", Content: "x"},
		{ChunkID: "c3", SourceType: domain.SourceTypeDocument, SourceID: "d1", Title: "Второй", Content: "x"},
		{ChunkID: "c4", SourceType: domain.SourceTypeCourse, SourceID: "k1", Title: "Третий", Content: "x"},
		{ChunkID: "c5", SourceType: domain.SourceTypeOther, SourceID: "o1", Title: "Четвёртый", Content: "x"},
	}
	embedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	chunks.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(matches, nil)
	generator.On("GenerateAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("Ответ.", nil)

	out, err := svc.Ask(context.Background(), AskInput{Access: testAccess(), Message: "вопрос"})

	require.NoError(t, err)
	require.Len(t, out.Sources, 3)
	assert.Equal(t, "Первый", out.Sources[0].Title)
	assert.Equal(t, "Второй", out.Sources[1].Title)
	assert.Equal(t, "Третий", out.Sources[2].Title)
}

func TestAssistantService_Ask_HistoryWindow(t *testing.T) {
	chunks := new(MockChunkSearchRepository)
	articles := new(MockArticleSearchRepository)
	embedding := new(MockEmbeddingClient)
	generator := new(MockAnswerGenerator)
	svc := newTestAssistant(chunks, articles, embedding, generator)

	history := make([]ConversationTurn, 0, 8)
	for _, content := range []string{"h1", "h2", "h3", "h4", "h5", "h6", "h7", "h8"} {
		history = append(history, ConversationTurn{Role: "user", Content: content})
	}

	embedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	chunks.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*RetrievalMatch{}, nil)
	articles.On("SearchPublished", mock.Anything, mock.Anything, mock.Anything).Return([]*FallbackArticle{}, nil)
	generator.On("GenerateAnswer", mock.Anything, mock.Anything, mock.MatchedBy(func(turns []ConversationTurn) bool {
		return len(turns) == 5 && turns[0].Content == "h4" && turns[4].Content == "h8"
	}), mock.Anything).Return("Ответ.", nil)

	_, err := svc.Ask(context.Background(), AskInput{Access: testAccess(), Message: "вопрос", History: history})

	require.NoError(t, err)
	generator.AssertExpectations(t)
}

func TestAssistantService_Ask_EmptyMessage(t *testing.T) {
	svc := newTestAssistant(new(MockChunkSearchRepository), new(MockArticleSearchRepository), new(MockEmbeddingClient), new(MockAnswerGenerator))

	_, err := svc.Ask(context.Background(), AskInput{Access: testAccess(), Message: "   "})

	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestAssistantService_Ask_MissingAccess(t *testing.T) {
	svc := newTestAssistant(new(MockChunkSearchRepository), new(MockArticleSearchRepository), new(MockEmbeddingClient), new(MockAnswerGenerator))

	_, err := svc.Ask(context.Background(), AskInput{Message: "вопрос"})

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAssistantService_Ask_GenerationError(t *testing.T) {
	chunks := new(MockChunkSearchRepository)
	articles := new(MockArticleSearchRepository)
	embedding := new(MockEmbeddingClient)
	generator := new(MockAnswerGenerator)
	svc := newTestAssistant(chunks, articles, embedding, generator)

	embedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	chunks.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*RetrievalMatch{
		{ChunkID: "c1", SourceType: domain.SourceTypeKnowledge, SourceID: "a1", Title: "T", Content: "x"},
	}, nil)
	generator.On("GenerateAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	_, err := svc.Ask(context.Background(), AskInput{Access: testAccess(), Message: "вопрос"})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeInternalError, domainErr.Code)
}

func TestAssistantService_Ask_EmptyAnswerFallbackString(t *testing.T) {
	chunks := new(MockChunkSearchRepository)
	articles := new(MockArticleSearchRepository)
	embedding := new(MockEmbeddingClient)
	generator := new(MockAnswerGenerator)
	svc := newTestAssistant(chunks, articles, embedding, generator)

	embedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	chunks.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*RetrievalMatch{
		{ChunkID: "c1", SourceType: domain.SourceTypeKnowledge, SourceID: "a1", Title: "T", Content: "x"},
	}, nil)
	generator.On("GenerateAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("   ", nil)

	out, err := svc.Ask(context.Background(), AskInput{Access: testAccess(), Message: "вопрос"})

	require.NoError(t, err)
	assert.Equal(t, emptyAnswerFallback, out.Response)
}

func TestLastTurns(t *testing.T) {
	history := []ConversationTurn{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "user", Content: "c"},
	}

	assert.Len(t, lastTurns(history, 5), 3)
	assert.Equal(t, "c", lastTurns(history, 1)[0].Content)
	assert.Nil(t, lastTurns(nil, 5))
	assert.Nil(t, lastTurns(history, 0))
}

func TestBuildSystemPrompt(t *testing.T) {
	withContext := buildSystemPrompt("Текст из базы знаний.")
	assert.Contains(t, withContext, "Текст из базы знаний.")
	assert.NotContains(t, withContext, noContextSentinel)

	empty := buildSystemPrompt("")
	assert.Contains(t, empty, noContextSentinel)
}
