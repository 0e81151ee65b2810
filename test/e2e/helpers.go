//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/remardo/mkk-portal/internal/api/handlers"
	"github.com/remardo/mkk-portal/internal/domain"
	"github.com/remardo/mkk-portal/internal/openai"
	"github.com/remardo/mkk-portal/internal/repository"
	"github.com/remardo/mkk-portal/internal/server"
	"github.com/remardo/mkk-portal/internal/service"
	"github.com/remardo/mkk-portal/internal/testutil"
)

const embeddingDimensions = 1536

// CannedAnswer is what the stub completion endpoint always returns.
const CannedAnswer = "Ответ подготовлен по внутренней инструкции."

// TestEmbedding maps text to a deterministic unit vector. The same text
// always lands on the same axis, so identical texts have cosine
// similarity 1 and distinct texts are (almost always) orthogonal.
func TestEmbedding(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	vec := make([]float32, embeddingDimensions)
	vec[int(h.Sum32())%embeddingDimensions] = 1
	return vec
}

// OpenAIStub fakes the two OpenAI endpoints the portal calls.
type OpenAIStub struct {
	Server *httptest.Server

	mu              sync.Mutex
	lastChatRequest *goopenai.ChatCompletionRequest
}

func NewOpenAIStub() *OpenAIStub {
	stub := &OpenAIStub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", stub.handleEmbeddings)
	mux.HandleFunc("/v1/chat/completions", stub.handleChatCompletions)
	stub.Server = httptest.NewServer(mux)
	return stub
}

func (s *OpenAIStub) Close() {
	s.Server.Close()
}

// BaseURL returns the value to configure the OpenAI client with.
func (s *OpenAIStub) BaseURL() string {
	return s.Server.URL + "/v1"
}

// LastChatRequest returns the most recent completion request, or nil.
func (s *OpenAIStub) LastChatRequest() *goopenai.ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastChatRequest
}

func (s *OpenAIStub) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req goopenai.EmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inputs, _ := req.Input.([]interface{})
	data := make([]goopenai.Embedding, 0, len(inputs))
	for i, input := range inputs {
		text, _ := input.(string)
		data = append(data, goopenai.Embedding{
			Object:    "embedding",
			Index:     i,
			Embedding: TestEmbedding(text),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(goopenai.EmbeddingResponse{
		Object: "list",
		Data:   data,
		Model:  req.Model,
	})
}

func (s *OpenAIStub) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req goopenai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.lastChatRequest = &req
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(goopenai.ChatCompletionResponse{
		ID:     "chatcmpl-e2e",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []goopenai.ChatCompletionChoice{
			{
				Index: 0,
				Message: goopenai.ChatCompletionMessage{
					Role:    "assistant",
					Content: CannedAnswer,
				},
			},
		},
	})
}

// chatGenerator adapts the OpenAI client to the assistant service.
type chatGenerator struct {
	client *openai.Client
}

func (g *chatGenerator) GenerateAnswer(ctx context.Context, systemPrompt string, history []service.ConversationTurn, question string) (string, error) {
	messages := make([]openai.ChatMessage, len(history))
	for i, turn := range history {
		messages[i] = openai.ChatMessage{Role: turn.Role, Content: turn.Content}
	}
	return g.client.GenerateAnswer(ctx, systemPrompt, messages, question)
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	OpenAIStub   *OpenAIStub
	SessionSvc   *service.SessionService
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database
// container, a stubbed OpenAI API, and the portal HTTP server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	stub := NewOpenAIStub()

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser, sessionSvc := startServer(t, pool, stub, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		OpenAIStub:   stub,
		SessionSvc:   sessionSvc,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.OpenAIStub != nil {
		e.OpenAIStub.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// SeedEmployee creates an active profile and issues a session token.
func (e *E2ETestEnv) SeedEmployee(role domain.UserRole, branchID string) (userID, token string) {
	userID = uuid.NewString()
	now := time.Now().UTC()
	profile := &domain.Profile{
		ID:        userID,
		FullName:  "Сотрудник " + userID[:8],
		Email:     userID[:8] + "@mkk-fk.ru",
		Role:      role,
		BranchID:  branchID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repository.NewProfileRepository(e.Pool).Create(e.Ctx, profile); err != nil {
		e.T.Fatalf("failed to seed profile: %v", err)
	}

	token, err := e.SessionSvc.CreateSession(e.Ctx, userID)
	if err != nil {
		e.T.Fatalf("failed to issue session: %v", err)
	}
	return userID, token
}

// SeedArticle stores a knowledge article.
func (e *E2ETestEnv) SeedArticle(a *domain.KnowledgeArticle) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
		a.UpdatedAt = now
	}
	if err := repository.NewArticleRepository(e.Pool).Create(e.Ctx, a); err != nil {
		e.T.Fatalf("failed to seed article: %v", err)
	}
}

// SeedChunk stores one content chunk for a source.
func (e *E2ETestEnv) SeedChunk(chunk domain.ContentChunk) {
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}
	err := repository.NewChunkRepository(e.Pool).ReplaceForSource(
		e.Ctx, chunk.SourceType, chunk.SourceID, []domain.ContentChunk{chunk})
	if err != nil {
		e.T.Fatalf("failed to seed chunk: %v", err)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer starts the HTTP server with the full portal stack
func startServer(t *testing.T, pool *pgxpool.Pool, stub *OpenAIStub, port int) (string, func(), *service.SessionService) {
	profileRepo := repository.NewProfileRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	articleRepo := repository.NewArticleRepository(pool)

	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:  "test-key",
		BaseURL: stub.BaseURL(),
	})

	uuidGen := &service.DefaultUUIDGenerator{}
	sessionSvc := service.NewSessionService(sessionRepo, profileRepo, uuidGen, time.Hour)
	accessSvc := service.NewAccessService(profileRepo)
	knowledgeSvc := service.NewKnowledgeService(articleRepo)
	assistantSvc := service.NewAssistantService(chunkRepo, articleRepo, aiClient, &chatGenerator{client: aiClient})

	cfg := server.RouterConfig{
		SessionValidator: sessionSvc,
		AssistantHandler: handlers.NewAssistantHandler(accessSvc, assistantSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(accessSvc, knowledgeSvc),
	}

	router := server.NewRouter(cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, sessionSvc
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
