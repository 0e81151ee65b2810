package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/remardo/mkk-portal/internal/api/handlers"
	"github.com/remardo/mkk-portal/internal/config"
	"github.com/remardo/mkk-portal/internal/database"
	"github.com/remardo/mkk-portal/internal/jobs"
	"github.com/remardo/mkk-portal/internal/openai"
	"github.com/remardo/mkk-portal/internal/repository"
	"github.com/remardo/mkk-portal/internal/server"
	"github.com/remardo/mkk-portal/internal/service"
	"github.com/remardo/mkk-portal/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the portal API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if PORTAL_SENTRY_DSN is set
	if cfg.SentryDSN != "" {
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	profileRepo := repository.NewProfileRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	articleRepo := repository.NewArticleRepository(pool)

	if !cfg.HasOpenAI() {
		return fmt.Errorf("PORTAL_OPENAI_API_KEY is required")
	}
	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		EmbeddingModel:  goopenai.EmbeddingModel(cfg.EmbeddingModel),
		CompletionModel: cfg.CompletionModel,
	})

	uuidGen := &service.DefaultUUIDGenerator{}

	sessionSvc := service.NewSessionService(sessionRepo, profileRepo, uuidGen, cfg.SessionTTL)
	accessSvc := service.NewAccessService(profileRepo)
	knowledgeSvc := service.NewKnowledgeService(articleRepo)
	assistantSvc := service.NewAssistantServiceWithConfig(
		chunkRepo,
		articleRepo,
		aiClient,
		&ChatGeneratorAdapter{client: aiClient},
		service.AssistantConfig{
			MatchThreshold:     cfg.MatchThreshold,
			MatchCount:         cfg.MatchCount,
			FallbackLimit:      3,
			HistoryWindow:      5,
			SourceDisplayLimit: 3,
			EmbeddingTimeout:   cfg.EmbeddingTimeout,
			GenerationTimeout:  cfg.GenerationTimeout,
		},
	)

	purgeWorker := jobs.NewWorker(jobs.NewSessionPurgeWorker(sessionSvc), time.Hour)
	go purgeWorker.Start(ctx)
	log.Println("session purge worker started")

	router := server.NewRouter(server.RouterConfig{
		SessionValidator: sessionSvc,
		AssistantHandler: handlers.NewAssistantHandler(accessSvc, assistantSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(accessSvc, knowledgeSvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	purgeWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// ChatGeneratorAdapter bridges the assistant's conversation turns to the
// OpenAI client's message type.
type ChatGeneratorAdapter struct {
	client *openai.Client
}

func (a *ChatGeneratorAdapter) GenerateAnswer(ctx context.Context, systemPrompt string, history []service.ConversationTurn, question string) (string, error) {
	messages := make([]openai.ChatMessage, 0, len(history))
	for _, turn := range history {
		messages = append(messages, openai.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	return a.client.GenerateAnswer(ctx, systemPrompt, messages, question)
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in a dirty migration state (version %d)", version)
	}

	log.Printf("migrations applied (version: %d)", version)
	return nil
}
