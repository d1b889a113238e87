package admin

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/faqdesk/internal/anthropic"
	"github.com/cloo-solutions/faqdesk/internal/api/handlers"
	"github.com/cloo-solutions/faqdesk/internal/config"
	"github.com/cloo-solutions/faqdesk/internal/database"
	"github.com/cloo-solutions/faqdesk/internal/diagnostics"
	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/embedcache"
	"github.com/cloo-solutions/faqdesk/internal/jobs"
	"github.com/cloo-solutions/faqdesk/internal/logging"
	"github.com/cloo-solutions/faqdesk/internal/metrics"
	"github.com/cloo-solutions/faqdesk/internal/openai"
	"github.com/cloo-solutions/faqdesk/internal/quota"
	"github.com/cloo-solutions/faqdesk/internal/repository"
	"github.com/cloo-solutions/faqdesk/internal/server"
	"github.com/cloo-solutions/faqdesk/internal/service"
	"github.com/cloo-solutions/faqdesk/internal/session"
	"github.com/cloo-solutions/faqdesk/internal/storage"
	"github.com/cloo-solutions/faqdesk/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the faqdesk API server and background workers",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides FAQDESK_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", "file://migrations", "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.SentryDSN != "" {
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		}, logger)
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		} else {
			defer shutdownTelemetry()
		}
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		source, _ := cmd.Flags().GetString("migrations")
		if err := database.Migrate(cfg.DatabaseURL, source, logger); err != nil {
			return err
		}
	}

	m := metrics.New()
	sink := diagnostics.NewSink(logger, m)
	uuidGen := &service.DefaultUUIDGenerator{}

	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	chatbotRepo := repository.NewChatbotRepository(pool)
	faqRepo := repository.NewFAQRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	eventRepo := repository.NewQueryEventRepository(pool)
	actionRepo := repository.NewQueryActionRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, uuidGen)
	if cfg.InitTenantName != "" {
		if err := bootstrapInitialTenant(ctx, cfg, authSvc, logger); err != nil {
			return fmt.Errorf("failed to bootstrap initial tenant: %w", err)
		}
	}

	selector, err := newSelector(cfg)
	if err != nil {
		return err
	}

	var embedder service.EmbeddingClient = unavailableEmbedder{}
	if cfg.HasOpenAI() {
		embedder = openai.NewEmbedder(cfg.OpenAIAPIKey, goopenai.EmbeddingModel(cfg.EmbeddingModel))
	} else {
		logger.Warn("FAQDESK_OPENAI_API_KEY not set, answering with lexical search only")
	}

	counter, closeCounter, err := newQuotaCounter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCounter()

	secret := cfg.SessionSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		logger.Warn("FAQDESK_SESSION_SECRET not set, session tokens will not survive a restart")
	}
	tokens, err := session.NewManager(secret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	var mediaResolver service.MediaURLResolver
	var mediaSvc handlers.MediaService
	if cfg.HasS3() {
		store, err := storage.NewMediaStore(ctx, storage.MediaStoreConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create media store: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure media bucket: %w", err)
		}
		logger.Info("media bucket ready", zap.String("bucket", cfg.S3Bucket))
		mediaResolver = store
		mediaSvc = service.NewMediaService(chatbotRepo, store, uuidGen)
	}

	answerSvc := service.NewAnswerService(service.AnswerDeps{
		Chatbots: chatbotRepo,
		FAQs:     faqRepo,
		Embedder: embedcache.New(embedder, cfg.EmbeddingCacheSize, m),
		Searcher: service.NewHybridSearchEngine(faqRepo),
		Selector: selector,
		Quota:    quota.NewGuard(counter, m, logger),
		TxRunner: txRunner,
		Media:    mediaResolver,
		Sink:     sink,
		Metrics:  m,
		UUIDGen:  uuidGen,
	})
	engagementSvc := service.NewEngagementService(eventRepo, actionRepo, faqRepo, txRunner, sink, m)
	sessionSvc := service.NewSessionService(chatbotRepo, sessionRepo, tokens, uuidGen)
	chatbotSvc := service.NewChatbotService(chatbotRepo, uuidGen)
	faqSvc := service.NewFAQService(chatbotRepo, faqRepo, txRunner)
	analyticsSvc := service.NewAnalyticsService(chatbotRepo, eventRepo, actionRepo, txRunner)

	var workers []*jobs.Worker
	if cfg.HasOpenAI() {
		embeddingSvc := service.NewEmbeddingService(embedder, faqRepo)
		processor := jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc, logger)
		workers = append(workers, jobs.NewWorker("embedding", processor, 10*time.Second, logger))
	}
	if retention := cfg.EventRetention(); retention > 0 {
		purger := jobs.NewRetentionWorker(service.NewRetentionService(txRunner, retention), logger)
		workers = append(workers, jobs.NewWorker("retention", purger, time.Hour, logger))
	}
	for _, w := range workers {
		go w.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:           logger,
		AuthValidator:    authSvc,
		SessionVerifier:  tokens,
		HTTPObserver:     m,
		MetricsHandler:   m.Handler(),
		WidgetHandler:    handlers.NewWidgetHandler(answerSvc, engagementSvc, sessionSvc),
		ChatbotHandler:   handlers.NewChatbotHandler(chatbotSvc, answerSvc),
		FAQHandler:       handlers.NewFAQHandler(faqSvc, mediaSvc),
		AnalyticsHandler: handlers.NewAnalyticsHandler(analyticsSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func newSelector(cfg *config.Config) (service.AnswerSelector, error) {
	switch cfg.SelectorProvider {
	case config.SelectorAnthropic:
		if !cfg.HasAnthropic() {
			return nil, errors.New("FAQDESK_ANTHROPIC_API_KEY is required for the anthropic selector")
		}
		return anthropic.NewSelector(cfg.AnthropicAPIKey, cfg.SelectorModel), nil
	default:
		if !cfg.HasOpenAI() {
			return nil, errors.New("FAQDESK_OPENAI_API_KEY is required for the openai selector")
		}
		return openai.NewSelector(cfg.OpenAIAPIKey, cfg.SelectorModel), nil
	}
}

// newQuotaCounter prefers Redis so replicas share counts, and falls back to
// a per-process counter.
func newQuotaCounter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (quota.Counter, func(), error) {
	if !cfg.HasRedis() {
		logger.Info("FAQDESK_REDIS_URL not set, quota counts are per process")
		return quota.NewMemoryCounter(), func() {}, nil
	}
	rc, err := quota.NewRedisCounter(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// unavailableEmbedder stands in when no embedding provider is configured, so
// answers fall back to the constant vector and lexical ranking.
type unavailableEmbedder struct{}

func (unavailableEmbedder) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func bootstrapInitialTenant(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, logger *zap.Logger) error {
	tenant, err := authSvc.EnsureTenant(ctx, cfg.InitTenantName)
	if err != nil {
		return err
	}
	logger.Info("bootstrap tenant ready", zap.String("tenant", tenant.Name), zap.String("id", tenant.ID))

	if cfg.InitAPIKey == "" {
		return nil
	}
	if !service.IsValidAPIToken(cfg.InitAPIKey) {
		return fmt.Errorf("invalid FAQDESK_INIT_API_KEY format (expected 'fqd_<64 hex chars>')")
	}

	if _, err := authSvc.ValidateAPIKey(ctx, cfg.InitAPIKey); err == nil {
		logger.Info("bootstrap API key already exists")
		return nil
	} else if !errors.Is(err, domain.ErrInvalidAPIKey) {
		return err
	}

	if err := authSvc.CreateAPIKeyWithToken(ctx, tenant.ID, "bootstrap", cfg.InitAPIKey); err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	logger.Info("bootstrap API key created")
	return nil
}
