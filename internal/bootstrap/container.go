package bootstrap

import (
	"context"
	"log"

	"ai-talkcoach-be/internal/audit"
	"ai-talkcoach-be/internal/config"
	"ai-talkcoach-be/internal/constant"
	"ai-talkcoach-be/internal/controller"
	"ai-talkcoach-be/internal/handler"
	"ai-talkcoach-be/internal/pkg/logger"
	"ai-talkcoach-be/internal/pkg/metrics"
	"ai-talkcoach-be/internal/repository/implementation"
	"ai-talkcoach-be/internal/service"
	"ai-talkcoach-be/internal/session"
	"ai-talkcoach-be/internal/version"
	"ai-talkcoach-be/internal/websocket"
	"ai-talkcoach-be/pkg/completion"
	"ai-talkcoach-be/pkg/embedding"
	"ai-talkcoach-be/pkg/llm/factory"
	"ai-talkcoach-be/pkg/retrieval"

	pktNats "ai-talkcoach-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AdminController controller.IAdminController

	// Handlers
	ChatHandler *handler.ChatHandler

	// Background Services (Exposed for main.go to run)
	AuditConsumer  audit.IConsumer
	IngestConsumer service.IIngestConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub

	// Observability
	Metrics *metrics.Metrics
	Logger  logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	chatLogger := logger.NewIsolatedLogger(cfg.App.ChatLogFilePath)
	m := metrics.New(prometheus.NewRegistry())
	versions := version.NewStore(cfg.App.VersionFilePath)
	validate := validator.New()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "openai" {
		embeddingProvider = embedding.NewOpenAIProvider(cfg.Keys.OpenAI, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OPENAI (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.OpenAI,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Repositories
	conversationRepo := implementation.NewConversationRecordRepository(db)
	feedbackRepo := implementation.NewFeedbackRecordRepository(db)
	passageRepo := implementation.NewPassageRepository(db)

	// 5. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, sysLogger)
	go wsHub.Run()

	// 6. Audit pipeline
	auditSink := audit.NewQueueSink(pubSub, cfg.Audit.Topic, sysLogger)
	auditConsumer := audit.NewConsumer(pubSub, cfg.Audit.Topic, conversationRepo, feedbackRepo, natsPub)

	// 7. Conversation core
	systemPrompt := cfg.Ai.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = constant.DefaultSystemPrompt
	}

	gateway := retrieval.NewGateway(
		embeddingProvider,
		passageRepo,
		retrieval.Config{
			TopK:     cfg.Ai.RetrievalTopK,
			Timeout:  cfg.Ai.RetrievalTimeout,
			CacheTTL: cfg.Ai.RetrievalCacheTTL,
		},
		sysLogger,
		m,
	)
	orchestrator := completion.NewOrchestrator(llmProvider, cfg.Ai.CompletionTimeout, sysLogger, m)

	newMachine := func(sessionID string, emitter session.Emitter) *session.Machine {
		v, err := versions.Current()
		if err != nil {
			log.Printf("[WARN] Failed to read version: %v", err)
			v = "0.0.0"
		}
		return session.NewMachine(
			sessionID,
			systemPrompt,
			v,
			gateway,
			orchestrator,
			auditSink,
			emitter,
			sysLogger,
			chatLogger,
			m,
		)
	}

	// 8. Services & Controllers
	ingestService := service.NewIngestService(pubSub, cfg.Audit.IngestTopic, sysLogger)
	ingestConsumer := service.NewIngestConsumerService(pubSub, cfg.Audit.IngestTopic, passageRepo, embeddingProvider, sysLogger)

	adminService := service.NewAdminService(
		conversationRepo,
		feedbackRepo,
		passageRepo,
		sysLogger,
		wsHub,
		sysLogger,
	)
	adminController := controller.NewAdminController(
		adminService,
		ingestService,
		versions,
		validate,
		cfg.App.JWTSecret,
		cfg.App.AdminPassword,
	)

	chatHandler := handler.NewChatHandler(wsHub, newMachine, validate, sysLogger)

	return &Container{
		AdminController: adminController,
		ChatHandler:     chatHandler,
		AuditConsumer:   auditConsumer,
		IngestConsumer:  ingestConsumer,
		WebSocketHub:    wsHub,
		Metrics:         m,
		Logger:          sysLogger,
	}
}
