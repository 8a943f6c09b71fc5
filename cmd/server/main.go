package main

import (
	"context"
	"log"
	"math/rand"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/moodloom/recengine/internal/api"
	"github.com/moodloom/recengine/internal/catalog"
	"github.com/moodloom/recengine/internal/config"
	"github.com/moodloom/recengine/internal/llm"
	"github.com/moodloom/recengine/internal/metrics"
	"github.com/moodloom/recengine/internal/observability"
	"github.com/moodloom/recengine/internal/recommender/improvement"
	"github.com/moodloom/recengine/internal/recommender/intent"
	"github.com/moodloom/recengine/internal/recommender/mood"
	"github.com/moodloom/recengine/internal/recommender/orchestrator"
	"github.com/moodloom/recengine/internal/recommender/ordering"
	"github.com/moodloom/recengine/internal/recommender/quality"
	"github.com/moodloom/recengine/internal/recommender/recgen"
	"github.com/moodloom/recengine/internal/recommender/seed"
	"github.com/moodloom/recengine/internal/session"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build.
var releaseVersion = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := config.Load()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "recengine@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            cfg.Environment != environmentProduction,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("failed to initialize Sentry: %v", err)
		} else {
			log.Printf("sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("sentry not configured (SENTRY_DSN not set)")
	}

	observability.InitializeLangfuse(context.Background(), cfg)

	if cfg.Environment == environmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	store, err := session.NewSnapshotStore(db)
	if err != nil {
		log.Fatalf("failed to initialize snapshot store: %v", err)
	}

	if cfg.IsProduction() {
		if _, err := metrics.NewClient(context.Background(), cfg.Environment); err != nil {
			log.Printf("failed to initialize CloudWatch metrics: %v", err)
		}
	}

	topTracksGate := catalog.NewTopTracksGate(cfg.TopTracksGateInterval)
	catalogPort := catalog.NewSpotifyCatalogClient(topTracksGate)
	similarityPort := catalog.NewRecoBeatClient(cfg.RecoBeatBaseURL)

	providerFactory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
	provider, err := providerFactory.GetProvider(context.Background(), cfg.DefaultLLMModel)
	if err != nil {
		log.Fatalf("failed to resolve LLM provider for model %q: %v", cfg.DefaultLLMModel, err)
	}
	model := cfg.DefaultLLMModel

	intentAnalyzer := intent.New(provider, model, nil)
	moodAnalyzer := mood.New(provider, model, nil)
	seedGatherer := seed.New(catalogPort)
	generator := recgen.New(catalogPort, similarityPort, cfg.MaxTracksPerArtist)
	evaluator := quality.New(provider, model, cfg.CohesionThreshold, nil)
	decider := improvement.New(provider, model, cfg.CohesionThreshold, nil)
	orderer := ordering.New(provider, model, nil)

	orch := orchestrator.New(
		intentAnalyzer,
		moodAnalyzer,
		seedGatherer,
		generator,
		evaluator,
		decider,
		orderer,
		catalogPort,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)

	workflowService := session.NewService(store, orch)

	router := api.SetupRouter(db, workflowService, releaseVersion)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("starting recengine on port %s", port)
	if err := router.Run(":" + port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("failed to start server:", err)
	}
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
