package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration for the recommendation engine.
type Config struct {
	// Environment
	Environment string
	Port        string

	// LLM API keys
	OpenAIAPIKey string
	GeminiAPIKey string

	// DefaultLLMModel selects the provider via its name prefix (see
	// llm.ProviderFactory.GetProvider) for every recommender stage that
	// doesn't override it explicitly.
	DefaultLLMModel string

	// Catalog (Spotify-shaped) credentials
	CatalogClientID     string
	CatalogClientSecret string

	// RecoBeat-shaped similarity service
	RecoBeatBaseURL string

	// Database (WorkflowState snapshot store)
	DatabaseURL string

	// Observability
	SentryDSN         string
	LangfusePublicKey string
	LangfuseSecretKey string
	LangfuseHost      string
	LangfuseEnabled   bool

	// Orchestration tunables, grounded on original_source's OrchestrationConfig
	MaxIterations             int
	CohesionThreshold         float64
	QualityThreshold          float64
	MaxRecommendations        int
	MinPlaylistCount          int
	MaxPlaylistCount          int
	MaxTracksPerArtist        int
	UserMentionedArtistRatio  float64
	ArtistRecommendationRatio float64

	// Per-dependency call timeouts
	LLMTimeout           time.Duration
	CatalogTimeout       time.Duration
	OrderingBatchTimeout time.Duration

	// Process-wide artist-top-tracks rate gate interval
	TopTracksGateInterval time.Duration
}

// Load reads configuration from the environment, applying the same
// explicit-fallback-per-key pattern throughout.
func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		DefaultLLMModel: getEnv("DEFAULT_LLM_MODEL", "gpt-4o-mini"),

		CatalogClientID:     getEnv("CATALOG_CLIENT_ID", ""),
		CatalogClientSecret: getEnv("CATALOG_CLIENT_SECRET", ""),
		RecoBeatBaseURL:     getEnv("RECOBEAT_BASE_URL", "https://api.reccobeats.com"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",

		MaxIterations:             getEnvInt("MAX_ITERATIONS", 2),
		CohesionThreshold:         getEnvFloat("COHESION_THRESHOLD", 0.65),
		QualityThreshold:          getEnvFloat("QUALITY_THRESHOLD", 0.75),
		MaxRecommendations:        getEnvInt("MAX_RECOMMENDATIONS", 30),
		MinPlaylistCount:          getEnvInt("MIN_PLAYLIST_COUNT", 15),
		MaxPlaylistCount:          getEnvInt("MAX_PLAYLIST_COUNT", 30),
		MaxTracksPerArtist:        getEnvInt("MAX_TRACKS_PER_ARTIST", 2),
		UserMentionedArtistRatio:  getEnvFloat("USER_MENTIONED_ARTIST_RATIO", 0.5),
		ArtistRecommendationRatio: getEnvFloat("ARTIST_RECOMMENDATION_RATIO", 0.95),

		LLMTimeout:           time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		CatalogTimeout:       time.Duration(getEnvInt("CATALOG_TIMEOUT_SECONDS", 20)) * time.Second,
		OrderingBatchTimeout: time.Duration(getEnvInt("ORDERING_BATCH_TIMEOUT_SECONDS", 45)) * time.Second,

		TopTracksGateInterval: time.Duration(getEnvInt("TOP_TRACKS_GATE_MILLIS", 1500)) * time.Millisecond,
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// IsProduction gates CloudWatch metrics emission.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
