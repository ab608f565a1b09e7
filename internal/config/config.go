package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIAddr           string `envconfig:"API_ADDR" default:":8080"`
	TemporalAddress   string `envconfig:"TEMPORAL_ADDRESS"`
	TemporalTaskQueue string `envconfig:"TEMPORAL_TASK_QUEUE" default:"reportrag"`
	PostgresURL       string `envconfig:"POSTGRES_URL"`
	DataOutRoot       string `envconfig:"DATA_OUT" default:"./data/out"`
	ReferenceDir      string `envconfig:"REFERENCE_DIR" default:"./data/documents/reference"`
	CriteriaPath      string `envconfig:"CRITERIA_PATH" default:"./Report_score.json"`
	MetricsPath       string `envconfig:"METRICS_PATH" default:"./data/metrics.json"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`

	// Vector index.
	VectorBackend   string `envconfig:"VECTOR_BACKEND" default:"sqlite"`
	VectorStorePath string `envconfig:"VECTOR_STORE_PATH" default:"./data/vector_store"`
	VectorIndexName string `envconfig:"VECTOR_INDEX_NAME" default:"default"`
	ChunkSize       int    `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap    int    `envconfig:"CHUNK_OVERLAP" default:"200"`
	RetrievalK      int    `envconfig:"RETRIEVAL_K" default:"4"`

	// Context budgets.
	PriorityK       int `envconfig:"PRIORITY_K" default:"500"`
	UserCap         int `envconfig:"USER_CAP" default:"250"`
	ReferenceCap    int `envconfig:"REFERENCE_CAP" default:"250"`
	RawPrefix       int `envconfig:"RAW_PREFIX" default:"15"`
	ScoringMaxChars int `envconfig:"SCORING_MAX_CHARS" default:"50000"`

	VectorizeMaxFiles int   `envconfig:"VECTORIZE_MAX_FILES" default:"3"`
	VectorizeMaxBytes int64 `envconfig:"VECTORIZE_MAX_BYTES" default:"1000000"`

	// Completion providers: primary first, then the "|"-separated fallbacks.
	LLMProvider  string  `envconfig:"LLM_PROVIDER" default:"google"`
	LLMModel     string  `envconfig:"LLM_MODEL" default:"gemini-1.5-pro"`
	LLMFallbacks string  `envconfig:"LLM_FALLBACKS" default:"openai"`
	Temperature  float32 `envconfig:"TEMPERATURE" default:"0.7"`

	EmbedProviders string `envconfig:"EMBED_PROVIDERS" default:"openai|mock"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`
	EmbedDim       int    `envconfig:"EMBED_DIM" default:"1536"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	GoogleAPIKey  string `envconfig:"GOOGLE_API_KEY"`
	GroqAPIKey    string `envconfig:"GROQ_API_KEY"`
	OllamaBaseURL string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`

	SentryDSN         string `envconfig:"SENTRY_DSN"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
}

// Load reads .env (if present) and the REPORTRAG_* environment.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("REPORTRAG", &cfg); err != nil {
		return Config{}, fmt.Errorf("process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0,%d), got %d", c.ChunkSize, c.ChunkOverlap)
	}
	if c.RetrievalK <= 0 || c.PriorityK <= 0 {
		return fmt.Errorf("retrieval k values must be positive")
	}
	if c.UserCap <= 0 || c.ReferenceCap <= 0 || c.RawPrefix <= 0 {
		return fmt.Errorf("context caps must be positive")
	}
	if c.ScoringMaxChars <= 0 {
		return fmt.Errorf("scoring max chars must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0,2], got %.2f", c.Temperature)
	}
	switch strings.ToLower(c.VectorBackend) {
	case "sqlite", "memory":
	case "postgres":
		if c.PostgresURL == "" {
			return fmt.Errorf("vector backend postgres requires POSTGRES_URL")
		}
	default:
		return fmt.Errorf("unsupported vector backend %q", c.VectorBackend)
	}
	return nil
}

func (c Config) HasPostgres() bool {
	return c.PostgresURL != ""
}

func (c Config) HasTemporal() bool {
	return c.TemporalAddress != ""
}
