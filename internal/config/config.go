package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Laila service. It is built once
// at process start and passed explicitly into each constructor; nothing
// reads the environment at call time.
type Config struct {
	Port    int
	Version string

	Provider  ProviderConfig
	Memory    MemoryConfig
	Session   SessionConfig
	Audit     AuditConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

// ProviderConfig covers the completion and embedding endpoints.
type ProviderConfig struct {
	// APIKey authenticates against the completion/embedding provider.
	// Empty is fatal at request time unless Offline is set.
	APIKey   string
	Endpoint string

	// CompletionAPI selects the generation endpoint flavor:
	// "chat" (legacy chat-completions) or "responses".
	CompletionAPI   string
	CompletionModel string

	EmbeddingDriver string // "openai" or "ollama"
	EmbeddingModel  string
	OllamaEndpoint  string

	// FallbackEndpoint enables a second, Ollama-compatible completion
	// driver tried only after the primary fails. Empty means no fallback:
	// an unconfigured fallback is "not configured", never a default host.
	FallbackEndpoint string

	MaxOutputTokens int
	Temperature     float64
	DefaultMode     string
	MaxEmbedChars   int

	// Offline swaps the provider for the canned heuristic responder.
	Offline bool
}

// MemoryConfig selects and configures the persistence backend.
// Driver "none" (the default) disables memory augmentation and
// persistence entirely; that is not an error.
type MemoryConfig struct {
	Driver string // none | pgvector | qdrant | supabase | embedded | file

	TopK       int
	Dimensions int

	PgURL string
	Table string // pgvector table / supabase table

	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	SupabaseURL string
	SupabaseKey string
	MatchFn     string // supabase similarity RPC name

	FilePath string
}

// SessionConfig configures optional conversation history.
type SessionConfig struct {
	Driver      string // none | memory | redis
	RedisAddr   string
	RedisDB     int
	TTL         time.Duration
	MaxMessages int
	MaxTokens   int
}

// AuditConfig configures the optional audit sink.
type AuditConfig struct {
	Driver      string // none | supabase | file
	Table       string
	FilePath    string
	SupabaseURL string
	SupabaseKey string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	RequestsPerMinute int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("LAILA_PORT", 8080),
		Version: envStr("LAILA_VERSION", "0.4.0"),
		Provider: ProviderConfig{
			APIKey:           envStr("LAILA_API_KEY", ""),
			Endpoint:         envStr("LAILA_API_ENDPOINT", "https://api.openai.com/v1"),
			CompletionAPI:    envStr("LAILA_COMPLETION_API", "responses"),
			CompletionModel:  envStr("LAILA_COMPLETION_MODEL", "gpt-4o-mini"),
			EmbeddingDriver:  envStr("LAILA_EMBEDDING_DRIVER", "openai"),
			EmbeddingModel:   envStr("LAILA_EMBEDDING_MODEL", "text-embedding-3-small"),
			OllamaEndpoint:   envStr("LAILA_OLLAMA_ENDPOINT", "http://localhost:11434"),
			FallbackEndpoint: envStr("LAILA_COMPLETION_FALLBACK", ""),
			MaxOutputTokens:  envInt("LAILA_MAX_OUTPUT_TOKENS", 700),
			Temperature:      envFloat("LAILA_TEMPERATURE", 0.5),
			DefaultMode:      envStr("LAILA_DEFAULT_MODE", "reflective"),
			MaxEmbedChars:    envInt("LAILA_MAX_EMBED_CHARS", 8000),
			Offline:          envBool("LAILA_OFFLINE", false),
		},
		Memory: MemoryConfig{
			Driver:           envStr("LAILA_MEMORY_DRIVER", "none"),
			TopK:             envInt("LAILA_TOP_K", 4),
			Dimensions:       envInt("LAILA_EMBEDDING_DIMENSIONS", 1536),
			PgURL:            envStr("LAILA_PGVECTOR_URL", ""),
			Table:            envStr("LAILA_MEMORY_TABLE", "laila_memories"),
			QdrantURL:        envStr("LAILA_QDRANT_URL", ""),
			QdrantAPIKey:     envStr("LAILA_QDRANT_API_KEY", ""),
			QdrantCollection: envStr("LAILA_QDRANT_COLLECTION", "laila_memories"),
			SupabaseURL:      envStr("LAILA_SUPABASE_URL", ""),
			SupabaseKey:      envStr("LAILA_SUPABASE_KEY", ""),
			MatchFn:          envStr("LAILA_SUPABASE_MATCH_FN", "match_memories"),
			FilePath:         envStr("LAILA_MEMORY_FILE", "laila_memories.json"),
		},
		Session: SessionConfig{
			Driver:      envStr("LAILA_SESSION_DRIVER", "none"),
			RedisAddr:   envStr("LAILA_REDIS_ADDR", "localhost:6379"),
			RedisDB:     envInt("LAILA_REDIS_DB", 0),
			TTL:         envDuration("LAILA_SESSION_TTL", 24*time.Hour),
			MaxMessages: envInt("LAILA_SESSION_MAX_MESSAGES", 20),
			MaxTokens:   envInt("LAILA_SESSION_MAX_TOKENS", 2000),
		},
		Audit: AuditConfig{
			Driver:      envStr("LAILA_AUDIT_DRIVER", "none"),
			Table:       envStr("LAILA_AUDIT_TABLE", "laila_audit"),
			FilePath:    envStr("LAILA_AUDIT_FILE", "laila_audit.jsonl"),
			SupabaseURL: envStr("LAILA_SUPABASE_URL", ""),
			SupabaseKey: envStr("LAILA_SUPABASE_KEY", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "laila"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("LAILA_RATE_LIMIT_PER_MINUTE", 60),
		},
	}
}

// MemoryEnabled reports whether a persistence backend is configured.
func (c *Config) MemoryEnabled() bool {
	return c.Memory.Driver != "" && c.Memory.Driver != "none"
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
