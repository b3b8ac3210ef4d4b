package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort  string
	LogLevel string
	APIKey   string

	CorpusDir    string
	ManifestPath string
	ResultsDir   string

	QdrantURL    string
	QdrantAPIKey string

	OllamaURL            string
	OllamaGenModel       string
	OllamaEmbedModel     string
	OllamaEmbedRateLimit float64

	TEIRerankURL string

	NATSURL     string
	PostgresDSN string

	StrictCitation    bool
	StrictLawGuard    bool
	AdaptiveMinLen    bool
	MinLenShort       int
	MinLenLong        int
	ShortSourceChars  int
	AntiBiasMode      bool
	ValidationPasses  int
	MinConfidence     float64
	GuardFallbackBest bool
	UseBM25Fusion     bool
	RRFK              int
	FuseTopK          int
	ShortlistSize     int
	PerLawHits        int
	PDFLimit          int

	ChunkSize    int
	ChunkOverlap int

	AutoIngestOnStart bool
	KeepVersions      int
	EmbedBatchSize    int

	MetricsPort string
}

// Load reads configuration from the environment, after best-effort loading
// a local .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),
		APIKey:   mustEnv("API_KEY", ""),

		CorpusDir:    mustEnv("CORPUS_DIR", "./data/corpus"),
		ManifestPath: mustEnv("MANIFEST_PATH", "./data/state/manifest.json"),
		ResultsDir:   mustEnv("RESULTS_DIR", "./data/results"),

		QdrantURL:    mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey: mustEnv("QDRANT_API_KEY", ""),

		OllamaURL:            mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:       mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel:     mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OllamaEmbedRateLimit: mustEnvFloat("OLLAMA_EMBED_RATE_LIMIT", 8),

		TEIRerankURL: mustEnv("TEI_RERANK_URL", "http://localhost:8081"),

		NATSURL:     mustEnv("NATS_URL", "nats://localhost:4222"),
		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		StrictCitation:    mustEnvBool("STRICT_CITATION", true),
		StrictLawGuard:    mustEnvBool("STRICT_LAW_GUARD", true),
		AdaptiveMinLen:    mustEnvBool("ADAPTIVE_MINLEN", true),
		MinLenShort:       mustEnvInt("MINLEN_SHORT", 60),
		MinLenLong:        mustEnvInt("MINLEN_LONG", 90),
		ShortSourceChars:  mustEnvInt("SHORT_SOURCE_THRESHOLD", 800),
		AntiBiasMode:      mustEnvBool("ANTI_BIAS_MODE", true),
		ValidationPasses:  mustEnvInt("MC_VALIDATION_PASSES", 3),
		MinConfidence:     mustEnvFloat("MIN_CONFIDENCE_THRESHOLD", 0.6),
		GuardFallbackBest: mustEnvBool("LAW_GUARD_FALLBACK_BEST", true),
		UseBM25Fusion:     mustEnvBool("USE_BM25_FUSION", true),
		RRFK:              mustEnvInt("RRF_K", 60),
		FuseTopK:          mustEnvInt("FUSE_TOPK", 10),
		ShortlistSize:     mustEnvInt("SHORTLIST_SIZE", 5),
		PerLawHits:        mustEnvInt("PER_LAW_HITS", 8),
		PDFLimit:          mustEnvInt("PDF_LIMIT", 8),

		ChunkSize:    mustEnvInt("CHUNK_SIZE", 4000),
		ChunkOverlap: mustEnvInt("CHUNK_OVERLAP", 600),

		AutoIngestOnStart: mustEnvBool("AUTO_INGEST_ON_START", false),
		KeepVersions:      mustEnvInt("KEEP_VERSIONS", 2),
		EmbedBatchSize:    mustEnvInt("EMBED_BATCH_SIZE", 32),

		MetricsPort: mustEnv("METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
