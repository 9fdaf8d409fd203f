package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	DatabaseURL string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string

	SQSQueueURL string
	RedisURL    string

	AIProvider              string
	AIModel                 string
	AIBaseURL               string
	InferenceTimeoutSeconds int

	MaxUploadMB          int64
	WorkerPoolSize       int
	QueueCapacity        int
	FrameIntervalSeconds int
	MaxFrames            int
	JobTTLMinutes        int
	SyncMode             bool

	SubmitRatePerMinute int
	PollRatePerSecond   int

	FFmpegPath  string
	FFprobePath string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("VF_ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGIN", "http://localhost:5173")),

		DatabaseURL: dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("VF_OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("VF_LOCAL_STORE_DIR", "./data/videos"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("VF_S3_BUCKET", ""),
		S3Prefix:        getEnv("VF_S3_PREFIX", ""),

		SQSQueueURL: getEnv("VF_SQS_QUEUE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		AIProvider:              getEnv("VF_AI_PROVIDER", "openai"),
		AIModel:                 getEnv("VF_AI_MODEL", "gpt-4o-mini"),
		AIBaseURL:               getEnv("VF_AI_BASE_URL", ""),
		InferenceTimeoutSeconds: getEnvInt("VF_INFERENCE_TIMEOUT_SECONDS", 300),

		MaxUploadMB:          getEnvInt64("VF_MAX_UPLOAD_MB", 2048),
		WorkerPoolSize:       getEnvInt("VF_WORKER_POOL_SIZE", 2),
		QueueCapacity:        getEnvInt("VF_QUEUE_CAPACITY", 32),
		FrameIntervalSeconds: getEnvInt("VF_FRAME_INTERVAL_SECONDS", 5),
		MaxFrames:            getEnvInt("VF_MAX_FRAMES", 24),
		JobTTLMinutes:        getEnvInt("VF_JOB_TTL_MINUTES", 60),
		SyncMode:             getEnvBool("VF_SYNC_MODE", false),

		SubmitRatePerMinute: getEnvInt("VF_SUBMIT_RATE_PER_MINUTE", 30),
		PollRatePerSecond:   getEnvInt("VF_POLL_RATE_PER_SECOND", 10),

		FFmpegPath:  getEnv("VF_FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("VF_FFPROBE_PATH", "ffprobe"),
	}
}

// MaxUploadBytes returns the upload cap in bytes.
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || val <= 0 {
		log.Printf("invalid %s=%q, using default %d", key, raw, def)
		return def
	}
	return val
}

func getEnvInt64(key string, def int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || val <= 0 {
		log.Printf("invalid %s=%q, using default %d", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("invalid %s=%q, using default %t", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
