package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"forensics-backend/internal/cache"
	"forensics-backend/internal/inference"
	openai "forensics-backend/internal/inference/openai"
	"forensics-backend/internal/jobs"
	"forensics-backend/internal/media"
	"forensics-backend/internal/pipeline"
	"forensics-backend/internal/queue"
	"forensics-backend/internal/services/health"
	"forensics-backend/internal/shared/config"
	"forensics-backend/internal/shared/server"
	"forensics-backend/internal/shared/storage/db"
	"forensics-backend/internal/shared/storage/object"
	localstore "forensics-backend/internal/shared/storage/object/local"
	s3store "forensics-backend/internal/shared/storage/object/s3"
)

const syncWaitGrace = 2 * time.Minute

// App holds shared dependencies.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Store        object.ObjectStore
	Queue        queue.Client
	MemoryQueue  *queue.Memory
	Cache        cache.Cache
	JobsRepo     jobs.Repo
	JobsService  *jobs.Service
	JobsHandler  *jobs.Handler
	Extractor    media.Extractor
	Inference    inference.Client
	Processor    *pipeline.Processor
	JobProcessor JobProcessor
	Health       *health.Service
}

// JobProcessor allows callers to override job processing for tests.
type JobProcessor interface {
	ProcessJob(ctx context.Context, jobID string) error
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, memoryQueue, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cacheClient, err := buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:      cfg,
		Router:      nil,
		DB:          sqlDB,
		Store:       store,
		Queue:       queueClient,
		MemoryQueue: memoryQueue,
		Cache:       cacheClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:     app.Config,
		JobHandler: app.JobsHandler,
		Health:     app.Health,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, *queue.Memory, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) != "" {
		client, err := queue.NewSQSClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	}

	mem := queue.NewMemory(cfg.QueueCapacity)
	return mem, mem, nil
}

func buildCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return cache.Noop{}, nil
	}

	redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: redis connect failed; running without status cache: %v", err)
			return cache.Noop{}, nil
		}
		return nil, err
	}
	return redisCache, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var repo jobs.Repo
	if app.DB != nil {
		repo = &jobs.PGRepo{DB: app.DB}
	} else {
		repo = jobs.NewMemoryRepo()
	}

	inferenceClient := inference.Client(inference.Placeholder{})
	if app.Config.AIProvider == "openai" {
		client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), app.Config.AIModel, app.Config.AIBaseURL)
		if err != nil {
			if !isDevLike(app.Config.Env) {
				return err
			}
			log.Printf("bootstrap: openai client unavailable; jobs will fail at inference: %v", err)
		} else {
			inferenceClient = client
		}
	}

	extractor := media.NewFFmpeg(
		app.Config.FFmpegPath,
		app.Config.FFprobePath,
		app.Config.FrameIntervalSeconds,
		app.Config.MaxFrames,
	)

	inferenceTimeout := time.Duration(app.Config.InferenceTimeoutSeconds) * time.Second

	processor := &pipeline.Processor{
		Repo:             repo,
		Store:            app.Store,
		Extractor:        extractor,
		Inference:        inferenceClient,
		Cache:            app.Cache,
		InferenceTimeout: inferenceTimeout,
	}

	jobsSvc := &jobs.Service{
		Repo:           repo,
		Store:          app.Store,
		JobQueue:       app.Queue,
		Cache:          app.Cache,
		MaxUploadBytes: app.Config.MaxUploadBytes(),
		JobTTL:         time.Duration(app.Config.JobTTLMinutes) * time.Minute,
	}

	app.JobsRepo = repo
	app.JobsService = jobsSvc
	app.JobsHandler = jobs.NewHandler(jobsSvc, app.Config.SyncMode, inferenceTimeout+syncWaitGrace)
	app.Extractor = extractor
	app.Inference = inferenceClient
	app.Processor = processor
	app.JobProcessor = processor
	app.Health = &health.Service{DB: app.DB, Cache: app.Cache}

	return nil
}
