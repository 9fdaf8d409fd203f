package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"forensics-backend/internal/bootstrap"
	"forensics-backend/internal/pipeline"
	"forensics-backend/internal/shared/config"
	"forensics-backend/internal/shared/server"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = 5 * time.Minute
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	if app.DB != nil {
		defer app.DB.Close()
	}
	if app.Cache != nil {
		defer app.Cache.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Without an external queue, jobs are processed by an in-process pool.
	workersDone := make(chan struct{})
	if app.MemoryQueue != nil {
		pool := &pipeline.WorkerPool{
			Queue:     app.MemoryQueue,
			Processor: app.Processor,
			Workers:   cfg.WorkerPoolSize,
		}
		go func() {
			defer close(workersDone)
			pool.Run(ctx)
		}()
	} else {
		close(workersDone)
	}

	go app.JobsService.RunJanitor(ctx, janitorInterval)

	addr := server.Addr(cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	go func() {
		log.Printf("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	if app.MemoryQueue != nil {
		app.MemoryQueue.Close()
	}
	select {
	case <-workersDone:
	case <-time.After(shutdownTimeout):
		log.Printf("worker pool did not drain before timeout")
	}
}
