package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"forensics-backend/internal/jobs"
	"forensics-backend/internal/queue"
	"forensics-backend/internal/shared/metrics"
	"forensics-backend/internal/shared/telemetry"
)

// Receiver yields queued job messages. The in-process memory queue
// implements it; the SQS path has its own polling loop in cmd/worker.
type Receiver interface {
	Receive(ctx context.Context) (queue.Message, error)
}

// WorkerPool drains a Receiver with a fixed number of workers. Each
// message is processed to a terminal job status before the next receive.
type WorkerPool struct {
	Queue     Receiver
	Processor *Processor
	Workers   int
}

// Run blocks until the context is done and all workers have returned.
// A worker finishes its in-flight job before exiting.
func (w *WorkerPool) Run(ctx context.Context) {
	workers := w.Workers
	if workers <= 0 {
		workers = 2
	}

	telemetry.Info("worker.pool_started", map[string]any{
		"workers": workers,
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	telemetry.Info("worker.pool_stopped", nil)
}

func (w *WorkerPool) loop(ctx context.Context, id int) {
	for {
		msg, err := w.Queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			telemetry.Error("worker.receive_failed", map[string]any{
				"worker": id,
				"error":  err.Error(),
			})
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		metrics.IncWorkerMessageReceived()
		if d, ok := w.Queue.(interface{ Depth() int }); ok {
			metrics.SetQueueDepth(d.Depth())
		}

		// Detach from shutdown cancellation so the in-flight job can
		// reach a terminal status.
		jobCtx := jobs.WithRequestID(context.WithoutCancel(ctx), msg.RequestID)
		if err := w.Processor.ProcessJob(jobCtx, msg.JobID); err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				metrics.IncWorkerMessageDiscarded()
				telemetry.Warn("worker.unknown_job", map[string]any{
					"worker": id,
					"job_id": msg.JobID,
				})
			} else {
				// The job is still pending; with no redelivery on the
				// in-process queue this surfaces in logs and the list API.
				telemetry.Error("worker.process_failed", map[string]any{
					"worker": id,
					"job_id": msg.JobID,
					"error":  err.Error(),
				})
			}
		}

		if ctx.Err() != nil {
			return
		}
	}
}
