package jobs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"forensics-backend/internal/bootstrap"
	"forensics-backend/internal/pipeline"
	"forensics-backend/internal/shared/config"
)

// Drives a submission through the real router, memory queue, and worker
// pool. The extractor points at a missing binary, so the job must land on
// a terminal failed status with a classified error instead of hanging.
func TestAnalyzeFlowFailsCleanlyOnUnreadableVideo(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:                    "0",
		Env:                     "dev",
		CORSAllowOrigin:         []string{"http://localhost:5173"},
		ObjectStoreType:         "local",
		LocalStoreDir:           t.TempDir(),
		QueueCapacity:           4,
		WorkerPoolSize:          1,
		MaxUploadMB:             1,
		InferenceTimeoutSeconds: 5,
		FFmpegPath:              "/nonexistent/ffmpeg",
		FFprobePath:             "/nonexistent/ffprobe",
		SubmitRatePerMinute:     600,
		PollRatePerSecond:       1000,
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	router := app.Router

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool := pipeline.WorkerPool{Queue: app.MemoryQueue, Processor: app.Processor, Workers: 1}
	poolDone := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(poolDone)
	}()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="clip.mp4"`)
	header.Set("Content-Type", "video/mp4")
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("not really a video")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if created.JobID == "" {
		t.Fatalf("expected job_id")
	}
	if created.Status != "pending" {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	// Poll the status endpoint until the worker settles the job.
	var status struct {
		JobID  string  `json:"job_id"`
		Status string  `json:"status"`
		Error  *string `json:"error"`
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		reqStatus := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/status", created.JobID), nil)
		respStatus := httptest.NewRecorder()
		router.ServeHTTP(respStatus, reqStatus)
		if respStatus.Code != http.StatusOK {
			t.Fatalf("expected status 200 polling, got %d", respStatus.Code)
		}
		if err := json.NewDecoder(respStatus.Body).Decode(&status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if status.Status == "completed" || status.Status == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never reached a terminal status, last=%s", status.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if status.Status != "failed" {
		t.Fatalf("expected failed, got %s", status.Status)
	}
	if status.Error == nil || !strings.HasPrefix(*status.Error, "EXTRACTION_ERROR:") {
		t.Fatalf("expected EXTRACTION_ERROR prefix, got %v", status.Error)
	}

	// The full record must agree with the snapshot and carry no result.
	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.JobID, nil)
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respGet.Code)
	}
	var record map[string]any
	if err := json.NewDecoder(respGet.Body).Decode(&record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["status"] != "failed" {
		t.Fatalf("expected failed record, got %v", record["status"])
	}
	if _, ok := record["result"]; ok {
		t.Fatalf("failed job must not carry a result")
	}
	if _, ok := record["completed_at"]; !ok {
		t.Fatalf("expected completed_at on terminal job")
	}

	cancel()
	select {
	case <-poolDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker pool did not stop")
	}
}
