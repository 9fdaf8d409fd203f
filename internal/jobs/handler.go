package jobs

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"forensics-backend/internal/shared/server/respond"
)

const defaultSyncWait = 5 * time.Minute

// Handler wires HTTP handlers to the jobs service.
type Handler struct {
	Svc      *Service
	SyncMode bool
	SyncWait time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, syncMode bool, syncWait time.Duration) *Handler {
	return &Handler{Svc: svc, SyncMode: syncMode, SyncWait: syncWait}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.submit)
	rg.GET("/jobs", h.list)
	rg.GET("/jobs/:id", h.get)
	rg.GET("/jobs/:id/status", h.status)
}

func (h *Handler) submit(c *gin.Context) {
	if h.Svc.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.MaxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeFileTooLarge, "video exceeds the maximum upload size")
			return
		}
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unable to read file")
		return
	}
	defer file.Close()

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	job, err := h.Svc.Submit(ctx, SubmitInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      file,
	})
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedMediaType):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error())
		case errors.Is(err, ErrFileTooLarge), errors.As(err, &maxBytesErr):
			respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeFileTooLarge, "video exceeds the maximum upload size")
		case errors.Is(err, ErrQueueFull):
			respond.Error(c, http.StatusServiceUnavailable, ErrorCodeQueueFull, "analysis queue is full, retry later")
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to submit analysis job")
		}
		return
	}

	c.Set("jobId", job.ID)

	if h.SyncMode {
		h.respondSync(c, job)
		return
	}

	respond.Accepted(c, SubmitResponse{JobID: job.ID, Status: job.Status})
}

// respondSync blocks until the job finishes and returns the terminal job
// in the submit response. Past the wait ceiling it degrades to the async
// 202 shape; the job keeps running.
func (h *Handler) respondSync(c *gin.Context, job Job) {
	wait := h.SyncWait
	if wait <= 0 {
		wait = defaultSyncWait
	}

	finished, err := h.Svc.WaitTerminal(c.Request.Context(), job.ID, wait)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to wait for analysis")
		return
	}
	if finished.Status != job.Status {
		c.Set("statusTransition", job.Status+"->"+finished.Status)
	}
	if !finished.Terminal() {
		respond.Accepted(c, SubmitResponse{JobID: finished.ID, Status: finished.Status})
		return
	}
	if finished.Status == StatusFailed {
		code, detail := splitFailure(finished.ErrorMessage)
		respond.Error(c, http.StatusBadGateway, code, detail)
		return
	}

	respond.JSON(c, http.StatusOK, toJobResponse(finished))
}

// splitFailure separates the stored "CODE: cause" failure string so the
// synchronous caller gets the same code it would see when polling.
func splitFailure(msg *string) (string, string) {
	if msg == nil || *msg == "" {
		return ErrorCodeInternal, "analysis failed"
	}
	code, detail, ok := strings.Cut(*msg, ": ")
	if !ok || code == "" || strings.ContainsAny(code, " \t") {
		return ErrorCodeInternal, *msg
	}
	return code, detail
}

func (h *Handler) get(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "job id is required")
		return
	}

	job, err := h.Svc.Get(c.Request.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "job not found")
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch job")
		}
		return
	}

	c.Set("jobId", job.ID)
	respond.JSON(c, http.StatusOK, toJobResponse(job))
}

func (h *Handler) status(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "job id is required")
		return
	}

	snap, err := h.Svc.Status(c.Request.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "job not found")
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch job status")
		}
		return
	}

	c.Set("jobId", jobID)
	respond.JSON(c, http.StatusOK, snap)
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	jobList, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list jobs")
		return
	}

	resp := make([]gin.H, 0, len(jobList))
	for _, job := range jobList {
		item := gin.H{
			"job_id":     job.ID,
			"status":     job.Status,
			"file_name":  job.FileName,
			"size_bytes": job.SizeBytes,
			"created_at": job.CreatedAt,
		}
		if job.CompletedAt != nil {
			item["completed_at"] = job.CompletedAt
		}
		resp = append(resp, item)
	}

	respond.JSON(c, http.StatusOK, resp)
}
