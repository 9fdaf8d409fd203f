package report

import (
	"context"
	"encoding/base64"

	"forensics-backend/internal/jobs"
	"forensics-backend/internal/media"
	"forensics-backend/internal/shared/telemetry"
)

// FrameSource grabs a single still from the analyzed video.
type FrameSource interface {
	FrameAt(ctx context.Context, path string, second float64) ([]byte, error)
}

// Enrich attaches best-frame stills to entries and evidence images to their
// children. Timestamps that fail to parse fall back to the video midpoint.
// A frame grab that fails leaves that image empty; enrichment never fails
// the job.
func Enrich(ctx context.Context, frames FrameSource, videoPath string, duration float64, entries []jobs.AnalysisEntry) {
	midpoint := duration / 2

	for i := range entries {
		second := timestampOrFallback(entries[i].BestFrameTime, midpoint)
		if img := grabFrame(ctx, frames, videoPath, second, entries[i].Label); img != "" {
			entries[i].BestFrameImage = img
		}
		for j := range entries[i].Evidence {
			second := timestampOrFallback(entries[i].Evidence[j].StartTime, midpoint)
			if img := grabFrame(ctx, frames, videoPath, second, entries[i].Evidence[j].Label); img != "" {
				entries[i].Evidence[j].Image = img
			}
		}
	}
}

func timestampOrFallback(ts string, fallback float64) float64 {
	second, err := media.ParseTimestamp(ts)
	if err != nil {
		return fallback
	}
	return second
}

func grabFrame(ctx context.Context, frames FrameSource, videoPath string, second float64, label string) string {
	data, err := frames.FrameAt(ctx, videoPath, second)
	if err != nil {
		telemetry.Error("report.frame_grab_failed", map[string]any{
			"label":  label,
			"second": second,
			"error":  err.Error(),
		})
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}
