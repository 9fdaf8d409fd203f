package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"forensics-backend/internal/inference"
	openai "forensics-backend/internal/inference/openai"
	"forensics-backend/internal/media"
	"forensics-backend/internal/report"
	"forensics-backend/internal/shared/config"
)

// prompttest runs the extraction and inference stages against a local video
// without the server, for iterating on the analysis prompt.
func main() {
	cfg := config.Load()

	videoPath := flag.String("video", "", "Path to a local video file")
	model := flag.String("model", cfg.AIModel, "Inference model")
	baseURL := flag.String("base-url", cfg.AIBaseURL, "OpenAI-compatible base URL (optional)")
	outPath := flag.String("out", "", "Path to write raw inference output (optional)")
	skipAudio := flag.Bool("skip-audio", false, "Skip audio extraction and transcription")
	flag.Parse()

	if strings.TrimSpace(*videoPath) == "" {
		exitErr("video path is required")
	}

	client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), *model, *baseURL)
	if err != nil {
		exitErr(err.Error())
	}

	extractor := media.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, cfg.FrameIntervalSeconds, cfg.MaxFrames)
	ctx := context.Background()

	duration, err := extractor.Probe(ctx, *videoPath)
	if err != nil {
		exitErr(fmt.Sprintf("probe: %v", err))
	}
	fmt.Fprintf(os.Stderr, "duration: %s\n", media.FormatTimestamp(duration))

	frames, err := extractor.ExtractFrames(ctx, *videoPath)
	if err != nil {
		exitErr(fmt.Sprintf("extract frames: %v", err))
	}
	fmt.Fprintf(os.Stderr, "frames sampled: %d\n", len(frames))

	transcript := ""
	if !*skipAudio {
		transcript = transcribe(ctx, client, extractor, *videoPath)
	}

	infCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.InferenceTimeoutSeconds)*time.Second)
	defer cancel()
	raw, err := client.AnalyzeVideo(infCtx, inference.AnalyzeInput{
		Frames:     frames,
		Transcript: transcript,
		Duration:   duration,
	})
	if err != nil {
		exitErr(fmt.Sprintf("inference: %v", err))
	}

	if strings.TrimSpace(*outPath) != "" {
		if err := os.WriteFile(*outPath, raw, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	entries, err := report.Assemble(raw)
	if err != nil {
		exitErr(fmt.Sprintf("assemble: %v", err))
	}

	pretty, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("encode findings: %v", err))
	}
	fmt.Println(string(pretty))
	fmt.Fprintf(os.Stderr, "findings: %d\n", len(entries))
}

func transcribe(ctx context.Context, client inference.Client, extractor media.Extractor, videoPath string) string {
	audioPath, err := extractor.ExtractAudio(ctx, videoPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audio skipped: %v\n", err)
		return ""
	}
	defer os.Remove(audioPath)

	text, err := client.Transcribe(ctx, audioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "transcription skipped: %v\n", err)
		return ""
	}
	return text
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
