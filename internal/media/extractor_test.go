package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func withRunCommand(t *testing.T, fn func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	t.Helper()
	orig := runCommand
	runCommand = fn
	t.Cleanup(func() { runCommand = orig })
}

func TestProbeParsesDuration(t *testing.T) {
	var gotName string
	var gotArgs []string
	withRunCommand(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args
		return []byte("12.480\n"), nil
	})

	f := NewFFmpeg("ffmpeg", "ffprobe", 5, 24)
	duration, err := f.Probe(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if duration != 12.48 {
		t.Fatalf("expected 12.48, got %f", duration)
	}
	if gotName != "ffprobe" {
		t.Fatalf("expected ffprobe invoked, got %s", gotName)
	}
	if gotArgs[len(gotArgs)-1] != "/tmp/clip.mp4" {
		t.Fatalf("expected path as final arg, got %v", gotArgs)
	}
}

func TestProbeRejectsNonPositiveDuration(t *testing.T) {
	withRunCommand(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("0.000"), nil
	})

	f := NewFFmpeg("", "", 0, 0)
	if _, err := f.Probe(context.Background(), "clip.mp4"); !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestProbeWrapsCommandFailure(t *testing.T) {
	withRunCommand(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("moov atom not found"), errors.New("exit status 1")
	})

	f := NewFFmpeg("", "", 0, 0)
	_, err := f.Probe(context.Background(), "clip.mp4")
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractFramesSamplesAndBounds(t *testing.T) {
	withRunCommand(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		pattern := args[len(args)-1]
		dir := filepath.Dir(pattern)
		for i := 1; i <= 7; i++ {
			path := filepath.Join(dir, fmt.Sprintf("%05d.jpg", i))
			if err := os.WriteFile(path, []byte{0xFF, 0xD8, byte(i)}, 0o644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	f := NewFFmpeg("ffmpeg", "ffprobe", 5, 3)
	frames, err := f.ExtractFrames(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("extract frames: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 bounded frames, got %d", len(frames))
	}
	wantTimestamps := []float64{0, 10, 20}
	for i, frame := range frames {
		if frame.Timestamp != wantTimestamps[i] {
			t.Fatalf("frame %d: expected timestamp %f, got %f", i, wantTimestamps[i], frame.Timestamp)
		}
		if len(frame.JPEG) == 0 {
			t.Fatalf("frame %d: expected image bytes", i)
		}
	}
}

func TestExtractFramesFailsWhenEmpty(t *testing.T) {
	withRunCommand(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, nil
	})

	f := NewFFmpeg("", "", 5, 24)
	if _, err := f.ExtractFrames(context.Background(), "clip.mp4"); !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractAudioBuildsTranscriptionInput(t *testing.T) {
	var gotArgs []string
	withRunCommand(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = args
		return nil, nil
	})

	f := NewFFmpeg("ffmpeg", "ffprobe", 5, 24)
	audioPath, err := f.ExtractAudio(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("extract audio: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(audioPath) })

	if audioPath == "" {
		t.Fatalf("expected audio path")
	}
	if !containsPair(gotArgs, "-ar", "16000") {
		t.Fatalf("expected 16kHz sample rate args, got %v", gotArgs)
	}
	if !containsPair(gotArgs, "-ac", "1") {
		t.Fatalf("expected mono channel args, got %v", gotArgs)
	}
}

func TestFrameAtReadsImage(t *testing.T) {
	withRunCommand(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		framePath := args[len(args)-1]
		return nil, os.WriteFile(framePath, []byte{0xFF, 0xD8, 0x01}, 0o644)
	})

	f := NewFFmpeg("ffmpeg", "ffprobe", 5, 24)
	data, err := f.FrameAt(context.Background(), "clip.mp4", 3.5)
	if err != nil {
		t.Fatalf("frame at: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("expected frame bytes, got %d", len(data))
	}
}

func TestFrameAtRejectsEmptyImage(t *testing.T) {
	withRunCommand(t, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, nil
	})

	f := NewFFmpeg("", "", 5, 24)
	if _, err := f.FrameAt(context.Background(), "clip.mp4", 1); !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestBoundFramesKeepsSmallSets(t *testing.T) {
	frames := []Frame{{Timestamp: 0}, {Timestamp: 5}}
	if got := boundFrames(frames, 24); len(got) != 2 {
		t.Fatalf("expected 2 frames untouched, got %d", len(got))
	}
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
