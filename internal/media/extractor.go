package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrExtraction marks every failure to read or decode the input media:
// unreadable files, corrupt streams, unsupported containers.
var ErrExtraction = errors.New("media extraction failed")

const (
	DefaultFrameInterval = 5
	DefaultMaxFrames     = 24
)

// Frame is one sampled still, with its media-relative timestamp in seconds.
type Frame struct {
	Timestamp float64
	JPEG      []byte
}

// Extractor produces candidate frames and a transcription-ready audio track
// from a video file. Implementations are pure functions of the input file.
type Extractor interface {
	// Probe returns the media duration in seconds.
	Probe(ctx context.Context, path string) (float64, error)
	// ExtractFrames samples frames at the configured cadence, bounded by
	// the configured maximum.
	ExtractFrames(ctx context.Context, path string) ([]Frame, error)
	// ExtractAudio writes a mono 16kHz WAV next to the workDir and returns
	// its path. Videos without an audio stream return an error; callers
	// treat that as an empty transcript, not a failure.
	ExtractAudio(ctx context.Context, path string) (string, error)
	// FrameAt grabs a single JPEG at the given second.
	FrameAt(ctx context.Context, path string, second float64) ([]byte, error)
}

// runCommand is swappable in tests.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpeg shells out to ffmpeg/ffprobe. Frame cadence and the candidate
// bound are tunables, not part of the pipeline contract.
type FFmpeg struct {
	FFmpegPath    string
	FFprobePath   string
	FrameInterval int
	MaxFrames     int
}

// NewFFmpeg constructs an FFmpeg extractor with defaults filled in.
func NewFFmpeg(ffmpegPath, ffprobePath string, frameInterval, maxFrames int) *FFmpeg {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(ffprobePath) == "" {
		ffprobePath = "ffprobe"
	}
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	return &FFmpeg{
		FFmpegPath:    ffmpegPath,
		FFprobePath:   ffprobePath,
		FrameInterval: frameInterval,
		MaxFrames:     maxFrames,
	}
}

// Probe returns the media duration in seconds via ffprobe.
func (f *FFmpeg) Probe(ctx context.Context, path string) (float64, error) {
	out, err := runCommand(ctx, f.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe: %v (output: %s)", ErrExtraction, err, compactOutput(out))
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe duration parse: %v", ErrExtraction, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%w: ffprobe reported non-positive duration %f", ErrExtraction, duration)
	}
	return duration, nil
}

// ExtractFrames samples one frame every FrameInterval seconds into a temp
// directory, then reads them back with their timestamps. When more frames
// come out than MaxFrames, the set is downsampled evenly.
func (f *FFmpeg) ExtractFrames(ctx context.Context, path string) ([]Frame, error) {
	framesDir, err := os.MkdirTemp("", "frames-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create frames dir: %v", ErrExtraction, err)
	}
	defer os.RemoveAll(framesDir)

	pattern := filepath.Join(framesDir, "%05d.jpg")
	out, err := runCommand(ctx, f.FFmpegPath,
		"-i", path,
		"-vf", fmt.Sprintf("fps=1/%d", f.FrameInterval),
		"-q:v", "2",
		"-y",
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg frames: %v (output: %s)", ErrExtraction, err, compactOutput(out))
	}

	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return nil, fmt.Errorf("%w: read frames dir: %v", ErrExtraction, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".jpg") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no frames extracted", ErrExtraction)
	}
	sort.Strings(names)

	frames := make([]Frame, 0, len(names))
	for _, name := range names {
		index, err := strconv.Atoi(strings.TrimSuffix(name, ".jpg"))
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(framesDir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: read frame %s: %v", ErrExtraction, name, err)
		}
		frames = append(frames, Frame{
			Timestamp: float64((index - 1) * f.FrameInterval),
			JPEG:      data,
		})
	}
	return boundFrames(frames, f.MaxFrames), nil
}

// ExtractAudio produces a mono 16kHz WAV suitable for transcription.
func (f *FFmpeg) ExtractAudio(ctx context.Context, path string) (string, error) {
	audio, err := os.CreateTemp("", "audio-*.wav")
	if err != nil {
		return "", fmt.Errorf("%w: create audio file: %v", ErrExtraction, err)
	}
	audioPath := audio.Name()
	_ = audio.Close()

	out, err := runCommand(ctx, f.FFmpegPath,
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		"-y",
		audioPath,
	)
	if err != nil {
		_ = os.Remove(audioPath)
		return "", fmt.Errorf("%w: ffmpeg audio: %v (output: %s)", ErrExtraction, err, compactOutput(out))
	}
	return audioPath, nil
}

// FrameAt grabs a single JPEG at the given second.
func (f *FFmpeg) FrameAt(ctx context.Context, path string, second float64) ([]byte, error) {
	if second < 0 {
		second = 0
	}
	frame, err := os.CreateTemp("", "frame-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("%w: create frame file: %v", ErrExtraction, err)
	}
	framePath := frame.Name()
	_ = frame.Close()
	defer os.Remove(framePath)

	out, err := runCommand(ctx, f.FFmpegPath,
		"-ss", formatSeconds(second),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		framePath,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg frame at %s: %v (output: %s)", ErrExtraction, formatSeconds(second), err, compactOutput(out))
	}
	data, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("%w: read frame: %v", ErrExtraction, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame at %s", ErrExtraction, formatSeconds(second))
	}
	return data, nil
}

// boundFrames downsamples evenly so the inference payload stays bounded.
func boundFrames(frames []Frame, maxFrames int) []Frame {
	if maxFrames <= 0 || len(frames) <= maxFrames {
		return frames
	}
	bounded := make([]Frame, 0, maxFrames)
	step := float64(len(frames)) / float64(maxFrames)
	for i := 0; i < maxFrames; i++ {
		bounded = append(bounded, frames[int(float64(i)*step)])
	}
	return bounded
}

func formatSeconds(second float64) string {
	return strconv.FormatFloat(second, 'f', 3, 64)
}

// compactOutput flattens tool output into a single trimmed line for errors.
func compactOutput(out []byte) string {
	s := strings.TrimSpace(string(out))
	s = strings.ReplaceAll(s, "\n", " ")
	const maxLen = 300
	if len(s) > maxLen {
		s = s[len(s)-maxLen:]
	}
	return s
}

var _ Extractor = (*FFmpeg)(nil)
