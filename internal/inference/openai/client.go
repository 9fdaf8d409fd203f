package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"forensics-backend/internal/inference"
	"forensics-backend/internal/media"
)

const transcribeTimeout = 2 * time.Minute

// Client implements inference.Client against an OpenAI-compatible API.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient constructs a Client. baseURL overrides the API endpoint for
// OpenAI-compatible backends and tests.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("VF_AI_MODEL is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}, nil
}

// AnalyzeVideo sends the forensic audit instruction plus the sampled frames
// and transcript as one vision chat request and returns the raw findings.
// The caller's context carries the per-job deadline; nothing is retried.
func (c *Client) AnalyzeVideo(ctx context.Context, input inference.AnalyzeInput) (json.RawMessage, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: buildUserContent(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyAPIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", inference.ErrInvalidResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty completion", inference.ErrInvalidResponse)
	}
	return json.RawMessage(content), nil
}

// Transcribe runs Whisper over the extracted audio track.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	resp, err := c.api.CreateTranscription(tctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
	})
	if err != nil {
		return "", classifyAPIError(tctx, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// buildUserContent interleaves the transcript with timestamp-labeled frame
// images so the model can cite media-relative times.
func buildUserContent(input inference.AnalyzeInput) []openai.ChatMessagePart {
	var header strings.Builder
	fmt.Fprintf(&header, "Video duration: %s.\n", media.FormatTimestamp(input.Duration))
	fmt.Fprintf(&header, "Frames sampled: %d.\n", len(input.Frames))
	if strings.TrimSpace(input.Transcript) != "" {
		fmt.Fprintf(&header, "Audio transcript:\n%s\n", input.Transcript)
	} else {
		header.WriteString("Audio transcript: (none; the video has no usable spoken audio)\n")
	}

	parts := make([]openai.ChatMessagePart, 0, 2*len(input.Frames)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: header.String(),
	})
	for _, frame := range input.Frames {
		parts = append(parts,
			openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("Frame at %s:", media.FormatTimestamp(frame.Timestamp)),
			},
			openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame.JPEG),
					Detail: openai.ImageURLDetailLow,
				},
			},
		)
	}
	return parts
}

// classifyAPIError maps transport and API failures onto the inference error
// taxonomy so the pipeline can record a stable failure code.
func classifyAPIError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", inference.ErrTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", inference.ErrUnavailable, err)
		}
		return fmt.Errorf("inference request rejected: %w", err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: %v", inference.ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", inference.ErrUnavailable, err)
}

var _ inference.Client = (*Client)(nil)
