package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/fileguard/internal/domain/ai"
	"github.com/bryanwahyu/fileguard/internal/infra/ai/prompt"
)

const (
	maxTokens    = 2048
	DefaultModel = "gpt-4o-mini"
)

type Options struct {
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	JSONMode bool
}

type Client struct {
	*openai.Client
	Model    string
	JSONMode bool
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, JSONMode: opts.JSONMode}
}

// Classify sends instructions as the system message and the file as a user
// message. Images travel as data URLs, anything else as base64 text.
func (c *Client) Classify(ctx context.Context, data []byte, mediaType, instructions string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instructions},
			{Role: openai.ChatMessageRoleUser, MultiContent: fileParts(data, mediaType)},
		},
	}
	if c.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", classifyError(err))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ai.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func fileParts(data []byte, mediaType string) []openai.ChatMessagePart {
	encoded := base64.StdEncoding.EncodeToString(data)
	if strings.HasPrefix(mediaType, "image/") {
		return []openai.ChatMessagePart{{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:" + mediaType + ";base64," + encoded,
				Detail: openai.ImageURLDetailAuto,
			},
		}}
	}
	return []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompt.GetFilePreamble(mediaType, len(data))},
		{Type: openai.ChatMessagePartTypeText, Text: encoded},
	}
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classifyError tags provider status codes with the domain sentinels.
func classifyError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ai.ErrUnauthorized, err)
	}
	return err
}
