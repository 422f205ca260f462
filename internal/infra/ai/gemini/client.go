package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bryanwahyu/fileguard/internal/domain/ai"
)

const DefaultModel = "gemini-2.5-flash"

type Options struct {
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	JSONMode bool
}

// Client sends the file to Gemini as inline data next to the instruction text.
type Client struct {
	models   *genai.Models
	Model    string
	JSONMode bool
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ai.ErrMissingCredential
	}
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{models: cli.Models, Model: model, JSONMode: opts.JSONMode}, nil
}

func (c *Client) Classify(ctx context.Context, data []byte, mediaType, instructions string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(instructions),
			genai.NewPartFromBytes(data, mediaType),
		}, genai.RoleUser),
	}
	var cfg *genai.GenerateContentConfig
	if c.JSONMode {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	resp, err := c.models.GenerateContent(ctx, c.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", classifyError(err))
	}
	text := resp.Text()
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ai.ErrUnauthorized, err)
	}
	// Gemini reports invalid keys as 400
	if apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "API key") {
		return fmt.Errorf("%w: %v", ai.ErrUnauthorized, err)
	}
	return err
}
