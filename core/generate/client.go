// Package generate produces post text and images through an OpenAI-compatible API.
package generate

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/logger"
)

// Generator is the generation collaborator.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyResult is returned when the API answers without content.
var ErrEmptyResult = errors.New("generate: empty result")

// Options configures Client.
type Options struct {
	BaseURL      string
	APIKey       string
	Model        string
	ImageModel   string
	SystemPrompt string
	HTTPClient   *http.Client
}

// Client wraps an OpenAI-compatible chat and image endpoint.
type Client struct {
	opts Options
	api  *openai.Client
}

var _ Generator = (*Client)(nil)

// NewClient returns a client with defaults for empty options.
func NewClient(opts Options) *Client {
	opts.BaseURL = strings.TrimRight(cmp.Or(opts.BaseURL, "https://api.openai.com/v1"), "/")
	opts.Model = cmp.Or(opts.Model, openai.GPT4oMini)
	opts.ImageModel = cmp.Or(opts.ImageModel, openai.CreateImageModelDallE3)

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = opts.BaseURL
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	} else {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{opts: opts, api: openai.NewClientWithConfig(cfg)}
}

// FromConfig builds a client from the generation config section.
func FromConfig(cfg config.GenerationConfig) *Client {
	return NewClient(Options{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		ImageModel:   cfg.ImageModel,
		SystemPrompt: cfg.SystemPrompt,
		HTTPClient:   &http.Client{Timeout: config.Timeout(cfg.TimeoutSeconds)},
	})
}

// GenerateText returns the first completion for prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}}
	if c.opts.SystemPrompt != "" {
		messages = append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.opts.SystemPrompt},
		}, messages...)
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: 0.7,
	})

	var text string
	if err == nil {
		if len(resp.Choices) > 0 {
			text = strings.TrimSpace(resp.Choices[0].Message.Content)
		}
		if text == "" {
			err = ErrEmptyResult
		}
	}
	c.log(ctx, "generate.text", start, err, slog.Int("count", len([]rune(text))))
	return text, err
}

// GenerateImage returns the URL of one generated image.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.opts.ImageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})

	var ref string
	if err == nil {
		if len(resp.Data) > 0 {
			ref = strings.TrimSpace(resp.Data[0].URL)
		}
		if ref == "" {
			err = ErrEmptyResult
		}
	}
	c.log(ctx, "generate.image", start, err)
	return ref, err
}

// Reason returns the text shown to the user for a failed generation:
// the API error message when there is one, else the error text.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func (c *Client) log(ctx context.Context, event string, start time.Time, err error, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	}, attrs...)
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Warn(ctx, logger.CompGenerate, event, attrs...)
		return
	}
	logger.Info(ctx, logger.CompGenerate, event, attrs...)
}
