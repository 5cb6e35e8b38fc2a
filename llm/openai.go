package llm

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
)

const serviceName = "llm"

// OpenAIClient is a Client for OpenAI-compatible chat completion APIs.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAIClient creates a client from config.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger.Debug("llm client created", logger.Fields("model", cfg.Model, "base_url", oc.BaseURL))

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Model returns the default model.
func (c *OpenAIClient) Model() string { return c.model }

// Complete sends a chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	msgs := req.messages()
	chat := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		chat[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               model,
		Messages:            chat,
		Temperature:         float32(temperature),
		MaxCompletionTokens: maxTokens,
	})
	if err != nil {
		return nil, mapError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.ExternalServiceError(serviceName, stderrors.New("response contained no choices"))
	}

	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// mapError converts go-openai failures into AppErrors.
func mapError(ctx context.Context, err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.Timeout("llm completion").WithCause(err)
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case stderrors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case stderrors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return errors.RateLimited(serviceName).WithCause(err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Unauthorized(serviceName).WithCause(err)
	case status >= 400 && status < 500:
		// The request itself is wrong; retrying will not help.
		appErr := errors.ExternalServiceError(serviceName, err).WithDetail("status", status)
		appErr.Retryable = false
		return appErr
	default:
		return errors.ExternalServiceError(serviceName, err)
	}
}
