package llm

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"text/template"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/resilience"
)

// DefaultOutputKey is the state key PromptUnit writes when none is configured.
const DefaultOutputKey = "answer"

// PromptConfig configures a PromptUnit.
type PromptConfig struct {
	// Prompt is a text/template rendered against the state snapshot.
	Prompt string
	// System is an optional system prompt. It is rendered like Prompt.
	System string
	// OutputKey receives the completion text. Defaults to "answer".
	OutputKey string
	// Model, Temperature and MaxTokens override the client defaults when set.
	Model       string
	Temperature float64
	MaxTokens   int
	// Retry controls retries of the completion call. RetryIf defaults to
	// errors.IsRetryable. It is ignored when the unit is wrapped in
	// flow.Retrying, which then owns the attempts.
	Retry resilience.RetryConfig
	// Limiter is shared by every unit that should respect the same rate.
	Limiter *resilience.Limiter
	// Breaker is shared by every unit calling the same endpoint. One
	// exhausted round of retries counts as one failure.
	Breaker *resilience.CircuitBreaker
}

// PromptUnit asks a model a question built from the run state and stores
// the answer back in the state.
type PromptUnit struct {
	client Client
	prompt *template.Template
	system *template.Template
	cfg    PromptConfig
}

var _ flow.Unit[*flow.State] = (*PromptUnit)(nil)

// NewPromptUnit parses the templates and returns a unit bound to client.
func NewPromptUnit(client Client, cfg PromptConfig) (*PromptUnit, error) {
	if client == nil {
		return nil, errors.InvalidInput("client", "llm client is required")
	}
	if cfg.Prompt == "" {
		return nil, errors.InvalidInput("prompt", "prompt template is required")
	}
	if cfg.OutputKey == "" {
		cfg.OutputKey = DefaultOutputKey
	}
	if cfg.Retry.RetryIf == nil {
		cfg.Retry.RetryIf = errors.IsRetryable
	}

	prompt, err := parse("prompt", cfg.Prompt)
	if err != nil {
		return nil, err
	}
	u := &PromptUnit{client: client, prompt: prompt, cfg: cfg}
	if cfg.System != "" {
		if u.system, err = parse("system", cfg.System); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.InvalidInput(name, err.Error()).WithCause(err)
	}
	return t, nil
}

// Prepare renders the request from the state.
func (u *PromptUnit) Prepare(_ context.Context, state *flow.State) (any, error) {
	data := state.Snapshot()

	prompt, err := render(u.prompt, data)
	if err != nil {
		return nil, err
	}
	req := CompletionRequest{
		Model:       u.cfg.Model,
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: u.cfg.Temperature,
		MaxTokens:   u.cfg.MaxTokens,
	}
	if u.system != nil {
		if req.SystemPrompt, err = render(u.system, data); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func render(t *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.InvalidInput(t.Name(), err.Error()).WithCause(err)
	}
	return buf.String(), nil
}

// Execute calls the model through the breaker, retrying retryable failures.
// An open circuit fails with SERVICE_UNAVAILABLE without calling the client.
func (u *PromptUnit) Execute(ctx context.Context, prep any) (any, error) {
	req, ok := prep.(CompletionRequest)
	if !ok {
		return nil, fmt.Errorf("llm: unexpected prepare result %T", prep)
	}

	retry := u.cfg.Retry
	if flow.UnderRetry(ctx) {
		retry.MaxAttempts = 1
	}

	var resp *CompletionResponse
	err := u.cfg.Breaker.Execute(func() error {
		var err error
		resp, err = resilience.Retry(ctx, retry, func(int) (*CompletionResponse, error) {
			if err := u.cfg.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return u.client.Complete(ctx, req)
		})
		return err
	})
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		return nil, errors.ServiceUnavailable("llm", err)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Finalize writes the answer and continues on the default tag.
func (u *PromptUnit) Finalize(_ context.Context, state *flow.State, _, exec any) (flow.Tag, error) {
	resp, ok := exec.(*CompletionResponse)
	if !ok || resp == nil {
		return "", fmt.Errorf("llm: unexpected execute result %T", exec)
	}
	state.Set(u.cfg.OutputKey, resp.Content)
	return flow.DefaultTag, nil
}
