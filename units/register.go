package units

import (
	"errors"

	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/llm"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/resilience"
)

// Component names.
const (
	ComponentSet     = "set"
	ComponentLog     = "log"
	ComponentCounter = "counter"
	ComponentBranch  = "branch"
	ComponentLLM     = "llm"
)

// Options supplies the collaborators some components need.
type Options struct {
	// Logger is used by the log component. Defaults to the global logger.
	Logger *logger.Logger
	// LLM backs the llm component. Without it the component fails to build.
	LLM llm.Client
	// Retry is the default retry policy for llm nodes.
	Retry resilience.RetryConfig
	// Limiter is shared by all llm nodes.
	Limiter *resilience.Limiter
	// Breaker is shared by all llm nodes.
	Breaker *resilience.CircuitBreaker
}

// Register adds every built-in component to reg.
func Register(reg *flow.Registry[*flow.State], opts Options) error {
	factories := []struct {
		name    string
		factory flow.Factory[*flow.State]
	}{
		{ComponentSet, newSet},
		{ComponentLog, opts.newLog},
		{ComponentCounter, newCounter},
		{ComponentBranch, newBranch},
		{ComponentLLM, opts.newPrompt},
	}
	for _, f := range factories {
		if err := reg.Register(f.name, f.factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in components.
func NewRegistry(opts Options) *flow.Registry[*flow.State] {
	reg := flow.NewRegistry[*flow.State]()
	if err := Register(reg, opts); err != nil {
		panic(err)
	}
	return reg
}

func (o Options) newLog(params map[string]any) (flow.Unit[*flow.State], error) {
	var p logParams
	if err := decode(ComponentLog, params, &p); err != nil {
		return nil, err
	}
	return NewLog(o.Logger, p.Message, p.Level, p.Keys...), nil
}

type promptParams struct {
	Prompt      string  `mapstructure:"prompt" validate:"required"`
	System      string  `mapstructure:"system"`
	OutputKey   string  `mapstructure:"output_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,max=2"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gte=0"`
}

var errNoClient = errors.New("llm component requires a configured llm client")

func (o Options) newPrompt(params map[string]any) (flow.Unit[*flow.State], error) {
	if o.LLM == nil {
		return nil, errNoClient
	}
	var p promptParams
	if err := decode(ComponentLLM, params, &p); err != nil {
		return nil, err
	}
	u, err := llm.NewPromptUnit(o.LLM, llm.PromptConfig{
		Prompt:      p.Prompt,
		System:      p.System,
		OutputKey:   p.OutputKey,
		Model:       p.Model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Retry:       o.Retry,
		Limiter:     o.Limiter,
		Breaker:     o.Breaker,
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
