package main

import (
	"context"
	"errors"

	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/llm"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/resilience"
	"github.com/kbukum/flowkit/units"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg      *AppConfig
	log      *logger.Logger
	metrics  *observability.Metrics
	registry *flow.Registry[*flow.State]
	closers  []func(context.Context) error
}

func newApp(ctx context.Context, cfg *AppConfig) (*app, error) {
	logger.Init(cfg.Logging)
	a := &app{cfg: cfg, log: logger.GetGlobalLogger().WithComponent(serviceName)}

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Tracing)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, tp.Shutdown)
	}
	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, cfg.Metrics)
		if err != nil {
			_ = a.close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, mp.Shutdown)
		if a.metrics, err = observability.NewMetrics(observability.Meter(serviceName)); err != nil {
			_ = a.close(ctx)
			return nil, err
		}
	}

	opts := units.Options{Logger: a.log.WithComponent("units")}
	if cfg.LLM.Model != "" {
		client, err := llm.NewOpenAIClient(cfg.LLM)
		if err != nil {
			_ = a.close(ctx)
			return nil, err
		}
		opts.LLM = client
		opts.Retry = cfg.LLM.Retry
		opts.Limiter = resilience.NewLimiter(cfg.LLM.RateLimit)

		breaker := cfg.LLM.CircuitBreaker
		log := a.log.WithComponent("llm")
		breaker.OnStateChange = func(from, to resilience.BreakerState) {
			log.Warn("llm circuit breaker state changed", logger.Fields("from", from.String(), "to", to.String()))
		}
		opts.Breaker = resilience.NewCircuitBreaker(breaker)
	}
	a.registry = units.NewRegistry(opts)
	return a, nil
}

// flowOptions are applied to every flow the app builds.
func (a *app) flowOptions(extra ...flow.Option) []flow.Option {
	opts := []flow.Option{flow.WithLogger(a.log.WithComponent("flow"))}
	if a.cfg.Tracing.Enabled {
		opts = append(opts, flow.WithTracing())
	}
	if a.metrics != nil {
		opts = append(opts, flow.WithMetrics(a.metrics))
	}
	return append(opts, extra...)
}

// build validates def and turns it into a runnable flow.
func (a *app) build(def *flow.Definition, extra ...flow.Option) (*flow.Flow[*flow.State], error) {
	if def.MaxSteps == 0 {
		def.MaxSteps = a.cfg.Flows.MaxSteps
	}
	return flow.Build(def, a.registry, a.flowOptions(extra...)...)
}

// close flushes telemetry providers.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
