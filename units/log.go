package units

import (
	"context"

	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/logger"
)

type logParams struct {
	Message string   `mapstructure:"message" validate:"required"`
	Keys    []string `mapstructure:"keys"`
	Level   string   `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Log writes a log line with the selected state keys as fields.
type Log struct {
	log     *logger.Logger
	message string
	keys    []string
	level   string
}

// NewLog returns a Log unit. A nil log uses the global logger.
func NewLog(log *logger.Logger, message, level string, keys ...string) *Log {
	if log == nil {
		log = logger.WithComponent("units")
	}
	if level == "" {
		level = "info"
	}
	return &Log{log: log, message: message, keys: keys, level: level}
}

func (l *Log) Prepare(_ context.Context, state *flow.State) (any, error) {
	fields := make(map[string]interface{}, len(l.keys))
	for _, k := range l.keys {
		if v, ok := state.Get(k); ok {
			fields[k] = v
		}
	}
	return fields, nil
}

func (l *Log) Execute(ctx context.Context, prep any) (any, error) {
	fields := prep.(map[string]interface{})
	log := l.log.WithContext(ctx)
	switch l.level {
	case "debug":
		log.Debug(l.message, fields)
	case "warn":
		log.Warn(l.message, fields)
	case "error":
		log.Error(l.message, fields)
	default:
		log.Info(l.message, fields)
	}
	return nil, nil
}

func (l *Log) Finalize(context.Context, *flow.State, any, any) (flow.Tag, error) {
	return flow.DefaultTag, nil
}
