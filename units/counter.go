package units

import (
	"context"
	"fmt"

	"github.com/kbukum/flowkit/flow"
)

// Counter tags.
const (
	TagContinue flow.Tag = "continue"
	TagDone     flow.Tag = "done"
)

type counterParams struct {
	Key   string `mapstructure:"key" validate:"required"`
	Limit int    `mapstructure:"limit" validate:"gte=1"`
}

// Counter increments an integer state key. It tags TagContinue while the new
// count is below the limit and TagDone once the limit is reached.
type Counter struct {
	key   string
	limit int
}

// NewCounter returns a Counter for key.
func NewCounter(key string, limit int) *Counter {
	return &Counter{key: key, limit: limit}
}

func newCounter(params map[string]any) (flow.Unit[*flow.State], error) {
	var p counterParams
	if err := decode(ComponentCounter, params, &p); err != nil {
		return nil, err
	}
	return NewCounter(p.Key, p.Limit), nil
}

func (c *Counter) Prepare(_ context.Context, state *flow.State) (any, error) {
	v, ok := state.Get(c.key)
	if !ok {
		return 0, nil
	}
	n, ok := asInt(v)
	if !ok {
		return nil, fmt.Errorf("counter: state key %q holds %T, want an integer", c.key, v)
	}
	return n, nil
}

func (c *Counter) Execute(_ context.Context, prep any) (any, error) {
	return prep.(int) + 1, nil
}

func (c *Counter) Finalize(_ context.Context, state *flow.State, _, exec any) (flow.Tag, error) {
	n := exec.(int)
	state.Set(c.key, n)
	if n >= c.limit {
		return TagDone, nil
	}
	return TagContinue, nil
}
