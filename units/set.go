package units

import (
	"context"

	"github.com/kbukum/flowkit/flow"
)

type setParams struct {
	Values map[string]any `mapstructure:"values" validate:"required,min=1"`
	Tag    string         `mapstructure:"tag"`
}

// Set writes fixed values into the state.
type Set struct {
	values map[string]any
	tag    flow.Tag
}

// NewSet returns a unit that merges values into the state and reports tag.
// An empty tag means flow.DefaultTag. Nested maps and lists are copied on
// every execution, so a run that mutates them never changes later runs.
func NewSet(values map[string]any, tag flow.Tag) *Set {
	if tag == "" {
		tag = flow.DefaultTag
	}
	return &Set{values: copyMap(values), tag: tag}
}

func newSet(params map[string]any) (flow.Unit[*flow.State], error) {
	var p setParams
	if err := decode(ComponentSet, params, &p); err != nil {
		return nil, err
	}
	return NewSet(p.Values, flow.Tag(p.Tag)), nil
}

func (s *Set) Prepare(context.Context, *flow.State) (any, error) { return nil, nil }

func (s *Set) Execute(context.Context, any) (any, error) { return copyMap(s.values), nil }

func (s *Set) Finalize(_ context.Context, state *flow.State, _, exec any) (flow.Tag, error) {
	state.Merge(exec.(map[string]any))
	return s.tag, nil
}

// copyMap deep-copies the map and list shapes that YAML and JSON decode to.
// Other values are immutable or owned by the caller and are shared.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copyMap(v)
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, e := range v {
			out[k] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
