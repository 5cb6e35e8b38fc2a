package units

import (
	"context"
	"fmt"
	"maps"

	"github.com/kbukum/flowkit/flow"
)

type branchParams struct {
	Key     string            `mapstructure:"key" validate:"required"`
	Cases   map[string]string `mapstructure:"cases" validate:"required,min=1"`
	Default string            `mapstructure:"default"`
}

// Branch routes on a state value. The value is formatted with fmt.Sprint
// and looked up in cases; a missing key or unmatched value yields the
// fallback tag.
type Branch struct {
	key      string
	cases    map[string]flow.Tag
	fallback flow.Tag
}

// NewBranch returns a Branch. An empty fallback means flow.DefaultTag.
func NewBranch(key string, cases map[string]flow.Tag, fallback flow.Tag) *Branch {
	if fallback == "" {
		fallback = flow.DefaultTag
	}
	return &Branch{key: key, cases: maps.Clone(cases), fallback: fallback}
}

func newBranch(params map[string]any) (flow.Unit[*flow.State], error) {
	var p branchParams
	if err := decode(ComponentBranch, params, &p); err != nil {
		return nil, err
	}
	cases := make(map[string]flow.Tag, len(p.Cases))
	for value, tag := range p.Cases {
		cases[value] = flow.Tag(tag)
	}
	return NewBranch(p.Key, cases, flow.Tag(p.Default)), nil
}

func (b *Branch) Prepare(_ context.Context, state *flow.State) (any, error) {
	v, ok := state.Get(b.key)
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (b *Branch) Execute(_ context.Context, prep any) (any, error) {
	if prep == nil {
		return b.fallback, nil
	}
	if tag, ok := b.cases[fmt.Sprint(prep)]; ok {
		return tag, nil
	}
	return b.fallback, nil
}

func (b *Branch) Finalize(_ context.Context, _ *flow.State, _, exec any) (flow.Tag, error) {
	return exec.(flow.Tag), nil
}
