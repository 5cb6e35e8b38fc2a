package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/logger"
)

type runResult struct {
	RunID string          `json:"run_id"`
	Flow  string          `json:"flow"`
	Tag   flow.Tag        `json:"tag"`
	State map[string]any  `json:"state"`
	Steps []flow.StepView `json:"steps,omitempty"`
}

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		sets  []string
		trace bool
	)
	cmd := &cobra.Command{
		Use:   "run <flow.yaml>",
		Short: "Run a flow definition once and print the final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initial, err := parseSets(sets)
			if err != nil {
				return err
			}
			def, err := flow.LoadDefinition(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := root.setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			rec := flow.NewRecorder()
			f, err := a.build(def, flow.WithObserver(rec))
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			ctx = flow.ContextWithRunID(ctx, runID)
			state := flow.NewStateFrom(initial)
			tag, err := f.Run(ctx, state)
			if err != nil {
				a.log.WithContext(ctx).Error("run failed", logger.Fields(logger.FieldFlow, f.Name(), logger.FieldError, err.Error()))
				return err
			}

			res := runResult{RunID: runID, Flow: f.Name(), Tag: tag, State: state.Snapshot()}
			if trace {
				res.Steps = flow.Views(rec.Events(runID))
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "initial state value as key=value (YAML scalar syntax, repeatable)")
	cmd.Flags().BoolVar(&trace, "trace", false, "include the step trace in the output")
	return cmd
}

// parseSets turns key=value pairs into state values. Values use YAML syntax
// so "3" is an int, "true" a bool and "[a, b]" a list.
func parseSets(sets []string) (map[string]any, error) {
	values := make(map[string]any, len(sets))
	for _, s := range sets {
		key, raw, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", s)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", s, err)
		}
		if v == nil && raw != "" && raw != "null" && raw != "~" {
			v = raw
		}
		values[key] = v
	}
	return values, nil
}
