package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/flow"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <flow.yaml>...",
		Short: "Check that flow definitions parse, validate and build",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := root.setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			for _, path := range args {
				def, err := flow.LoadDefinition(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				f, err := a.build(def)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok  %s (%d reachable of %d nodes)\n", f.Name(), len(f.Nodes()), len(def.Nodes))
			}
			return nil
		},
	}
}
