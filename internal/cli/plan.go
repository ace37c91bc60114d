package cli

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <fixture.yaml>",
		Short: "Run a full reconciliation pass against in-memory stores",
		Long: `Plan seeds in-memory stores from the fixture and runs the complete
pipeline: an update when the fixture carries a stored line, a create
otherwise. The resulting line is printed as YAML so the derived values,
resolved references and piece population can be inspected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := LoadFixture(args[0])
			if err != nil {
				return err
			}
			env := newEnvironment(f)
			ctx := cmd.Context()

			var result *orders.Line
			if f.Stored != nil {
				result, err = env.coordinator.Update(ctx, f.Line)
			} else {
				result, err = env.coordinator.Create(ctx, f.Line)
			}
			if err != nil {
				return fmt.Errorf("reconciliation failed (%d): %w", errors.HTTPStatus(err), err)
			}

			out, err := yaml.Marshal(result)
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			cmd.Print(string(out))
			cmd.Printf("# pieces stored for line: %d\n", env.store.PieceCount(result.ID))
			return nil
		},
	}
}
