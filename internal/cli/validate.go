package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/money"
	"github.com/openacq/orderline/pkg/orders"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <fixture.yaml>",
		Short: "Run the static line checks against a fixture",
		Long: `Validate runs every check that needs no remote state: required fields,
quantity and location coherence, fund distribution totals, and protected
fields when the fixture carries a stored line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := LoadFixture(args[0])
			if err != nil {
				return err
			}

			var findings []error
			findings = append(findings, orders.ValidateLine(f.Line)...)

			line := *f.Line
			orders.UpdateLocationsQuantity(line.Locations)
			if err := money.UpdateEstimatedPrice(&line); err != nil {
				findings = append(findings, err)
			} else if err := money.ValidateFundDistributions(line.ID, &line.Cost, line.FundDistributions); err != nil {
				findings = append(findings, err)
			}

			if f.Stored != nil && f.Order.WorkflowStatus != orders.WorkflowPending {
				if err := orders.VerifyProtectedFields(f.Stored, f.Line); err != nil {
					findings = append(findings, err)
				}
			}

			if len(findings) == 0 {
				cmd.Println("OK")
				return nil
			}
			for _, finding := range findings {
				cmd.Printf("FAIL (%d): %v\n", errors.HTTPStatus(finding), finding)
			}
			return fmt.Errorf("%d validation findings", len(findings))
		},
	}
}
