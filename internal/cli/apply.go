package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/openacq/orderline/internal/config"
	"github.com/openacq/orderline/internal/remote"
	"github.com/openacq/orderline/pkg/encumbrance"
	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/lines"
	"github.com/openacq/orderline/pkg/orders"
	"github.com/openacq/orderline/pkg/pieces"
	"github.com/openacq/orderline/pkg/subobjects"
)

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <fixture.yaml>",
		Short: "Run a reconciliation pass against the remote storage services",
		Long: `Apply sends the fixture's line through the full pipeline against the
configured storage services. A line with an id is updated; a line without
one is created on its order. Order, stored line, pieces and encumbrances
all live remotely, so only the line section of the fixture is read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := loadLine(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			coordinator := newRemoteCoordinator(cfg)
			ctx := cmd.Context()

			var result *orders.Line
			if line.ID != "" {
				result, err = coordinator.Update(ctx, line)
			} else {
				result, err = coordinator.Create(ctx, line)
			}
			if err != nil {
				return fmt.Errorf("reconciliation failed (%d): %w", errors.HTTPStatus(err), err)
			}

			out, err := yaml.Marshal(result)
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			cmd.Print(string(out))
			return nil
		},
	}
}

// loadLine reads only the line section of a fixture file.
func loadLine(path string) (*orders.Line, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f struct {
		Line *orders.Line `yaml:"line"`
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	if f.Line == nil {
		return nil, fmt.Errorf("fixture %s has no line", path)
	}
	return f.Line, nil
}

// newRemoteCoordinator wires a Coordinator over the HTTP storage services.
func newRemoteCoordinator(cfg *config.Config) *lines.Coordinator {
	opts := []remote.ClientOption{
		remote.WithTenant(cfg.Tenant),
		remote.WithToken(cfg.Token),
	}
	ordersClient := remote.NewClient(cfg.OrdersStorageURL, "orders-storage", opts...)
	financeClient := remote.NewClient(cfg.FinanceURL, "finance-storage", opts...)
	inventoryClient := remote.NewClient(cfg.InventoryURL, "inventory", opts...)

	lineStore := remote.NewLineStore(ordersClient)
	return lines.New(lineStore, remote.NewOrderStore(ordersClient),
		lines.WithTitles(remote.NewTitleStore(ordersClient)),
		lines.WithSubObjects(subobjects.New(remote.NewSubObjectStore(ordersClient))),
		lines.WithPieces(pieces.New(remote.NewPieceStore(ordersClient), remote.NewInventoryService(inventoryClient))),
		lines.WithEncumbrances(encumbrance.New(remote.NewFinanceStore(financeClient), lineStore)),
		lines.WithCatalog(remote.NewInventoryCatalog(inventoryClient)),
		lines.WithOrganizations(remote.NewOrganizationStore(inventoryClient)),
		lines.WithDefaults(cfg),
	)
}
