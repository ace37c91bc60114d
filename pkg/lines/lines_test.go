package lines

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacq/orderline/internal/remote/memory"
	"github.com/openacq/orderline/pkg/encumbrance"
	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
	"github.com/openacq/orderline/pkg/pieces"
	"github.com/openacq/orderline/pkg/subobjects"
)

// testRig wires a Coordinator over fresh in-memory stores.
type testRig struct {
	store     *memory.Store
	ledger    *memory.Ledger
	inventory *memory.Inventory
	notifier  *memory.Notifier
	orgs      *memory.Organizations
	guard     *fakeProtector

	coordinator *Coordinator
}

// fakeProtector denies the operations listed in denied.
type fakeProtector struct {
	denied map[Operation]bool
	seen   []Operation
}

func (p *fakeProtector) Protect(_ context.Context, _ []string, op Operation) error {
	p.seen = append(p.seen, op)
	if p.denied[op] {
		return fmt.Errorf("acquisition unit check: %w", errors.ErrForbidden)
	}
	return nil
}

func newRig(t *testing.T, extra ...Option) *testRig {
	t.Helper()
	rig := &testRig{
		store:     memory.NewStore(),
		ledger:    memory.NewLedger(),
		inventory: memory.NewInventory(),
		notifier:  memory.NewNotifier(),
		orgs:      memory.NewOrganizations(),
		guard:     &fakeProtector{denied: make(map[Operation]bool)},
	}

	opts := []Option{
		WithTitles(rig.store.Titles()),
		WithSubObjects(subobjects.New(rig.store.SubObjects())),
		WithPieces(pieces.New(rig.store.Pieces(), rig.inventory)),
		WithEncumbrances(encumbrance.New(rig.ledger, rig.store)),
		WithCatalog(memory.Catalog{}),
		WithOrganizations(rig.orgs),
		WithProtector(rig.guard),
		WithNotifier(rig.notifier),
	}
	opts = append(opts, extra...)
	rig.coordinator = New(rig.store, rig.store.Orders(), opts...)
	return rig
}

func pendingOrder() *orders.PurchaseOrder {
	return &orders.PurchaseOrder{ID: "o1", PoNumber: "PO100", WorkflowStatus: orders.WorkflowPending}
}

func openedOrder() *orders.PurchaseOrder {
	return &orders.PurchaseOrder{ID: "o1", PoNumber: "PO100", WorkflowStatus: orders.WorkflowOpen}
}

func physicalLine() *orders.Line {
	return &orders.Line{
		ID:              "l1",
		PurchaseOrderID: "o1",
		LineNumber:      "PO100-1",
		TitleOrPackage:  "Annals of Acquisitions",
		OrderFormat:     orders.FormatPhysical,
		Source:          "User",
		Cost:            orders.Cost{Currency: "USD", ListUnitPrice: 50, QuantityPhysical: 2},
		Locations:       []orders.Location{{LocationID: "loc-1", QuantityPhysical: 2}},
		Physical:        &orders.Physical{CreateInventory: orders.InventoryInstanceHoldingItem},
	}
}

func TestGetUnknownLine(t *testing.T) {
	rig := newRig(t)
	_, err := rig.coordinator.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 404, errors.HTTPStatus(err))
}

func TestGetRunsReadProtection(t *testing.T) {
	rig := newRig(t)
	rig.store.PutOrder(pendingOrder())
	rig.store.SeedLine(physicalLine())
	rig.guard.denied[OperationRead] = true

	_, err := rig.coordinator.Get(context.Background(), "l1")
	require.Error(t, err)
	assert.True(t, errors.IsForbidden(err))
	assert.Equal(t, 403, errors.HTTPStatus(err))
}

func TestGetLinesSortedByNumber(t *testing.T) {
	rig := newRig(t)
	rig.store.PutOrder(pendingOrder())

	for _, n := range []string{"PO100-10", "PO100-2", "PO100-1"} {
		line := physicalLine()
		line.ID = n
		line.LineNumber = n
		rig.store.SeedLine(line)
	}

	list, err := rig.coordinator.GetLines(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "PO100-1", list[0].LineNumber)
	assert.Equal(t, "PO100-2", list[1].LineNumber)
	assert.Equal(t, "PO100-10", list[2].LineNumber)
}

func TestQueryFiltersAndPages(t *testing.T) {
	rig := newRig(t)
	rig.store.PutOrder(pendingOrder())

	for i, status := range []orders.PaymentStatus{
		orders.PaymentAwaiting,
		orders.PaymentAwaiting,
		orders.PaymentAwaiting,
		orders.PaymentNotRequired,
	} {
		line := physicalLine()
		line.ID = fmt.Sprintf("q%d", i+1)
		line.LineNumber = fmt.Sprintf("PO100-%d", i+1)
		line.PaymentStatus = status
		rig.store.SeedLine(line)
	}

	list, err := rig.coordinator.Query(context.Background(),
		`purchaseOrderId==o1 and paymentStatus=="Awaiting Payment"`, 2, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "PO100-2", list[0].LineNumber)
	assert.Equal(t, "PO100-3", list[1].LineNumber)

	// An empty filter pages through everything.
	all, err := rig.coordinator.Query(context.Background(), "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDeleteReleasesEncumbrancesAndSubObjects(t *testing.T) {
	rig := newRig(t)
	rig.store.PutOrder(openedOrder())

	sub := rig.store.SubObjects()
	alertID, err := sub.Create(context.Background(), subobjects.KindAlerts, orders.Alert{Alert: "late"})
	require.NoError(t, err)

	line := physicalLine()
	line.AlertIDs = []string{alertID}
	rig.store.SeedLine(line)

	encID := rig.ledger.Seed(orders.Encumbrance{
		OrderID: "o1", LineID: "l1", Status: orders.EncumbranceUnreleased,
	})

	require.NoError(t, rig.coordinator.Delete(context.Background(), "l1"))

	_, err = rig.store.Get(context.Background(), "l1")
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 0, rig.store.SubObjectCount(subobjects.KindAlerts))
	enc, _ := rig.ledger.Transaction(encID)
	assert.Equal(t, orders.EncumbranceReleased, enc.Status)
}

func TestDeleteForbidden(t *testing.T) {
	rig := newRig(t)
	rig.store.PutOrder(pendingOrder())
	rig.store.SeedLine(physicalLine())
	rig.guard.denied[OperationDelete] = true

	err := rig.coordinator.Delete(context.Background(), "l1")
	require.Error(t, err)
	assert.True(t, errors.IsForbidden(err))

	// Nothing was removed.
	_, err = rig.store.Get(context.Background(), "l1")
	assert.NoError(t, err)
}
