package encumbrance

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacq/orderline/internal/remote/memory"
	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
)

// lineRecorder records line summary writes.
type lineRecorder struct {
	mu   sync.Mutex
	puts int
}

func (r *lineRecorder) Put(_ context.Context, _ *orders.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts++
	return nil
}

func openOrder() *orders.PurchaseOrder {
	return &orders.PurchaseOrder{ID: "o1", PoNumber: "PO", WorkflowStatus: orders.WorkflowOpen}
}

func fundedLine(distributions ...orders.FundDistribution) *orders.Line {
	price := 100.0
	return &orders.Line{
		ID:              "l1",
		PurchaseOrderID: "o1",
		Cost:            orders.Cost{Currency: "USD", EstimatedPrice: &price},
		FundDistributions: distributions,
	}
}

func TestProcessSkipsNonOpenOrders(t *testing.T) {
	ledger := memory.NewLedger()
	o := New(ledger, &lineRecorder{})

	order := &orders.PurchaseOrder{ID: "o1", WorkflowStatus: orders.WorkflowPending}
	line := fundedLine(orders.FundDistribution{FundID: "f1", DistributionType: orders.DistributionPercentage, Value: 100})

	holder, err := o.Process(context.Background(), order, line)
	require.NoError(t, err)
	assert.Nil(t, holder)
}

func TestProcessSkipsLinesWithoutDistributions(t *testing.T) {
	o := New(memory.NewLedger(), &lineRecorder{})
	holder, err := o.Process(context.Background(), openOrder(), fundedLine())
	require.NoError(t, err)
	assert.Nil(t, holder)
}

func TestProcessRejectsBadDistributionTotal(t *testing.T) {
	o := New(memory.NewLedger(), &lineRecorder{})
	line := fundedLine(orders.FundDistribution{FundID: "f1", DistributionType: orders.DistributionAmount, Value: 99.99})

	_, err := o.Process(context.Background(), openOrder(), line)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFundDistributionTotal))
}

func TestProcessCreatesFirstEncumbrances(t *testing.T) {
	ledger := memory.NewLedger()
	writer := &lineRecorder{}
	o := New(ledger, writer)

	line := fundedLine(
		orders.FundDistribution{FundID: "f1", DistributionType: orders.DistributionPercentage, Value: 60},
		orders.FundDistribution{FundID: "f2", DistributionType: orders.DistributionPercentage, Value: 40},
	)

	holder, err := o.Process(context.Background(), openOrder(), line)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Len(t, holder.ToCreate, 2)
	assert.Empty(t, holder.ToUpdate)
	assert.Empty(t, holder.ToRelease)

	// Every distribution now references its ledger transaction.
	for _, fd := range line.FundDistributions {
		require.NotEmpty(t, fd.EncumbranceID)
		enc, ok := ledger.Transaction(fd.EncumbranceID)
		require.True(t, ok)
		assert.Equal(t, "l1", enc.LineID)
		assert.Equal(t, "o1", enc.OrderID)
		assert.Equal(t, orders.EncumbranceUnreleased, enc.Status)
	}
	assert.Equal(t, 2, writer.puts)

	// The declared batch is exactly consumed.
	remaining, ok := ledger.DeclaredOps("o1")
	require.True(t, ok)
	assert.Equal(t, 0, remaining)
}

func TestProcessAmountsFollowDistributionValues(t *testing.T) {
	ledger := memory.NewLedger()
	o := New(ledger, &lineRecorder{})

	line := fundedLine(
		orders.FundDistribution{FundID: "f1", DistributionType: orders.DistributionAmount, Value: 25.50},
		orders.FundDistribution{FundID: "f2", DistributionType: orders.DistributionPercentage, Value: 74.5},
	)

	_, err := o.Process(context.Background(), openOrder(), line)
	require.NoError(t, err)

	enc1, _ := ledger.Transaction(line.FundDistributions[0].EncumbranceID)
	assert.InDelta(t, 25.50, enc1.Amount, 1e-9)
	enc2, _ := ledger.Transaction(line.FundDistributions[1].EncumbranceID)
	assert.InDelta(t, 74.50, enc2.Amount, 1e-9)
}

func TestProcessUpdatesDriftedAmounts(t *testing.T) {
	ledger := memory.NewLedger()
	o := New(ledger, &lineRecorder{})

	encID := ledger.Seed(orders.Encumbrance{
		Amount: 50, Currency: "USD", FundID: "f1",
		OrderID: "o1", LineID: "l1", Status: orders.EncumbranceUnreleased,
	})
	line := fundedLine(orders.FundDistribution{
		FundID: "f1", DistributionType: orders.DistributionPercentage, Value: 100, EncumbranceID: encID,
	})

	holder, err := o.Process(context.Background(), openOrder(), line)
	require.NoError(t, err)
	require.Len(t, holder.ToUpdate, 1)
	assert.Empty(t, holder.ToCreate)
	assert.Empty(t, holder.ToRelease)

	enc, _ := ledger.Transaction(encID)
	assert.InDelta(t, 100, enc.Amount, 1e-9)
}

func TestProcessReleasesOrphanedEncumbrances(t *testing.T) {
	ledger := memory.NewLedger()
	o := New(ledger, &lineRecorder{})

	keepID := ledger.Seed(orders.Encumbrance{
		Amount: 100, Currency: "USD", FundID: "f1",
		OrderID: "o1", LineID: "l1", Status: orders.EncumbranceUnreleased,
	})
	dropID := ledger.Seed(orders.Encumbrance{
		Amount: 40, Currency: "USD", FundID: "f2",
		OrderID: "o1", LineID: "l1", Status: orders.EncumbranceUnreleased,
	})

	line := fundedLine(orders.FundDistribution{
		FundID: "f1", DistributionType: orders.DistributionPercentage, Value: 100, EncumbranceID: keepID,
	})

	holder, err := o.Process(context.Background(), openOrder(), line)
	require.NoError(t, err)
	require.Len(t, holder.ToRelease, 1)
	assert.Equal(t, dropID, holder.ToRelease[0].ID)

	released, _ := ledger.Transaction(dropID)
	assert.Equal(t, orders.EncumbranceReleased, released.Status)
	kept, _ := ledger.Transaction(keepID)
	assert.Equal(t, orders.EncumbranceUnreleased, kept.Status)
}

func TestProcessNoChangesNoSummary(t *testing.T) {
	ledger := memory.NewLedger()
	o := New(ledger, &lineRecorder{})

	encID := ledger.Seed(orders.Encumbrance{
		Amount: 100, Currency: "USD", FundID: "f1",
		OrderID: "o1", LineID: "l1", Status: orders.EncumbranceUnreleased,
	})
	line := fundedLine(orders.FundDistribution{
		FundID: "f1", DistributionType: orders.DistributionPercentage, Value: 100, EncumbranceID: encID,
	})

	holder, err := o.Process(context.Background(), openOrder(), line)
	require.NoError(t, err)
	assert.Equal(t, 0, holder.OperationCount())

	_, declared := ledger.DeclaredOps("o1")
	assert.False(t, declared)
}

// failingLedger rejects creates after the first.
type failingLedger struct {
	*memory.Ledger
	mu    sync.Mutex
	calls int
}

func (l *failingLedger) Create(ctx context.Context, enc orders.Encumbrance) (string, error) {
	l.mu.Lock()
	l.calls++
	failing := l.calls > 1
	l.mu.Unlock()
	if failing {
		return "", fmt.Errorf("ledger unavailable")
	}
	return l.Ledger.Create(ctx, enc)
}

// Create failures are returned to the caller, never swallowed.
func TestProcessCreateFailureSurfaces(t *testing.T) {
	ledger := &failingLedger{Ledger: memory.NewLedger()}
	o := New(ledger, &lineRecorder{})

	line := fundedLine(
		orders.FundDistribution{FundID: "f1", DistributionType: orders.DistributionPercentage, Value: 50},
		orders.FundDistribution{FundID: "f2", DistributionType: orders.DistributionPercentage, Value: 50},
	)

	_, err := o.Process(context.Background(), openOrder(), line)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger unavailable")
}

func TestReleaseLine(t *testing.T) {
	ledger := memory.NewLedger()
	o := New(ledger, &lineRecorder{})

	id1 := ledger.Seed(orders.Encumbrance{OrderID: "o1", LineID: "l1", Status: orders.EncumbranceUnreleased})
	id2 := ledger.Seed(orders.Encumbrance{OrderID: "o1", LineID: "l1", Status: orders.EncumbranceReleased})
	other := ledger.Seed(orders.Encumbrance{OrderID: "o1", LineID: "l2", Status: orders.EncumbranceUnreleased})

	require.NoError(t, o.ReleaseLine(context.Background(), "l1"))

	enc1, _ := ledger.Transaction(id1)
	assert.Equal(t, orders.EncumbranceReleased, enc1.Status)
	enc2, _ := ledger.Transaction(id2)
	assert.Equal(t, orders.EncumbranceReleased, enc2.Status)
	untouched, _ := ledger.Transaction(other)
	assert.Equal(t, orders.EncumbranceUnreleased, untouched.Status)
}

func TestReleaseLineNothingToRelease(t *testing.T) {
	o := New(memory.NewLedger(), &lineRecorder{})
	assert.NoError(t, o.ReleaseLine(context.Background(), "l1"))
}
