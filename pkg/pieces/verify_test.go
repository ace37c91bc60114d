package pieces

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openacq/orderline/pkg/orders"
)

func verifyLine(locations ...orders.Location) *orders.Line {
	return &orders.Line{
		ID:        "l1",
		Locations: locations,
	}
}

func storedAt(locationID string, n int) []orders.Piece {
	var pieces []orders.Piece
	for i := 0; i < n; i++ {
		pieces = append(pieces, orders.Piece{PoLineID: "l1", LocationID: locationID})
	}
	return pieces
}

func TestVerifyConsistent(t *testing.T) {
	line := verifyLine(orders.Location{LocationID: "a", Quantity: 2})
	report := Verify(line, storedAt("a", 2))
	assert.Equal(t, VerdictNone, report.Verdict)
}

func TestVerifyUnderProvisioned(t *testing.T) {
	line := verifyLine(orders.Location{LocationID: "a", Quantity: 3})
	report := Verify(line, storedAt("a", 2))
	assert.Equal(t, VerdictCreate, report.Verdict)
	assert.Equal(t, "a", report.LocationID)
	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 3, report.Declared)
}

func TestVerifyLocationWithNoPieces(t *testing.T) {
	line := verifyLine(
		orders.Location{LocationID: "a", Quantity: 1},
		orders.Location{LocationID: "b", Quantity: 1},
	)
	report := Verify(line, storedAt("a", 1))
	assert.Equal(t, VerdictCreate, report.Verdict)
	assert.Equal(t, "b", report.LocationID)
}

func TestVerifyOverProvisioned(t *testing.T) {
	line := verifyLine(orders.Location{LocationID: "a", Quantity: 1})
	report := Verify(line, storedAt("a", 2))
	assert.Equal(t, VerdictDelete, report.Verdict)
	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 1, report.Declared)
}

// Over-provisioning anywhere outweighs under-provisioning elsewhere.
func TestVerifyDeleteTakesPriority(t *testing.T) {
	line := verifyLine(
		orders.Location{LocationID: "a", Quantity: 1},
		orders.Location{LocationID: "b", Quantity: 3},
	)
	stored := append(storedAt("a", 2), storedAt("b", 1)...)
	report := Verify(line, stored)
	assert.Equal(t, VerdictDelete, report.Verdict)
	assert.Equal(t, "a", report.LocationID)
}

// Pieces stored at a location the line no longer declares count as
// over-provisioned.
func TestVerifyUndeclaredLocation(t *testing.T) {
	line := verifyLine(orders.Location{LocationID: "a", Quantity: 1})
	stored := append(storedAt("a", 1), storedAt("ghost", 1)...)
	report := Verify(line, stored)
	assert.Equal(t, VerdictDelete, report.Verdict)
	assert.Equal(t, "ghost", report.LocationID)
}

// Location-less pieces are outside the scope of the check.
func TestVerifyIgnoresLocationlessPieces(t *testing.T) {
	line := verifyLine(orders.Location{LocationID: "a", Quantity: 1})
	stored := append(storedAt("a", 1), orders.Piece{PoLineID: "l1"})
	report := Verify(line, stored)
	assert.Equal(t, VerdictNone, report.Verdict)
}

func TestNeedsVerification(t *testing.T) {
	open := &orders.PurchaseOrder{ID: "o1", WorkflowStatus: orders.WorkflowOpen}
	pending := &orders.PurchaseOrder{ID: "o1", WorkflowStatus: orders.WorkflowPending}

	base := &orders.Line{ID: "l1"}
	assert.True(t, NeedsVerification(base, open))
	assert.False(t, NeedsVerification(base, pending))

	checkin := &orders.Line{ID: "l1", CheckinItems: true}
	assert.False(t, NeedsVerification(checkin, open))

	noReceipt := &orders.Line{ID: "l1", ReceiptStatus: orders.ReceiptNotRequired}
	assert.False(t, NeedsVerification(noReceipt, open))

	pkg := &orders.Line{ID: "l1", IsPackage: true}
	assert.False(t, NeedsVerification(pkg, open))
}
