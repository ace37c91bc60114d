package pieces

import (
	"context"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
)

// Verdict is the outcome of the location/piece consistency check.
type Verdict int

// Consistency verdicts.
const (
	// VerdictNone means storage agrees with the line's declared quantities.
	VerdictNone Verdict = iota

	// VerdictCreate means storage holds fewer pieces than declared; the
	// missing pieces can be created as a side effect of validation.
	VerdictCreate

	// VerdictDelete means storage holds more pieces than declared. Pieces
	// are never auto-deleted, they might reference receiving history, so
	// this verdict fails the update.
	VerdictDelete
)

// String returns the string representation of a Verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictCreate:
		return "pieces-to-be-created"
	case VerdictDelete:
		return "pieces-to-be-deleted"
	default:
		return "consistent"
	}
}

// Report is the detailed outcome of a consistency check. LocationID and the
// counts are set for the first location that produced the verdict.
type Report struct {
	Verdict    Verdict
	LocationID string
	Stored     int
	Declared   int
}

// Verify compares, per location, the count of stored pieces against the
// line's declared location quantities.
//
// A location referenced by the line with no pieces in storage at all yields
// VerdictCreate immediately. Otherwise every (line, location) pair is
// compared; over-provisioned locations yield VerdictDelete, which takes
// priority over VerdictCreate for under-provisioned ones. Pieces without a
// location are outside the scope of this check.
func Verify(line *orders.Line, stored []orders.Piece) Report {
	declared := make(map[string]int)
	for _, loc := range line.Locations {
		declared[loc.LocationID] += loc.Quantity
	}

	counts := make(map[string]int)
	for _, p := range stored {
		if p.LocationID != "" {
			counts[p.LocationID]++
		}
	}

	for locationID, declaredQty := range declared {
		if counts[locationID] == 0 {
			return Report{Verdict: VerdictCreate, LocationID: locationID, Declared: declaredQty}
		}
	}

	report := Report{Verdict: VerdictNone}
	for locationID, storedCount := range counts {
		declaredQty := declared[locationID]
		if storedCount > declaredQty {
			return Report{Verdict: VerdictDelete, LocationID: locationID, Stored: storedCount, Declared: declaredQty}
		}
		if storedCount < declaredQty && report.Verdict == VerdictNone {
			report = Report{Verdict: VerdictCreate, LocationID: locationID, Stored: storedCount, Declared: declaredQty}
		}
	}
	return report
}

// VerifyStored fetches the line's pieces from storage and runs Verify
// against them. The fetch limit exceeds the declared total so that
// over-provisioned storage is still visible.
func (r *Reconciler) VerifyStored(ctx context.Context, line *orders.Line) (Report, error) {
	stored, err := r.store.ByLine(ctx, line.ID, orders.TotalQuantity(line)+1)
	if err != nil {
		return Report{}, errors.WrapResource("fetch", "pieces", line.ID, err)
	}
	return Verify(line, stored), nil
}

// NeedsVerification reports whether the consistency check applies: only open
// orders with receiving required, outside the check-in flow, and only for
// real (non-package) lines.
func NeedsVerification(line *orders.Line, order *orders.PurchaseOrder) bool {
	return order.WorkflowStatus == orders.WorkflowOpen &&
		!line.CheckinItems &&
		line.ReceiptRequired() &&
		!line.IsPackage
}
