// Package pieces reconciles the receivable pieces of an order line against
// the piece store. It derives the expected piece population from the line's
// quantities, locations and format, computes the delta against storage, and
// creates only what is missing. Pieces are never deleted here: storage
// holding more pieces than the line declares is a consistency failure the
// caller must surface.
package pieces

import (
	"context"
	"sync"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/logging"
	"github.com/openacq/orderline/pkg/orders"
)

// Store is the remote collection pieces live in.
type Store interface {
	// ByLine returns the pieces stored for a line, up to limit.
	ByLine(ctx context.Context, lineID string, limit int) ([]orders.Piece, error)

	// Create stores a new piece and returns its assigned id.
	Create(ctx context.Context, piece orders.Piece) (string, error)
}

// Inventory creates inventory records for a line.
type Inventory interface {
	// HandleInstance ensures the instance record for the line exists.
	HandleInstance(ctx context.Context, line *orders.Line) error

	// HandleHoldingsAndItems creates holdings and item records and returns
	// the expected pieces carrying the created item ids.
	HandleHoldingsAndItems(ctx context.Context, line *orders.Line) ([]orders.Piece, error)
}

// Reconciler creates missing pieces for order lines.
type Reconciler struct {
	store     Store
	inventory Inventory
}

// New creates a piece Reconciler.
func New(store Store, inventory Inventory) *Reconciler {
	return &Reconciler{store: store, inventory: inventory}
}

// ComputeMissing returns the pieces that must be created so storage matches
// the line's declared state. Two independent passes are unioned:
//
// By-location pass, per location id: pieces that already have a backing
// inventory item but are absent from storage (matched by item id) are taken
// verbatim; then, per receivable format, the expected quantity without item
// minus the stored quantity without item (clamped at zero) is synthesized as
// bare pieces tagged with the location.
//
// Without-location pass: the same deficit computation scoped to pieces that
// carry no location at all.
func ComputeMissing(line *orders.Line, existing, withItems []orders.Piece) []orders.Piece {
	missing := missingByLocation(line, withItems, existing)
	missing = append(missing, missingWithoutLocation(line, existing)...)
	return missing
}

// missingByLocation collects the per-location deficits.
func missingByLocation(line *orders.Line, withItems, existing []orders.Piece) []orders.Piece {
	var missing []orders.Piece

	for locationID, locations := range orders.GroupLocationsByID(line) {
		existingHere := filterByLocation(existing, locationID)
		expectedHere := filterByLocation(withItems, locationID)

		missing = append(missing, missingWithItem(expectedHere, existingHere)...)

		expected := orders.ExpectedPiecesWithoutItem(line, locations)
		stored := countByFormat(existingHere, func(p orders.Piece) bool { return p.ItemID == "" })
		for format, expectedQty := range expected {
			for i := 0; i < expectedQty-stored[format]; i++ {
				missing = append(missing, orders.Piece{
					Format:     format,
					PoLineID:   line.ID,
					LocationID: locationID,
				})
			}
		}
	}

	return missing
}

// missingWithoutLocation collects the deficit of pieces with no location.
func missingWithoutLocation(line *orders.Line, existing []orders.Piece) []orders.Piece {
	var missing []orders.Piece

	expected := orders.ExpectedPiecesWithoutLocation(line)
	stored := countByFormat(existing, func(p orders.Piece) bool { return p.LocationID == "" })
	for format, expectedQty := range expected {
		for i := 0; i < expectedQty-stored[format]; i++ {
			missing = append(missing, orders.Piece{Format: format, PoLineID: line.ID})
		}
	}

	return missing
}

// missingWithItem returns the expected pieces whose backing item exists but
// which are not yet present in storage, matched by item id.
func missingWithItem(withItems, existing []orders.Piece) []orders.Piece {
	var missing []orders.Piece
	for _, expected := range withItems {
		found := false
		for _, stored := range existing {
			if expected.ItemID == stored.ItemID {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, expected)
		}
	}
	return missing
}

// filterByLocation keeps the pieces stored at one location.
func filterByLocation(pieces []orders.Piece, locationID string) []orders.Piece {
	var filtered []orders.Piece
	for _, p := range pieces {
		if p.LocationID == locationID {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// countByFormat counts the pieces matching the predicate, per format.
func countByFormat(pieces []orders.Piece, match func(orders.Piece) bool) map[orders.PieceFormat]int {
	counts := make(map[orders.PieceFormat]int)
	for _, p := range pieces {
		if match(p) {
			counts[p.Format]++
		}
	}
	return counts
}

// Ensure brings the line's inventory records and pieces up to its declared
// state. Packages are a no-op. When no inventory records are wanted, pieces
// are still created if receiving is required so receiving can proceed;
// otherwise nothing happens.
func (r *Reconciler) Ensure(ctx context.Context, line *orders.Line, titleID string) error {
	if line.IsPackage {
		return nil
	}

	if orders.InventoryUpdateNotRequired(line) {
		if !line.ReceiptRequired() {
			return nil
		}
		logging.Ctx(ctx).Info().
			Str("line_id", line.ID).
			Msg("Creating pieces without inventory updates")
		return r.CreateMissing(ctx, line, titleID, nil)
	}

	if err := r.inventory.HandleInstance(ctx, line); err != nil {
		return err
	}
	withItems, err := r.inventory.HandleHoldingsAndItems(ctx, line)
	if err != nil {
		return err
	}

	if !line.ReceiptRequired() {
		return nil
	}
	return r.CreateMissing(ctx, line, titleID, withItems)
}

// CreateMissing fetches the stored pieces, computes the delta and creates
// the missing ones concurrently. Afterwards the created-item count must
// match the line's expected inventory-item quantity; a mismatch is a fatal
// InventoryError and is never retried. The check-in flow manages its own
// pieces, so lines with checkinItems set are skipped entirely.
func (r *Reconciler) CreateMissing(ctx context.Context, line *orders.Line, titleID string, withItems []orders.Piece) error {
	if line.CheckinItems {
		return nil
	}

	existing, err := r.store.ByLine(ctx, line.ID, orders.TotalQuantity(line))
	if err != nil {
		return errors.WrapResource("fetch", "pieces", line.ID, err)
	}
	logging.Ctx(ctx).Debug().
		Int("existing", len(existing)).
		Str("line_id", line.ID).
		Msg("Existing pieces found for line")

	missing := ComputeMissing(line, existing, withItems)
	for i := range missing {
		missing[i].TitleID = titleID
	}

	if err := r.createAll(ctx, missing); err != nil {
		return err
	}

	expected := orders.InventoryItemsQuantity(line)
	if len(withItems) != expected {
		return &errors.InventoryError{LineID: line.ID, Expected: expected, Created: len(withItems)}
	}
	return nil
}

// createAll creates pieces concurrently. Sibling failures are collected and
// joined; one failure does not cancel the others.
func (r *Reconciler) createAll(ctx context.Context, pieces []orders.Piece) error {
	if len(pieces) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errc := make(chan error, len(pieces))

	for _, piece := range pieces {
		wg.Add(1)
		go func(piece orders.Piece) {
			defer wg.Done()
			if _, err := r.store.Create(ctx, piece); err != nil {
				logging.Ctx(ctx).Error().
					Err(err).
					Str("line_id", piece.PoLineID).
					Str("location_id", piece.LocationID).
					Msg("Piece record failed to be created")
				errc <- errors.WrapResource("create", "piece", piece.LocationID, err)
			}
		}(piece)
	}

	wg.Wait()
	close(errc)

	var errs []error
	for err := range errc {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
