package lines

import (
	"context"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/logging"
	"github.com/openacq/orderline/pkg/orders"
)

// NormalizeProductIDs rewrites the line's ISBN product identifiers to their
// ISBN-13 form and drops the duplicates the conversion produces. Identifiers
// of other types pass through untouched. A no-op when no catalog is wired or
// the line carries no product identifiers.
func (c *Coordinator) NormalizeProductIDs(ctx context.Context, line *orders.Line) error {
	if c.catalog == nil || line.Details == nil || len(line.Details.ProductIDs) == 0 {
		return nil
	}

	isbnTypeID, err := c.catalog.ISBNTypeID(ctx)
	if err != nil {
		return errors.WrapResource("fetch", "identifier type", "isbn", err)
	}

	seen := make(map[orders.ProductID]bool, len(line.Details.ProductIDs))
	counts := make(map[string]int)
	var isbns, others []orders.ProductID
	for _, pid := range line.Details.ProductIDs {
		if pid.ProductIDType != isbnTypeID {
			others = append(others, pid)
			continue
		}
		converted, err := c.catalog.ConvertToISBN13(ctx, pid.ProductID)
		if err != nil {
			return errors.NewValidationError("details.productIds", pid.ProductID, "invalid isbn")
		}
		if converted != pid.ProductID {
			logging.Ctx(ctx).Debug().
				Str("from", pid.ProductID).
				Str("to", converted).
				Msg("Normalized ISBN")
			pid.ProductID = converted
		}
		if seen[pid] {
			continue
		}
		seen[pid] = true
		counts[pid.ProductID]++
		isbns = append(isbns, pid)
	}

	// When the conversion collapses several identifiers onto one ISBN-13, only
	// the qualified entries survive. Distinct ISBNs keep their single entry
	// whether qualified or not.
	normalized := line.Details.ProductIDs[:0]
	for _, pid := range isbns {
		if counts[pid.ProductID] > 1 && pid.Qualifier == "" {
			continue
		}
		normalized = append(normalized, pid)
	}
	line.Details.ProductIDs = append(normalized, others...)
	return nil
}
