// Package encumbrance turns a line's fund distributions into create, update
// and release operations against the remote ledger. The ledger requires a
// transaction summary declaring the batch size before individual transaction
// calls are accepted, so the stages run strictly ordered: summary, creates,
// releases, updates. Creates within a stage run concurrently.
package encumbrance

import (
	"context"
	"sync"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/logging"
	"github.com/openacq/orderline/pkg/money"
	"github.com/openacq/orderline/pkg/orders"
)

// Ledger is the remote transaction store.
type Ledger interface {
	// ByLine returns the encumbrances stored for a line.
	ByLine(ctx context.Context, lineID string) ([]orders.Encumbrance, error)

	// CreateSummary declares a new transaction batch for an order.
	CreateSummary(ctx context.Context, orderID string, count int) error

	// UpdateSummary re-declares the transaction batch size for an order.
	UpdateSummary(ctx context.Context, orderID string, count int) error

	// Create stores a new encumbrance and returns its assigned id.
	Create(ctx context.Context, enc orders.Encumbrance) (string, error)

	// Update replaces the given encumbrances.
	Update(ctx context.Context, encs []orders.Encumbrance) error

	// Release releases the given encumbrances.
	Release(ctx context.Context, encs []orders.Encumbrance) error
}

// LineWriter persists line summaries. Used to write encumbrance references
// back onto the line as soon as each create succeeds, so the line and the
// ledger never silently diverge.
type LineWriter interface {
	Put(ctx context.Context, line *orders.Line) error
}

// Relation binds a pending ledger operation to the fund distribution that
// caused it.
type Relation struct {
	Encumbrance  orders.Encumbrance
	Distribution *orders.FundDistribution
}

// Holder describes the four derived sets of one reconciliation pass.
type Holder struct {
	FromStorage []orders.Encumbrance
	ToCreate    []Relation
	ToUpdate    []Relation
	ToRelease   []orders.Encumbrance
}

// OperationCount returns the total number of ledger operations the summary
// must declare.
func (h *Holder) OperationCount() int {
	return len(h.ToCreate) + len(h.ToUpdate) + len(h.ToRelease)
}

// Orchestrator coordinates encumbrance reconciliation for order lines.
type Orchestrator struct {
	ledger Ledger
	lines  LineWriter
}

// New creates an encumbrance Orchestrator.
func New(ledger Ledger, lines LineWriter) *Orchestrator {
	return &Orchestrator{ledger: ledger, lines: lines}
}

// Process reconciles the line's fund distributions against the ledger. It
// returns the holder describing what was done, or nil when nothing applies:
// encumbrances are only material for open orders, and a line without fund
// distributions has nothing to encumber.
func (o *Orchestrator) Process(ctx context.Context, order *orders.PurchaseOrder, line *orders.Line) (*Holder, error) {
	if order.WorkflowStatus != orders.WorkflowOpen || len(line.FundDistributions) == 0 {
		return nil, nil
	}

	if err := money.ValidateFundDistributions(line.ID, &line.Cost, line.FundDistributions); err != nil {
		return nil, err
	}

	stored, err := o.ledger.ByLine(ctx, line.ID)
	if err != nil {
		return nil, errors.WrapResource("fetch", "encumbrances", line.ID, err)
	}

	holder, err := buildHolder(order, line, stored)
	if err != nil {
		return nil, err
	}

	if holder.OperationCount() == 0 {
		return holder, nil
	}

	if err := o.declareSummary(ctx, order.ID, holder); err != nil {
		return nil, err
	}

	// Stage order is mandatory: each stage depends on ledger summary state
	// established by the prior one. Releases run before updates to avoid
	// transient double-commitment against the same summary count.
	if err := o.createAll(ctx, line, holder.ToCreate); err != nil {
		return nil, err
	}
	if err := o.releaseAll(ctx, holder.ToRelease); err != nil {
		return nil, err
	}
	if err := o.updateAll(ctx, holder.ToUpdate); err != nil {
		return nil, err
	}

	return holder, nil
}

// buildHolder derives the three disjoint operation sets from the line's fund
// distributions and the encumbrances already stored.
func buildHolder(order *orders.PurchaseOrder, line *orders.Line, stored []orders.Encumbrance) (*Holder, error) {
	holder := &Holder{FromStorage: stored}

	byID := make(map[string]orders.Encumbrance, len(stored))
	for _, enc := range stored {
		byID[enc.ID] = enc
	}

	referenced := make(map[string]bool, len(line.FundDistributions))
	for i := range line.FundDistributions {
		fd := &line.FundDistributions[i]
		amount, err := money.DistributionAmount(&line.Cost, *fd)
		if err != nil {
			return nil, err
		}

		existing, ok := byID[fd.EncumbranceID]
		if fd.EncumbranceID == "" || !ok {
			holder.ToCreate = append(holder.ToCreate, Relation{
				Encumbrance: orders.Encumbrance{
					Amount:   amount,
					Currency: line.Cost.Currency,
					FundID:   fd.FundID,
					OrderID:  order.ID,
					LineID:   line.ID,
					Status:   orders.EncumbranceUnreleased,
				},
				Distribution: fd,
			})
			continue
		}

		referenced[fd.EncumbranceID] = true
		if existing.Amount != amount || existing.FundID != fd.FundID {
			updated := existing
			updated.Amount = amount
			updated.FundID = fd.FundID
			holder.ToUpdate = append(holder.ToUpdate, Relation{Encumbrance: updated, Distribution: fd})
		}
	}

	// Stored encumbrances whose backing distribution was removed are released.
	for _, enc := range stored {
		if !referenced[enc.ID] && enc.Status != orders.EncumbranceReleased {
			holder.ToRelease = append(holder.ToRelease, enc)
		}
	}

	return holder, nil
}

// declareSummary opens or updates the order's transaction summary. The
// summary is created when no encumbrances existed for the line before,
// otherwise the declared count is updated.
func (o *Orchestrator) declareSummary(ctx context.Context, orderID string, holder *Holder) error {
	count := holder.OperationCount()
	if len(holder.FromStorage) == 0 {
		if err := o.ledger.CreateSummary(ctx, orderID, count); err != nil {
			return errors.WrapResource("create", "transaction summary", orderID, err)
		}
		return nil
	}
	if err := o.ledger.UpdateSummary(ctx, orderID, count); err != nil {
		return errors.WrapResource("update", "transaction summary", orderID, err)
	}
	return nil
}

// createAll posts the new encumbrances concurrently. On each success the
// resulting reference is written back onto the fund distribution and the
// line summary is pushed to storage immediately. Failures are wrapped and
// returned, never swallowed: a swallowed create would silently desynchronize
// the line's distribution-to-encumbrance mapping from the ledger.
func (o *Orchestrator) createAll(ctx context.Context, line *orders.Line, creates []Relation) error {
	if len(creates) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errc := make(chan error, len(creates))
	var mu sync.Mutex // serializes distribution write-back and summary push

	for _, rel := range creates {
		wg.Add(1)
		go func(rel Relation) {
			defer wg.Done()

			id, err := o.ledger.Create(ctx, rel.Encumbrance)
			if err != nil {
				errc <- errors.WrapResource("create", "encumbrance", rel.Distribution.FundID, err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			rel.Distribution.EncumbranceID = id
			if err := o.lines.Put(ctx, line); err != nil {
				errc <- errors.WrapResource("update", "line", line.ID, err)
			}
		}(rel)
	}

	wg.Wait()
	close(errc)

	var errs []error
	for err := range errc {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// releaseAll releases the orphaned encumbrances.
func (o *Orchestrator) releaseAll(ctx context.Context, releases []orders.Encumbrance) error {
	if len(releases) == 0 {
		return nil
	}
	if err := o.ledger.Release(ctx, releases); err != nil {
		return errors.WrapResource("release", "encumbrances", "", err)
	}
	return nil
}

// updateAll pushes the amended encumbrances.
func (o *Orchestrator) updateAll(ctx context.Context, updates []Relation) error {
	if len(updates) == 0 {
		return nil
	}
	encs := make([]orders.Encumbrance, len(updates))
	for i, rel := range updates {
		encs[i] = rel.Encumbrance
	}
	if err := o.ledger.Update(ctx, encs); err != nil {
		return errors.WrapResource("update", "encumbrances", "", err)
	}
	return nil
}

// ReleaseLine releases every unreleased encumbrance of a line. Used when a
// line is deleted.
func (o *Orchestrator) ReleaseLine(ctx context.Context, lineID string) error {
	stored, err := o.ledger.ByLine(ctx, lineID)
	if err != nil {
		return errors.WrapResource("fetch", "encumbrances", lineID, err)
	}

	var unreleased []orders.Encumbrance
	for _, enc := range stored {
		if enc.Status != orders.EncumbranceReleased {
			unreleased = append(unreleased, enc)
		}
	}
	if len(unreleased) == 0 {
		return nil
	}

	// Releases are summary-guarded transactions like any other write.
	orderID := unreleased[0].OrderID
	if err := o.ledger.UpdateSummary(ctx, orderID, len(unreleased)); err != nil {
		return errors.WrapResource("update", "transaction summary", orderID, err)
	}

	logging.Ctx(ctx).Info().
		Str("line_id", lineID).
		Int("count", len(unreleased)).
		Msg("Releasing line encumbrances")
	return o.releaseAll(ctx, unreleased)
}
