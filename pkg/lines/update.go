package lines

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/logging"
	"github.com/openacq/orderline/pkg/money"
	"github.com/openacq/orderline/pkg/orders"
	"github.com/openacq/orderline/pkg/pieces"
	"github.com/openacq/orderline/pkg/subobjects"
)

// Update reconciles the desired line against storage and every dependent
// collection. On success the returned line carries the resolved sub-object
// id lists and any encumbrance references assigned during the pass.
//
// The pipeline is strictly ordered. Validation failures surface before any
// write; once the side-effect stages start, a failed stage aborts the ones
// after it. Sub-object failures are the exception: the summary is persisted
// with whatever was applied and the result is a PartialError.
func (c *Coordinator) Update(ctx context.Context, desired *orders.Line) (*orders.Line, error) {
	ctx = logging.WithLine(ctx, desired.ID)

	// Step 1: resolve the stored line and check order membership.
	stored, err := c.store.Get(ctx, desired.ID)
	if err != nil {
		return nil, errors.WrapResource("fetch", "line", desired.ID, err)
	}
	if err := c.checkOrderID(stored, desired); err != nil {
		return nil, err
	}

	// Step 2: resolve the parent order. A dangling order reference is a
	// client error, not a server one.
	order, err := c.orders.Get(ctx, stored.PurchaseOrderID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.WrapValidation("purchaseOrderId", errors.ErrOrderNotFound)
		}
		return nil, errors.WrapResource("fetch", "order", stored.PurchaseOrderID, err)
	}

	// Step 3: protected fields. Once the order left pending, structural
	// line fields are frozen.
	if order.WorkflowStatus != orders.WorkflowPending {
		if err := orders.VerifyProtectedFields(stored, desired); err != nil {
			return nil, err
		}
	}

	// Step 4: static validation and derived-value recomputation. The piece
	// check below works on the recomputed quantities.
	if err := errors.Join(orders.ValidateLine(desired)...); err != nil {
		return nil, err
	}
	orders.UpdateLocationsQuantity(desired.Locations)
	if err := money.UpdateEstimatedPrice(desired); err != nil {
		return nil, err
	}

	// Step 5: piece consistency. Under-provisioned storage is repaired in
	// place; over-provisioned storage fails the update.
	if err := c.verifyPieces(ctx, order, desired); err != nil {
		return nil, err
	}

	// Step 6: acquisition-unit protection.
	if err := c.protectOrder(ctx, order, OperationUpdate); err != nil {
		return nil, err
	}

	// Step 7: ISBN normalization against the catalog.
	if err := c.NormalizeProductIDs(ctx, desired); err != nil {
		return nil, err
	}

	// Step 8: access provider lookup for electronic material.
	if err := c.validateAccessProvider(ctx, desired); err != nil {
		return nil, err
	}

	// Step 9: encumbrance reconciliation for open orders.
	if c.enc != nil {
		if _, err := c.enc.Process(ctx, order, desired); err != nil {
			return nil, err
		}
	}

	// Step 10: the line number is assigned at creation and never changes
	// afterwards; whatever the caller sent is discarded.
	desired.LineNumber = orders.RebuildLineNumber(stored, order.PoNumber)

	// Step 11: sub-objects, then the summary itself. Audit stamps are
	// server-maintained; the creation stamp survives from storage.
	desired.Metadata = orders.Metadata{
		CreatedDate: stored.Metadata.CreatedDate,
		UpdatedDate: utc.Now(),
	}
	failures := c.reconcileSubObjects(ctx, stored, desired)
	if err := c.store.Put(ctx, desired); err != nil {
		return nil, errors.WrapResource("update", "line", desired.ID, err)
	}
	if len(failures) > 0 {
		return nil, &errors.PartialError{LineID: desired.ID, Failures: failures}
	}

	c.notifyStatusChange(ctx, stored, desired)
	return desired, nil
}

// checkOrderID validates the desired line's order reference against storage.
func (c *Coordinator) checkOrderID(stored, desired *orders.Line) error {
	if desired.PurchaseOrderID == "" {
		return errors.NewValidationError("purchaseOrderId", "", errors.ErrMissingOrderID.Error())
	}
	if desired.PurchaseOrderID != stored.PurchaseOrderID {
		return errors.NewValidationError("purchaseOrderId", desired.PurchaseOrderID, errors.ErrIncorrectOrderID.Error())
	}
	return nil
}

// validate joins the static line checks with the access provider check.
func (c *Coordinator) validate(ctx context.Context, line *orders.Line) error {
	errs := orders.ValidateLine(line)
	if err := c.validateAccessProvider(ctx, line); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// validateAccessProvider checks that a referenced access provider exists and
// is active. Skipped when no organization registry is wired or the line does
// not reference one.
func (c *Coordinator) validateAccessProvider(ctx context.Context, line *orders.Line) error {
	if c.orgs == nil || line.Eresource == nil || line.Eresource.AccessProvider == "" {
		return nil
	}
	active, err := c.orgs.IsActive(ctx, line.Eresource.AccessProvider)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.NewValidationError("eresource.accessProvider", line.Eresource.AccessProvider, "access provider not found")
		}
		return errors.WrapResource("fetch", "organization", line.Eresource.AccessProvider, err)
	}
	if !active {
		return errors.NewValidationError("eresource.accessProvider", line.Eresource.AccessProvider, "access provider is inactive")
	}
	return nil
}

// verifyPieces runs the stored-piece consistency check and repairs the
// create case by bringing pieces (and inventory records) up to the declared
// state. Repair needs the line's title; a line without one cannot be
// repaired and fails the same way a client error does.
func (c *Coordinator) verifyPieces(ctx context.Context, order *orders.PurchaseOrder, line *orders.Line) error {
	if c.pieces == nil || !pieces.NeedsVerification(line, order) {
		return nil
	}

	report, err := c.pieces.VerifyStored(ctx, line)
	if err != nil {
		return err
	}
	switch report.Verdict {
	case pieces.VerdictNone:
		return nil
	case pieces.VerdictDelete:
		return &errors.ConsistencyError{
			LineID:     line.ID,
			LocationID: report.LocationID,
			Stored:     report.Stored,
			Declared:   report.Declared,
		}
	}

	if c.titles == nil {
		return nil
	}
	title, err := c.titles.ByLine(ctx, line.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.NewValidationError("titleOrPackage", line.TitleOrPackage, errors.ErrTitleNotFound.Error())
		}
		return errors.WrapResource("fetch", "title", line.ID, err)
	}

	logging.Ctx(ctx).Info().
		Str("location_id", report.LocationID).
		Int("stored", report.Stored).
		Int("declared", report.Declared).
		Msg("Creating missing pieces for line")
	return c.pieces.Ensure(ctx, line, title.ID)
}

// reconcileSubObjects diffs both attached collections and resolves the
// line's reference id lists from the outcomes.
func (c *Coordinator) reconcileSubObjects(ctx context.Context, stored, desired *orders.Line) []errors.Failure {
	if c.sub == nil {
		desired.AlertIDs = stored.AlertIDs
		desired.ReportingCodeIDs = stored.ReportingCodeIDs
		return nil
	}

	var failures []errors.Failure

	alerts := c.sub.Reconcile(ctx, subobjects.KindAlerts, alertObjects(desired.Alerts), stored.AlertIDs)
	desired.AlertIDs = alerts.IDs
	failures = append(failures, alerts.Failures...)

	codes := c.sub.Reconcile(ctx, subobjects.KindReportingCodes, reportingCodeObjects(desired.ReportingCodes), stored.ReportingCodeIDs)
	desired.ReportingCodeIDs = codes.IDs
	failures = append(failures, codes.Failures...)

	return failures
}

func alertObjects(alerts []orders.Alert) []subobjects.Object {
	objs := make([]subobjects.Object, len(alerts))
	for i, a := range alerts {
		objs[i] = subobjects.Object{ID: a.ID, Body: a}
	}
	return objs
}

func reportingCodeObjects(codes []orders.ReportingCode) []subobjects.Object {
	objs := make([]subobjects.Object, len(codes))
	for i, rc := range codes {
		objs[i] = subobjects.Object{ID: rc.ID, Body: rc}
	}
	return objs
}

// notifyStatusChange sends a notification when the receipt or payment status
// moved. The update already succeeded, so delivery runs detached and a
// failure is only logged.
func (c *Coordinator) notifyStatusChange(ctx context.Context, stored, desired *orders.Line) {
	if c.notifier == nil {
		return
	}
	if stored.ReceiptStatus == desired.ReceiptStatus && stored.PaymentStatus == desired.PaymentStatus {
		return
	}

	go func(ctx context.Context, line orders.Line) {
		if err := c.notifier.StatusChanged(ctx, &line); err != nil {
			logging.Ctx(ctx).Error().
				Err(err).
				Str("line_id", line.ID).
				Msg("Status change notification failed")
		}
	}(context.WithoutCancel(ctx), *desired)
}
