package lines

import (
	"context"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/logging"
	"github.com/openacq/orderline/pkg/money"
	"github.com/openacq/orderline/pkg/orders"
	"github.com/openacq/orderline/pkg/subobjects"
)

// Create validates and stores a new line on a pending order. Tenant
// create-inventory defaults are applied before validation, sub-objects are
// created before the summary so their ids can be referenced, and the line
// number is derived from a per-order sequence that is never reused.
func (c *Coordinator) Create(ctx context.Context, line *orders.Line) (*orders.Line, error) {
	if line.PurchaseOrderID == "" {
		return nil, errors.NewValidationError("purchaseOrderId", "", errors.ErrMissingOrderID.Error())
	}
	ctx = logging.WithOrder(ctx, line.PurchaseOrderID)

	order, err := c.orders.Get(ctx, line.PurchaseOrderID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.WrapValidation("purchaseOrderId", errors.ErrOrderNotFound)
		}
		return nil, errors.WrapResource("fetch", "order", line.PurchaseOrderID, err)
	}
	if err := c.protectOrder(ctx, order, OperationCreate); err != nil {
		return nil, err
	}
	if order.WorkflowStatus != orders.WorkflowPending {
		return nil, &errors.OrderStateError{OrderID: order.ID, Status: order.WorkflowStatus.String()}
	}

	defaults, err := c.inventoryDefaults(ctx)
	if err != nil {
		return nil, err
	}
	applyInventoryDefaults(line, defaults)

	if err := c.validate(ctx, line); err != nil {
		return nil, err
	}
	if err := c.checkLineLimit(ctx, order.ID, defaults); err != nil {
		return nil, err
	}

	orders.UpdateLocationsQuantity(line.Locations)
	if err := money.UpdateEstimatedPrice(line); err != nil {
		return nil, err
	}
	if err := c.NormalizeProductIDs(ctx, line); err != nil {
		return nil, err
	}

	if line.ID == "" {
		line.ID = uuid.NewString()
	}

	if failures := c.createSubObjects(ctx, line); len(failures) > 0 {
		return nil, &errors.PartialError{LineID: line.ID, Failures: failures}
	}

	seq, err := c.store.NextLineNumber(ctx, order.ID)
	if err != nil {
		return nil, errors.WrapResource("fetch", "line number sequence", order.ID, err)
	}
	line.LineNumber = orders.BuildLineNumber(order.PoNumber, seq)

	now := utc.Now()
	line.Metadata = orders.Metadata{CreatedDate: now, UpdatedDate: now}

	if err := c.store.Create(ctx, line); err != nil {
		return nil, errors.WrapResource("create", "line", line.ID, err)
	}

	logging.Ctx(ctx).Info().
		Str("line_id", line.ID).
		Str("line_number", line.LineNumber).
		Msg("Line created")
	return line, nil
}

// Delete removes a line, its attached sub-objects and its ledger
// commitments. The summary is removed first; cleanup failures after that
// point are reported as a partial result since the line itself is gone.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	line, err := c.store.Get(ctx, id)
	if err != nil {
		return errors.WrapResource("fetch", "line", id, err)
	}
	if err := c.protect(ctx, line.PurchaseOrderID, OperationDelete); err != nil {
		return err
	}

	if err := c.store.Delete(ctx, id); err != nil {
		return errors.WrapResource("delete", "line", id, err)
	}

	var failures []errors.Failure
	if c.sub != nil {
		alerts := c.sub.Reconcile(ctx, subobjects.KindAlerts, nil, line.AlertIDs)
		failures = append(failures, alerts.Failures...)
		codes := c.sub.Reconcile(ctx, subobjects.KindReportingCodes, nil, line.ReportingCodeIDs)
		failures = append(failures, codes.Failures...)
	}

	if c.enc != nil {
		if err := c.enc.ReleaseLine(ctx, id); err != nil {
			failures = append(failures, errors.Failure{Kind: "encumbrance", ID: id, Err: err})
		}
	}

	if len(failures) > 0 {
		return &errors.PartialError{LineID: id, Failures: failures}
	}
	logging.Ctx(ctx).Info().Str("line_id", id).Msg("Line deleted")
	return nil
}

// inventoryDefaults loads tenant defaults, falling back to the built-in
// modes when no configuration source is wired.
func (c *Coordinator) inventoryDefaults(ctx context.Context) (*orders.InventoryDefaults, error) {
	if c.defaults == nil {
		return &orders.InventoryDefaults{
			Eresource: orders.InventoryInstanceHolding,
			Physical:  orders.InventoryInstanceHoldingItem,
			Other:     orders.InventoryInstanceHoldingItem,
		}, nil
	}
	defaults, err := c.defaults.Inventory(ctx)
	if err != nil {
		return nil, errors.WrapResource("fetch", "tenant configuration", "", err)
	}
	return defaults, nil
}

// applyInventoryDefaults fills the line's create-inventory modes from tenant
// configuration. Modes the caller set explicitly are left alone.
func applyInventoryDefaults(line *orders.Line, defaults *orders.InventoryDefaults) {
	if line.HasPhysical() && line.Physical != nil && line.Physical.CreateInventory == "" {
		if line.OrderFormat == orders.FormatOther {
			line.Physical.CreateInventory = defaults.Other
		} else {
			line.Physical.CreateInventory = defaults.Physical
		}
	}
	if line.HasElectronic() && line.Eresource != nil && line.Eresource.CreateInventory == "" {
		line.Eresource.CreateInventory = defaults.Eresource
	}
}

// checkLineLimit rejects the create when the order already carries the
// configured maximum number of lines.
func (c *Coordinator) checkLineLimit(ctx context.Context, orderID string, defaults *orders.InventoryDefaults) error {
	if defaults.LineLimit <= 0 {
		return nil
	}
	existing, err := c.store.ByOrder(ctx, orderID)
	if err != nil {
		return errors.WrapResource("fetch", "lines", orderID, err)
	}
	if len(existing) >= defaults.LineLimit {
		return errors.NewValidationError("purchaseOrderId", orderID, errors.ErrLineLimitExceeded.Error())
	}
	return nil
}

// createSubObjects stores the attached collections of a brand new line and
// fills its reference id lists.
func (c *Coordinator) createSubObjects(ctx context.Context, line *orders.Line) []errors.Failure {
	if c.sub == nil {
		return nil
	}

	var failures []errors.Failure
	alerts := c.sub.Reconcile(ctx, subobjects.KindAlerts, alertObjects(line.Alerts), nil)
	line.AlertIDs = alerts.IDs
	failures = append(failures, alerts.Failures...)

	codes := c.sub.Reconcile(ctx, subobjects.KindReportingCodes, reportingCodeObjects(line.ReportingCodes), nil)
	line.ReportingCodeIDs = codes.IDs
	failures = append(failures, codes.Failures...)
	return failures
}
