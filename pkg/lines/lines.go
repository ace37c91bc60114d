// Package lines coordinates the full lifecycle of purchase order lines:
// create, read, update and delete, plus every side effect an update implies.
// The Coordinator owns the pipeline ordering; the domain work itself lives in
// the money, subobjects, pieces and encumbrance packages and is reached
// through their reconcilers.
package lines

import (
	"context"

	"github.com/openacq/orderline/pkg/encumbrance"
	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
	"github.com/openacq/orderline/pkg/pieces"
	"github.com/openacq/orderline/pkg/subobjects"
)

// Store is the remote collection line summaries live in.
type Store interface {
	// Get returns the stored line summary.
	Get(ctx context.Context, id string) (*orders.Line, error)

	// ByOrder returns the line summaries attached to an order.
	ByOrder(ctx context.Context, orderID string) ([]*orders.Line, error)

	// Query returns the line summaries matching a CQL-like filter, bounded
	// by limit and offset. An empty filter matches every line.
	Query(ctx context.Context, filter string, limit, offset int) ([]*orders.Line, error)

	// Create stores a new line summary.
	Create(ctx context.Context, line *orders.Line) error

	// Put replaces the stored line summary.
	Put(ctx context.Context, line *orders.Line) error

	// Delete removes the stored line summary.
	Delete(ctx context.Context, id string) error

	// NextLineNumber reserves and returns the next line sequence number
	// for an order. Numbers are never reused, even after deletes.
	NextLineNumber(ctx context.Context, orderID string) (int, error)
}

// OrderStore reads purchase orders.
type OrderStore interface {
	Get(ctx context.Context, id string) (*orders.PurchaseOrder, error)
}

// TitleStore reads the titles attached to order lines.
type TitleStore interface {
	ByLine(ctx context.Context, lineID string) (*orders.Title, error)
}

// Catalog resolves product identifier concerns against the inventory
// catalog.
type Catalog interface {
	// ISBNTypeID returns the identifier-type id the catalog uses for ISBNs.
	ISBNTypeID(ctx context.Context) (string, error)

	// ConvertToISBN13 normalizes an ISBN-10 or ISBN-13 value to ISBN-13.
	ConvertToISBN13(ctx context.Context, isbn string) (string, error)
}

// Organizations checks referenced organization records.
type Organizations interface {
	// IsActive reports whether the organization exists and is active.
	IsActive(ctx context.Context, id string) (bool, error)
}

// Operation is a guarded line operation for acquisition-unit protection.
type Operation string

// Guarded operations.
const (
	OperationRead   Operation = "read"
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Protector enforces acquisition-unit restrictions. An operation the caller
// may not perform returns an error carrying forbidden semantics.
type Protector interface {
	Protect(ctx context.Context, acqUnitIDs []string, op Operation) error
}

// Notifier delivers receipt and payment status change events. Delivery is
// best effort; the update that triggered it has already been persisted.
type Notifier interface {
	StatusChanged(ctx context.Context, line *orders.Line) error
}

// Defaults supplies tenant-level configuration.
type Defaults interface {
	Inventory(ctx context.Context) (*orders.InventoryDefaults, error)
}

// Coordinator sequences order line operations against their collaborators.
type Coordinator struct {
	store    Store
	orders   OrderStore
	titles   TitleStore
	sub      *subobjects.Reconciler
	pieces   *pieces.Reconciler
	enc      *encumbrance.Orchestrator
	catalog  Catalog
	orgs     Organizations
	guard    Protector
	notifier Notifier
	defaults Defaults
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTitles wires the title store used by the consistency repair path.
func WithTitles(titles TitleStore) Option {
	return func(c *Coordinator) { c.titles = titles }
}

// WithSubObjects wires the sub-object reconciler.
func WithSubObjects(r *subobjects.Reconciler) Option {
	return func(c *Coordinator) { c.sub = r }
}

// WithPieces wires the piece reconciler.
func WithPieces(r *pieces.Reconciler) Option {
	return func(c *Coordinator) { c.pieces = r }
}

// WithEncumbrances wires the encumbrance orchestrator.
func WithEncumbrances(o *encumbrance.Orchestrator) Option {
	return func(c *Coordinator) { c.enc = o }
}

// WithCatalog wires the inventory catalog used for ISBN normalization.
func WithCatalog(cat Catalog) Option {
	return func(c *Coordinator) { c.catalog = cat }
}

// WithOrganizations wires the organization registry used to validate access
// providers.
func WithOrganizations(orgs Organizations) Option {
	return func(c *Coordinator) { c.orgs = orgs }
}

// WithProtector wires acquisition-unit protection.
func WithProtector(p Protector) Option {
	return func(c *Coordinator) { c.guard = p }
}

// WithNotifier wires status change notifications.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithDefaults wires the tenant configuration source.
func WithDefaults(d Defaults) Option {
	return func(c *Coordinator) { c.defaults = d }
}

// New creates a Coordinator over the line and order stores. Collaborators
// left unwired disable their pipeline step.
func New(store Store, orderStore OrderStore, opts ...Option) *Coordinator {
	c := &Coordinator{store: store, orders: orderStore}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the stored line after an acquisition-unit read check against
// its parent order.
func (c *Coordinator) Get(ctx context.Context, id string) (*orders.Line, error) {
	line, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, errors.WrapResource("fetch", "line", id, err)
	}
	if err := c.protect(ctx, line.PurchaseOrderID, OperationRead); err != nil {
		return nil, err
	}
	return line, nil
}

// GetLines returns an order's lines sorted by line number.
func (c *Coordinator) GetLines(ctx context.Context, orderID string) ([]*orders.Line, error) {
	if err := c.protect(ctx, orderID, OperationRead); err != nil {
		return nil, err
	}
	list, err := c.store.ByOrder(ctx, orderID)
	if err != nil {
		return nil, errors.WrapResource("fetch", "lines", orderID, err)
	}
	orders.SortByLineNumber(list)
	return list, nil
}

// Query returns the stored line summaries matching filter, bounded by limit
// and offset. The filter passes through to storage untouched; an empty filter
// pages through every line. Results keep storage order, the caller decides
// whether a sort clause belongs in the filter.
func (c *Coordinator) Query(ctx context.Context, filter string, limit, offset int) ([]*orders.Line, error) {
	list, err := c.store.Query(ctx, filter, limit, offset)
	if err != nil {
		return nil, errors.WrapResource("query", "lines", filter, err)
	}
	return list, nil
}

// protect runs the acquisition-unit check for the order, resolving the order
// when only its id is at hand. A nil Protector disables protection.
func (c *Coordinator) protect(ctx context.Context, orderID string, op Operation) error {
	if c.guard == nil {
		return nil
	}
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		if errors.IsNotFound(err) {
			// Orphaned lines carry no unit restrictions.
			return nil
		}
		return errors.WrapResource("fetch", "order", orderID, err)
	}
	return c.guard.Protect(ctx, order.AcqUnitIDs, op)
}

func (c *Coordinator) protectOrder(ctx context.Context, order *orders.PurchaseOrder, op Operation) error {
	if c.guard == nil {
		return nil
	}
	return c.guard.Protect(ctx, order.AcqUnitIDs, op)
}
