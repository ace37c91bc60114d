package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
)

// Inventory is an in-memory stand-in for the inventory service. It records
// the instances it was asked about and synthesizes item-backed pieces for
// item-creating lines.
type Inventory struct {
	mu        sync.Mutex
	instances map[string]bool // line ids with an ensured instance
}

// NewInventory creates an empty Inventory.
func NewInventory() *Inventory {
	return &Inventory{instances: make(map[string]bool)}
}

// HandleInstance ensures the instance record for the line exists.
func (inv *Inventory) HandleInstance(_ context.Context, line *orders.Line) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.instances[line.ID] = true
	return nil
}

// HandleHoldingsAndItems synthesizes the expected item-backed pieces: one
// piece per unit of item-creating quantity, spread over the line's
// locations in declaration order.
func (inv *Inventory) HandleHoldingsAndItems(_ context.Context, line *orders.Line) ([]orders.Piece, error) {
	var created []orders.Piece
	for _, loc := range line.Locations {
		if line.HasPhysical() && line.PhysicalCreateInventory().CreatesItems() {
			for i := 0; i < loc.QuantityPhysical; i++ {
				created = append(created, orders.Piece{
					Format:     line.PhysicalPieceFormat(),
					PoLineID:   line.ID,
					LocationID: loc.LocationID,
					ItemID:     uuid.NewString(),
				})
			}
		}
		if line.HasElectronic() && line.EresourceCreateInventory().CreatesItems() {
			for i := 0; i < loc.QuantityElectronic; i++ {
				created = append(created, orders.Piece{
					Format:     orders.PieceElectronic,
					PoLineID:   line.ID,
					LocationID: loc.LocationID,
					ItemID:     uuid.NewString(),
				})
			}
		}
	}
	return created, nil
}

// HasInstance reports whether an instance was ensured for the line.
func (inv *Inventory) HasInstance(lineID string) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.instances[lineID]
}

// ISBNTypeUUID is the identifier-type id the in-memory catalog reports for
// ISBNs.
const ISBNTypeUUID = "8261054f-be78-422d-bd51-4ed9f33c3422"

// Catalog is an in-memory identifier catalog with a real ISBN-13 converter.
type Catalog struct{}

// ISBNTypeID returns the identifier-type id used for ISBNs.
func (Catalog) ISBNTypeID(_ context.Context) (string, error) {
	return ISBNTypeUUID, nil
}

// ConvertToISBN13 normalizes an ISBN-10 or ISBN-13 value to ISBN-13.
func (Catalog) ConvertToISBN13(_ context.Context, isbn string) (string, error) {
	digits := strings.ReplaceAll(strings.ReplaceAll(isbn, "-", ""), " ", "")
	switch len(digits) {
	case 13:
		return digits, nil
	case 10:
		core := "978" + digits[:9]
		sum := 0
		for i, r := range core {
			if r < '0' || r > '9' {
				return "", fmt.Errorf("invalid isbn %q", isbn)
			}
			d := int(r - '0')
			if i%2 == 1 {
				d *= 3
			}
			sum += d
		}
		check := (10 - sum%10) % 10
		return fmt.Sprintf("%s%d", core, check), nil
	default:
		return "", fmt.Errorf("invalid isbn %q", isbn)
	}
}

// Organizations is an in-memory organization registry.
type Organizations struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewOrganizations creates an empty registry.
func NewOrganizations() *Organizations {
	return &Organizations{active: make(map[string]bool)}
}

// Add registers an organization with the given active state.
func (o *Organizations) Add(id string, active bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active[id] = active
}

// IsActive reports whether the organization exists and is active.
func (o *Organizations) IsActive(_ context.Context, id string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	active, ok := o.active[id]
	if !ok {
		return false, errors.NewNotFoundError("organization", id)
	}
	return active, nil
}

// Notifier records the status change notifications it receives.
type Notifier struct {
	mu    sync.Mutex
	sent  []string // line ids in delivery order
	errs  map[string]error
	fired chan struct{}
}

// NewNotifier creates a Notifier. The Fired channel receives one signal per
// delivery attempt, so tests can wait for the detached send.
func NewNotifier() *Notifier {
	return &Notifier{
		errs:  make(map[string]error),
		fired: make(chan struct{}, 16),
	}
}

// Fail makes delivery for the given line id return err.
func (n *Notifier) Fail(lineID string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs[lineID] = err
}

// StatusChanged records the notification.
func (n *Notifier) StatusChanged(_ context.Context, line *orders.Line) error {
	n.mu.Lock()
	err := n.errs[line.ID]
	if err == nil {
		n.sent = append(n.sent, line.ID)
	}
	n.mu.Unlock()
	n.fired <- struct{}{}
	return err
}

// Fired returns the delivery attempt signal channel.
func (n *Notifier) Fired() <-chan struct{} {
	return n.fired
}

// Sent returns the line ids notified so far.
func (n *Notifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}
