package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/openacq/orderline/pkg/orders"
)

// Ledger is an in-memory finance backend. It enforces the summary protocol
// the real service does: transaction writes outside a declared batch, or
// beyond the declared operation count, are rejected.
type Ledger struct {
	mu sync.Mutex

	transactions map[string]orders.Encumbrance
	summaries    map[string]int // declared ops remaining, per order
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		transactions: make(map[string]orders.Encumbrance),
		summaries:    make(map[string]int),
	}
}

// Seed stores an encumbrance directly, bypassing the summary protocol.
func (l *Ledger) Seed(enc orders.Encumbrance) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if enc.ID == "" {
		enc.ID = uuid.NewString()
	}
	l.transactions[enc.ID] = enc
	return enc.ID
}

// ByLine returns the encumbrances stored for a line.
func (l *Ledger) ByLine(_ context.Context, lineID string) ([]orders.Encumbrance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var list []orders.Encumbrance
	for _, enc := range l.transactions {
		if enc.LineID == lineID {
			list = append(list, enc)
		}
	}
	return list, nil
}

// CreateSummary declares a new transaction batch for an order.
func (l *Ledger) CreateSummary(_ context.Context, orderID string, count int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.summaries[orderID]; exists {
		return fmt.Errorf("transaction summary for order %s already exists", orderID)
	}
	l.summaries[orderID] = count
	return nil
}

// UpdateSummary re-declares the transaction batch size for an order.
func (l *Ledger) UpdateSummary(_ context.Context, orderID string, count int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.summaries[orderID] = count
	return nil
}

// consume spends one declared operation for the order.
func (l *Ledger) consume(orderID string) error {
	remaining, ok := l.summaries[orderID]
	if !ok {
		return fmt.Errorf("no transaction summary declared for order %s", orderID)
	}
	if remaining <= 0 {
		return fmt.Errorf("transaction batch for order %s exhausted", orderID)
	}
	l.summaries[orderID] = remaining - 1
	return nil
}

// Create stores a new encumbrance and returns its assigned id.
func (l *Ledger) Create(_ context.Context, enc orders.Encumbrance) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.consume(enc.OrderID); err != nil {
		return "", err
	}
	enc.ID = uuid.NewString()
	l.transactions[enc.ID] = enc
	return enc.ID, nil
}

// Update replaces the given encumbrances.
func (l *Ledger) Update(_ context.Context, encs []orders.Encumbrance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, enc := range encs {
		if _, ok := l.transactions[enc.ID]; !ok {
			return fmt.Errorf("transaction %s not found", enc.ID)
		}
		if err := l.consume(enc.OrderID); err != nil {
			return err
		}
		l.transactions[enc.ID] = enc
	}
	return nil
}

// Release marks the given encumbrances released.
func (l *Ledger) Release(_ context.Context, encs []orders.Encumbrance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, enc := range encs {
		stored, ok := l.transactions[enc.ID]
		if !ok {
			return fmt.Errorf("transaction %s not found", enc.ID)
		}
		if err := l.consume(enc.OrderID); err != nil {
			return err
		}
		stored.Status = orders.EncumbranceReleased
		l.transactions[enc.ID] = stored
	}
	return nil
}

// Transaction returns a stored encumbrance by id.
func (l *Ledger) Transaction(id string) (orders.Encumbrance, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	enc, ok := l.transactions[id]
	return enc, ok
}

// DeclaredOps returns the remaining declared operation count for an order.
func (l *Ledger) DeclaredOps(orderID string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.summaries[orderID]
	return n, ok
}
