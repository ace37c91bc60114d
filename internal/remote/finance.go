package remote

import (
	"context"
	"fmt"
	"net/url"

	"github.com/openacq/orderline/pkg/orders"
)

// FinanceStore implements the encumbrance orchestrator's Ledger over the
// finance service. Individual transaction calls are only accepted while an
// order transaction summary with a matching operation count is open, which
// is why the summary endpoints live on the same store.
type FinanceStore struct {
	client *Client
}

// NewFinanceStore creates a FinanceStore.
func NewFinanceStore(client *Client) *FinanceStore {
	return &FinanceStore{client: client}
}

type transactionCollection struct {
	Transactions []orders.Encumbrance `json:"transactions"`
	TotalRecords int                  `json:"totalRecords"`
}

type transactionSummary struct {
	ID                   string `json:"id"`
	NumberOfTransactions int    `json:"numTransactions"`
}

// ByLine returns the encumbrances stored for a line.
func (s *FinanceStore) ByLine(ctx context.Context, lineID string) ([]orders.Encumbrance, error) {
	query := url.QueryEscape(fmt.Sprintf("encumbrance.sourcePoLineId==%s", lineID))
	var coll transactionCollection
	if err := s.client.GetJSON(ctx, "/finance-storage/transactions?query="+query, &coll); err != nil {
		return nil, err
	}
	return coll.Transactions, nil
}

// CreateSummary declares a new transaction batch for an order.
func (s *FinanceStore) CreateSummary(ctx context.Context, orderID string, count int) error {
	body := transactionSummary{ID: orderID, NumberOfTransactions: count}
	return s.client.PostJSON(ctx, "/finance-storage/order-transaction-summaries", body, nil)
}

// UpdateSummary re-declares the transaction batch size for an order.
func (s *FinanceStore) UpdateSummary(ctx context.Context, orderID string, count int) error {
	body := transactionSummary{ID: orderID, NumberOfTransactions: count}
	return s.client.PutJSON(ctx, "/finance-storage/order-transaction-summaries/"+orderID, body)
}

// Create stores a new encumbrance and returns its assigned id.
func (s *FinanceStore) Create(ctx context.Context, enc orders.Encumbrance) (string, error) {
	var created orders.Encumbrance
	if err := s.client.PostJSON(ctx, "/finance-storage/transactions", enc, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// Update replaces the given encumbrances.
func (s *FinanceStore) Update(ctx context.Context, encs []orders.Encumbrance) error {
	for _, enc := range encs {
		if err := s.client.PutJSON(ctx, "/finance-storage/transactions/"+enc.ID, enc); err != nil {
			return err
		}
	}
	return nil
}

// Release releases the given encumbrances.
func (s *FinanceStore) Release(ctx context.Context, encs []orders.Encumbrance) error {
	for _, enc := range encs {
		enc.Status = orders.EncumbranceReleased
		if err := s.client.PutJSON(ctx, "/finance-storage/transactions/"+enc.ID, enc); err != nil {
			return err
		}
	}
	return nil
}
