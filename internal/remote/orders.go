package remote

import (
	"context"
	"fmt"
	"net/url"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
	"github.com/openacq/orderline/pkg/subobjects"
)

// LineStore implements the line coordinator's Store over the order storage
// service.
type LineStore struct {
	client *Client
}

// NewLineStore creates a LineStore.
func NewLineStore(client *Client) *LineStore {
	return &LineStore{client: client}
}

type lineCollection struct {
	PoLines      []*orders.Line `json:"poLines"`
	TotalRecords int            `json:"totalRecords"`
}

// Get returns the stored line summary.
func (s *LineStore) Get(ctx context.Context, id string) (*orders.Line, error) {
	var line orders.Line
	if err := s.client.GetJSON(ctx, "/orders-storage/po-lines/"+id, &line); err != nil {
		return nil, err
	}
	return &line, nil
}

// defaultLineLimit caps unbounded line queries the way the storage service
// default would.
const defaultLineLimit = 1000

// Query returns the line summaries matching a CQL filter, bounded by limit
// and offset. The filter goes to storage as-is; an empty filter matches every
// line.
func (s *LineStore) Query(ctx context.Context, filter string, limit, offset int) ([]*orders.Line, error) {
	if limit <= 0 {
		limit = defaultLineLimit
	}
	path := fmt.Sprintf("/orders-storage/po-lines?limit=%d&offset=%d", limit, offset)
	if filter != "" {
		path += "&query=" + url.QueryEscape(filter)
	}
	var coll lineCollection
	if err := s.client.GetJSON(ctx, path, &coll); err != nil {
		return nil, err
	}
	return coll.PoLines, nil
}

// ByOrder returns the line summaries attached to an order.
func (s *LineStore) ByOrder(ctx context.Context, orderID string) ([]*orders.Line, error) {
	return s.Query(ctx, fmt.Sprintf("purchaseOrderId==%s", orderID), defaultLineLimit, 0)
}

// Create stores a new line summary.
func (s *LineStore) Create(ctx context.Context, line *orders.Line) error {
	return s.client.PostJSON(ctx, "/orders-storage/po-lines", summary(line), nil)
}

// Put replaces the stored line summary.
func (s *LineStore) Put(ctx context.Context, line *orders.Line) error {
	return s.client.PutJSON(ctx, "/orders-storage/po-lines/"+line.ID, summary(line))
}

// Delete removes the stored line summary.
func (s *LineStore) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/orders-storage/po-lines/"+id)
}

type lineNumberResponse struct {
	SequenceNumber int `json:"sequenceNumber,string"`
}

// NextLineNumber reserves the next line sequence number for an order. The
// storage sequence only moves forward, so numbers never repeat.
func (s *LineStore) NextLineNumber(ctx context.Context, orderID string) (int, error) {
	var resp lineNumberResponse
	path := "/orders-storage/po-line-number?purchaseOrderId=" + url.QueryEscape(orderID)
	if err := s.client.GetJSON(ctx, path, &resp); err != nil {
		return 0, err
	}
	return resp.SequenceNumber, nil
}

// summary strips the composite content before the line goes to storage. The
// stored record references sub-objects by id only.
func summary(line *orders.Line) *orders.Line {
	stored := *line
	stored.Alerts = nil
	stored.ReportingCodes = nil
	return &stored
}

// OrderStore reads purchase orders from the order storage service.
type OrderStore struct {
	client *Client
}

// NewOrderStore creates an OrderStore.
func NewOrderStore(client *Client) *OrderStore {
	return &OrderStore{client: client}
}

// Get returns the stored purchase order.
func (s *OrderStore) Get(ctx context.Context, id string) (*orders.PurchaseOrder, error) {
	var order orders.PurchaseOrder
	if err := s.client.GetJSON(ctx, "/orders-storage/purchase-orders/"+id, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// TitleStore reads titles from the order storage service.
type TitleStore struct {
	client *Client
}

// NewTitleStore creates a TitleStore.
func NewTitleStore(client *Client) *TitleStore {
	return &TitleStore{client: client}
}

type titleCollection struct {
	Titles       []orders.Title `json:"titles"`
	TotalRecords int            `json:"totalRecords"`
}

// ByLine returns the title attached to a line.
func (s *TitleStore) ByLine(ctx context.Context, lineID string) (*orders.Title, error) {
	query := url.QueryEscape(fmt.Sprintf("poLineId==%s", lineID))
	var coll titleCollection
	if err := s.client.GetJSON(ctx, "/orders-storage/titles?query="+query, &coll); err != nil {
		return nil, err
	}
	if len(coll.Titles) == 0 {
		return nil, errors.NewNotFoundError("title", lineID)
	}
	return &coll.Titles[0], nil
}

// PieceStore implements the piece reconciler's Store over the order storage
// service.
type PieceStore struct {
	client *Client
}

// NewPieceStore creates a PieceStore.
func NewPieceStore(client *Client) *PieceStore {
	return &PieceStore{client: client}
}

type pieceCollection struct {
	Pieces       []orders.Piece `json:"pieces"`
	TotalRecords int            `json:"totalRecords"`
}

// ByLine returns the pieces stored for a line, up to limit.
func (s *PieceStore) ByLine(ctx context.Context, lineID string, limit int) ([]orders.Piece, error) {
	query := url.QueryEscape(fmt.Sprintf("poLineId==%s", lineID))
	path := fmt.Sprintf("/orders-storage/pieces?limit=%d&query=%s", limit, query)
	var coll pieceCollection
	if err := s.client.GetJSON(ctx, path, &coll); err != nil {
		return nil, err
	}
	return coll.Pieces, nil
}

// Create stores a new piece and returns its assigned id.
func (s *PieceStore) Create(ctx context.Context, piece orders.Piece) (string, error) {
	var created orders.Piece
	if err := s.client.PostJSON(ctx, "/orders-storage/pieces", piece, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// SubObjectStore implements the sub-object reconciler's Store over the order
// storage service. Each kind maps to its own collection endpoint.
type SubObjectStore struct {
	client *Client
}

// NewSubObjectStore creates a SubObjectStore.
func NewSubObjectStore(client *Client) *SubObjectStore {
	return &SubObjectStore{client: client}
}

func subObjectPath(kind subobjects.Kind) string {
	switch kind {
	case subobjects.KindReportingCodes:
		return "/orders-storage/reporting-codes"
	default:
		return "/orders-storage/alerts"
	}
}

type createdSubObject struct {
	ID string `json:"id"`
}

// Create stores a new sub-object and returns its assigned id.
func (s *SubObjectStore) Create(ctx context.Context, kind subobjects.Kind, body any) (string, error) {
	var created createdSubObject
	if err := s.client.PostJSON(ctx, subObjectPath(kind), body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// Update replaces the sub-object stored under id.
func (s *SubObjectStore) Update(ctx context.Context, kind subobjects.Kind, id string, body any) error {
	return s.client.PutJSON(ctx, subObjectPath(kind)+"/"+id, body)
}

// Delete removes the sub-object stored under id.
func (s *SubObjectStore) Delete(ctx context.Context, kind subobjects.Kind, id string) error {
	return s.client.Delete(ctx, subObjectPath(kind)+"/"+id)
}
