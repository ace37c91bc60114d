// Package memory provides in-memory implementations of every store and
// collaborator interface the engine consumes. They back the CLI's offline
// planning mode and the test suites; behavior mirrors the storage services,
// including id assignment and forward-only line number sequences.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
	"github.com/openacq/orderline/pkg/subobjects"
)

// Store is an in-memory acquisition storage backend.
type Store struct {
	mu sync.Mutex

	orders    map[string]*orders.PurchaseOrder
	lines     map[string]*orders.Line
	titles    map[string]*orders.Title // by line id
	pieces    map[string]orders.Piece
	subs      map[subobjects.Kind]map[string]any
	sequences map[string]int // next line number per order
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		orders: make(map[string]*orders.PurchaseOrder),
		lines:  make(map[string]*orders.Line),
		titles: make(map[string]*orders.Title),
		pieces: make(map[string]orders.Piece),
		subs: map[subobjects.Kind]map[string]any{
			subobjects.KindAlerts:         make(map[string]any),
			subobjects.KindReportingCodes: make(map[string]any),
		},
		sequences: make(map[string]int),
	}
}

// PutOrder seeds or replaces a purchase order.
func (s *Store) PutOrder(order *orders.PurchaseOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
}

// PutTitle seeds or replaces the title of a line.
func (s *Store) PutTitle(title *orders.Title) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles[title.PoLineID] = title
}

// SeedLine stores a line summary directly, bypassing the create pipeline.
func (s *Store) SeedLine(line *orders.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *line
	s.lines[line.ID] = &copied
}

// SeedPiece stores a piece directly.
func (s *Store) SeedPiece(piece orders.Piece) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if piece.ID == "" {
		piece.ID = uuid.NewString()
	}
	s.pieces[piece.ID] = piece
}

// Get returns the stored line summary.
func (s *Store) Get(_ context.Context, id string) (*orders.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.lines[id]
	if !ok {
		return nil, errors.NewNotFoundError("line", id)
	}
	copied := *line
	return &copied, nil
}

// ByOrder returns the line summaries attached to an order.
func (s *Store) ByOrder(ctx context.Context, orderID string) ([]*orders.Line, error) {
	return s.Query(ctx, "purchaseOrderId=="+orderID, 0, 0)
}

// Query returns the line summaries matching a CQL-like filter, sorted by line
// number and bounded by limit and offset. The evaluator covers the subset the
// engine issues, field==value terms joined by " and ".
func (s *Store) Query(_ context.Context, filter string, limit, offset int) ([]*orders.Line, error) {
	terms, err := parseLineFilter(filter)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	var list []*orders.Line
	for _, line := range s.lines {
		if matchesLine(line, terms) {
			copied := *line
			list = append(list, &copied)
		}
	}
	s.mu.Unlock()

	orders.SortByLineNumber(list)
	if offset >= len(list) {
		return nil, nil
	}
	list = list[offset:]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

type lineFilterTerm struct {
	field string
	value string
}

func parseLineFilter(filter string) ([]lineFilterTerm, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}
	var terms []lineFilterTerm
	for _, clause := range strings.Split(filter, " and ") {
		field, value, ok := strings.Cut(clause, "==")
		if !ok {
			return nil, errors.NewValidationError("query", clause, "malformed filter term")
		}
		terms = append(terms, lineFilterTerm{
			field: strings.TrimSpace(field),
			value: strings.Trim(strings.TrimSpace(value), `"`),
		})
	}
	return terms, nil
}

func matchesLine(line *orders.Line, terms []lineFilterTerm) bool {
	for _, term := range terms {
		var got string
		switch term.field {
		case "id":
			got = line.ID
		case "purchaseOrderId":
			got = line.PurchaseOrderID
		case "poLineNumber":
			got = line.LineNumber
		case "orderFormat":
			got = string(line.OrderFormat)
		case "acquisitionMethod":
			got = line.AcquisitionMethod
		case "receiptStatus":
			got = string(line.ReceiptStatus)
		case "paymentStatus":
			got = string(line.PaymentStatus)
		default:
			return false
		}
		if got != term.value {
			return false
		}
	}
	return true
}

// Create stores a new line summary.
func (s *Store) Create(_ context.Context, line *orders.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lines[line.ID]; exists {
		return fmt.Errorf("line %s already exists", line.ID)
	}
	copied := *line
	s.lines[line.ID] = &copied
	return nil
}

// Put replaces the stored line summary.
func (s *Store) Put(_ context.Context, line *orders.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[line.ID]; !ok {
		return errors.NewNotFoundError("line", line.ID)
	}
	copied := *line
	s.lines[line.ID] = &copied
	return nil
}

// Delete removes the stored line summary.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[id]; !ok {
		return errors.NewNotFoundError("line", id)
	}
	delete(s.lines, id)
	return nil
}

// NextLineNumber reserves the next line sequence number for an order.
// Sequences only move forward, deleted lines do not return their numbers.
func (s *Store) NextLineNumber(_ context.Context, orderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[orderID]++
	return s.sequences[orderID], nil
}

// GetOrder returns the stored purchase order. Named to avoid colliding with
// the line Get; wrap it with Orders to satisfy the order store interface.
func (s *Store) GetOrder(_ context.Context, id string) (*orders.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, errors.NewNotFoundError("order", id)
	}
	copied := *order
	return &copied, nil
}

// Orders adapts the Store to the order store interface.
func (s *Store) Orders() *OrderReader { return &OrderReader{store: s} }

// OrderReader reads purchase orders from a Store.
type OrderReader struct {
	store *Store
}

// Get returns the stored purchase order.
func (r *OrderReader) Get(ctx context.Context, id string) (*orders.PurchaseOrder, error) {
	return r.store.GetOrder(ctx, id)
}

// Titles adapts the Store to the title store interface.
func (s *Store) Titles() *TitleReader { return &TitleReader{store: s} }

// TitleReader reads titles from a Store.
type TitleReader struct {
	store *Store
}

// ByLine returns the title attached to a line.
func (r *TitleReader) ByLine(_ context.Context, lineID string) (*orders.Title, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	title, ok := r.store.titles[lineID]
	if !ok {
		return nil, errors.NewNotFoundError("title", lineID)
	}
	copied := *title
	return &copied, nil
}

// Pieces adapts the Store to the piece store interface.
func (s *Store) Pieces() *PieceAccess { return &PieceAccess{store: s} }

// PieceAccess reads and creates pieces in a Store.
type PieceAccess struct {
	store *Store
}

// ByLine returns the pieces stored for a line, up to limit.
func (p *PieceAccess) ByLine(_ context.Context, lineID string, limit int) ([]orders.Piece, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	var list []orders.Piece
	for _, piece := range p.store.pieces {
		if piece.PoLineID != lineID {
			continue
		}
		list = append(list, piece)
		if len(list) == limit {
			break
		}
	}
	return list, nil
}

// Create stores a new piece and returns its assigned id.
func (p *PieceAccess) Create(_ context.Context, piece orders.Piece) (string, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	if piece.ID == "" {
		piece.ID = uuid.NewString()
	}
	p.store.pieces[piece.ID] = piece
	return piece.ID, nil
}

// SubObjects adapts the Store to the sub-object store interface.
func (s *Store) SubObjects() *SubObjectAccess { return &SubObjectAccess{store: s} }

// SubObjectAccess reads and writes sub-objects in a Store.
type SubObjectAccess struct {
	store *Store
}

// Create stores a new sub-object and returns its assigned id.
func (a *SubObjectAccess) Create(_ context.Context, kind subobjects.Kind, body any) (string, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	id := uuid.NewString()
	a.store.subs[kind][id] = body
	return id, nil
}

// Update replaces the sub-object stored under id.
func (a *SubObjectAccess) Update(_ context.Context, kind subobjects.Kind, id string, body any) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	if _, ok := a.store.subs[kind][id]; !ok {
		return errors.NewNotFoundError(kind.String(), id)
	}
	a.store.subs[kind][id] = body
	return nil
}

// Delete removes the sub-object stored under id.
func (a *SubObjectAccess) Delete(_ context.Context, kind subobjects.Kind, id string) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	if _, ok := a.store.subs[kind][id]; !ok {
		return errors.NewNotFoundError(kind.String(), id)
	}
	delete(a.store.subs[kind], id)
	return nil
}

// SubObjectCount returns how many sub-objects of a kind are stored.
func (s *Store) SubObjectCount(kind subobjects.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[kind])
}

// PieceCount returns how many pieces are stored for a line.
func (s *Store) PieceCount(lineID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, piece := range s.pieces {
		if piece.PoLineID == lineID {
			n++
		}
	}
	return n
}
