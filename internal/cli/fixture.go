package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/openacq/orderline/internal/remote/memory"
	"github.com/openacq/orderline/pkg/encumbrance"
	"github.com/openacq/orderline/pkg/lines"
	"github.com/openacq/orderline/pkg/orders"
	"github.com/openacq/orderline/pkg/pieces"
	"github.com/openacq/orderline/pkg/subobjects"
)

// Fixture is the YAML input the CLI operates on: the parent order, the
// desired line, and optionally the stored state to reconcile against.
type Fixture struct {
	Order        *orders.PurchaseOrder `yaml:"order"`
	Line         *orders.Line          `yaml:"line"`
	Stored       *orders.Line          `yaml:"stored,omitempty"`
	Title        *orders.Title         `yaml:"title,omitempty"`
	Pieces       []orders.Piece        `yaml:"pieces,omitempty"`
	Encumbrances []orders.Encumbrance  `yaml:"encumbrances,omitempty"`
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	if f.Order == nil {
		return nil, fmt.Errorf("fixture %s has no order", path)
	}
	if f.Line == nil {
		return nil, fmt.Errorf("fixture %s has no line", path)
	}
	return &f, nil
}

// environment is a fully wired offline engine seeded from a fixture.
type environment struct {
	store       *memory.Store
	ledger      *memory.Ledger
	inventory   *memory.Inventory
	coordinator *lines.Coordinator
}

// newEnvironment seeds in-memory stores from the fixture and wires a full
// coordinator over them.
func newEnvironment(f *Fixture) *environment {
	store := memory.NewStore()
	ledger := memory.NewLedger()
	inventory := memory.NewInventory()

	store.PutOrder(f.Order)
	if f.Stored != nil {
		store.SeedLine(f.Stored)
	}
	if f.Title != nil {
		store.PutTitle(f.Title)
	}
	for _, p := range f.Pieces {
		store.SeedPiece(p)
	}
	for _, enc := range f.Encumbrances {
		ledger.Seed(enc)
	}

	coordinator := lines.New(store, store.Orders(),
		lines.WithTitles(store.Titles()),
		lines.WithSubObjects(subobjects.New(store.SubObjects())),
		lines.WithPieces(pieces.New(store.Pieces(), inventory)),
		lines.WithEncumbrances(encumbrance.New(ledger, store)),
		lines.WithCatalog(memory.Catalog{}),
	)
	return &environment{
		store:       store,
		ledger:      ledger,
		inventory:   inventory,
		coordinator: coordinator,
	}
}
