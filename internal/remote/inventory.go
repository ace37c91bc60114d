package remote

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
)

// InventoryCatalog implements the line coordinator's Catalog over the
// inventory service. The ISBN identifier-type id is tenant-static, so it is
// resolved once and cached for the life of the store.
type InventoryCatalog struct {
	client *Client

	mu         sync.Mutex
	isbnTypeID string
}

// NewInventoryCatalog creates an InventoryCatalog.
func NewInventoryCatalog(client *Client) *InventoryCatalog {
	return &InventoryCatalog{client: client}
}

type identifierTypeCollection struct {
	IdentifierTypes []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"identifierTypes"`
	TotalRecords int `json:"totalRecords"`
}

// ISBNTypeID returns the identifier-type id the catalog uses for ISBNs.
func (c *InventoryCatalog) ISBNTypeID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isbnTypeID != "" {
		return c.isbnTypeID, nil
	}

	query := url.QueryEscape(`name=="ISBN"`)
	var coll identifierTypeCollection
	if err := c.client.GetJSON(ctx, "/identifier-types?query="+query, &coll); err != nil {
		return "", err
	}
	if len(coll.IdentifierTypes) == 0 {
		return "", errors.NewNotFoundError("identifier type", "ISBN")
	}
	c.isbnTypeID = coll.IdentifierTypes[0].ID
	return c.isbnTypeID, nil
}

type isbnConversion struct {
	ISBN string `json:"isbn"`
}

// ConvertToISBN13 normalizes an ISBN-10 or ISBN-13 value to ISBN-13.
func (c *InventoryCatalog) ConvertToISBN13(ctx context.Context, isbn string) (string, error) {
	var conv isbnConversion
	path := "/isbn/convertTo13?isbn=" + url.QueryEscape(isbn)
	if err := c.client.GetJSON(ctx, path, &conv); err != nil {
		return "", err
	}
	return conv.ISBN, nil
}

// OrganizationStore implements the line coordinator's Organizations over the
// organizations service.
type OrganizationStore struct {
	client *Client
}

// NewOrganizationStore creates an OrganizationStore.
func NewOrganizationStore(client *Client) *OrganizationStore {
	return &OrganizationStore{client: client}
}

type organization struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// IsActive reports whether the organization exists and is active.
func (s *OrganizationStore) IsActive(ctx context.Context, id string) (bool, error) {
	var org organization
	if err := s.client.GetJSON(ctx, "/organizations-storage/organizations/"+id, &org); err != nil {
		return false, err
	}
	return org.Status == "Active", nil
}

// InventoryService implements the piece reconciler's Inventory collaborator
// over the inventory storage APIs: instance, holdings and item records.
type InventoryService struct {
	client *Client
}

// NewInventoryService creates an InventoryService.
func NewInventoryService(client *Client) *InventoryService {
	return &InventoryService{client: client}
}

type instanceRecord struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

type holdingRecord struct {
	ID                  string `json:"id,omitempty"`
	InstanceID          string `json:"instanceId"`
	PermanentLocationID string `json:"permanentLocationId"`
}

type holdingCollection struct {
	HoldingsRecords []holdingRecord `json:"holdingsRecords"`
	TotalRecords    int             `json:"totalRecords"`
}

type itemRecord struct {
	ID               string     `json:"id,omitempty"`
	HoldingsRecordID string     `json:"holdingsRecordId"`
	MaterialTypeID   string     `json:"materialTypeId,omitempty"`
	Status           itemStatus `json:"status"`
}

type itemStatus struct {
	Name string `json:"name"`
}

// HandleInstance ensures the instance record for the line exists, creating
// one from the line title when the line carries no instance reference yet.
func (s *InventoryService) HandleInstance(ctx context.Context, line *orders.Line) error {
	if line.InstanceID != "" {
		var inst instanceRecord
		return s.client.GetJSON(ctx, "/instance-storage/instances/"+line.InstanceID, &inst)
	}

	var created instanceRecord
	in := instanceRecord{Title: line.TitleOrPackage, Source: "FOLIO"}
	if err := s.client.PostJSON(ctx, "/instance-storage/instances", in, &created); err != nil {
		return err
	}
	line.InstanceID = created.ID
	return nil
}

// HandleHoldingsAndItems ensures a holding per declared location and creates
// item records for every unit of item-creating quantity. The returned pieces
// carry the created item ids so the reconciler can match them to storage.
func (s *InventoryService) HandleHoldingsAndItems(ctx context.Context, line *orders.Line) ([]orders.Piece, error) {
	var created []orders.Piece
	for _, loc := range line.Locations {
		physical := line.HasPhysical() && line.PhysicalCreateInventory().CreatesItems()
		electronic := line.HasElectronic() && line.EresourceCreateInventory().CreatesItems()
		if !physical && !electronic {
			continue
		}

		holdingID, err := s.ensureHolding(ctx, line.InstanceID, loc.LocationID)
		if err != nil {
			return created, err
		}

		if physical {
			materialType := ""
			if line.Physical != nil {
				materialType = line.Physical.MaterialType
			}
			for i := 0; i < loc.QuantityPhysical; i++ {
				itemID, err := s.createItem(ctx, holdingID, materialType)
				if err != nil {
					return created, err
				}
				created = append(created, orders.Piece{
					Format:     line.PhysicalPieceFormat(),
					PoLineID:   line.ID,
					LocationID: loc.LocationID,
					ItemID:     itemID,
				})
			}
		}
		if electronic {
			for i := 0; i < loc.QuantityElectronic; i++ {
				itemID, err := s.createItem(ctx, holdingID, "")
				if err != nil {
					return created, err
				}
				created = append(created, orders.Piece{
					Format:     orders.PieceElectronic,
					PoLineID:   line.ID,
					LocationID: loc.LocationID,
					ItemID:     itemID,
				})
			}
		}
	}
	return created, nil
}

// ensureHolding finds or creates the holding linking an instance to a
// location.
func (s *InventoryService) ensureHolding(ctx context.Context, instanceID, locationID string) (string, error) {
	query := url.QueryEscape(fmt.Sprintf("instanceId==%s and permanentLocationId==%s", instanceID, locationID))
	var coll holdingCollection
	if err := s.client.GetJSON(ctx, "/holdings-storage/holdings?query="+query, &coll); err != nil {
		return "", err
	}
	if len(coll.HoldingsRecords) > 0 {
		return coll.HoldingsRecords[0].ID, nil
	}

	var holding holdingRecord
	in := holdingRecord{InstanceID: instanceID, PermanentLocationID: locationID}
	if err := s.client.PostJSON(ctx, "/holdings-storage/holdings", in, &holding); err != nil {
		return "", err
	}
	return holding.ID, nil
}

// createItem creates an on-order item under a holding.
func (s *InventoryService) createItem(ctx context.Context, holdingID, materialTypeID string) (string, error) {
	var item itemRecord
	in := itemRecord{
		HoldingsRecordID: holdingID,
		MaterialTypeID:   materialTypeID,
		Status:           itemStatus{Name: "On order"},
	}
	if err := s.client.PostJSON(ctx, "/item-storage/items", in, &item); err != nil {
		return "", err
	}
	return item.ID, nil
}
