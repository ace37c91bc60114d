// Package orders defines the purchase order and order line data model along
// with the derived-quantity calculations the reconciliation engine is built
// on. Entities owned by remote stores (pieces, encumbrances, titles,
// sub-objects) are represented as plain records; the engine never assumes
// exclusive access to them.
package orders

import "github.com/agentstation/utc"

// WorkflowStatus represents the workflow state of a purchase order.
type WorkflowStatus string

// String returns the string representation of a WorkflowStatus.
func (s WorkflowStatus) String() string {
	return string(s)
}

// Purchase order workflow states.
const (
	WorkflowPending WorkflowStatus = "Pending"
	WorkflowOpen    WorkflowStatus = "Open"
	WorkflowClosed  WorkflowStatus = "Closed"
)

// ReceiptStatus represents the receiving state of an order line.
type ReceiptStatus string

// String returns the string representation of a ReceiptStatus.
func (s ReceiptStatus) String() string {
	return string(s)
}

// Order line receipt states.
const (
	ReceiptAwaiting          ReceiptStatus = "Awaiting Receipt"
	ReceiptNotRequired       ReceiptStatus = "Receipt Not Required"
	ReceiptPending           ReceiptStatus = "Pending"
	ReceiptPartiallyReceived ReceiptStatus = "Partially Received"
	ReceiptFullyReceived     ReceiptStatus = "Fully Received"
)

// PaymentStatus represents the payment state of an order line.
type PaymentStatus string

// String returns the string representation of a PaymentStatus.
func (s PaymentStatus) String() string {
	return string(s)
}

// Order line payment states.
const (
	PaymentAwaiting        PaymentStatus = "Awaiting Payment"
	PaymentNotRequired     PaymentStatus = "Payment Not Required"
	PaymentPending         PaymentStatus = "Pending"
	PaymentPartiallyPaid   PaymentStatus = "Partially Paid"
	PaymentFullyPaid       PaymentStatus = "Fully Paid"
)

// OrderFormat describes which material formats a line orders.
type OrderFormat string

// String returns the string representation of an OrderFormat.
func (f OrderFormat) String() string {
	return string(f)
}

// Order line formats.
const (
	FormatPhysical   OrderFormat = "Physical Resource"
	FormatElectronic OrderFormat = "Electronic Resource"
	FormatPEMix      OrderFormat = "P/E Mix"
	FormatOther      OrderFormat = "Other"
)

// PieceFormat describes the format of a single receivable piece.
type PieceFormat string

// String returns the string representation of a PieceFormat.
func (f PieceFormat) String() string {
	return string(f)
}

// Piece formats.
const (
	PiecePhysical   PieceFormat = "Physical"
	PieceElectronic PieceFormat = "Electronic"
	PieceOther      PieceFormat = "Other"
)

// DistributionType describes how a fund distribution value is interpreted.
type DistributionType string

// Fund distribution value types.
const (
	DistributionPercentage DistributionType = "percentage"
	DistributionAmount     DistributionType = "amount"
)

// CreateInventory controls which inventory records are created for a format.
type CreateInventory string

// String returns the string representation of a CreateInventory mode.
func (c CreateInventory) String() string {
	return string(c)
}

// Inventory creation modes.
const (
	InventoryNone                CreateInventory = "None"
	InventoryInstance            CreateInventory = "Instance"
	InventoryInstanceHolding     CreateInventory = "Instance, Holding"
	InventoryInstanceHoldingItem CreateInventory = "Instance, Holding, Item"
)

// CreatesItems reports whether this mode produces inventory item records.
func (c CreateInventory) CreatesItems() bool {
	return c == InventoryInstanceHoldingItem
}

// CreatesHoldings reports whether this mode produces holdings records.
// Pieces for formats without holdings carry no location reference.
func (c CreateInventory) CreatesHoldings() bool {
	return c == InventoryInstanceHolding || c == InventoryInstanceHoldingItem
}

// PurchaseOrder represents the parent order of a line, as fetched from the
// order store. Only the fields the reconciliation engine consults are kept.
type PurchaseOrder struct {
	ID             string         `json:"id" yaml:"id"`
	PoNumber       string         `json:"poNumber" yaml:"poNumber"`
	WorkflowStatus WorkflowStatus `json:"workflowStatus" yaml:"workflowStatus"`
	AcqUnitIDs     []string       `json:"acqUnitIds,omitempty" yaml:"acqUnitIds,omitempty"`
}

// Line represents a composite purchase order line: the line record plus the
// content of its attached sub-objects. The stored summary keeps only the
// sub-object id lists; the content lives in the sub-object stores.
type Line struct {
	ID              string      `json:"id,omitempty" yaml:"id,omitempty"`
	PurchaseOrderID string      `json:"purchaseOrderId" yaml:"purchaseOrderId"`
	LineNumber      string      `json:"poLineNumber,omitempty" yaml:"poLineNumber,omitempty"`
	TitleOrPackage  string      `json:"titleOrPackage,omitempty" yaml:"titleOrPackage,omitempty"`
	OrderFormat     OrderFormat `json:"orderFormat" yaml:"orderFormat"`
	Source          string      `json:"source,omitempty" yaml:"source,omitempty"`

	AcquisitionMethod string `json:"acquisitionMethod,omitempty" yaml:"acquisitionMethod,omitempty"`

	Cost              Cost               `json:"cost" yaml:"cost"`
	Locations         []Location         `json:"locations,omitempty" yaml:"locations,omitempty"`
	FundDistributions []FundDistribution `json:"fundDistribution,omitempty" yaml:"fundDistribution,omitempty"`

	Physical  *Physical  `json:"physical,omitempty" yaml:"physical,omitempty"`
	Eresource *Eresource `json:"eresource,omitempty" yaml:"eresource,omitempty"`
	Details   *Details   `json:"details,omitempty" yaml:"details,omitempty"`

	ReceiptStatus ReceiptStatus `json:"receiptStatus,omitempty" yaml:"receiptStatus,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty" yaml:"paymentStatus,omitempty"`

	IsPackage    bool `json:"isPackage" yaml:"isPackage"`
	CheckinItems bool `json:"checkinItems" yaml:"checkinItems"`
	Rush         bool `json:"rush,omitempty" yaml:"rush,omitempty"`

	// Composite content, reconciled against the sub-object stores.
	Alerts         []Alert         `json:"alerts,omitempty" yaml:"alerts,omitempty"`
	ReportingCodes []ReportingCode `json:"reportingCodes,omitempty" yaml:"reportingCodes,omitempty"`

	// Stored summary references, resolved during reconciliation.
	AlertIDs         []string `json:"alertIds,omitempty" yaml:"alertIds,omitempty"`
	ReportingCodeIDs []string `json:"reportingCodeIds,omitempty" yaml:"reportingCodeIds,omitempty"`

	// InstanceID links a non-package line to its inventory instance.
	InstanceID string `json:"instanceId,omitempty" yaml:"instanceId,omitempty"`

	Metadata Metadata `json:"metadata,omitzero" yaml:"metadata,omitempty"`
}

// Metadata carries the audit timestamps of a stored record. Both stamps are
// maintained server-side; client-sent values are discarded.
type Metadata struct {
	CreatedDate utc.Time `json:"createdDate" yaml:"createdDate"`
	UpdatedDate utc.Time `json:"updatedDate" yaml:"updatedDate"`
}

// Cost holds the monetary inputs of a line. EstimatedPrice is derived and
// always recomputed server-side; a nil value means it was never calculated.
type Cost struct {
	ListUnitPrice           float64      `json:"listUnitPrice,omitempty" yaml:"listUnitPrice,omitempty"`
	ListUnitPriceElectronic float64      `json:"listUnitPriceElectronic,omitempty" yaml:"listUnitPriceElectronic,omitempty"`
	QuantityPhysical        int          `json:"quantityPhysical,omitempty" yaml:"quantityPhysical,omitempty"`
	QuantityElectronic      int          `json:"quantityElectronic,omitempty" yaml:"quantityElectronic,omitempty"`
	AdditionalCost          float64      `json:"additionalCost,omitempty" yaml:"additionalCost,omitempty"`
	Discount                float64      `json:"discount,omitempty" yaml:"discount,omitempty"`
	DiscountType            DiscountType `json:"discountType,omitempty" yaml:"discountType,omitempty"`
	Currency                string       `json:"currency" yaml:"currency"`
	EstimatedPrice          *float64     `json:"poLineEstimatedPrice,omitempty" yaml:"poLineEstimatedPrice,omitempty"`
}

// DiscountType describes how a cost discount is interpreted.
type DiscountType string

// Cost discount types.
const (
	DiscountAmount     DiscountType = "amount"
	DiscountPercentage DiscountType = "percentage"
)

// Location declares how many units of a line are destined for one location.
// Quantity is derived as the sum of the physical and electronic quantities.
type Location struct {
	LocationID         string `json:"locationId" yaml:"locationId"`
	Quantity           int    `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	QuantityPhysical   int    `json:"quantityPhysical,omitempty" yaml:"quantityPhysical,omitempty"`
	QuantityElectronic int    `json:"quantityElectronic,omitempty" yaml:"quantityElectronic,omitempty"`
}

// FundDistribution assigns part of a line's estimated price to a fund.
// EncumbranceID is set only after a ledger transaction has been created.
type FundDistribution struct {
	FundID           string           `json:"fundId" yaml:"fundId"`
	Code             string           `json:"code,omitempty" yaml:"code,omitempty"`
	DistributionType DistributionType `json:"distributionType" yaml:"distributionType"`
	Value            float64          `json:"value" yaml:"value"`
	EncumbranceID    string           `json:"encumbrance,omitempty" yaml:"encumbrance,omitempty"`
}

// Physical holds the physical-format ordering details of a line.
type Physical struct {
	CreateInventory CreateInventory `json:"createInventory,omitempty" yaml:"createInventory,omitempty"`
	MaterialType    string          `json:"materialType,omitempty" yaml:"materialType,omitempty"`
}

// Eresource holds the electronic-format ordering details of a line.
type Eresource struct {
	CreateInventory CreateInventory `json:"createInventory,omitempty" yaml:"createInventory,omitempty"`
	AccessProvider  string          `json:"accessProvider,omitempty" yaml:"accessProvider,omitempty"`
	Trial           bool            `json:"trial,omitempty" yaml:"trial,omitempty"`
	UserLimit       int             `json:"userLimit,omitempty" yaml:"userLimit,omitempty"`
}

// Details holds product identifiers and related descriptive data.
type Details struct {
	ProductIDs []ProductID `json:"productIds,omitempty" yaml:"productIds,omitempty"`
}

// ProductID identifies the ordered product in an external scheme (ISBN, ISSN).
type ProductID struct {
	ProductID     string `json:"productId" yaml:"productId"`
	ProductIDType string `json:"productIdType,omitempty" yaml:"productIdType,omitempty"`
	Qualifier     string `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`
}

// Alert is a small attached record owned by the line but stored in its own
// collection; its id is assigned by the remote store on creation.
type Alert struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	Alert string `json:"alert" yaml:"alert"`
}

// ReportingCode is a small attached record used for acquisitions reporting.
type ReportingCode struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Code        string `json:"code" yaml:"code"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Piece is a single receivable unit corresponding to part of a line's
// ordered quantity. ItemID is set only when the piece is backed by an
// inventory item; LocationID only when its format creates holdings.
type Piece struct {
	ID         string      `json:"id,omitempty" yaml:"id,omitempty"`
	Format     PieceFormat `json:"format" yaml:"format"`
	PoLineID   string      `json:"poLineId" yaml:"poLineId"`
	LocationID string      `json:"locationId,omitempty" yaml:"locationId,omitempty"`
	ItemID     string      `json:"itemId,omitempty" yaml:"itemId,omitempty"`
	TitleID    string      `json:"titleId,omitempty" yaml:"titleId,omitempty"`
}

// EncumbranceStatus represents the ledger-side state of an encumbrance.
type EncumbranceStatus string

// Encumbrance states.
const (
	EncumbranceUnreleased EncumbranceStatus = "Unreleased"
	EncumbranceReleased   EncumbranceStatus = "Released"
)

// Encumbrance is a ledger transaction reserving funds against a line's
// estimated cost. Exactly one unreleased encumbrance exists per
// (line, fund distribution) pair at steady state.
type Encumbrance struct {
	ID       string            `json:"id,omitempty" yaml:"id,omitempty"`
	Amount   float64           `json:"amount" yaml:"amount"`
	Currency string            `json:"currency" yaml:"currency"`
	FundID   string            `json:"fromFundId" yaml:"fromFundId"`
	OrderID  string            `json:"sourcePurchaseOrderId" yaml:"sourcePurchaseOrderId"`
	LineID   string            `json:"sourcePoLineId" yaml:"sourcePoLineId"`
	Status   EncumbranceStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// Title links a non-package line to its inventory instance record.
type Title struct {
	ID         string `json:"id" yaml:"id"`
	PoLineID   string `json:"poLineId" yaml:"poLineId"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	InstanceID string `json:"instanceId,omitempty" yaml:"instanceId,omitempty"`
}

// InventoryDefaults carries the tenant-level default create-inventory modes
// and the per-order line limit.
type InventoryDefaults struct {
	Eresource CreateInventory `json:"eresource" yaml:"eresource"`
	Physical  CreateInventory `json:"physical" yaml:"physical"`
	Other     CreateInventory `json:"other" yaml:"other"`
	LineLimit int             `json:"poLineLimit" yaml:"poLineLimit"`
}

// MakeLinesPending downgrades awaiting statuses back to pending. Used when a
// previously opened order returns to the pending workflow state.
func MakeLinesPending(lines []*Line) {
	for _, line := range lines {
		if line.PaymentStatus == PaymentAwaiting {
			line.PaymentStatus = PaymentPending
		}
		if line.ReceiptStatus == ReceiptAwaiting {
			line.ReceiptStatus = ReceiptPending
		}
	}
}
