package orders

// The quantity calculations below partition a line's ordered units into the
// three piece populations the reconciler accounts for separately:
//
//   - pieces backed by inventory items (formats creating instance+holding+item)
//   - pieces with a location but no item (formats creating instance+holding)
//   - pieces with no location at all (formats creating no holdings)

// HasPhysical reports whether the line's format orders physical material.
// The Other format uses the physical cost and quantity fields.
func (l *Line) HasPhysical() bool {
	return l.OrderFormat != FormatElectronic
}

// HasElectronic reports whether the line's format orders electronic material.
func (l *Line) HasElectronic() bool {
	return l.OrderFormat == FormatElectronic || l.OrderFormat == FormatPEMix
}

// PhysicalPieceFormat returns the piece format used for the line's physical
// quantities. Lines in the Other order format produce Other pieces.
func (l *Line) PhysicalPieceFormat() PieceFormat {
	if l.OrderFormat == FormatOther {
		return PieceOther
	}
	return PiecePhysical
}

// PhysicalCreateInventory returns the effective create-inventory mode for the
// line's physical material, falling back to the tenant-wide default.
func (l *Line) PhysicalCreateInventory() CreateInventory {
	if l.Physical != nil && l.Physical.CreateInventory != "" {
		return l.Physical.CreateInventory
	}
	return InventoryInstanceHoldingItem
}

// EresourceCreateInventory returns the effective create-inventory mode for
// the line's electronic material, falling back to the tenant-wide default.
func (l *Line) EresourceCreateInventory() CreateInventory {
	if l.Eresource != nil && l.Eresource.CreateInventory != "" {
		return l.Eresource.CreateInventory
	}
	return InventoryInstanceHolding
}

// ReceiptRequired reports whether the line participates in receiving.
func (l *Line) ReceiptRequired() bool {
	return l.ReceiptStatus != ReceiptNotRequired
}

// TotalLocationQuantity returns the overall quantity at one location.
func TotalLocationQuantity(loc Location) int {
	return loc.QuantityPhysical + loc.QuantityElectronic
}

// UpdateLocationsQuantity recomputes each location's derived quantity as the
// sum of its physical and electronic sub-quantities.
func UpdateLocationsQuantity(locations []Location) {
	for i := range locations {
		locations[i].Quantity = TotalLocationQuantity(locations[i])
	}
}

// TotalQuantity returns the total number of units the line orders, taken
// from the cost quantities.
func TotalQuantity(l *Line) int {
	total := 0
	if l.HasPhysical() {
		total += l.Cost.QuantityPhysical
	}
	if l.HasElectronic() {
		total += l.Cost.QuantityElectronic
	}
	return total
}

// GroupLocationsByID groups the line's locations by location id.
func GroupLocationsByID(l *Line) map[string][]Location {
	grouped := make(map[string][]Location)
	for _, loc := range l.Locations {
		grouped[loc.LocationID] = append(grouped[loc.LocationID], loc)
	}
	return grouped
}

// ExpectedPiecesWithoutItem returns, per piece format, how many pieces with a
// location but no backing inventory item the given locations should hold.
// Only formats that create holdings but not items contribute.
func ExpectedPiecesWithoutItem(l *Line, locations []Location) map[PieceFormat]int {
	expected := make(map[PieceFormat]int)

	if l.HasPhysical() {
		mode := l.PhysicalCreateInventory()
		if mode.CreatesHoldings() && !mode.CreatesItems() {
			qty := 0
			for _, loc := range locations {
				qty += loc.QuantityPhysical
			}
			if qty > 0 {
				expected[l.PhysicalPieceFormat()] += qty
			}
		}
	}
	if l.HasElectronic() {
		mode := l.EresourceCreateInventory()
		if mode.CreatesHoldings() && !mode.CreatesItems() {
			qty := 0
			for _, loc := range locations {
				qty += loc.QuantityElectronic
			}
			if qty > 0 {
				expected[PieceElectronic] += qty
			}
		}
	}

	return expected
}

// ExpectedPiecesWithoutLocation returns, per piece format, how many pieces
// with no location reference the line should hold. Formats that create no
// holdings have nowhere to attach a location, so their quantities come from
// the cost fields directly.
func ExpectedPiecesWithoutLocation(l *Line) map[PieceFormat]int {
	expected := make(map[PieceFormat]int)

	if l.HasPhysical() && !l.PhysicalCreateInventory().CreatesHoldings() {
		if l.Cost.QuantityPhysical > 0 {
			expected[l.PhysicalPieceFormat()] += l.Cost.QuantityPhysical
		}
	}
	if l.HasElectronic() && !l.EresourceCreateInventory().CreatesHoldings() {
		if l.Cost.QuantityElectronic > 0 {
			expected[PieceElectronic] += l.Cost.QuantityElectronic
		}
	}

	return expected
}

// InventoryItemsQuantity returns how many inventory items the line expects
// to exist once inventory records have been created.
func InventoryItemsQuantity(l *Line) int {
	total := 0
	if l.HasPhysical() && l.PhysicalCreateInventory().CreatesItems() {
		total += l.Cost.QuantityPhysical
	}
	if l.HasElectronic() && l.EresourceCreateInventory().CreatesItems() {
		total += l.Cost.QuantityElectronic
	}
	return total
}

// InventoryUpdateNotRequired reports whether no inventory records at all are
// wanted for the line. Pieces may still be created so receiving can proceed.
func InventoryUpdateNotRequired(l *Line) bool {
	if l.HasPhysical() && l.PhysicalCreateInventory() != InventoryNone {
		return false
	}
	if l.HasElectronic() && l.EresourceCreateInventory() != InventoryNone {
		return false
	}
	return true
}
