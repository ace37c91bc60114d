package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacq/orderline/pkg/errors"
)

func validBaseLine() *Line {
	return &Line{
		PurchaseOrderID: "o1",
		OrderFormat:     FormatPhysical,
		Cost:            Cost{Currency: "USD", ListUnitPrice: 10, QuantityPhysical: 2},
		Locations: []Location{
			{LocationID: "loc-1", QuantityPhysical: 2},
		},
	}
}

func TestValidateLineOK(t *testing.T) {
	assert.Empty(t, ValidateLine(validBaseLine()))
}

func TestValidateLineCollectsAllFindings(t *testing.T) {
	line := &Line{
		OrderFormat: FormatPhysical,
		Cost:        Cost{ListUnitPrice: -1},
	}
	errs := ValidateLine(line)
	// Missing order id, missing currency, negative price, zero quantity.
	require.Len(t, errs, 4)
	assert.True(t, errors.Is(errs[0], errors.ErrMissingOrderID))
}

func TestValidateLineLocationTotals(t *testing.T) {
	line := validBaseLine()
	line.Locations[0].QuantityPhysical = 1

	errs := ValidateLine(line)
	require.Len(t, errs, 1)
	assert.True(t, errors.IsValidation(errs[0]))
}

func TestValidateLineFormatCoherence(t *testing.T) {
	electronic := &Line{
		PurchaseOrderID: "o1",
		OrderFormat:     FormatElectronic,
		Cost:            Cost{Currency: "USD", QuantityPhysical: 1, QuantityElectronic: 1},
	}
	errs := ValidateLine(electronic)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "physical quantity")

	physical := &Line{
		PurchaseOrderID: "o1",
		OrderFormat:     FormatPhysical,
		Cost:            Cost{Currency: "USD", QuantityPhysical: 1, QuantityElectronic: 1},
	}
	errs = ValidateLine(physical)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "electronic quantity")
}

func TestValidateLinePackageSkipsQuantityCheck(t *testing.T) {
	pkg := &Line{
		PurchaseOrderID: "o1",
		OrderFormat:     FormatPhysical,
		IsPackage:       true,
		Cost:            Cost{Currency: "USD"},
	}
	assert.Empty(t, ValidateLine(pkg))
}

func TestMakeLinesPending(t *testing.T) {
	lines := []*Line{
		{ReceiptStatus: ReceiptAwaiting, PaymentStatus: PaymentAwaiting},
		{ReceiptStatus: ReceiptFullyReceived, PaymentStatus: PaymentFullyPaid},
	}
	MakeLinesPending(lines)

	assert.Equal(t, ReceiptPending, lines[0].ReceiptStatus)
	assert.Equal(t, PaymentPending, lines[0].PaymentStatus)
	// Progressed statuses are left alone.
	assert.Equal(t, ReceiptFullyReceived, lines[1].ReceiptStatus)
	assert.Equal(t, PaymentFullyPaid, lines[1].PaymentStatus)
}
