package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacq/orderline/pkg/errors"
)

func protectedBaseLine() *Line {
	return &Line{
		ID:                "l1",
		PurchaseOrderID:   "o1",
		LineNumber:        "PO-1",
		TitleOrPackage:    "The Go Programming Language",
		OrderFormat:       FormatPhysical,
		Source:            "User",
		AcquisitionMethod: "Purchase",
		Cost:              Cost{Currency: "USD", ListUnitPrice: 10, QuantityPhysical: 1},
		Physical:          &Physical{CreateInventory: InventoryInstanceHoldingItem},
	}
}

func TestVerifyProtectedFieldsUnchanged(t *testing.T) {
	stored := protectedBaseLine()
	desired := protectedBaseLine()

	// Unprotected fields may change freely.
	desired.Cost.ListUnitPrice = 12
	desired.Rush = false

	assert.NoError(t, VerifyProtectedFields(stored, desired))
}

func TestVerifyProtectedFieldsChanged(t *testing.T) {
	stored := protectedBaseLine()
	desired := protectedBaseLine()
	desired.TitleOrPackage = "Another Title"
	desired.Cost.Currency = "EUR"
	desired.LineNumber = "PO-9"

	err := VerifyProtectedFields(stored, desired)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProtectedFields))

	var pfErr *errors.ProtectedFieldsError
	require.ErrorAs(t, err, &pfErr)
	assert.ElementsMatch(t, []string{"titleOrPackage", "cost.currency", "poLineNumber"}, pfErr.Fields)
	assert.Equal(t, "l1", pfErr.LineID)
}

func TestVerifyProtectedFieldsNestedStructures(t *testing.T) {
	stored := protectedBaseLine()
	stored.Details = &Details{ProductIDs: []ProductID{{ProductID: "9780134190440", ProductIDType: "isbn"}}}

	desired := protectedBaseLine()
	desired.Details = &Details{ProductIDs: []ProductID{{ProductID: "9999999999999", ProductIDType: "isbn"}}}

	var pfErr *errors.ProtectedFieldsError
	require.ErrorAs(t, VerifyProtectedFields(stored, desired), &pfErr)
	assert.Equal(t, []string{"details.productIds"}, pfErr.Fields)
}

func TestVerifyProtectedFieldsNilSubObject(t *testing.T) {
	stored := protectedBaseLine()
	desired := protectedBaseLine()
	desired.Physical = nil

	var pfErr *errors.ProtectedFieldsError
	require.ErrorAs(t, VerifyProtectedFields(stored, desired), &pfErr)
	assert.Equal(t, []string{"physical.createInventory"}, pfErr.Fields)
}
