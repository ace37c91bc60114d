package orders

import (
	"fmt"

	"github.com/openacq/orderline/pkg/errors"
)

// ValidateLine performs the static checks a line must pass before any remote
// call is made. It returns every problem found rather than stopping at the
// first one.
func ValidateLine(l *Line) []error {
	var errs []error

	if l.PurchaseOrderID == "" {
		errs = append(errs, errors.ErrMissingOrderID)
	}

	if l.Cost.Currency == "" {
		errs = append(errs, errors.NewValidationError("cost.currency", "", "currency is required"))
	}
	if l.Cost.ListUnitPrice < 0 || l.Cost.ListUnitPriceElectronic < 0 {
		errs = append(errs, errors.NewValidationError("cost", nil, "unit prices must not be negative"))
	}

	if !l.IsPackage && TotalQuantity(l) == 0 {
		errs = append(errs, errors.NewValidationError("cost", nil, "at least one unit must be ordered"))
	}

	errs = append(errs, validateLocationQuantities(l)...)

	if l.HasElectronic() && !l.HasPhysical() && l.Cost.QuantityPhysical > 0 {
		errs = append(errs, errors.NewValidationError("cost.quantityPhysical",
			l.Cost.QuantityPhysical, "physical quantity not allowed for electronic format"))
	}
	if !l.HasElectronic() && l.Cost.QuantityElectronic > 0 {
		errs = append(errs, errors.NewValidationError("cost.quantityElectronic",
			l.Cost.QuantityElectronic, "electronic quantity not allowed for this format"))
	}

	return errs
}

// validateLocationQuantities checks that declared location quantities add up
// to the cost quantities, per applicable format.
func validateLocationQuantities(l *Line) []error {
	if len(l.Locations) == 0 {
		return nil
	}

	var errs []error
	physical, electronic := 0, 0
	for _, loc := range l.Locations {
		physical += loc.QuantityPhysical
		electronic += loc.QuantityElectronic
	}

	if l.HasPhysical() && physical != l.Cost.QuantityPhysical {
		errs = append(errs, errors.NewValidationError("locations", physical,
			fmt.Sprintf("physical location quantities total %d but cost declares %d", physical, l.Cost.QuantityPhysical)))
	}
	if l.HasElectronic() && electronic != l.Cost.QuantityElectronic {
		errs = append(errs, errors.NewValidationError("locations", electronic,
			fmt.Sprintf("electronic location quantities total %d but cost declares %d", electronic, l.Cost.QuantityElectronic)))
	}
	return errs
}
