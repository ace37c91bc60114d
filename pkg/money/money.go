// Package money implements the monetary calculations of the reconciliation
// engine: derived estimated prices and the exact-total validation of a
// line's fund distributions. All arithmetic that feeds an equality check is
// done on integer minor units of the line's currency, so the zero-remainder
// rule is strict rather than tolerance-based.
package money

import (
	"math"

	"golang.org/x/text/currency"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
)

// Scale returns the number of minor-unit digits for an ISO 4217 currency.
func Scale(code string) (int, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 0, errors.NewValidationError("currency", code, "unknown currency code")
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale, nil
}

// toMinor converts an amount to integer minor units with currency-correct
// rounding (round half away from zero).
func toMinor(amount float64, scale int) int64 {
	return int64(math.Round(amount * math.Pow10(scale)))
}

// fromMinor converts integer minor units back to a major-unit amount.
func fromMinor(minor int64, scale int) float64 {
	return float64(minor) / math.Pow10(scale)
}

// EstimatedPrice computes a line's estimated price from its cost inputs:
// unit prices times quantities, plus additional cost, minus the discount.
// The result is rounded to the currency's minor unit.
func EstimatedPrice(cost *orders.Cost) (float64, error) {
	scale, err := Scale(cost.Currency)
	if err != nil {
		return 0, err
	}

	subtotal := cost.ListUnitPrice*float64(cost.QuantityPhysical) +
		cost.ListUnitPriceElectronic*float64(cost.QuantityElectronic)

	discount := cost.Discount
	if cost.DiscountType == orders.DiscountPercentage {
		discount = subtotal * cost.Discount / 100
	}

	total := subtotal + cost.AdditionalCost - discount
	return fromMinor(toMinor(total, scale), scale), nil
}

// UpdateEstimatedPrice recomputes and stores the line's estimated price.
// The caller-provided value is never trusted.
func UpdateEstimatedPrice(line *orders.Line) error {
	price, err := EstimatedPrice(&line.Cost)
	if err != nil {
		return err
	}
	line.Cost.EstimatedPrice = &price
	return nil
}

// DistributionAmount converts one fund distribution to a monetary amount in
// the line's currency. Percentage distributions are converted against the
// estimated price with currency-correct rounding.
func DistributionAmount(cost *orders.Cost, fd orders.FundDistribution) (float64, error) {
	scale, err := Scale(cost.Currency)
	if err != nil {
		return 0, err
	}
	var estimated float64
	if cost.EstimatedPrice != nil {
		estimated = *cost.EstimatedPrice
	}
	return fromMinor(distributionMinor(toMinor(estimated, scale), fd, scale), scale), nil
}

// distributionMinor converts one distribution to minor units.
func distributionMinor(estimatedMinor int64, fd orders.FundDistribution, scale int) int64 {
	if fd.DistributionType == orders.DistributionPercentage {
		return int64(math.Round(float64(estimatedMinor) * fd.Value / 100))
	}
	return toMinor(fd.Value, scale)
}

// ValidateFundDistributions verifies that a line's fund distributions sum
// exactly to its estimated price. Validation is skipped entirely when the
// line has no distributions or no estimated price. A non-zero remainder, in
// either direction, fails with a FundDistributionError.
func ValidateFundDistributions(lineID string, cost *orders.Cost, distributions []orders.FundDistribution) error {
	if len(distributions) == 0 || cost.EstimatedPrice == nil {
		return nil
	}

	scale, err := Scale(cost.Currency)
	if err != nil {
		return err
	}

	remaining := toMinor(*cost.EstimatedPrice, scale)
	for _, fd := range distributions {
		remaining -= distributionMinor(toMinor(*cost.EstimatedPrice, scale), fd, scale)
	}

	if remaining != 0 {
		return &errors.FundDistributionError{
			LineID:    lineID,
			Currency:  cost.Currency,
			Remaining: remaining,
		}
	}
	return nil
}
