package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/orders"
)

func TestScale(t *testing.T) {
	tests := []struct {
		currency string
		scale    int
	}{
		{"USD", 2},
		{"EUR", 2},
		{"JPY", 0},
		{"KWD", 3},
	}
	for _, tt := range tests {
		scale, err := Scale(tt.currency)
		require.NoError(t, err, tt.currency)
		assert.Equal(t, tt.scale, scale, tt.currency)
	}

	_, err := Scale("NOPE")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestEstimatedPrice(t *testing.T) {
	tests := []struct {
		name string
		cost orders.Cost
		want float64
	}{
		{
			name: "physical units only",
			cost: orders.Cost{Currency: "USD", ListUnitPrice: 24.99, QuantityPhysical: 2},
			want: 49.98,
		},
		{
			name: "mixed formats with additional cost",
			cost: orders.Cost{
				Currency:                "USD",
				ListUnitPrice:           10,
				QuantityPhysical:        1,
				ListUnitPriceElectronic: 15.50,
				QuantityElectronic:      2,
				AdditionalCost:          4.25,
			},
			want: 45.25,
		},
		{
			name: "amount discount",
			cost: orders.Cost{
				Currency:         "USD",
				ListUnitPrice:    50,
				QuantityPhysical: 2,
				Discount:         10,
				DiscountType:     orders.DiscountAmount,
			},
			want: 90,
		},
		{
			name: "percentage discount rounds to minor unit",
			cost: orders.Cost{
				Currency:         "USD",
				ListUnitPrice:    33.33,
				QuantityPhysical: 1,
				Discount:         10,
				DiscountType:     orders.DiscountPercentage,
			},
			want: 30.00, // 33.33 - 3.333 rounds to 30.00
		},
		{
			name: "zero-decimal currency",
			cost: orders.Cost{Currency: "JPY", ListUnitPrice: 1999.4, QuantityPhysical: 1},
			want: 1999,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EstimatedPrice(&tt.cost)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestUpdateEstimatedPriceOverwritesCallerValue(t *testing.T) {
	bogus := 999.0
	line := &orders.Line{
		Cost: orders.Cost{
			Currency:         "USD",
			ListUnitPrice:    12.50,
			QuantityPhysical: 2,
			EstimatedPrice:   &bogus,
		},
	}
	require.NoError(t, UpdateEstimatedPrice(line))
	require.NotNil(t, line.Cost.EstimatedPrice)
	assert.InDelta(t, 25.00, *line.Cost.EstimatedPrice, 1e-9)
}

func TestValidateFundDistributions(t *testing.T) {
	price := func(v float64) *float64 { return &v }

	t.Run("exact percentage split passes", func(t *testing.T) {
		cost := orders.Cost{Currency: "USD", EstimatedPrice: price(100)}
		fds := []orders.FundDistribution{
			{FundID: "a", DistributionType: orders.DistributionPercentage, Value: 33.33},
			{FundID: "b", DistributionType: orders.DistributionPercentage, Value: 33.33},
			{FundID: "c", DistributionType: orders.DistributionPercentage, Value: 33.34},
		}
		assert.NoError(t, ValidateFundDistributions("line-1", &cost, fds))
	})

	t.Run("one minor unit off fails", func(t *testing.T) {
		cost := orders.Cost{Currency: "USD", EstimatedPrice: price(100)}
		fds := []orders.FundDistribution{
			{FundID: "a", DistributionType: orders.DistributionAmount, Value: 49.99},
			{FundID: "b", DistributionType: orders.DistributionAmount, Value: 50.00},
		}
		err := ValidateFundDistributions("line-1", &cost, fds)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))

		var fdErr *errors.FundDistributionError
		require.ErrorAs(t, err, &fdErr)
		assert.Equal(t, int64(1), fdErr.Remaining)
		assert.Equal(t, "USD", fdErr.Currency)
	})

	t.Run("over-distribution fails with negative remainder", func(t *testing.T) {
		cost := orders.Cost{Currency: "USD", EstimatedPrice: price(100)}
		fds := []orders.FundDistribution{
			{FundID: "a", DistributionType: orders.DistributionAmount, Value: 100.01},
		}
		var fdErr *errors.FundDistributionError
		require.ErrorAs(t, ValidateFundDistributions("line-1", &cost, fds), &fdErr)
		assert.Equal(t, int64(-1), fdErr.Remaining)
	})

	t.Run("mixed amount and percentage", func(t *testing.T) {
		cost := orders.Cost{Currency: "USD", EstimatedPrice: price(80)}
		fds := []orders.FundDistribution{
			{FundID: "a", DistributionType: orders.DistributionAmount, Value: 20},
			{FundID: "b", DistributionType: orders.DistributionPercentage, Value: 75},
		}
		assert.NoError(t, ValidateFundDistributions("line-1", &cost, fds))
	})

	t.Run("skipped without estimated price", func(t *testing.T) {
		cost := orders.Cost{Currency: "USD"}
		fds := []orders.FundDistribution{
			{FundID: "a", DistributionType: orders.DistributionAmount, Value: 12345},
		}
		assert.NoError(t, ValidateFundDistributions("line-1", &cost, fds))
	})

	t.Run("skipped without distributions", func(t *testing.T) {
		cost := orders.Cost{Currency: "USD", EstimatedPrice: price(100)}
		assert.NoError(t, ValidateFundDistributions("line-1", &cost, nil))
	})

	t.Run("zero-decimal currency rounds percentages", func(t *testing.T) {
		cost := orders.Cost{Currency: "JPY", EstimatedPrice: price(1000)}
		fds := []orders.FundDistribution{
			{FundID: "a", DistributionType: orders.DistributionPercentage, Value: 50},
			{FundID: "b", DistributionType: orders.DistributionPercentage, Value: 50},
		}
		assert.NoError(t, ValidateFundDistributions("line-1", &cost, fds))
	})
}

func TestDistributionAmount(t *testing.T) {
	price := func(v float64) *float64 { return &v }
	cost := orders.Cost{Currency: "USD", EstimatedPrice: price(100.50)}

	amount, err := DistributionAmount(&cost, orders.FundDistribution{
		DistributionType: orders.DistributionPercentage, Value: 50,
	})
	require.NoError(t, err)
	assert.InDelta(t, 50.25, amount, 1e-9)

	amount, err = DistributionAmount(&cost, orders.FundDistribution{
		DistributionType: orders.DistributionAmount, Value: 42.42,
	})
	require.NoError(t, err)
	assert.InDelta(t, 42.42, amount, 1e-9)
}
