package service

import (
	"math"
	"testing"
	"time"

	"github.com/madness-store/madness-backend/config"
	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
)

func TestPriceLines(t *testing.T) {
	now := time.Now()
	items := []model.CartItem{
		{ProductID: 1, Quantity: 2, Price: 20},
		{ProductID: 2, Quantity: 1, Price: 5.55},
	}

	t.Run("no coupon", func(t *testing.T) {
		totals := PriceLines(items, nil, now)
		assert.Equal(t, Totals{Subtotal: 25.55, Discount: 0, Total: 25.55}, totals)
	})

	t.Run("percentage coupon", func(t *testing.T) {
		coupon := &model.Coupon{DiscountPercentage: 10, IsActive: true, MaxUsage: 1, ExpiryDate: now.Add(time.Hour)}
		totals := PriceLines(items[:1], coupon, now)
		assert.Equal(t, Totals{Subtotal: 20, Discount: 2, Total: 18}, totals)
	})

	t.Run("inapplicable coupon is ignored", func(t *testing.T) {
		for name, coupon := range map[string]*model.Coupon{
			"inactive":  {DiscountPercentage: 50, IsActive: false, MaxUsage: 1, ExpiryDate: now.Add(time.Hour)},
			"exhausted": {DiscountPercentage: 50, IsActive: true, MaxUsage: 0, ExpiryDate: now.Add(time.Hour)},
			"expired":   {DiscountPercentage: 50, IsActive: true, MaxUsage: 1, ExpiryDate: now},
		} {
			totals := PriceLines(items[:1], coupon, now)
			assert.Equal(t, 0.0, totals.Discount, name)
			assert.Equal(t, 20.0, totals.Total, name)
		}
	})

	t.Run("discount clamped to subtotal", func(t *testing.T) {
		coupon := &model.Coupon{DiscountPercentage: 150, IsActive: true, MaxUsage: 1, ExpiryDate: now.Add(time.Hour)}
		totals := PriceLines(items[:1], coupon, now)
		assert.Equal(t, 20.0, totals.Discount)
		assert.Equal(t, 0.0, totals.Total)
	})

	t.Run("empty cart", func(t *testing.T) {
		assert.Equal(t, Totals{}, PriceLines(nil, nil, now))
	})
}

func TestClampDiscount(t *testing.T) {
	assert.Equal(t, 0.0, clampDiscount(math.NaN(), 10))
	assert.Equal(t, 0.0, clampDiscount(math.Inf(1), 10))
	assert.Equal(t, 0.0, clampDiscount(-3, 10))
	assert.Equal(t, 10.0, clampDiscount(12, 10))
	assert.Equal(t, 3.33, clampDiscount(3.333, 10))
}

func TestClientCharges(t *testing.T) {
	policy := NewChargesPolicy(config.CheckoutConfig{PricingMode: PricingModeClient})

	shipping, tax, err := policy.Charges(100, 3, ChargesInput{})
	assert.NoError(t, err)
	assert.Equal(t, 0.0, shipping)
	assert.Equal(t, 0.0, tax)

	shipping, tax, err = policy.Charges(100, 3, ChargesInput{ShippingFee: floatPtr(4.999), Tax: floatPtr(1)})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, shipping)
	assert.Equal(t, 1.0, tax)

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, _, err = policy.Charges(100, 0, ChargesInput{ShippingFee: floatPtr(bad)})
		assert.ErrorIs(t, err, ErrInvalidCharges)
		_, _, err = policy.Charges(100, 0, ChargesInput{Tax: floatPtr(bad)})
		assert.ErrorIs(t, err, ErrInvalidCharges)
	}
}

func TestServerCharges(t *testing.T) {
	policy := NewChargesPolicy(config.CheckoutConfig{
		PricingMode:  PricingModeServer,
		BaseShipping: 5,
		PerKgFee:     2,
		FreeOver:     100,
		TaxRate:      0.1,
	})

	// Client figures are ignored.
	shipping, tax, err := policy.Charges(50, 1.5, ChargesInput{ShippingFee: floatPtr(-1), Tax: floatPtr(999)})
	assert.NoError(t, err)
	assert.Equal(t, 8.0, shipping)
	assert.Equal(t, 5.0, tax)

	shipping, tax, err = policy.Charges(100, 10, ChargesInput{})
	assert.NoError(t, err)
	assert.Equal(t, 0.0, shipping)
	assert.Equal(t, 10.0, tax)
}
