package service

import (
	"errors"
	"math"
	"time"

	"github.com/madness-store/madness-backend/config"
	"github.com/madness-store/madness-backend/internal/app/model"
)

var ErrInvalidCharges = errors.New("shipping fee and tax must be finite non-negative numbers")

const (
	PricingModeClient = "client"
	PricingModeServer = "server"
)

// Totals is the priced view of a set of cart lines.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// PriceLines sums the stored line prices and applies the coupon discount.
// A coupon that is inactive, exhausted or expired at now contributes
// nothing. The discount never leaves [0, subtotal].
func PriceLines(items []model.CartItem, coupon *model.Coupon, now time.Time) Totals {
	subtotal := 0.0
	for _, item := range items {
		subtotal += item.Price
	}
	subtotal = roundMoney(subtotal)

	discount := 0.0
	if coupon != nil && coupon.Applicable(now) {
		discount = subtotal * coupon.DiscountPercentage / 100
	}
	discount = clampDiscount(discount, subtotal)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    roundMoney(subtotal - discount),
	}
}

func clampDiscount(discount, subtotal float64) float64 {
	if math.IsNaN(discount) || math.IsInf(discount, 0) || discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return roundMoney(discount)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// ChargesInput carries the client's shipping and tax figures. Either may
// be omitted.
type ChargesInput struct {
	ShippingFee *float64
	Tax         *float64
}

// ChargesPolicy decides the shipping fee and tax of an order.
// amount is the discounted subtotal, weight the total parcel weight in kg.
type ChargesPolicy interface {
	Charges(amount, weight float64, in ChargesInput) (shipping, tax float64, err error)
}

// NewChargesPolicy returns the policy selected by cfg.PricingMode.
func NewChargesPolicy(cfg config.CheckoutConfig) ChargesPolicy {
	if cfg.PricingMode == PricingModeServer {
		return serverCharges{cfg: cfg}
	}
	return clientCharges{}
}

type clientCharges struct{}

func (clientCharges) Charges(_, _ float64, in ChargesInput) (float64, float64, error) {
	shipping, err := validCharge(in.ShippingFee)
	if err != nil {
		return 0, 0, err
	}
	tax, err := validCharge(in.Tax)
	if err != nil {
		return 0, 0, err
	}
	return shipping, tax, nil
}

func validCharge(v *float64) (float64, error) {
	if v == nil {
		return 0, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0, ErrInvalidCharges
	}
	return roundMoney(*v), nil
}

// serverCharges ignores client figures entirely.
type serverCharges struct {
	cfg config.CheckoutConfig
}

func (p serverCharges) Charges(amount, weight float64, _ ChargesInput) (float64, float64, error) {
	shipping := p.cfg.BaseShipping + p.cfg.PerKgFee*weight
	if p.cfg.FreeOver > 0 && amount >= p.cfg.FreeOver {
		shipping = 0
	}
	tax := amount * p.cfg.TaxRate
	return roundMoney(math.Max(shipping, 0)), roundMoney(math.Max(tax, 0)), nil
}
