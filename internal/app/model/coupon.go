package model

import (
	"time"
)

type Coupon struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	Code               string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	DiscountPercentage float64   `gorm:"not null" json:"discount_percentage"`
	IsActive           bool      `gorm:"not null;index" json:"is_active"`
	MaxUsage           int       `gorm:"not null" json:"max_usage"` // remaining redemptions
	UsageCount         int       `gorm:"not null;default:0" json:"usage_count"`
	ExpiryDate         time.Time `gorm:"not null;index" json:"expiry_date"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Coupon) TableName() string {
	return "coupons"
}

func (c *Coupon) Expired(now time.Time) bool {
	return !now.Before(c.ExpiryDate)
}

// Applicable reports whether a discount from this coupon may be priced in.
func (c *Coupon) Applicable(now time.Time) bool {
	return c.IsActive && c.MaxUsage > 0 && !c.Expired(now)
}
