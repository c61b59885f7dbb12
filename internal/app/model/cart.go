package model

import (
	"fmt"
	"time"
)

// CartOwner identifies whose cart is addressed: a signed-in user or an
// anonymous session. Exactly one of the fields is set.
type CartOwner struct {
	UserID    uint
	SessionID string
}

func UserOwner(userID uint) CartOwner       { return CartOwner{UserID: userID} }
func SessionOwner(sessionID string) CartOwner { return CartOwner{SessionID: sessionID} }

func (o CartOwner) IsUser() bool { return o.UserID != 0 }

func (o CartOwner) Valid() bool {
	return (o.UserID != 0) != (o.SessionID != "")
}

func (o CartOwner) String() string {
	if o.IsUser() {
		return fmt.Sprintf("user:%d", o.UserID)
	}
	return "session:" + o.SessionID
}

// ItemKey is the identity of a cart line.
type ItemKey struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Variant   string `json:"variant"`
}

// Cart holds line items and the applied coupon. Subtotal, Discount and
// Total are recomputed on every mutation and never trusted on read.
type Cart struct {
	ID        uint       `gorm:"primarykey" json:"id,omitempty"`
	UserID    uint       `gorm:"uniqueIndex;not null" json:"user_id,omitempty"`
	CouponID  *uint      `gorm:"index" json:"coupon_id"`
	Subtotal  float64    `gorm:"not null;default:0" json:"subtotal"`
	Discount  float64    `gorm:"not null;default:0" json:"discount"`
	Total     float64    `gorm:"not null;default:0" json:"total"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

// Find returns the index of the line with the given key, or -1.
func (c *Cart) Find(key ItemKey) int {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return i
		}
	}
	return -1
}

type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id,omitempty"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_line" json:"-"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_line" json:"product_id"`
	Variant   string    `gorm:"size:100;not null;default:'';uniqueIndex:idx_cart_line" json:"variant"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"not null" json:"price"` // quantity x unit price when last priced
	Selected  bool      `gorm:"not null" json:"selected"`
	Position  int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (i CartItem) Key() ItemKey {
	return ItemKey{ProductID: i.ProductID, Variant: i.Variant}
}
