package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a snapshot taken at checkout. Only Status changes afterwards.
type Order struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	UserID             uint           `gorm:"not null;index" json:"user_id"`
	Subtotal           float64        `gorm:"not null" json:"subtotal"`
	DiscountPercentage float64        `gorm:"not null;default:0" json:"discount_percentage"`
	DiscountAmount     float64        `gorm:"not null;default:0" json:"discount_amount"`
	ShippingFee        float64        `gorm:"not null;default:0" json:"shipping_fee"`
	Tax                float64        `gorm:"not null;default:0" json:"tax"`
	Total              float64        `gorm:"not null" json:"total"`
	CouponID           *uint          `gorm:"index" json:"coupon_id,omitempty"`
	CouponCode         string         `gorm:"size:64" json:"coupon_code,omitempty"`
	ShippingAddress    string         `gorm:"type:text;not null" json:"shipping_address"`
	ReceiverName       string         `gorm:"size:200;not null" json:"receiver_name"`
	ReceiverEmail      string         `gorm:"size:255;not null" json:"receiver_email"`
	ReceiverPhone      string         `gorm:"size:30" json:"receiver_phone"`
	Status             OrderStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	User  *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem copies the cart line as it was at checkout.
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	ProductName string    `gorm:"not null" json:"product_name"`
	ImageKey    string    `json:"image_key"`
	Variant     string    `gorm:"size:100;not null;default:''" json:"variant"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Price       float64   `gorm:"not null" json:"price"` // line price
	CreatedAt   time.Time `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
