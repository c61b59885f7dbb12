package service

import (
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
)

const (
	OrderEventCreated       = "order.created"
	OrderEventStatusChanged = "order.status_changed"
	OrderEventDeleted       = "order.deleted"
)

// OrderEvent is pushed to the admin live feed.
type OrderEvent struct {
	Type       string            `json:"type"`
	OrderID    uint              `json:"order_id"`
	UserID     uint              `json:"user_id"`
	Status     model.OrderStatus `json:"status"`
	PrevStatus model.OrderStatus `json:"prev_status,omitempty"`
	Total      float64           `json:"total"`
	At         time.Time         `json:"at"`
}

// OrderNotifier fans order events out to listeners. Implementations must
// not block the caller.
type OrderNotifier interface {
	PublishOrderEvent(event OrderEvent)
}

type noopNotifier struct{}

func (noopNotifier) PublishOrderEvent(OrderEvent) {}

func orderEvent(kind string, order *model.Order, prev model.OrderStatus, at time.Time) OrderEvent {
	return OrderEvent{
		Type:       kind,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		PrevStatus: prev,
		Total:      order.Total,
		At:         at,
	}
}
