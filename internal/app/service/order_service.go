package service

import (
	"context"
	"errors"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidOrderStatus      = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("order status transition not allowed")
)

// OrderQuery filters the admin order list. Period is one of day, week,
// month or year and takes precedence over From/To.
type OrderQuery struct {
	Status *model.OrderStatus
	Period string
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

type OrderPage struct {
	Orders []model.Order `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

type OrderService interface {
	ListUserOrders(ctx context.Context, userID uint) ([]model.Order, error)
	// OrderHistory lists delivered orders only.
	OrderHistory(ctx context.Context, userID uint) ([]model.Order, error)
	GetOrder(ctx context.Context, userID uint, isAdmin bool, orderID uint) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error)
	DeleteOrder(ctx context.Context, orderID uint) error
	ListOrders(ctx context.Context, query OrderQuery) (*OrderPage, error)
}

type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	notifier    OrderNotifier
	now         func() time.Time
}

func NewOrderService(
	conn *gorm.DB,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	notifier OrderNotifier,
) OrderService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &orderService{
		db:          conn,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (s *orderService) ListUserOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	orders, err := s.orderRepo.FindByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to fetch user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

func (s *orderService) OrderHistory(ctx context.Context, userID uint) ([]model.Order, error) {
	return s.orderRepo.FindByUserID(ctx, userID, model.OrderStatusDelivered)
}

func (s *orderService) GetOrder(ctx context.Context, userID uint, isAdmin bool, orderID uint) (*model.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		logger.Warn("Order requested by another user", map[string]interface{}{
			"order_id": orderID,
			"user_id":  userID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) findOrder(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		logger.Error("Failed to fetch order", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	return order, nil
}

// UpdateStatus moves an order along its state machine. Confirming an order
// takes its items out of stock; if any line cannot be served the whole
// confirmation is rolled back.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error) {
	logger.Info("Updating order status", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})

	if !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	prev := order.Status
	if !prev.CanTransitionTo(status) {
		logger.Warn("Rejected order status transition", map[string]interface{}{
			"order_id": orderID,
			"from":     prev,
			"to":       status,
		})
		return nil, ErrInvalidStatusTransition
	}

	err = db.RunInTx(ctx, s.db, func(ctx context.Context) error {
		ok, err := s.orderRepo.TransitionStatus(ctx, orderID, prev, status)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidStatusTransition
		}
		if status == model.OrderStatusConfirmed {
			return s.takeStock(ctx, order)
		}
		return nil
	})
	if err != nil {
		logger.Warn("Order status not updated", map[string]interface{}{
			"order_id": orderID,
			"to":       status,
			"error":    err.Error(),
		})
		return nil, err
	}

	order.Status = status
	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"from":     prev,
		"to":       status,
	})
	s.notifier.PublishOrderEvent(orderEvent(OrderEventStatusChanged, order, prev, s.now()))
	return order, nil
}

func (s *orderService) takeStock(ctx context.Context, order *model.Order) error {
	for _, item := range order.Items {
		ok, err := s.productRepo.DecrementStock(ctx, item.ProductID, item.Variant, item.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			available := 0
			if p, err := s.productRepo.FindByID(ctx, item.ProductID); err == nil {
				if v := p.Variant(item.Variant); v != nil {
					available = v.Stock
				}
			}
			return &InsufficientStockError{
				ProductID: item.ProductID,
				Variant:   item.Variant,
				Requested: item.Quantity,
				Available: available,
			}
		}
		if err := s.productRepo.IncrementSold(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID uint) error {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		logger.Error("Failed to delete order", err, map[string]interface{}{
			"order_id": orderID,
		})
		return err
	}
	logger.Info("Order deleted", map[string]interface{}{
		"order_id": orderID,
	})
	s.notifier.PublishOrderEvent(orderEvent(OrderEventDeleted, order, "", s.now()))
	return nil
}

func (s *orderService) ListOrders(ctx context.Context, query OrderQuery) (*OrderPage, error) {
	page, limit := normalizePage(query.Page, query.Limit)
	filter := repository.OrderFilter{
		Status: query.Status,
		From:   query.From,
		To:     query.To,
		Page:   page,
		Limit:  limit,
	}
	if query.Period != "" {
		from, err := periodStart(query.Period, s.now())
		if err != nil {
			return nil, err
		}
		filter.From, filter.To = &from, nil
	}

	orders, total, err := s.orderRepo.FindWithFilter(ctx, filter)
	if err != nil {
		logger.Error("Failed to list orders", err, map[string]interface{}{
			"period": query.Period,
		})
		return nil, err
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// periodStart returns the beginning of the rolling window named by period.
func periodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "day":
		return now.AddDate(0, 0, -1), nil
	case "week":
		return now.AddDate(0, 0, -7), nil
	case "month":
		return now.AddDate(0, -1, 0), nil
	case "year":
		return now.AddDate(-1, 0, 0), nil
	}
	return time.Time{}, ErrInvalidInput
}
