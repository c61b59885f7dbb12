package repository

import (
	"context"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

// SoldStatuses are the order states that count as a sale.
var SoldStatuses = []model.OrderStatus{
	model.OrderStatusConfirmed,
	model.OrderStatusShipped,
	model.OrderStatusDelivered,
}

type OrderFilter struct {
	Status *model.OrderStatus
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

type RevenueSummary struct {
	Revenue    float64 `json:"revenue"`
	OrderCount int64   `json:"order_count"`
}

type ProductSales struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int64   `json:"quantity"`
	Revenue     float64 `json:"revenue"`
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByUserID(ctx context.Context, userID uint, statuses ...model.OrderStatus) ([]model.Order, error)
	FindWithFilter(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	TransitionStatus(ctx context.Context, id uint, from, to model.OrderStatus) (bool, error)
	Delete(ctx context.Context, id uint) error
	Revenue(ctx context.Context, from, to *time.Time) (RevenueSummary, error)
	BestSellers(ctx context.Context, limit int) ([]ProductSales, error)
	HasPurchased(ctx context.Context, userID, productID uint) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) preloadOrder(ctx context.Context) *gorm.DB {
	return db.Conn(ctx, r.db).Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("order_items.id ASC")
	})
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id": order.UserID,
		"total":   order.Total,
		"items":   len(order.Items),
	})

	if err := db.Conn(ctx, r.db).Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id": order.UserID,
			"total":   order.Total,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder(ctx).Preload("User").First(&order, id).Error; err != nil {
		logLookupError("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUserID(ctx context.Context, userID uint, statuses ...model.OrderStatus) ([]model.Order, error) {
	query := r.preloadOrder(ctx).Where("user_id = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var orders []model.Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Orders found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
	})
	return orders, nil
}

func (r *orderRepository) FindWithFilter(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	query := db.Conn(ctx, r.db).Model(&model.Order{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count orders with filter", err)
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var orders []model.Order
	if err := query.Preload("Items").Preload("User").Order("created_at DESC").Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders with filter", err)
		return nil, 0, err
	}
	return orders, total, nil
}

// TransitionStatus moves an order from one status to another only if it is
// still in the expected status. Returns false when another writer got there
// first or the order is gone.
func (r *orderRepository) TransitionStatus(ctx context.Context, id uint, from, to model.OrderStatus) (bool, error) {
	logger.Debug("Transitioning order status in database", map[string]interface{}{
		"order_id": id,
		"from":     from,
		"to":       to,
	})

	result := db.Conn(ctx, r.db).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		logger.Error("Failed to update order status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"status":   to,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	result := db.Conn(ctx, r.db).Delete(&model.Order{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete order from database", result.Error, map[string]interface{}{
			"order_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) Revenue(ctx context.Context, from, to *time.Time) (RevenueSummary, error) {
	query := db.Conn(ctx, r.db).Model(&model.Order{}).
		Where("status <> ?", model.OrderStatusCancelled)
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at < ?", *to)
	}

	var summary RevenueSummary
	if err := query.Select("COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS order_count").
		Scan(&summary).Error; err != nil {
		logger.Error("Failed to calculate revenue", err)
		return RevenueSummary{}, err
	}
	return summary, nil
}

// BestSellers aggregates order lines of sold orders by product.
func (r *orderRepository) BestSellers(ctx context.Context, limit int) ([]ProductSales, error) {
	var sales []ProductSales
	err := db.Conn(ctx, r.db).Table("order_items").
		Select("order_items.product_id, MAX(order_items.product_name) AS product_name, "+
			"SUM(order_items.quantity) AS quantity, SUM(order_items.price) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status IN ? AND orders.deleted_at IS NULL", SoldStatuses).
		Group("order_items.product_id").
		Order("quantity DESC").
		Limit(limit).
		Scan(&sales).Error
	if err != nil {
		logger.Error("Failed to aggregate best sellers", err)
		return nil, err
	}
	return sales, nil
}

// HasPurchased reports whether the user has a non-cancelled order containing the product.
func (r *orderRepository) HasPurchased(ctx context.Context, userID, productID uint) (bool, error) {
	var count int64
	err := db.Conn(ctx, r.db).Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND order_items.product_id = ? AND orders.status <> ? AND orders.deleted_at IS NULL",
			userID, productID, model.OrderStatusCancelled).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
