package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/service"
	apperrors "github.com/madness-store/madness-backend/internal/errors"
	"github.com/madness-store/madness-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderController struct {
	orderService service.OrderService
	adminService service.AdminService
}

func NewOrderController(orderService service.OrderService, adminService service.AdminService) *OrderController {
	return &OrderController{
		orderService: orderService,
		adminService: adminService,
	}
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

// ListMyOrders
// GET /api/v1/orders
func (ctrl *OrderController) ListMyOrders(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orders, err := ctrl.orderService.ListUserOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// OrderHistory lists delivered orders
// GET /api/v1/orders/history
func (ctrl *OrderController) OrderHistory(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orders, err := ctrl.orderService.OrderHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// GetOrder is visible to its owner and to admins
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrder(c.Request.Context(), userID, middleware.IsAdmin(c), orderID)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus moves an order through its state machine
// PUT /api/v1/admin/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"status":   order.Status,
	})
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// DeleteOrder
// DELETE /api/v1/admin/orders/:id
func (ctrl *OrderController) DeleteOrder(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.orderService.DeleteOrder(c.Request.Context(), orderID); err != nil {
		respondError(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid "+name+", expected YYYY-MM-DD or RFC3339")
	return nil, false
}

// orderQuery reads ?status=&period=&from=&to=&page=&limit=
func orderQuery(c *gin.Context) (service.OrderQuery, bool) {
	query := service.OrderQuery{
		Period: c.Query("period"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	if status := c.Query("status"); status != "" {
		s := model.OrderStatus(status)
		query.Status = &s
	}
	var ok bool
	if query.From, ok = parseTimeQuery(c, "from"); !ok {
		return query, false
	}
	if query.To, ok = parseTimeQuery(c, "to"); !ok {
		return query, false
	}
	return query, true
}

// ListOrders
// GET /api/v1/admin/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	query, ok := orderQuery(c)
	if !ok {
		return
	}

	page, err := ctrl.orderService.ListOrders(c.Request.Context(), query)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, page)
}

// ExportOrders streams the filtered orders as an xlsx workbook
// GET /api/v1/admin/orders/export
func (ctrl *OrderController) ExportOrders(c *gin.Context) {
	query, ok := orderQuery(c)
	if !ok {
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	// Nothing is written to the body until the workbook is complete, so a
	// failure can still produce a JSON error.
	if err := ctrl.adminService.ExportOrders(c.Request.Context(), query, c.Writer); err != nil {
		c.Header("Content-Type", "")
		c.Header("Content-Disposition", "")
		respondError(c, err, "order")
		return
	}
	c.Status(http.StatusOK)
}
