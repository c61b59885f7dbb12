package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/service"
	apperrors "github.com/madness-store/madness-backend/internal/errors"
	"github.com/madness-store/madness-backend/internal/middleware"
)

// CartController serves signed-in users and anonymous visitors alike; the
// owner comes from the token when present, the session cookie otherwise.
type CartController struct {
	cartService     service.CartService
	checkoutService service.CheckoutService
}

func NewCartController(cartService service.CartService, checkoutService service.CheckoutService) *CartController {
	return &CartController{
		cartService:     cartService,
		checkoutService: checkoutService,
	}
}

type ApplyCouponRequest struct {
	CouponID uint   `json:"coupon_id"`
	Code     string `json:"code"`
}

// GetCart returns the cart joined with current product data
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err, "cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// GetMiniCart returns item count and total for the header badge
// GET /api/v1/cart/mini
func (ctrl *CartController) GetMiniCart(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	mini, err := ctrl.cartService.GetMiniCart(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err, "cart")
		return
	}
	c.JSON(http.StatusOK, mini)
}

// AddItem adds a product variant, accumulating onto an existing line
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	var req service.AddItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.AddItem(c.Request.Context(), owner, req)
	if err != nil {
		respondError(c, err, "cart")
		return
	}

	middleware.GetLoggerFromContext(c).Debug("Item added to cart", map[string]interface{}{
		"owner":      owner.String(),
		"product_id": req.ProductID,
		"variant":    req.Variant,
		"quantity":   req.Quantity,
	})
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// UpdateItem sets quantity (repricing the line) and optionally the selected flag
// PUT /api/v1/cart/items
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	var req service.UpdateItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.UpdateItem(c.Request.Context(), owner, req)
	if err != nil {
		respondError(c, err, "cart item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// RemoveItem drops the line matching product and variant exactly
// DELETE /api/v1/cart/items
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	var req model.ItemKey
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.RemoveItem(c.Request.Context(), owner, req)
	if err != nil {
		respondError(c, err, "cart item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// ClearCart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	if err := ctrl.cartService.ClearCart(c.Request.Context(), owner); err != nil {
		respondError(c, err, "cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// ApplyCoupon applies a coupon by id or by code
// POST /api/v1/cart/coupon
func (ctrl *CartController) ApplyCoupon(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	var (
		cart *service.CartView
		err  error
	)
	switch code := strings.TrimSpace(req.Code); {
	case req.CouponID != 0:
		cart, err = ctrl.cartService.ApplyCoupon(c.Request.Context(), owner, req.CouponID)
	case code != "":
		cart, err = ctrl.cartService.ApplyCouponCode(c.Request.Context(), owner, code)
	default:
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "coupon_id or code is required")
		return
	}
	if err != nil {
		respondError(c, err, "coupon")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// RemoveCoupon
// DELETE /api/v1/cart/coupon
func (ctrl *CartController) RemoveCoupon(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.RemoveCoupon(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err, "coupon")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// Checkout turns the selected cart lines into a pending order
// POST /api/v1/checkout
func (ctrl *CartController) Checkout(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	var req service.CheckoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	result, err := ctrl.checkoutService.Checkout(c.Request.Context(), owner, req)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Checkout completed", map[string]interface{}{
		"owner":           owner.String(),
		"order_id":        result.Order.ID,
		"total":           result.Order.Total,
		"account_created": result.AccountCreated,
	})
	c.JSON(http.StatusCreated, result)
}
