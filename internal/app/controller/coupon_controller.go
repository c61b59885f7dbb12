package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/internal/app/service"
	"github.com/madness-store/madness-backend/internal/middleware"
)

type CouponController struct {
	couponService service.CouponService
}

func NewCouponController(couponService service.CouponService) *CouponController {
	return &CouponController{couponService: couponService}
}

// GET /api/v1/admin/coupons
func (ctrl *CouponController) ListCoupons(c *gin.Context) {
	page, limit := queryInt(c, "page", 1), queryInt(c, "limit", 20)
	coupons, total, err := ctrl.couponService.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err, "coupon")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"coupons": coupons,
		"total":   total,
	})
}

// GET /api/v1/admin/coupons/:id
func (ctrl *CouponController) GetCoupon(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	coupon, err := ctrl.couponService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "coupon")
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

// POST /api/v1/admin/coupons
func (ctrl *CouponController) CreateCoupon(c *gin.Context) {
	var req service.CouponInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	coupon, err := ctrl.couponService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "coupon")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Coupon created", map[string]interface{}{
		"coupon_id": coupon.ID,
		"code":      coupon.Code,
	})
	c.JSON(http.StatusCreated, gin.H{"coupon": coupon})
}

// PUT /api/v1/admin/coupons/:id
func (ctrl *CouponController) UpdateCoupon(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.CouponInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	coupon, err := ctrl.couponService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "coupon")
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

// DELETE /api/v1/admin/coupons/:id
func (ctrl *CouponController) DeleteCoupon(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.couponService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "coupon")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coupon deleted"})
}
