package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/internal/app/service"
	"github.com/madness-store/madness-backend/internal/middleware"
)

type AdminController struct {
	adminService service.AdminService
}

func NewAdminController(adminService service.AdminService) *AdminController {
	return &AdminController{adminService: adminService}
}

type BanUserRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

// GET /api/v1/admin/users
func (ctrl *AdminController) ListUsers(c *gin.Context) {
	page, err := ctrl.adminService.ListUsers(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, page)
}

// NewUsers lists sign-ups within ?period= (default: the last 24 hours)
// GET /api/v1/admin/users/new
func (ctrl *AdminController) NewUsers(c *gin.Context) {
	users, err := ctrl.adminService.NewUsers(c.Request.Context(), c.Query("period"))
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// BanUser bans or unbans an account
// PUT /api/v1/admin/users/:id/ban
func (ctrl *AdminController) BanUser(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req BanUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := ctrl.adminService.SetBanned(c.Request.Context(), userID, *req.Banned)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	adminID, _ := middleware.GetUserID(c)
	middleware.GetLoggerFromContext(c).Info("User ban updated", map[string]interface{}{
		"admin_id": adminID,
		"user_id":  userID,
		"banned":   user.Banned,
	})
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Revenue sums non-cancelled orders within ?period=
// GET /api/v1/admin/revenue
func (ctrl *AdminController) Revenue(c *gin.Context) {
	report, err := ctrl.adminService.Revenue(c.Request.Context(), c.Query("period"))
	if err != nil {
		respondError(c, err, "revenue")
		return
	}
	c.JSON(http.StatusOK, report)
}

// BestSellers aggregates sold quantities from confirmed orders onwards
// GET /api/v1/admin/best-sellers
func (ctrl *AdminController) BestSellers(c *gin.Context) {
	products, err := ctrl.adminService.BestSellers(c.Request.Context(), queryInt(c, "limit", bestSellerCount))
	if err != nil {
		respondError(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}
