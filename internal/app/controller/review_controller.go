package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/internal/app/service"
)

type ReviewController struct {
	reviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
	}
}

// ListReviews
// GET /api/v1/products/:id/reviews
func (ctrl *ReviewController) ListReviews(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	page, err := ctrl.reviewService.GetProductReviews(c.Request.Context(), productID, queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateReview posts text, a rating or both. Rating requires a purchase.
// POST /api/v1/products/:id/reviews
func (ctrl *ReviewController) CreateReview(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	review, err := ctrl.reviewService.CreateReview(c.Request.Context(), userID, productID, req)
	if err != nil {
		respondError(c, err, "review")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

// UpdateReview lets the author edit their review
// PUT /api/v1/reviews/:id
func (ctrl *ReviewController) UpdateReview(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	reviewID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	review, err := ctrl.reviewService.UpdateReview(c.Request.Context(), userID, reviewID, req)
	if err != nil {
		respondError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": review})
}
