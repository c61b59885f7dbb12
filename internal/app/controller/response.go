package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/service"
	apperrors "github.com/madness-store/madness-backend/internal/errors"
	"github.com/madness-store/madness-backend/internal/middleware"
	"github.com/madness-store/madness-backend/pkg/util"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings translates service errors into HTTP responses. The message
// sent to the client is the error text, so only sentinel errors with
// client-safe wording belong here.
var errorMappings = []errorMapping{
	// 400
	{service.ErrInvalidInput, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidQuantity, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidCartOwner, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidCouponPercent, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidCharges, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrMissingDeliveryInfo, http.StatusBadRequest, apperrors.CheckoutInvalidInfo},
	{service.ErrInvalidOrderStatus, http.StatusBadRequest, apperrors.OrderInvalidStatus},
	{service.ErrInvalidProduct, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidImage, http.StatusBadRequest, apperrors.UploadInvalidFileType},
	{service.ErrInvalidRating, http.StatusBadRequest, apperrors.ReviewInvalid},
	{service.ErrEmptyReview, http.StatusBadRequest, apperrors.ReviewInvalid},
	{service.ErrWeakPassword, http.StatusBadRequest, apperrors.AuthWeakPassword},
	{service.ErrWrongPassword, http.StatusBadRequest, apperrors.AuthInvalidCredentials},
	{service.ErrInvalidLink, http.StatusBadRequest, apperrors.AuthLinkInvalid},

	// 401
	{service.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.AuthInvalidCredentials},
	{service.ErrInvalidGoogleToken, http.StatusUnauthorized, apperrors.AuthTokenInvalid},
	{service.ErrLoginRequired, http.StatusUnauthorized, apperrors.AuthLoginRequired},
	{util.ErrExpiredToken, http.StatusUnauthorized, apperrors.AuthTokenExpired},
	{util.ErrInvalidToken, http.StatusUnauthorized, apperrors.AuthTokenInvalid},

	// 403
	{service.ErrAccountBanned, http.StatusForbidden, apperrors.AuthAccountBanned},
	{service.ErrEmailNotVerified, http.StatusForbidden, apperrors.AuthEmailNotVerified},
	{service.ErrRatingRequiresPurchase, http.StatusForbidden, apperrors.ReviewRatingForbidden},
	{service.ErrForbidden, http.StatusForbidden, apperrors.AuthzForbidden},

	// 404
	{service.ErrProductNotFound, http.StatusNotFound, apperrors.ProductNotFound},
	{service.ErrVariantNotFound, http.StatusNotFound, apperrors.VariantNotFound},
	{service.ErrUserNotFound, http.StatusNotFound, apperrors.ResourceNotFound},
	{service.ErrAddressNotFound, http.StatusNotFound, apperrors.ResourceNotFound},
	{service.ErrCartNotFound, http.StatusNotFound, apperrors.CartNotFound},
	{service.ErrCartItemNotFound, http.StatusNotFound, apperrors.CartItemNotFound},
	{service.ErrCouponNotFound, http.StatusNotFound, apperrors.CouponNotFound},
	{service.ErrOrderNotFound, http.StatusNotFound, apperrors.OrderNotFound},
	{service.ErrReviewNotFound, http.StatusNotFound, apperrors.ReviewNotFound},

	// 409
	{service.ErrEmailAlreadyExists, http.StatusConflict, apperrors.AuthEmailAlreadyExists},
	{service.ErrCouponAlreadyApplied, http.StatusConflict, apperrors.CouponAlreadyApplied},
	{service.ErrCouponCodeExists, http.StatusConflict, apperrors.CouponCodeExists},
	{service.ErrInvalidStatusTransition, http.StatusConflict, apperrors.OrderInvalidTransition},
	{service.ErrCannotBanAdmin, http.StatusConflict, apperrors.AdminCannotBanAdmin},
	{service.ErrCartBusy, http.StatusConflict, apperrors.CartBusy},

	// 412
	{service.ErrInsufficientStock, http.StatusPreconditionFailed, apperrors.CartInsufficientStock},
	{service.ErrCartEmpty, http.StatusPreconditionFailed, apperrors.CartEmpty},
	{service.ErrNoItemsSelected, http.StatusPreconditionFailed, apperrors.CartNothingSelected},
	{service.ErrCouponInactive, http.StatusPreconditionFailed, apperrors.CouponInactive},
	{service.ErrCouponExpired, http.StatusPreconditionFailed, apperrors.CouponExpired},
	{service.ErrCouponExhausted, http.StatusPreconditionFailed, apperrors.CouponExhausted},
	{service.ErrNoCouponApplied, http.StatusPreconditionFailed, apperrors.CouponNotApplied},
}

// stockErrorBody adds the shortfall details to the usual error body.
type stockErrorBody struct {
	apperrors.ErrorResponse
	ProductID uint   `json:"product_id"`
	Variant   string `json:"variant"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// respondError writes the response for err. Unknown errors are logged and
// classified by apperrors.ParseError, which never leaks driver text.
func respondError(c *gin.Context, err error, resource string) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.AbortWithStatusJSON(http.StatusPreconditionFailed, stockErrorBody{
			ErrorResponse: apperrors.ErrorResponse{
				Error:   apperrors.CartInsufficientStock,
				Message: stockErr.Error(),
			},
			ProductID: stockErr.ProductID,
			Variant:   stockErr.Variant,
			Requested: stockErr.Requested,
			Available: stockErr.Available,
		})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			apperrors.RespondWithError(c, m.status, m.code, m.err.Error())
			return
		}
	}

	middleware.GetLoggerFromContext(c).Error("Unhandled error", err, map[string]interface{}{
		"resource": resource,
	})
	apperrors.ParseAndRespond(c, err, resource)
}

func respondBindingError(c *gin.Context, err error) {
	middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
		"error": err.Error(),
	})
	apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
}

// parseID reads a positive numeric path parameter and answers 400 otherwise.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}

func requireUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == 0 {
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return userID, true
}

func requireCartOwner(c *gin.Context) (model.CartOwner, bool) {
	owner, ok := middleware.ResolveCartOwner(c)
	if !ok {
		apperrors.InternalError(c, "Cart session is unavailable")
		return model.CartOwner{}, false
	}
	return owner, true
}
