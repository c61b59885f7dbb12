package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/service"
	apperrors "github.com/madness-store/madness-backend/internal/errors"
	"github.com/madness-store/madness-backend/internal/middleware"
	"github.com/madness-store/madness-backend/pkg/util"
)

type AuthController struct {
	authService service.AuthService
	cartService service.CartService
}

func NewAuthController(authService service.AuthService, cartService service.CartService) *AuthController {
	return &AuthController{
		authService: authService,
		cartService: cartService,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

type RecoverPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthResponse struct {
	User   *model.User     `json:"user"`
	Tokens *util.TokenPair `json:"tokens"`
}

// Register handles user registration
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := ctrl.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registered, check your email to verify the account",
		"user":    user,
	})
}

// Login authenticates with email and password
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, tokens, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	ctrl.mergeSessionCart(c, user.ID)
	c.JSON(http.StatusOK, AuthResponse{User: user, Tokens: tokens})
}

// GoogleLogin exchanges a Google ID token for our own tokens
// POST /api/v1/auth/google
func (ctrl *AuthController) GoogleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, tokens, err := ctrl.authService.GoogleLogin(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	ctrl.mergeSessionCart(c, user.ID)
	c.JSON(http.StatusOK, AuthResponse{User: user, Tokens: tokens})
}

// mergeSessionCart folds the visitor's anonymous cart into the account.
// Login still succeeds when the merge fails; the session cart stays put.
func (ctrl *AuthController) mergeSessionCart(c *gin.Context, userID uint) {
	session, ok := middleware.GetCartSession(c)
	if !ok || ctrl.cartService == nil {
		return
	}
	if err := ctrl.cartService.MergeSessionCart(c.Request.Context(), session.ID, userID); err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to merge session cart", err, map[string]interface{}{
			"user_id": userID,
		})
	}
}

// Refresh issues a new token pair
// POST /api/v1/auth/refresh
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	tokens, err := ctrl.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err, "token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout revokes the presented access token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	token, expiresAt, ok := middleware.GetAccessToken(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	if err := ctrl.authService.Logout(c.Request.Context(), token, expiresAt); err != nil {
		respondError(c, err, "session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// VerifyEmail confirms the address from the mailed link
// GET /api/v1/auth/:id/verify/:token
func (ctrl *AuthController) VerifyEmail(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.authService.VerifyEmail(c.Request.Context(), userID, c.Param("token")); err != nil {
		respondError(c, err, "verification link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified"})
}

// RecoverPassword mails a reset link. The answer is the same whether or not
// the address is registered.
// POST /api/v1/auth/recover-password
func (ctrl *AuthController) RecoverPassword(c *gin.Context) {
	var req RecoverPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := ctrl.authService.RecoverPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a reset link has been sent"})
}

// ResetPassword sets a new password from a reset or setup link
// POST /api/v1/auth/reset-password
func (ctrl *AuthController) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := ctrl.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, err, "reset link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// Me returns the signed-in account
// GET /api/v1/auth/me
func (ctrl *AuthController) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := ctrl.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
