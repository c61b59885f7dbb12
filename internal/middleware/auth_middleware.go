package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/internal/app/model"
	apperrors "github.com/madness-store/madness-backend/internal/errors"
	"github.com/madness-store/madness-backend/pkg/util"
)

// Context keys for user information
const (
	UserIDKey         = "user_id"
	UserEmailKey      = "user_email"
	UserRoleKey       = "user_role"
	AccessTokenKey    = "access_token"
	TokenExpiresAtKey = "token_expires_at"
)

// RevocationChecker reports whether an access token was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// BanChecker reports whether an account was banned after its token was issued.
type BanChecker interface {
	IsBanned(ctx context.Context, userID uint) (bool, error)
}

type AuthMiddleware struct {
	jwtSecret string
	revoked   RevocationChecker
	bans      BanChecker
}

// NewAuthMiddleware builds the JWT middleware. revoked and bans may be nil.
func NewAuthMiddleware(jwtSecret string, revoked RevocationChecker, bans BanChecker) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		revoked:   revoked,
		bans:      bans,
	}
}

var (
	errMalformedHeader = errors.New("malformed authorization header")
	errMissingToken    = errors.New("missing token")
	errRevokedToken    = errors.New("token revoked")
	errBannedAccount   = errors.New("account banned")
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
// Browsers cannot set headers on websocket upgrades, so the token query
// parameter is accepted as a fallback.
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", errMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errMalformedHeader
	}
	return parts[1], nil
}

// resolve validates the token and runs the revocation and ban checks.
func (m *AuthMiddleware) resolve(c *gin.Context, token string) (*util.Claims, error) {
	claims, err := util.ValidateToken(token, m.jwtSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != util.TokenTypeAccess {
		return nil, util.ErrInvalidToken
	}

	ctx := c.Request.Context()
	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(ctx, token)
		if err != nil {
			// Redis being down should not lock everybody out.
			GetLoggerFromContext(c).Warn("Token blacklist unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		} else if revoked {
			return nil, errRevokedToken
		}
	}
	if m.bans != nil {
		banned, err := m.bans.IsBanned(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		if banned {
			return nil, errBannedAccount
		}
	}
	return claims, nil
}

func setIdentity(c *gin.Context, token string, claims *util.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UserEmailKey, claims.Email)
	c.Set(UserRoleKey, model.UserRole(claims.Role))
	c.Set(AccessTokenKey, token)
	if claims.ExpiresAt != nil {
		c.Set(TokenExpiresAtKey, claims.ExpiresAt.Time)
	}
}

// Authenticate validates JWT token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, err := bearerToken(c)
		if err != nil {
			log.Warn("Missing or malformed authorization", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			if errors.Is(err, errMissingToken) {
				apperrors.Unauthorized(c, "Authorization header is required")
			} else {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Authorization header must be 'Bearer <token>'")
			}
			return
		}

		claims, err := m.resolve(c, token)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			switch {
			case errors.Is(err, util.ErrExpiredToken):
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Session has expired, please log in again")
			case errors.Is(err, errRevokedToken):
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenRevoked, "Session has ended, please log in again")
			case errors.Is(err, errBannedAccount):
				apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthAccountBanned, "Your account has been banned")
			case errors.Is(err, util.ErrInvalidToken):
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid authentication token")
			default:
				apperrors.InternalError(c, "")
			}
			return
		}

		setIdentity(c, token, claims)

		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})

		c.Next()
	}
}

// OptionalAuthenticate validates JWT token if present (optional)
// - If token is present and valid: sets user info in context
// - If token is missing or invalid: continues as an anonymous visitor
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			log.Debug("Invalid authorization header format - continuing as guest", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.Next()
			return
		}

		claims, err := m.resolve(c, parts[1])
		if err != nil {
			log.Debug("Token rejected - continuing as guest", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		setIdentity(c, parts[1], claims)
		c.Next()
	}
}

// RequireRole checks if user has required role
func (m *AuthMiddleware) RequireRole(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		role, exists := GetUserRole(c)
		if !exists {
			log.Warn("Role information not found in context", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.Unauthorized(c, "")
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		userID, _ := GetUserID(c)
		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        userID,
			"user_role":      role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzAdminOnly, "You do not have permission to access this resource")
	}
}

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.RequireRole(model.RoleAdmin)
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(UserEmailKey)
	if !exists {
		return "", false
	}
	s, ok := email.(string)
	return s, ok
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	r, ok := role.(model.UserRole)
	return r, ok
}

func IsAdmin(c *gin.Context) bool {
	role, ok := GetUserRole(c)
	return ok && role == model.RoleAdmin
}

// GetAccessToken returns the bearer token and its expiry, used by logout.
func GetAccessToken(c *gin.Context) (string, time.Time, bool) {
	token := c.GetString(AccessTokenKey)
	if token == "" {
		return "", time.Time{}, false
	}
	expiresAt, _ := c.Get(TokenExpiresAtKey)
	at, _ := expiresAt.(time.Time)
	return token, at, true
}
