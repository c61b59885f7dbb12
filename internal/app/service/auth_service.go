package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/pkg/google"
	"github.com/madness-store/madness-backend/pkg/logger"
	"github.com/madness-store/madness-backend/pkg/mailer"
	"github.com/madness-store/madness-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified, a new verification link has been sent")
	ErrAccountBanned      = errors.New("account has been banned")
	ErrInvalidLink        = errors.New("invalid or expired link")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidGoogleToken = errors.New("invalid google token")
)

const minPasswordLength = 8

type RegisterInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// IdentityVerifier checks a third-party ID token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*google.Identity, error)
}

// TokenRevoker remembers logged-out access tokens until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, expiry time.Duration) error
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, *util.TokenPair, error)
	GoogleLogin(ctx context.Context, idToken string) (*model.User, *util.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error)
	Logout(ctx context.Context, accessToken string, expiresAt time.Time) error
	VerifyEmail(ctx context.Context, userID uint, token string) error
	RecoverPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
}

type authService struct {
	db            *gorm.DB
	userRepo      repository.UserRepository
	tokenRepo     repository.VerifyTokenRepository
	google        IdentityVerifier
	revoker       TokenRevoker
	mail          *accountMail
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

type AuthDeps struct {
	DB            *gorm.DB
	Users         repository.UserRepository
	Tokens        repository.VerifyTokenRepository
	Google        IdentityVerifier
	Revoker       TokenRevoker
	Mailer        mailer.Sender
	FrontendURL   string
	JWTSecret     string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

func NewAuthService(deps AuthDeps) AuthService {
	return &authService{
		db:            deps.DB,
		userRepo:      deps.Users,
		tokenRepo:     deps.Tokens,
		google:        deps.Google,
		revoker:       deps.Revoker,
		mail:          newAccountMail(deps.Mailer, deps.FrontendURL),
		jwtSecret:     deps.JWTSecret,
		accessExpiry:  deps.AccessExpiry,
		refreshExpiry: deps.RefreshExpiry,
		now:           time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := normalizeEmail(input.Email)
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
	})

	if len(input.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, ErrEmailAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	hashedPassword, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		Role:         model.RoleUser,
	}

	var token string
	err = db.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		token, err = s.issueToken(ctx, user.ID, model.TokenPurposeVerify, verifyTokenTTL)
		return err
	})
	if err != nil {
		logger.Error("Failed to create user", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	deliver("verify", map[string]interface{}{"user_id": user.ID}, func() error {
		return s.mail.sendVerify(ctx, user, token)
	})

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})
	return user, nil
}

func (s *authService) issueToken(ctx context.Context, userID uint, purpose model.TokenPurpose, ttl time.Duration) (string, error) {
	token, err := util.GenerateToken(32)
	if err != nil {
		return "", err
	}
	err = s.tokenRepo.Create(ctx, &model.VerifyToken{
		UserID:    userID,
		Token:     token,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(ttl),
	})
	return token, err
}

func (s *authService) Login(ctx context.Context, email, password string) (*model.User, *util.TokenPair, error) {
	email = normalizeEmail(email)
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	// The ban is checked after the password so the response does not
	// reveal whether a banned address exists.
	if user.Banned {
		logger.Warn("Login refused: account banned", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrAccountBanned
	}

	if !user.Verified {
		token, err := s.issueToken(ctx, user.ID, model.TokenPurposeVerify, verifyTokenTTL)
		if err != nil {
			return nil, nil, err
		}
		deliver("verify", map[string]interface{}{"user_id": user.ID}, func() error {
			return s.mail.sendVerify(ctx, user, token)
		})
		logger.Warn("Login refused: email not verified", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrEmailNotVerified
	}

	tokens, err := s.tokensFor(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, tokens, nil
}

func (s *authService) tokensFor(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}

// GoogleLogin signs a user in with a Google ID token, linking the Google
// account to an existing user with the same email or creating a new one.
func (s *authService) GoogleLogin(ctx context.Context, idToken string) (*model.User, *util.TokenPair, error) {
	if s.google == nil {
		return nil, nil, ErrInvalidGoogleToken
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		logger.Warn("Google token rejected", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, nil, ErrInvalidGoogleToken
	}

	user, err := s.userRepo.FindByGoogleSub(ctx, identity.Subject)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.linkGoogleAccount(ctx, identity)
	}
	if err != nil {
		logger.Error("Failed to resolve google user", err, map[string]interface{}{
			"email": identity.Email,
		})
		return nil, nil, err
	}

	if user.Banned {
		return nil, nil, ErrAccountBanned
	}

	tokens, err := s.tokensFor(user)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("User logged in with google", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

func (s *authService) linkGoogleAccount(ctx context.Context, identity *google.Identity) (*model.User, error) {
	email := normalizeEmail(identity.Email)
	sub := identity.Subject

	user, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		user.GoogleSub = &sub
		if identity.EmailVerified {
			user.Verified = true
		}
		if user.Image == "" {
			user.Image = identity.Picture
		}
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	// Google accounts get an unusable random password; they can set one
	// through password recovery.
	password, err := util.GenerateRandomPassword()
	if err != nil {
		return nil, err
	}
	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user = &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    identity.GivenName,
		LastName:     identity.FamilyName,
		Image:        identity.Picture,
		Role:         model.RoleUser,
		Verified:     identity.EmailVerified,
		GoogleSub:    &sub,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Info("User created from google account", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil || claims.TokenType != util.TokenTypeRefresh {
		return nil, util.ErrInvalidToken
	}
	user, err := s.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		return nil, ErrAccountBanned
	}
	return s.tokensFor(user)
}

func (s *authService) Logout(ctx context.Context, accessToken string, expiresAt time.Time) error {
	if s.revoker == nil || accessToken == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, accessToken, expiresAt.Sub(s.now()))
}

// consumeToken validates a mailed token and marks it used. The caller's
// change must happen in the same transaction.
func (s *authService) consumeToken(ctx context.Context, token string, purposes ...model.TokenPurpose) (*model.VerifyToken, error) {
	vt, err := s.tokenRepo.FindByToken(ctx, token, purposes...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLink
		}
		return nil, err
	}
	if !vt.Usable(s.now()) {
		return nil, ErrInvalidLink
	}
	if err := s.tokenRepo.MarkUsed(ctx, vt.ID); err != nil {
		if errors.Is(err, repository.ErrTokenAlreadyUsed) {
			return nil, ErrInvalidLink
		}
		return nil, err
	}
	return vt, nil
}

func (s *authService) VerifyEmail(ctx context.Context, userID uint, token string) error {
	err := db.RunInTx(ctx, s.db, func(ctx context.Context) error {
		vt, err := s.consumeToken(ctx, token, model.TokenPurposeVerify)
		if err != nil {
			return err
		}
		if vt.UserID != userID {
			return ErrInvalidLink
		}
		return s.userRepo.MarkVerified(ctx, userID)
	})
	if err != nil {
		logger.Warn("Email verification failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return err
	}
	logger.Info("Email verified", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

// RecoverPassword mails a reset link. Unknown emails succeed silently.
func (s *authService) RecoverPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Info("Password recovery for unknown email", map[string]interface{}{
			"email": email,
		})
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.issueToken(ctx, user.ID, model.TokenPurposeReset, resetTokenTTL)
	if err != nil {
		logger.Error("Failed to create reset token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	deliver("reset", map[string]interface{}{"user_id": user.ID}, func() error {
		return s.mail.sendReset(ctx, user, token)
	})
	return nil
}

// ResetPassword sets a new password from a reset or account setup link.
// Either proves control of the mailbox, so the account becomes verified.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}

	var userID uint
	err = db.RunInTx(ctx, s.db, func(ctx context.Context) error {
		vt, err := s.consumeToken(ctx, token, model.TokenPurposeReset, model.TokenPurposeSetup)
		if err != nil {
			return err
		}
		userID = vt.UserID
		if err := s.userRepo.UpdatePassword(ctx, vt.UserID, hash); err != nil {
			return err
		}
		return s.userRepo.MarkVerified(ctx, vt.UserID)
	})
	if err != nil {
		logger.Warn("Password reset failed", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	logger.Info("Password reset", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

func (s *authService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}
