package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrCouponInactive       = errors.New("coupon is not active")
	ErrCouponExpired        = errors.New("coupon has expired")
	ErrCouponExhausted      = errors.New("coupon has no remaining uses")
	ErrCouponCodeExists     = errors.New("coupon code already exists")
	ErrInvalidCouponPercent = errors.New("discount percentage must be between 0 and 100")
)

// defaultCouponMaxUsage applies when a new coupon omits max_usage.
const defaultCouponMaxUsage = 1

// CouponInput is the admin payload for creating or editing a coupon.
// Nil fields keep their current value on update.
type CouponInput struct {
	Code               *string    `json:"code"`
	DiscountPercentage *float64   `json:"discount_percentage"`
	MaxUsage           *int       `json:"max_usage"`
	IsActive           *bool      `json:"is_active"`
	ExpiryDate         *time.Time `json:"expiry_date"`
}

type CouponService interface {
	// Validate returns the coupon when it can be applied right now.
	Validate(ctx context.Context, id uint) (*model.Coupon, error)
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	Get(ctx context.Context, id uint) (*model.Coupon, error)
	List(ctx context.Context, page, limit int) ([]model.Coupon, int64, error)
	Create(ctx context.Context, input CouponInput) (*model.Coupon, error)
	Update(ctx context.Context, id uint, input CouponInput) (*model.Coupon, error)
	Delete(ctx context.Context, id uint) error
	// Redeem consumes one use atomically.
	Redeem(ctx context.Context, id uint) error
	SweepExpired(ctx context.Context) (int64, error)
}

type couponService struct {
	couponRepo      repository.CouponRepository
	defaultValidity time.Duration
	now             func() time.Time
}

func NewCouponService(couponRepo repository.CouponRepository, defaultValidity time.Duration) CouponService {
	return &couponService{
		couponRepo:      couponRepo,
		defaultValidity: defaultValidity,
		now:             time.Now,
	}
}

func (s *couponService) Validate(ctx context.Context, id uint) (*model.Coupon, error) {
	coupon, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkApplicable(coupon, s.now()); err != nil {
		logger.Warn("Coupon rejected", map[string]interface{}{
			"coupon_id": id,
			"reason":    err.Error(),
		})
		return nil, err
	}
	return coupon, nil
}

func checkApplicable(coupon *model.Coupon, now time.Time) error {
	switch {
	case !coupon.IsActive:
		return ErrCouponInactive
	case coupon.MaxUsage <= 0:
		return ErrCouponExhausted
	case coupon.Expired(now):
		return ErrCouponExpired
	}
	return nil
}

func (s *couponService) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.couponRepo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		logger.Error("Failed to find coupon by code", err, map[string]interface{}{
			"code": code,
		})
		return nil, err
	}
	return coupon, nil
}

func (s *couponService) Get(ctx context.Context, id uint) (*model.Coupon, error) {
	coupon, err := s.couponRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		logger.Error("Failed to find coupon", err, map[string]interface{}{
			"coupon_id": id,
		})
		return nil, err
	}
	return coupon, nil
}

func (s *couponService) List(ctx context.Context, page, limit int) ([]model.Coupon, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.couponRepo.FindAll(ctx, page, limit)
}

func (s *couponService) Create(ctx context.Context, input CouponInput) (*model.Coupon, error) {
	if input.Code == nil || strings.TrimSpace(*input.Code) == "" || input.DiscountPercentage == nil {
		return nil, ErrInvalidInput
	}

	coupon := &model.Coupon{
		Code:       strings.TrimSpace(*input.Code),
		IsActive:   true,
		MaxUsage:   defaultCouponMaxUsage,
		ExpiryDate: s.now().Add(s.defaultValidity),
	}
	if err := s.apply(coupon, input); err != nil {
		return nil, err
	}
	// A new coupon must be redeemable at least once.
	if coupon.MaxUsage < 1 {
		return nil, ErrInvalidInput
	}
	if err := s.ensureCodeFree(ctx, coupon.Code, 0); err != nil {
		return nil, err
	}

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		logger.Error("Failed to create coupon", err, map[string]interface{}{
			"code": coupon.Code,
		})
		return nil, err
	}

	logger.Info("Coupon created", map[string]interface{}{
		"coupon_id":  coupon.ID,
		"code":       coupon.Code,
		"percentage": coupon.DiscountPercentage,
		"max_usage":  coupon.MaxUsage,
	})
	return coupon, nil
}

func (s *couponService) Update(ctx context.Context, id uint, input CouponInput) (*model.Coupon, error) {
	coupon, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if code == "" {
			return nil, ErrInvalidInput
		}
		if err := s.ensureCodeFree(ctx, code, id); err != nil {
			return nil, err
		}
		coupon.Code = code
	}
	if err := s.apply(coupon, input); err != nil {
		return nil, err
	}

	if err := s.couponRepo.Update(ctx, coupon); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		logger.Error("Failed to update coupon", err, map[string]interface{}{
			"coupon_id": id,
		})
		return nil, err
	}

	logger.Info("Coupon updated", map[string]interface{}{
		"coupon_id": id,
	})
	return coupon, nil
}

// apply copies the numeric and state fields of input onto coupon.
func (s *couponService) apply(coupon *model.Coupon, input CouponInput) error {
	if input.DiscountPercentage != nil {
		pct := *input.DiscountPercentage
		if math.IsNaN(pct) || pct <= 0 || pct > 100 {
			return ErrInvalidCouponPercent
		}
		coupon.DiscountPercentage = pct
	}
	if input.MaxUsage != nil {
		if *input.MaxUsage < 0 {
			return ErrInvalidInput
		}
		coupon.MaxUsage = *input.MaxUsage
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	if input.ExpiryDate != nil {
		coupon.ExpiryDate = *input.ExpiryDate
	}
	return nil
}

func (s *couponService) ensureCodeFree(ctx context.Context, code string, excludeID uint) error {
	taken, err := s.couponRepo.CodeTaken(ctx, code, excludeID)
	if err != nil {
		logger.Error("Failed to check coupon code", err, map[string]interface{}{
			"code": code,
		})
		return err
	}
	if taken {
		return ErrCouponCodeExists
	}
	return nil
}

func (s *couponService) Delete(ctx context.Context, id uint) error {
	if err := s.couponRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCouponNotFound
		}
		logger.Error("Failed to delete coupon", err, map[string]interface{}{
			"coupon_id": id,
		})
		return err
	}
	logger.Info("Coupon deleted", map[string]interface{}{
		"coupon_id": id,
	})
	return nil
}

func (s *couponService) Redeem(ctx context.Context, id uint) error {
	ok, err := s.couponRepo.Redeem(ctx, id, s.now())
	if err != nil {
		logger.Error("Failed to redeem coupon", err, map[string]interface{}{
			"coupon_id": id,
		})
		return err
	}
	if !ok {
		logger.Warn("Coupon redemption lost", map[string]interface{}{
			"coupon_id": id,
		})
		return ErrCouponExhausted
	}
	return nil
}

func (s *couponService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.couponRepo.DeactivateExpired(ctx, s.now())
	if err != nil {
		logger.Error("Failed to deactivate expired coupons", err)
		return 0, err
	}
	if n > 0 {
		logger.Info("Expired coupons deactivated", map[string]interface{}{
			"count": n,
		})
	}
	return n, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
