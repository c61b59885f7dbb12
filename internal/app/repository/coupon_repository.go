package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

// CouponRepository defines the interface for coupon data access.
type CouponRepository interface {
	Create(ctx context.Context, coupon *model.Coupon) error
	FindByID(ctx context.Context, id uint) (*model.Coupon, error)
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	CodeTaken(ctx context.Context, code string, excludeID uint) (bool, error)
	Update(ctx context.Context, coupon *model.Coupon) error
	Delete(ctx context.Context, id uint) error
	FindAll(ctx context.Context, page, limit int) ([]model.Coupon, int64, error)
	Redeem(ctx context.Context, id uint, now time.Time) (bool, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository creates a new gorm-backed CouponRepository.
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

// Create inserts a new coupon.
func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	logger.Debug("Creating coupon in database", map[string]interface{}{
		"code": coupon.Code,
	})

	if err := db.Conn(ctx, r.db).Create(coupon).Error; err != nil {
		logger.Error("Failed to create coupon in database", err, map[string]interface{}{
			"code": coupon.Code,
		})
		return err
	}
	return nil
}

// FindByID retrieves a coupon regardless of its state.
func (r *couponRepository) FindByID(ctx context.Context, id uint) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := db.Conn(ctx, r.db).First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug("Coupon not found", map[string]interface{}{
				"coupon_id": id,
			})
		} else {
			logger.Error("Failed to fetch coupon by ID", err, map[string]interface{}{
				"coupon_id": id,
			})
		}
		return nil, err
	}
	return &coupon, nil
}

// FindByCode retrieves a coupon by its code (case-insensitive).
func (r *couponRepository) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := db.Conn(ctx, r.db).
		Where("LOWER(code) = ?", strings.ToLower(code)).
		First(&coupon).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to fetch coupon by code", err, map[string]interface{}{
				"code": code,
			})
		}
		return nil, err
	}
	return &coupon, nil
}

// CodeTaken reports whether another coupon already uses code.
func (r *couponRepository) CodeTaken(ctx context.Context, code string, excludeID uint) (bool, error) {
	var count int64
	q := db.Conn(ctx, r.db).Model(&model.Coupon{}).Where("LOWER(code) = ?", strings.ToLower(code))
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		logger.Error("Failed to check coupon code", err, map[string]interface{}{
			"code": code,
		})
		return false, err
	}
	return count > 0, nil
}

// Update writes every editable column, including false and zero values.
func (r *couponRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	result := db.Conn(ctx, r.db).Model(coupon).
		Select("code", "discount_percentage", "is_active", "max_usage", "expiry_date").
		Updates(coupon)
	if result.Error != nil {
		logger.Error("Failed to update coupon in database", result.Error, map[string]interface{}{
			"coupon_id": coupon.ID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a coupon permanently.
func (r *couponRepository) Delete(ctx context.Context, id uint) error {
	result := db.Conn(ctx, r.db).Delete(&model.Coupon{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete coupon from database", result.Error, map[string]interface{}{
			"coupon_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindAll retrieves paginated coupons.
func (r *couponRepository) FindAll(ctx context.Context, page, limit int) ([]model.Coupon, int64, error) {
	var coupons []model.Coupon
	var total int64

	query := db.Conn(ctx, r.db).Model(&model.Coupon{})
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count coupons", err)
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&coupons).Error; err != nil {
		logger.Error("Failed to fetch coupons", err, map[string]interface{}{
			"page":  page,
			"limit": limit,
		})
		return nil, 0, err
	}
	logger.Debug("Fetched coupons", map[string]interface{}{
		"count": len(coupons),
		"total": total,
	})
	return coupons, total, nil
}

// Redeem consumes one use of the coupon in a single guarded UPDATE. The
// coupon deactivates itself when the last use is taken. Returns false when
// the coupon was inactive, expired or exhausted at write time.
func (r *couponRepository) Redeem(ctx context.Context, id uint, now time.Time) (bool, error) {
	result := db.Conn(ctx, r.db).Model(&model.Coupon{}).
		Where("id = ? AND is_active = ? AND max_usage > 0 AND expiry_date > ?", id, true, now).
		UpdateColumns(map[string]interface{}{
			"max_usage":   gorm.Expr("max_usage - 1"),
			"usage_count": gorm.Expr("usage_count + 1"),
			"is_active":   gorm.Expr("CASE WHEN max_usage <= 1 THEN ? ELSE is_active END", false),
			"updated_at":  now,
		})
	if result.Error != nil {
		logger.Error("Failed to redeem coupon", result.Error, map[string]interface{}{
			"coupon_id": id,
		})
		return false, result.Error
	}
	logger.Debug("Coupon redeem attempted", map[string]interface{}{
		"coupon_id": id,
		"redeemed":  result.RowsAffected == 1,
	})
	return result.RowsAffected == 1, nil
}

// DeactivateExpired switches off every active coupon past its expiry.
func (r *couponRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := db.Conn(ctx, r.db).Model(&model.Coupon{}).
		Where("is_active = ? AND expiry_date <= ?", true, now).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		logger.Error("Failed to deactivate expired coupons", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
