package db

import (
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Address{},
		&model.VerifyToken{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Coupon{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Review{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds initial data to the database (optional)
func Seed() error {
	return seedWelcomeCoupon(DB)
}

func seedWelcomeCoupon(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&model.Coupon{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Coupons already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	coupon := model.Coupon{
		Code:               "WELCOME10",
		DiscountPercentage: 10,
		IsActive:           true,
		MaxUsage:           100,
		ExpiryDate:         time.Now().AddDate(0, 1, 0),
	}
	if err := conn.Create(&coupon).Error; err != nil {
		return err
	}

	logger.Info("Seeded welcome coupon", map[string]interface{}{
		"code": coupon.Code,
	})
	return nil
}
