package repository

import (
	"context"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/db"
	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	return db.Conn(ctx, r.db).Create(review).Error
}

func (r *ReviewRepository) FindByID(ctx context.Context, id uint) (*model.Review, error) {
	var review model.Review
	if err := db.Conn(ctx, r.db).Preload("User").First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// FindByProductID returns a page of reviews, newest first.
func (r *ReviewRepository) FindByProductID(ctx context.Context, productID uint, offset, limit int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := db.Conn(ctx, r.db).Model(&model.Review{}).Where("product_id = ?", productID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("User").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// AverageRating ignores reviews without a rating.
func (r *ReviewRepository) AverageRating(ctx context.Context, productID uint) (float64, int64, error) {
	var row struct {
		Avg   float64
		Count int64
	}
	err := db.Conn(ctx, r.db).Model(&model.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(rating) AS count").
		Where("product_id = ? AND rating IS NOT NULL", productID).
		Scan(&row).Error
	return row.Avg, row.Count, err
}

func (r *ReviewRepository) Update(ctx context.Context, review *model.Review) error {
	return db.Conn(ctx, r.db).Model(review).Select("rating", "text").Updates(review).Error
}
