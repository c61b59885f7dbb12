package repository

import (
	"context"
	"errors"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrTokenAlreadyUsed = errors.New("token already used")

type VerifyTokenRepository interface {
	Create(ctx context.Context, token *model.VerifyToken) error
	FindByToken(ctx context.Context, token string, purposes ...model.TokenPurpose) (*model.VerifyToken, error)
	MarkUsed(ctx context.Context, id uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type verifyTokenRepository struct {
	db *gorm.DB
}

func NewVerifyTokenRepository(db *gorm.DB) VerifyTokenRepository {
	return &verifyTokenRepository{db: db}
}

func (r *verifyTokenRepository) Create(ctx context.Context, token *model.VerifyToken) error {
	if err := db.Conn(ctx, r.db).Create(token).Error; err != nil {
		logger.Error("Failed to create verify token in database", err, map[string]interface{}{
			"user_id": token.UserID,
			"purpose": token.Purpose,
		})
		return err
	}
	logger.Debug("Verify token created", map[string]interface{}{
		"user_id": token.UserID,
		"purpose": token.Purpose,
	})
	return nil
}

func (r *verifyTokenRepository) FindByToken(ctx context.Context, token string, purposes ...model.TokenPurpose) (*model.VerifyToken, error) {
	q := db.Conn(ctx, r.db).Where("token = ?", token)
	if len(purposes) > 0 {
		q = q.Where("purpose IN ?", purposes)
	}

	var vt model.VerifyToken
	if err := q.First(&vt).Error; err != nil {
		logLookupError("Failed to find verify token in database", err, nil)
		return nil, err
	}
	return &vt, nil
}

// MarkUsed flips the token to used exactly once.
func (r *verifyTokenRepository) MarkUsed(ctx context.Context, id uint) error {
	result := db.Conn(ctx, r.db).Model(&model.VerifyToken{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if result.Error != nil {
		logger.Error("Failed to mark verify token as used", result.Error, map[string]interface{}{
			"token_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenAlreadyUsed
	}
	return nil
}

func (r *verifyTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := db.Conn(ctx, r.db).Where("expires_at < ? OR used = ?", now, true).Delete(&model.VerifyToken{})
	if result.Error != nil {
		logger.Error("Failed to delete expired verify tokens", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
