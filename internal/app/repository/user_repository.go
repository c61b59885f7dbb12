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

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByGoogleSub(ctx context.Context, sub string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	MarkVerified(ctx context.Context, id uint) error
	SetBanned(ctx context.Context, id uint, banned bool) error
	IsBanned(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, page, pageSize int) ([]model.User, int64, error)
	ListCreatedSince(ctx context.Context, since time.Time) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	logger.Debug("Creating user in database", map[string]interface{}{
		"email": user.Email,
	})

	if err := db.Conn(ctx, r.db).Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": user.Email,
		})
		return err
	}

	logger.Debug("User created in database", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := db.Conn(ctx, r.db).First(&user, id).Error; err != nil {
		logLookupError("Failed to find user by ID in database", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := db.Conn(ctx, r.db).Where("email = ?", email).First(&user).Error; err != nil {
		logLookupError("Failed to find user by email in database", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByGoogleSub(ctx context.Context, sub string) (*model.User, error) {
	var user model.User
	if err := db.Conn(ctx, r.db).Where("google_sub = ?", sub).First(&user).Error; err != nil {
		logLookupError("Failed to find user by google subject in database", err, nil)
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	logger.Debug("Updating user in database", map[string]interface{}{
		"user_id": user.ID,
	})

	if err := db.Conn(ctx, r.db).Save(user).Error; err != nil {
		logger.Error("Failed to update user in database", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	return nil
}

func (r *userRepository) updateColumn(ctx context.Context, id uint, column string, value interface{}) error {
	result := db.Conn(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		logger.Error("Failed to update user column in database", result.Error, map[string]interface{}{
			"user_id": id,
			"column":  column,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.updateColumn(ctx, id, "password_hash", hash)
}

func (r *userRepository) MarkVerified(ctx context.Context, id uint) error {
	return r.updateColumn(ctx, id, "verified", true)
}

func (r *userRepository) SetBanned(ctx context.Context, id uint, banned bool) error {
	logger.Info("Changing user ban flag", map[string]interface{}{
		"user_id": id,
		"banned":  banned,
	})
	return r.updateColumn(ctx, id, "banned", banned)
}

func (r *userRepository) IsBanned(ctx context.Context, id uint) (bool, error) {
	var user model.User
	err := db.Conn(ctx, r.db).Select("id", "banned").First(&user, id).Error
	if err != nil {
		return false, err
	}
	return user.Banned, nil
}

func (r *userRepository) List(ctx context.Context, page, pageSize int) ([]model.User, int64, error) {
	var total int64
	q := db.Conn(ctx, r.db).Model(&model.User{})
	if err := q.Count(&total).Error; err != nil {
		logger.Error("Failed to count users", err)
		return nil, 0, err
	}

	var users []model.User
	if err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error; err != nil {
		logger.Error("Failed to list users", err)
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]model.User, error) {
	var users []model.User
	if err := db.Conn(ctx, r.db).Where("created_at >= ?", since).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		logger.Error("Failed to list new users", err, map[string]interface{}{
			"since": since,
		})
		return nil, err
	}
	return users, nil
}

// logLookupError keeps not-found lookups at debug; they are routine.
func logLookupError(msg string, err error, fields map[string]interface{}) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Debug(msg, fields)
		return
	}
	logger.Error(msg, err, fields)
}
