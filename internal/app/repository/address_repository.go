package repository

import (
	"context"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

type AddressRepository interface {
	Create(ctx context.Context, address *model.Address) error
	FindByUserID(ctx context.Context, userID uint) ([]model.Address, error)
	FindByID(ctx context.Context, id uint) (*model.Address, error)
	Update(ctx context.Context, address *model.Address) error
	Delete(ctx context.Context, id uint) error
	SetDefault(ctx context.Context, userID, addressID uint) error
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(ctx context.Context, address *model.Address) error {
	logger.Debug("Creating address in database", map[string]interface{}{
		"user_id": address.UserID,
	})

	if err := db.Conn(ctx, r.db).Create(address).Error; err != nil {
		logger.Error("Failed to create address in database", err, map[string]interface{}{
			"user_id": address.UserID,
		})
		return err
	}
	return nil
}

func (r *addressRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Address, error) {
	var addresses []model.Address
	err := db.Conn(ctx, r.db).Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error
	if err != nil {
		logger.Error("Failed to find addresses by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return addresses, nil
}

func (r *addressRepository) FindByID(ctx context.Context, id uint) (*model.Address, error) {
	var address model.Address
	if err := db.Conn(ctx, r.db).First(&address, id).Error; err != nil {
		logLookupError("Failed to find address by ID in database", err, map[string]interface{}{
			"address_id": id,
		})
		return nil, err
	}
	return &address, nil
}

func (r *addressRepository) Update(ctx context.Context, address *model.Address) error {
	if err := db.Conn(ctx, r.db).Save(address).Error; err != nil {
		logger.Error("Failed to update address in database", err, map[string]interface{}{
			"address_id": address.ID,
			"user_id":    address.UserID,
		})
		return err
	}
	return nil
}

func (r *addressRepository) Delete(ctx context.Context, id uint) error {
	if err := db.Conn(ctx, r.db).Delete(&model.Address{}, id).Error; err != nil {
		logger.Error("Failed to delete address from database", err, map[string]interface{}{
			"address_id": id,
		})
		return err
	}
	return nil
}

// SetDefault makes addressID the only default address of the user.
func (r *addressRepository) SetDefault(ctx context.Context, userID, addressID uint) error {
	logger.Debug("Setting default address", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})

	return db.RunInTx(ctx, r.db, func(ctx context.Context) error {
		tx := db.Conn(ctx, r.db)
		if err := tx.Model(&model.Address{}).Where("user_id = ?", userID).Update("is_default", false).Error; err != nil {
			logger.Error("Failed to unset default addresses", err, map[string]interface{}{
				"user_id": userID,
			})
			return err
		}
		result := tx.Model(&model.Address{}).Where("id = ? AND user_id = ?", addressID, userID).Update("is_default", true)
		if result.Error != nil {
			logger.Error("Failed to set address as default", result.Error, map[string]interface{}{
				"user_id":    userID,
				"address_id": addressID,
			})
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
