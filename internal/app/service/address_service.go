package service

import (
	"context"
	"errors"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrAddressNotFound = errors.New("address not found")

type AddressInput struct {
	ReceiverName  string `json:"receiver_name" binding:"required"`
	ReceiverPhone string `json:"receiver_phone" binding:"required"`
	Province      string `json:"province" binding:"required"`
	District      string `json:"district"`
	Ward          string `json:"ward"`
	Street        string `json:"street" binding:"required"`
	IsDefault     bool   `json:"is_default"`
}

type AddressService interface {
	GetUserAddresses(ctx context.Context, userID uint) ([]model.Address, error)
	CreateAddress(ctx context.Context, userID uint, input AddressInput) (*model.Address, error)
	UpdateAddress(ctx context.Context, userID, addressID uint, input AddressInput) (*model.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID uint) error
	SetDefaultAddress(ctx context.Context, userID, addressID uint) error
}

type addressService struct {
	addressRepo repository.AddressRepository
}

func NewAddressService(addressRepo repository.AddressRepository) AddressService {
	return &addressService{
		addressRepo: addressRepo,
	}
}

func (s *addressService) GetUserAddresses(ctx context.Context, userID uint) ([]model.Address, error) {
	logger.Debug("Fetching user addresses", map[string]interface{}{
		"user_id": userID,
	})

	addresses, err := s.addressRepo.FindByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to fetch user addresses", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return addresses, nil
}

func (s *addressService) CreateAddress(ctx context.Context, userID uint, input AddressInput) (*model.Address, error) {
	logger.Info("Creating address", map[string]interface{}{
		"user_id":  userID,
		"province": input.Province,
	})

	existing, err := s.addressRepo.FindByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to check existing addresses", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	address := &model.Address{UserID: userID}
	applyAddressInput(address, input)
	// The first address is always the default one.
	makeDefault := input.IsDefault || len(existing) == 0
	address.IsDefault = false

	if err := s.addressRepo.Create(ctx, address); err != nil {
		logger.Error("Failed to create address", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	if makeDefault {
		if err := s.addressRepo.SetDefault(ctx, userID, address.ID); err != nil {
			return nil, err
		}
		address.IsDefault = true
	}

	logger.Info("Address created successfully", map[string]interface{}{
		"address_id": address.ID,
		"user_id":    userID,
	})
	return address, nil
}

func applyAddressInput(address *model.Address, input AddressInput) {
	address.ReceiverName = input.ReceiverName
	address.ReceiverPhone = input.ReceiverPhone
	address.Province = input.Province
	address.District = input.District
	address.Ward = input.Ward
	address.Street = input.Street
}

// owned loads an address and checks it belongs to userID.
func (s *addressService) owned(ctx context.Context, userID, addressID uint) (*model.Address, error) {
	address, err := s.addressRepo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Address not found", map[string]interface{}{
				"address_id": addressID,
			})
			return nil, ErrAddressNotFound
		}
		logger.Error("Failed to fetch address", err, map[string]interface{}{
			"address_id": addressID,
		})
		return nil, err
	}
	if address.UserID != userID {
		logger.Warn("Unauthorized access to address", map[string]interface{}{
			"user_id":    userID,
			"address_id": addressID,
			"owner_id":   address.UserID,
		})
		return nil, ErrForbidden
	}
	return address, nil
}

func (s *addressService) UpdateAddress(ctx context.Context, userID, addressID uint, input AddressInput) (*model.Address, error) {
	logger.Info("Updating address", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})

	address, err := s.owned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	applyAddressInput(address, input)

	if err := s.addressRepo.Update(ctx, address); err != nil {
		logger.Error("Failed to update address", err, map[string]interface{}{
			"address_id": addressID,
		})
		return nil, err
	}
	if input.IsDefault && !address.IsDefault {
		if err := s.addressRepo.SetDefault(ctx, userID, addressID); err != nil {
			return nil, err
		}
		address.IsDefault = true
	}
	return address, nil
}

func (s *addressService) DeleteAddress(ctx context.Context, userID, addressID uint) error {
	logger.Info("Deleting address", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})

	if _, err := s.owned(ctx, userID, addressID); err != nil {
		return err
	}
	if err := s.addressRepo.Delete(ctx, addressID); err != nil {
		logger.Error("Failed to delete address", err, map[string]interface{}{
			"address_id": addressID,
		})
		return err
	}
	return nil
}

func (s *addressService) SetDefaultAddress(ctx context.Context, userID, addressID uint) error {
	if _, err := s.owned(ctx, userID, addressID); err != nil {
		return err
	}
	if err := s.addressRepo.SetDefault(ctx, userID, addressID); err != nil {
		logger.Error("Failed to set default address", err, map[string]interface{}{
			"user_id":    userID,
			"address_id": addressID,
		})
		return err
	}
	logger.Info("Default address set", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})
	return nil
}
