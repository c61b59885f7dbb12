package repository

import (
	"context"
	"errors"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrCartBusy     = errors.New("cart is being modified by another request")
)

// CartMutation edits a cart in place. ctx carries the store's transaction,
// if any, so repository calls made inside join it. Returning an error
// discards every change made by the mutation.
type CartMutation func(ctx context.Context, cart *model.Cart) error

// CartStore persists carts for one kind of owner. Mutate runs fn under a
// per-cart lock so concurrent read-modify-write cycles cannot lose updates.
type CartStore interface {
	Load(ctx context.Context, owner model.CartOwner) (*model.Cart, error)
	Mutate(ctx context.Context, owner model.CartOwner, create bool, fn CartMutation) (*model.Cart, error)
	Delete(ctx context.Context, owner model.CartOwner) error
}

// userCartStore keeps signed-in users' carts in the database, one row per user.
type userCartStore struct {
	db *gorm.DB
}

func NewUserCartStore(db *gorm.DB) CartStore {
	return &userCartStore{db: db}
}

func (s *userCartStore) loadItems(tx *gorm.DB, cart *model.Cart) error {
	return tx.Where("cart_id = ?", cart.ID).Order("position ASC, id ASC").Find(&cart.Items).Error
}

func (s *userCartStore) Load(ctx context.Context, owner model.CartOwner) (*model.Cart, error) {
	tx := db.Conn(ctx, s.db)

	var cart model.Cart
	if err := tx.Where("user_id = ?", owner.UserID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		logger.Error("Failed to load cart", err, map[string]interface{}{
			"owner": owner.String(),
		})
		return nil, err
	}
	if err := s.loadItems(tx, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *userCartStore) Mutate(ctx context.Context, owner model.CartOwner, create bool, fn CartMutation) (*model.Cart, error) {
	var out *model.Cart
	err := db.RunInTx(ctx, s.db, func(ctx context.Context) error {
		tx := db.Conn(ctx, s.db)

		cart, err := s.lockCart(tx, owner.UserID, create)
		if err != nil {
			return err
		}
		if err := s.loadItems(tx, cart); err != nil {
			return err
		}

		if err := fn(ctx, cart); err != nil {
			return err
		}

		if err := s.save(tx, cart); err != nil {
			logger.Error("Failed to save cart", err, map[string]interface{}{
				"owner":   owner.String(),
				"cart_id": cart.ID,
			})
			return err
		}
		out = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockCart selects the cart row FOR UPDATE, creating it first when allowed.
func (s *userCartStore) lockCart(tx *gorm.DB, userID uint, create bool) (*model.Cart, error) {
	var cart model.Cart
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !create {
		return nil, ErrCartNotFound
	}

	// A concurrent first add may insert the same row; the unique user_id
	// makes one insert a no-op and both callers then lock the winner.
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Cart{UserID: userID}).Error; err != nil {
		return nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	logger.Debug("Cart created", map[string]interface{}{
		"user_id": userID,
		"cart_id": cart.ID,
	})
	return &cart, nil
}

func (s *userCartStore) save(tx *gorm.DB, cart *model.Cart) error {
	if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
		return err
	}
	for i := range cart.Items {
		cart.Items[i].ID = 0
		cart.Items[i].CartID = cart.ID
		cart.Items[i].Position = i
	}
	if len(cart.Items) > 0 {
		if err := tx.Create(&cart.Items).Error; err != nil {
			return err
		}
	}
	return tx.Model(cart).
		Select("coupon_id", "subtotal", "discount", "total").
		Updates(cart).Error
}

func (s *userCartStore) Delete(ctx context.Context, owner model.CartOwner) error {
	return db.RunInTx(ctx, s.db, func(ctx context.Context) error {
		tx := db.Conn(ctx, s.db)
		var cart model.Cart
		if err := tx.Where("user_id = ?", owner.UserID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cart).Error
	})
}
