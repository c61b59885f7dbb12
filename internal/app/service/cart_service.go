package service

import (
	"context"
	"errors"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartNotFound         = errors.New("cart not found")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrCartEmpty            = errors.New("cart is empty")
	ErrCartBusy             = errors.New("cart is being modified, try again")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidCartOwner     = errors.New("cart owner must be a user or a session")
	ErrCouponAlreadyApplied = errors.New("coupon already applied to cart")
	ErrNoCouponApplied      = errors.New("no coupon applied to cart")
)

type AddItemInput struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type UpdateItemInput struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Selected  *bool  `json:"selected"`
}

// CartLine is a cart item joined with the product it refers to.
type CartLine struct {
	ProductID uint    `json:"product_id"`
	Variant   string  `json:"variant"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Selected  bool    `json:"selected"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"` // current catalog price
	ImageURL  string  `json:"image_url"`
	Available bool    `json:"available"` // false once the product was removed
}

type CartCoupon struct {
	ID                 uint    `json:"id"`
	Code               string  `json:"code"`
	DiscountPercentage float64 `json:"discount_percentage"`
	Applicable         bool    `json:"applicable"`
}

type CartView struct {
	Items  []CartLine  `json:"items"`
	Coupon *CartCoupon `json:"coupon"`
	Totals
}

type MiniCart struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// ImageLocator turns a stored object key into a public URL.
type ImageLocator interface {
	URL(key string) string
}

type CartService interface {
	GetCart(ctx context.Context, owner model.CartOwner) (*CartView, error)
	GetMiniCart(ctx context.Context, owner model.CartOwner) (*MiniCart, error)
	AddItem(ctx context.Context, owner model.CartOwner, input AddItemInput) (*CartView, error)
	UpdateItem(ctx context.Context, owner model.CartOwner, input UpdateItemInput) (*CartView, error)
	RemoveItem(ctx context.Context, owner model.CartOwner, key model.ItemKey) (*CartView, error)
	ClearCart(ctx context.Context, owner model.CartOwner) error
	ApplyCoupon(ctx context.Context, owner model.CartOwner, couponID uint) (*CartView, error)
	ApplyCouponCode(ctx context.Context, owner model.CartOwner, code string) (*CartView, error)
	RemoveCoupon(ctx context.Context, owner model.CartOwner) (*CartView, error)
	// MergeSessionCart folds an anonymous cart into the user's cart and
	// deletes it.
	MergeSessionCart(ctx context.Context, sessionID string, userID uint) error
}

type cartService struct {
	userCarts    repository.CartStore
	sessionCarts repository.CartStore
	productRepo  repository.ProductRepository
	couponRepo   repository.CouponRepository
	coupons      CouponService
	images       ImageLocator
	now          func() time.Time
}

func NewCartService(
	userCarts repository.CartStore,
	sessionCarts repository.CartStore,
	productRepo repository.ProductRepository,
	couponRepo repository.CouponRepository,
	coupons CouponService,
	images ImageLocator,
) CartService {
	return &cartService{
		userCarts:    userCarts,
		sessionCarts: sessionCarts,
		productRepo:  productRepo,
		couponRepo:   couponRepo,
		coupons:      coupons,
		images:       images,
		now:          time.Now,
	}
}

func (s *cartService) store(owner model.CartOwner) (repository.CartStore, error) {
	if !owner.Valid() {
		return nil, ErrInvalidCartOwner
	}
	if owner.IsUser() {
		return s.userCarts, nil
	}
	return s.sessionCarts, nil
}

// mutate runs fn under the owner's cart lock and reprices the cart before
// it is written back.
func (s *cartService) mutate(ctx context.Context, owner model.CartOwner, create bool, fn repository.CartMutation) (*model.Cart, error) {
	store, err := s.store(owner)
	if err != nil {
		return nil, err
	}
	cart, err := store.Mutate(ctx, owner, create, func(ctx context.Context, cart *model.Cart) error {
		if err := fn(ctx, cart); err != nil {
			return err
		}
		return s.reprice(ctx, cart)
	})
	return cart, translateCartError(err)
}

func translateCartError(err error) error {
	switch {
	case errors.Is(err, repository.ErrCartNotFound):
		return ErrCartNotFound
	case errors.Is(err, repository.ErrCartBusy):
		return ErrCartBusy
	}
	return err
}

// reprice refreshes the persisted totals. A coupon that no longer exists
// is dropped from the cart.
func (s *cartService) reprice(ctx context.Context, cart *model.Cart) error {
	coupon, err := s.cartCoupon(ctx, cart)
	if err != nil {
		return err
	}
	totals := PriceLines(cart.Items, coupon, s.now())
	cart.Subtotal, cart.Discount, cart.Total = totals.Subtotal, totals.Discount, totals.Total
	return nil
}

func (s *cartService) cartCoupon(ctx context.Context, cart *model.Cart) (*model.Coupon, error) {
	if cart.CouponID == nil {
		return nil, nil
	}
	coupon, err := s.couponRepo.FindByID(ctx, *cart.CouponID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart.CouponID = nil
		return nil, nil
	}
	return coupon, err
}

func (s *cartService) GetCart(ctx context.Context, owner model.CartOwner) (*CartView, error) {
	store, err := s.store(owner)
	if err != nil {
		return nil, err
	}
	cart, err := store.Load(ctx, owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		return &CartView{Items: []CartLine{}}, nil
	}
	if err != nil {
		logger.Error("Failed to load cart", err, map[string]interface{}{
			"owner": owner.String(),
		})
		return nil, err
	}
	return s.view(ctx, cart)
}

// view joins the cart with current product data. Totals are recomputed
// from the lines and the coupon's state at read time.
func (s *cartService) view(ctx context.Context, cart *model.Cart) (*CartView, error) {
	ids := make([]uint, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		logger.Error("Failed to load cart products", err, map[string]interface{}{
			"product_ids": ids,
		})
		return nil, err
	}

	lines := make([]CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		line := CartLine{
			ProductID: item.ProductID,
			Variant:   item.Variant,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Selected:  item.Selected,
		}
		if p, ok := products[item.ProductID]; ok {
			line.Name = p.Name
			line.UnitPrice = p.Price
			line.ImageURL = s.imageURL(p.ImageKey)
			line.Available = true
		}
		lines = append(lines, line)
	}

	coupon, err := s.cartCoupon(ctx, cart)
	if err != nil {
		return nil, err
	}
	now := s.now()
	view := &CartView{Items: lines, Totals: PriceLines(cart.Items, coupon, now)}
	if coupon != nil {
		view.Coupon = &CartCoupon{
			ID:                 coupon.ID,
			Code:               coupon.Code,
			DiscountPercentage: coupon.DiscountPercentage,
			Applicable:         coupon.Applicable(now),
		}
	}
	return view, nil
}

func (s *cartService) imageURL(key string) string {
	if s.images == nil || key == "" {
		return key
	}
	return s.images.URL(key)
}

func (s *cartService) GetMiniCart(ctx context.Context, owner model.CartOwner) (*MiniCart, error) {
	view, err := s.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	mini := &MiniCart{Total: view.Total}
	for _, line := range view.Items {
		mini.Count += line.Quantity
	}
	return mini, nil
}

// loadVariant fetches the product and checks the variant exists.
func (s *cartService) loadVariant(ctx context.Context, productID uint, variant string) (*model.Product, *model.ProductVariant, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": productID,
			})
			return nil, nil, ErrProductNotFound
		}
		return nil, nil, err
	}
	v := product.Variant(variant)
	if v == nil {
		logger.Warn("Variant not found", map[string]interface{}{
			"product_id": productID,
			"variant":    variant,
		})
		return nil, nil, ErrVariantNotFound
	}
	return product, v, nil
}

func (s *cartService) AddItem(ctx context.Context, owner model.CartOwner, input AddItemInput) (*CartView, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"owner":      owner.String(),
		"product_id": input.ProductID,
		"variant":    input.Variant,
		"quantity":   input.Quantity,
	})

	if input.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	product, variant, err := s.loadVariant(ctx, input.ProductID, input.Variant)
	if err != nil {
		return nil, err
	}

	key := model.ItemKey{ProductID: input.ProductID, Variant: input.Variant}
	cart, err := s.mutate(ctx, owner, true, func(_ context.Context, cart *model.Cart) error {
		requested := input.Quantity
		idx := cart.Find(key)
		if idx >= 0 {
			requested += cart.Items[idx].Quantity
		}
		if requested > variant.Stock {
			return &InsufficientStockError{
				ProductID: key.ProductID,
				Variant:   key.Variant,
				Requested: requested,
				Available: variant.Stock,
			}
		}

		linePrice := roundMoney(product.Price * float64(input.Quantity))
		if idx >= 0 {
			cart.Items[idx].Quantity = requested
			cart.Items[idx].Price = roundMoney(cart.Items[idx].Price + linePrice)
			return nil
		}
		cart.Items = append(cart.Items, model.CartItem{
			ProductID: key.ProductID,
			Variant:   key.Variant,
			Quantity:  input.Quantity,
			Price:     linePrice,
			Selected:  true,
		})
		return nil
	})
	if err != nil {
		logger.Warn("Failed to add item to cart", map[string]interface{}{
			"owner":      owner.String(),
			"product_id": input.ProductID,
			"error":      err.Error(),
		})
		return nil, err
	}

	logger.Info("Item added to cart", map[string]interface{}{
		"owner":      owner.String(),
		"product_id": input.ProductID,
		"items":      len(cart.Items),
	})
	return s.view(ctx, cart)
}

func (s *cartService) UpdateItem(ctx context.Context, owner model.CartOwner, input UpdateItemInput) (*CartView, error) {
	logger.Info("Updating cart item", map[string]interface{}{
		"owner":      owner.String(),
		"product_id": input.ProductID,
		"variant":    input.Variant,
		"quantity":   input.Quantity,
	})

	if input.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	product, variant, err := s.loadVariant(ctx, input.ProductID, input.Variant)
	if err != nil {
		return nil, err
	}
	if input.Quantity > variant.Stock {
		return nil, &InsufficientStockError{
			ProductID: input.ProductID,
			Variant:   input.Variant,
			Requested: input.Quantity,
			Available: variant.Stock,
		}
	}

	key := model.ItemKey{ProductID: input.ProductID, Variant: input.Variant}
	cart, err := s.mutate(ctx, owner, false, func(_ context.Context, cart *model.Cart) error {
		idx := cart.Find(key)
		if idx < 0 {
			return ErrCartItemNotFound
		}
		cart.Items[idx].Quantity = input.Quantity
		cart.Items[idx].Price = roundMoney(product.Price * float64(input.Quantity))
		if input.Selected != nil {
			cart.Items[idx].Selected = *input.Selected
		}
		return nil
	})
	if err != nil {
		logger.Warn("Failed to update cart item", map[string]interface{}{
			"owner":      owner.String(),
			"product_id": input.ProductID,
			"error":      err.Error(),
		})
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *cartService) RemoveItem(ctx context.Context, owner model.CartOwner, key model.ItemKey) (*CartView, error) {
	logger.Info("Removing cart item", map[string]interface{}{
		"owner":      owner.String(),
		"product_id": key.ProductID,
		"variant":    key.Variant,
	})

	cart, err := s.mutate(ctx, owner, false, func(_ context.Context, cart *model.Cart) error {
		idx := cart.Find(key)
		if idx < 0 {
			return ErrCartItemNotFound
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// ClearCart deletes the stored cart. A missing cart counts as cleared.
func (s *cartService) ClearCart(ctx context.Context, owner model.CartOwner) error {
	store, err := s.store(owner)
	if err != nil {
		return err
	}
	err = store.Delete(ctx, owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"owner": owner.String(),
		})
		return err
	}
	logger.Info("Cart cleared", map[string]interface{}{
		"owner": owner.String(),
	})
	return nil
}

func (s *cartService) ApplyCoupon(ctx context.Context, owner model.CartOwner, couponID uint) (*CartView, error) {
	logger.Info("Applying coupon", map[string]interface{}{
		"owner":     owner.String(),
		"coupon_id": couponID,
	})

	cart, err := s.mutate(ctx, owner, false, func(ctx context.Context, cart *model.Cart) error {
		if cart.CouponID != nil && *cart.CouponID == couponID {
			return ErrCouponAlreadyApplied
		}
		coupon, err := s.coupons.Validate(ctx, couponID)
		if err != nil {
			return err
		}
		cart.CouponID = &coupon.ID
		return nil
	})
	if err != nil {
		logger.Warn("Coupon not applied", map[string]interface{}{
			"owner":     owner.String(),
			"coupon_id": couponID,
			"error":     err.Error(),
		})
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *cartService) ApplyCouponCode(ctx context.Context, owner model.CartOwner, code string) (*CartView, error) {
	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.ApplyCoupon(ctx, owner, coupon.ID)
}

func (s *cartService) RemoveCoupon(ctx context.Context, owner model.CartOwner) (*CartView, error) {
	cart, err := s.mutate(ctx, owner, false, func(_ context.Context, cart *model.Cart) error {
		if cart.CouponID == nil {
			return ErrNoCouponApplied
		}
		cart.CouponID = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Coupon removed from cart", map[string]interface{}{
		"owner": owner.String(),
	})
	return s.view(ctx, cart)
}

func (s *cartService) MergeSessionCart(ctx context.Context, sessionID string, userID uint) error {
	if sessionID == "" || userID == 0 {
		return nil
	}
	sessionOwner := model.SessionOwner(sessionID)
	userOwner := model.UserOwner(userID)

	merged := 0
	_, err := s.sessionCarts.Mutate(ctx, sessionOwner, false, func(ctx context.Context, anon *model.Cart) error {
		if len(anon.Items) == 0 && anon.CouponID == nil {
			return nil
		}
		_, err := s.mutate(ctx, userOwner, true, func(_ context.Context, cart *model.Cart) error {
			for _, item := range anon.Items {
				if idx := cart.Find(item.Key()); idx >= 0 {
					cart.Items[idx].Quantity += item.Quantity
					cart.Items[idx].Price = roundMoney(cart.Items[idx].Price + item.Price)
					continue
				}
				cart.Items = append(cart.Items, model.CartItem{
					ProductID: item.ProductID,
					Variant:   item.Variant,
					Quantity:  item.Quantity,
					Price:     item.Price,
					Selected:  item.Selected,
				})
			}
			if cart.CouponID == nil && anon.CouponID != nil {
				id := *anon.CouponID
				cart.CouponID = &id
			}
			return nil
		})
		if err != nil {
			return err
		}
		merged = len(anon.Items)
		anon.Items = nil
		anon.CouponID = nil
		return nil
	})
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		logger.Error("Failed to merge session cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return translateCartError(err)
	}

	if err := s.sessionCarts.Delete(ctx, sessionOwner); err != nil {
		logger.Warn("Failed to delete merged session cart", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}

	logger.Info("Session cart merged", map[string]interface{}{
		"user_id": userID,
		"lines":   merged,
	})
	return nil
}
