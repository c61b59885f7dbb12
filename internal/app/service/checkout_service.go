package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/pkg/logger"
	"github.com/madness-store/madness-backend/pkg/mailer"
	"github.com/madness-store/madness-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrLoginRequired       = errors.New("an account with this email already exists, please log in")
	ErrNoItemsSelected     = errors.New("none of the selected items are in the cart")
	ErrMissingDeliveryInfo = errors.New("receiver name, email and shipping address are required")
)

type CheckoutInput struct {
	SelectedItems   []model.ItemKey `json:"selected_items"`
	AddressID       *uint           `json:"address_id"`
	ShippingAddress string          `json:"shipping_address"`
	ReceiverName    string          `json:"receiver_name"`
	ReceiverEmail   string          `json:"receiver_email"`
	ReceiverPhone   string          `json:"receiver_phone"`
	ShippingFee     *float64        `json:"shipping_fee"`
	Tax             *float64        `json:"tax"`
}

type CheckoutResult struct {
	Order *model.Order `json:"order"`
	// AccountCreated is set when an anonymous checkout provisioned a new
	// account for the receiver email.
	AccountCreated bool `json:"account_created"`
}

type CheckoutService interface {
	Checkout(ctx context.Context, owner model.CartOwner, input CheckoutInput) (*CheckoutResult, error)
}

type checkoutService struct {
	db           *gorm.DB
	userCarts    repository.CartStore
	sessionCarts repository.CartStore
	userRepo     repository.UserRepository
	addressRepo  repository.AddressRepository
	tokenRepo    repository.VerifyTokenRepository
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	coupons      CouponService
	charges      ChargesPolicy
	mail         *accountMail
	notifier     OrderNotifier
	now          func() time.Time
}

type CheckoutDeps struct {
	DB           *gorm.DB
	UserCarts    repository.CartStore
	SessionCarts repository.CartStore
	Users        repository.UserRepository
	Addresses    repository.AddressRepository
	Tokens       repository.VerifyTokenRepository
	Orders       repository.OrderRepository
	Products     repository.ProductRepository
	Coupons      CouponService
	Charges      ChargesPolicy
	Mailer       mailer.Sender
	FrontendURL  string
	Notifier     OrderNotifier
}

func NewCheckoutService(deps CheckoutDeps) CheckoutService {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &checkoutService{
		db:           deps.DB,
		userCarts:    deps.UserCarts,
		sessionCarts: deps.SessionCarts,
		userRepo:     deps.Users,
		addressRepo:  deps.Addresses,
		tokenRepo:    deps.Tokens,
		orderRepo:    deps.Orders,
		productRepo:  deps.Products,
		coupons:      deps.Coupons,
		charges:      deps.Charges,
		mail:         newAccountMail(deps.Mailer, deps.FrontendURL),
		notifier:     notifier,
		now:          time.Now,
	}
}

type delivery struct {
	Address string
	Name    string
	Email   string
	Phone   string
}

func (s *checkoutService) Checkout(ctx context.Context, owner model.CartOwner, input CheckoutInput) (*CheckoutResult, error) {
	logger.Info("Checkout started", map[string]interface{}{
		"owner":    owner.String(),
		"selected": len(input.SelectedItems),
	})

	if !owner.Valid() {
		return nil, ErrInvalidCartOwner
	}
	store := s.sessionCarts
	var user *model.User
	if owner.IsUser() {
		store = s.userCarts
		u, err := s.userRepo.FindByID(ctx, owner.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		user = u
	}

	dest, err := s.resolveDelivery(ctx, user, input)
	if err != nil {
		return nil, err
	}
	if user == nil {
		if err := s.ensureEmailFree(ctx, dest.Email); err != nil {
			return nil, err
		}
	}

	var (
		order      *model.Order
		guest      *model.User
		setupToken string
		committed  bool
	)
	_, err = store.Mutate(ctx, owner, false, func(ctx context.Context, cart *model.Cart) error {
		if len(cart.Items) == 0 {
			return ErrCartEmpty
		}
		selected, rest := partitionSelected(cart.Items, input.SelectedItems)
		if len(selected) == 0 {
			return ErrNoItemsSelected
		}

		var coupon *model.Coupon
		if cart.CouponID != nil {
			c, err := s.coupons.Validate(ctx, *cart.CouponID)
			switch {
			case errors.Is(err, ErrCouponNotFound):
			case err != nil:
				return err
			default:
				coupon = c
			}
		}

		built, err := s.buildOrder(ctx, selected, coupon, dest, input)
		if err != nil {
			return err
		}

		err = db.RunInTx(ctx, s.db, func(ctx context.Context) error {
			purchaser := user
			if purchaser == nil {
				g, token, err := s.provisionGuest(ctx, dest)
				if err != nil {
					return err
				}
				guest, setupToken, purchaser = g, token, g
			}
			built.UserID = purchaser.ID

			if err := s.orderRepo.Create(ctx, built); err != nil {
				return err
			}
			if coupon != nil {
				if err := s.coupons.Redeem(ctx, coupon.ID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		order, committed = built, true

		cart.Items = rest
		cart.CouponID = nil
		totals := PriceLines(rest, nil, s.now())
		cart.Subtotal, cart.Discount, cart.Total = totals.Subtotal, totals.Discount, totals.Total
		return nil
	})
	if err != nil {
		// A session cart lives outside the database transaction. Once the
		// order is committed a failed cart write must not report failure,
		// or the client would retry and place a second order.
		if !committed || owner.IsUser() {
			err = translateCartError(err)
			if errors.Is(err, ErrCartNotFound) {
				err = ErrCartEmpty
			}
			logger.Warn("Checkout failed", map[string]interface{}{
				"owner": owner.String(),
				"error": err.Error(),
			})
			return nil, err
		}
		logger.Error("Order placed but session cart was not updated", err, map[string]interface{}{
			"order_id": order.ID,
			"owner":    owner.String(),
		})
	}

	logger.Info("Order placed", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.Total,
		"items":    len(order.Items),
		"coupon":   order.CouponCode,
		"guest":    guest != nil,
	})

	fields := map[string]interface{}{"order_id": order.ID}
	if guest != nil {
		deliver("setup_password", fields, func() error { return s.mail.sendSetup(ctx, guest, setupToken) })
	}
	deliver("order_confirmation", fields, func() error { return s.mail.sendOrderConfirmation(ctx, order) })
	s.notifier.PublishOrderEvent(orderEvent(OrderEventCreated, order, "", s.now()))

	return &CheckoutResult{Order: order, AccountCreated: guest != nil}, nil
}

// resolveDelivery merges a saved address, the request fields and the
// purchaser's profile into the order's receiver data.
func (s *checkoutService) resolveDelivery(ctx context.Context, user *model.User, input CheckoutInput) (*delivery, error) {
	dest := &delivery{
		Address: strings.TrimSpace(input.ShippingAddress),
		Name:    strings.TrimSpace(input.ReceiverName),
		Email:   strings.ToLower(strings.TrimSpace(input.ReceiverEmail)),
		Phone:   strings.TrimSpace(input.ReceiverPhone),
	}

	if input.AddressID != nil {
		if user == nil {
			return nil, ErrAddressNotFound
		}
		addr, err := s.addressRepo.FindByID(ctx, *input.AddressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAddressNotFound
			}
			return nil, err
		}
		if addr.UserID != user.ID {
			return nil, ErrAddressNotFound
		}
		dest.Address = addr.Formatted()
		if dest.Name == "" {
			dest.Name = addr.ReceiverName
		}
		if dest.Phone == "" {
			dest.Phone = addr.ReceiverPhone
		}
	}

	if user != nil {
		if dest.Email == "" {
			dest.Email = user.Email
		}
		if dest.Name == "" {
			dest.Name = user.FullName()
		}
		if dest.Phone == "" {
			dest.Phone = user.Phone
		}
	}

	if dest.Address == "" || dest.Name == "" || !strings.Contains(dest.Email, "@") {
		return nil, ErrMissingDeliveryInfo
	}
	return dest, nil
}

func (s *checkoutService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		logger.Warn("Anonymous checkout with a registered email", map[string]interface{}{
			"email": email,
		})
		return ErrLoginRequired
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return err
	}
}

// partitionSelected splits the cart into the lines being bought and the
// lines that stay. Without an explicit selection the lines flagged as
// selected are bought.
func partitionSelected(items []model.CartItem, keys []model.ItemKey) (selected, rest []model.CartItem) {
	want := make(map[model.ItemKey]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	for _, item := range items {
		pick := item.Selected
		if len(keys) > 0 {
			pick = want[item.Key()]
		}
		if pick {
			selected = append(selected, item)
		} else {
			rest = append(rest, item)
		}
	}
	return selected, rest
}

func (s *checkoutService) buildOrder(ctx context.Context, lines []model.CartItem, coupon *model.Coupon, dest *delivery, input CheckoutInput) (*model.Order, error) {
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ShippingAddress: dest.Address,
		ReceiverName:    dest.Name,
		ReceiverEmail:   dest.Email,
		ReceiverPhone:   dest.Phone,
		Status:          model.OrderStatusPending,
		Items:           make([]model.OrderItem, 0, len(lines)),
	}

	weight := 0.0
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			logger.Warn("Cart line refers to a removed product", map[string]interface{}{
				"product_id": line.ProductID,
			})
			return nil, ErrProductNotFound
		}
		weight += p.Weight * float64(line.Quantity)
		order.Items = append(order.Items, model.OrderItem{
			ProductID:   line.ProductID,
			ProductName: p.Name,
			ImageKey:    p.ImageKey,
			Variant:     line.Variant,
			Quantity:    line.Quantity,
			Price:       line.Price,
		})
	}

	totals := PriceLines(lines, coupon, s.now())
	shipping, tax, err := s.charges.Charges(totals.Total, weight, ChargesInput{
		ShippingFee: input.ShippingFee,
		Tax:         input.Tax,
	})
	if err != nil {
		return nil, err
	}

	order.Subtotal = totals.Subtotal
	order.DiscountAmount = totals.Discount
	order.ShippingFee = shipping
	order.Tax = tax
	order.Total = roundMoney(totals.Total + shipping + tax)
	if coupon != nil {
		id := coupon.ID
		order.CouponID = &id
		order.CouponCode = coupon.Code
		order.DiscountPercentage = coupon.DiscountPercentage
	}
	return order, nil
}

// provisionGuest creates an unverified account for an anonymous buyer
// together with a token to set its first password.
func (s *checkoutService) provisionGuest(ctx context.Context, dest *delivery) (*model.User, string, error) {
	password, err := util.GenerateRandomPassword()
	if err != nil {
		return nil, "", err
	}
	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	guest := &model.User{
		Email:        dest.Email,
		PasswordHash: hash,
		FirstName:    dest.Name,
		Phone:        dest.Phone,
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, guest); err != nil {
		return nil, "", err
	}

	token, err := util.GenerateToken(32)
	if err != nil {
		return nil, "", err
	}
	if err := s.tokenRepo.Create(ctx, &model.VerifyToken{
		UserID:    guest.ID,
		Token:     token,
		Purpose:   model.TokenPurposeSetup,
		ExpiresAt: s.now().Add(setupTokenTTL),
	}); err != nil {
		return nil, "", err
	}

	logger.Info("Guest account provisioned", map[string]interface{}{
		"user_id": guest.ID,
		"email":   guest.Email,
	})
	return guest, token, nil
}
