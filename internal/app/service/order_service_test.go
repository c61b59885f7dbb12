package service

import (
	"context"
	"testing"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeOrder(t *testing.T, env *testEnv, user *model.User, product *model.Product, variant string, qty int) *model.Order {
	t.Helper()
	ctx := context.Background()
	owner := model.UserOwner(user.ID)
	_, err := env.cartService().AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Variant: variant, Quantity: qty})
	require.NoError(t, err)
	result, err := env.checkoutService(PricingModeClient).Checkout(ctx, owner, CheckoutInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	return result.Order
}

func TestOrderService_ConfirmTakesStock(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.orderService()
	ctx := context.Background()

	user := env.createUser(t, "orders@example.com", true)
	shirt := env.createProduct(t, "Shirt", 10, model.ProductVariant{Label: "M", Stock: 3})
	order := placeOrder(t, env, user, shirt, "M", 2)

	updated, err := svc.UpdateStatus(ctx, order.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)

	p, err := env.Products.FindByID(ctx, shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Variant("M").Stock)
	assert.Equal(t, 2, p.TotalSold)

	// Confirming twice is not a valid transition and takes nothing.
	_, err = svc.UpdateStatus(ctx, order.ID, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	p, err = env.Products.FindByID(ctx, shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Variant("M").Stock)

	events := env.Notifier.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, OrderEventStatusChanged, last.Type)
	assert.Equal(t, model.OrderStatusPending, last.PrevStatus)
	assert.Equal(t, model.OrderStatusConfirmed, last.Status)
}

func TestOrderService_ConfirmWithoutStockRollsBack(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.orderService()
	ctx := context.Background()

	first := env.createUser(t, "first@example.com", true)
	second := env.createUser(t, "second@example.com", true)
	shirt := env.createProduct(t, "Shirt", 10, model.ProductVariant{Label: "", Stock: 2})
	hat := env.createProduct(t, "Hat", 5, model.ProductVariant{Label: "", Stock: 5})

	a := placeOrder(t, env, first, shirt, "", 2)
	b := placeOrder(t, env, second, hat, "", 1)
	_, err := env.cartService().AddItem(ctx, model.UserOwner(second.ID), AddItemInput{ProductID: shirt.ID, Quantity: 1})
	require.NoError(t, err)
	c, err := env.checkoutService(PricingModeClient).Checkout(ctx, model.UserOwner(second.ID), CheckoutInput{ShippingAddress: "x"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, a.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, b.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, c.Order.ID, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, shirt.ID, stockErr.ProductID)
	assert.Equal(t, 0, stockErr.Available)

	stored, err := env.Orders.FindByID(ctx, c.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, stored.Status)
}

func TestOrderService_Transitions(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.orderService()
	ctx := context.Background()

	user := env.createUser(t, "flow@example.com", true)
	shirt := env.createProduct(t, "Shirt", 10)
	order := placeOrder(t, env, user, shirt, "", 1)

	_, err := svc.UpdateStatus(ctx, order.ID, model.OrderStatus("lost"))
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)

	_, err = svc.UpdateStatus(ctx, order.ID, model.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	for _, next := range []model.OrderStatus{model.OrderStatusConfirmed, model.OrderStatusShipped, model.OrderStatusDelivered} {
		_, err = svc.UpdateStatus(ctx, order.ID, next)
		require.NoError(t, err, next)
	}

	_, err = svc.UpdateStatus(ctx, order.ID, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = svc.UpdateStatus(ctx, 9999, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	history, err := svc.OrderHistory(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestOrderService_CancelDoesNotRestock(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.orderService()
	ctx := context.Background()

	user := env.createUser(t, "cancel@example.com", true)
	shirt := env.createProduct(t, "Shirt", 10, model.ProductVariant{Label: "", Stock: 4})
	order := placeOrder(t, env, user, shirt, "", 3)

	_, err := svc.UpdateStatus(ctx, order.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, order.ID, model.OrderStatusCancelled)
	require.NoError(t, err)

	p, err := env.Products.FindByID(ctx, shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Variant("").Stock)
}

func TestOrderService_GetOrder(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.orderService()
	ctx := context.Background()

	owner := env.createUser(t, "owner@example.com", true)
	other := env.createUser(t, "other@example.com", true)
	shirt := env.createProduct(t, "Shirt", 10)
	order := placeOrder(t, env, owner, shirt, "", 1)

	got, err := svc.GetOrder(ctx, owner.ID, false, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Len(t, got.Items, 1)

	_, err = svc.GetOrder(ctx, other.ID, false, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	got, err = svc.GetOrder(ctx, other.ID, true, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	orders, err := svc.ListUserOrders(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	orders, err = svc.ListUserOrders(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_ListAndDelete(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.orderService()
	ctx := context.Background()

	user := env.createUser(t, "list@example.com", true)
	shirt := env.createProduct(t, "Shirt", 10)
	first := placeOrder(t, env, user, shirt, "", 1)
	placeOrder(t, env, user, shirt, "", 2)

	old := placeOrder(t, env, user, shirt, "", 1)
	require.NoError(t, env.DB.Model(&model.Order{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().AddDate(0, -2, 0)).Error)

	page, err := svc.ListOrders(ctx, OrderQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	page, err = svc.ListOrders(ctx, OrderQuery{Period: "month"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	pending := model.OrderStatusPending
	page, err = svc.ListOrders(ctx, OrderQuery{Status: &pending, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Orders, 1)

	_, err = svc.ListOrders(ctx, OrderQuery{Period: "decade"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.DeleteOrder(ctx, first.ID))
	assert.ErrorIs(t, svc.DeleteOrder(ctx, first.ID), ErrOrderNotFound)

	events := env.Notifier.Events()
	assert.Equal(t, OrderEventDeleted, events[len(events)-1].Type)
}
