package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAdminService_Users(t *testing.T) {
	env := setupServiceTest(t)
	svc := NewAdminService(env.Users, env.Orders)
	ctx := context.Background()

	user := env.createUser(t, "member@example.com", true)
	admin := env.createUser(t, "admin@example.com", true)
	require.NoError(t, env.DB.Model(admin).Update("role", model.RoleAdmin).Error)
	old := env.createUser(t, "old@example.com", true)
	require.NoError(t, env.DB.Model(old).Update("created_at", time.Now().AddDate(0, 0, -30)).Error)

	page, err := svc.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Users, 2)

	recent, err := svc.NewUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	_, err = svc.NewUsers(ctx, "fortnight")
	assert.ErrorIs(t, err, ErrInvalidInput)

	banned, err := svc.SetBanned(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, banned.Banned)
	isBanned, err := env.Users.IsBanned(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, isBanned)

	_, err = svc.SetBanned(ctx, user.ID, false)
	require.NoError(t, err)

	_, err = svc.SetBanned(ctx, admin.ID, true)
	assert.ErrorIs(t, err, ErrCannotBanAdmin)

	_, err = svc.SetBanned(ctx, 9999, true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminService_Revenue(t *testing.T) {
	env := setupServiceTest(t)
	svc := NewAdminService(env.Users, env.Orders)
	orders := env.orderService()
	ctx := context.Background()

	user := env.createUser(t, "rev@example.com", true)
	shirt := env.createProduct(t, "Shirt", 10)
	hat := env.createProduct(t, "Hat", 4)

	a := placeOrder(t, env, user, shirt, "", 3)
	b := placeOrder(t, env, user, hat, "", 1)
	c := placeOrder(t, env, user, hat, "", 2)
	_, err := orders.UpdateStatus(ctx, a.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)
	_, err = orders.UpdateStatus(ctx, b.ID, model.OrderStatusCancelled)
	require.NoError(t, err)
	require.NoError(t, env.DB.Model(&model.Order{}).Where("id = ?", c.ID).
		Update("created_at", time.Now().AddDate(0, -3, 0)).Error)

	all, err := svc.Revenue(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "all", all.Period)
	assert.Nil(t, all.From)
	assert.Equal(t, 38.0, all.Revenue)
	assert.Equal(t, int64(2), all.OrderCount)

	month, err := svc.Revenue(ctx, "month")
	require.NoError(t, err)
	require.NotNil(t, month.From)
	assert.Equal(t, 30.0, month.Revenue)
	assert.Equal(t, int64(1), month.OrderCount)

	best, err := svc.BestSellers(ctx, 5)
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, shirt.ID, best[0].ProductID)
	assert.Equal(t, int64(3), best[0].Quantity)
}

func TestAdminService_ExportOrders(t *testing.T) {
	env := setupServiceTest(t)
	svc := NewAdminService(env.Users, env.Orders)
	ctx := context.Background()

	user := env.createUser(t, "export@example.com", true)
	shirt := env.createProduct(t, "Shirt", 10)
	hat := env.createProduct(t, "Hat", 4)
	owner := model.UserOwner(user.ID)
	carts := env.cartService()
	_, err := carts.AddItem(ctx, owner, AddItemInput{ProductID: shirt.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, owner, AddItemInput{ProductID: hat.ID, Quantity: 2})
	require.NoError(t, err)
	result, err := env.checkoutService(PricingModeClient).Checkout(ctx, owner, CheckoutInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportOrders(ctx, OrderQuery{}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Order ID", rows[0][0])
	assert.Equal(t, "Product", rows[0][7])
	assert.Equal(t, "Shirt", rows[1][7])
	assert.Equal(t, "Hat", rows[2][7])
	assert.Equal(t, "2", rows[2][9])
	assert.Equal(t, "18", rows[1][16])
	assert.Equal(t, rows[1][0], rows[2][0])
	assert.Equal(t, fmt.Sprint(result.Order.ID), rows[1][0])

	require.Error(t, svc.ExportOrders(ctx, OrderQuery{Period: "century"}, &buf))
}
