package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// placeOrder checks out one unit of product for the token's owner.
func (s *testServer) placeOrder(t *testing.T, token string, product *model.Product) *model.Order {
	t.Helper()

	w := s.do(t, request{Method: http.MethodPost, Path: "/api/v1/cart/items", Token: token, Body: service.AddItemInput{ProductID: product.ID, Variant: "M", Quantity: 1}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, request{
		Method: http.MethodPost,
		Path:   "/api/v1/checkout",
		Token:  token,
		Body:   service.CheckoutInput{ShippingAddress: "5 Market Lane", ReceiverName: "Buyer"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result service.CheckoutResult
	decode(t, w, &result)
	return result.Order
}

func TestOrderController_GetOrderVisibility(t *testing.T) {
	s := setupControllerTest(t)
	product := s.createProduct(t, "Tote", 25, 10)
	_, ownerToken := s.createUser(t, "owner@example.com", model.RoleUser)
	_, otherToken := s.createUser(t, "other@example.com", model.RoleUser)
	_, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)

	order := s.placeOrder(t, ownerToken, product)
	path := fmt.Sprintf("/api/v1/orders/%d", order.ID)

	assert.Equal(t, http.StatusOK, s.do(t, request{Method: http.MethodGet, Path: path, Token: ownerToken}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, request{Method: http.MethodGet, Path: path, Token: otherToken}).Code)
	assert.Equal(t, http.StatusOK, s.do(t, request{Method: http.MethodGet, Path: path, Token: adminToken}).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, request{Method: http.MethodGet, Path: path}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, request{Method: http.MethodGet, Path: "/api/v1/orders/abc", Token: ownerToken}).Code)
}

func TestOrderController_ListMyOrders(t *testing.T) {
	s := setupControllerTest(t)
	product := s.createProduct(t, "Mug", 12, 10)
	_, token := s.createUser(t, "mine@example.com", model.RoleUser)

	s.placeOrder(t, token, product)
	s.placeOrder(t, token, product)

	w := s.do(t, request{Method: http.MethodGet, Path: "/api/v1/orders", Token: token})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Orders []model.Order `json:"orders"`
		Count  int           `json:"count"`
	}
	decode(t, w, &body)
	assert.Equal(t, 2, body.Count)
}

func TestOrderController_UpdateStatus(t *testing.T) {
	s := setupControllerTest(t)
	product := s.createProduct(t, "Poster", 8, 10)
	_, userToken := s.createUser(t, "buyer@example.com", model.RoleUser)
	_, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)
	order := s.placeOrder(t, userToken, product)
	path := fmt.Sprintf("/api/v1/admin/orders/%d/status", order.ID)

	tests := []struct {
		name       string
		token      string
		status     model.OrderStatus
		wantStatus int
	}{
		{"customer is forbidden", userToken, model.OrderStatusConfirmed, http.StatusForbidden},
		{"unknown status", adminToken, model.OrderStatus("lost"), http.StatusBadRequest},
		{"skip ahead", adminToken, model.OrderStatusDelivered, http.StatusConflict},
		{"confirm", adminToken, model.OrderStatusConfirmed, http.StatusOK},
		{"back to pending", adminToken, model.OrderStatusPending, http.StatusConflict},
		{"ship", adminToken, model.OrderStatusShipped, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, request{Method: http.MethodPut, Path: path, Token: tt.token, Body: UpdateOrderStatusRequest{Status: tt.status}})
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestOrderController_AdminListAndDelete(t *testing.T) {
	s := setupControllerTest(t)
	product := s.createProduct(t, "Sticker", 2, 10)
	_, userToken := s.createUser(t, "buyer@example.com", model.RoleUser)
	_, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)
	order := s.placeOrder(t, userToken, product)
	s.placeOrder(t, userToken, product)

	w := s.do(t, request{Method: http.MethodGet, Path: "/api/v1/admin/orders?status=pending&period=day", Token: adminToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page service.OrderPage
	decode(t, w, &page)
	assert.EqualValues(t, 2, page.Total)

	w = s.do(t, request{Method: http.MethodGet, Path: "/api/v1/admin/orders?period=decade", Token: adminToken})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, request{Method: http.MethodDelete, Path: fmt.Sprintf("/api/v1/admin/orders/%d", order.ID), Token: adminToken})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, request{Method: http.MethodGet, Path: fmt.Sprintf("/api/v1/orders/%d", order.ID), Token: userToken})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderController_ExportOrders(t *testing.T) {
	s := setupControllerTest(t)
	product := s.createProduct(t, "Notebook", 6, 10)
	_, userToken := s.createUser(t, "buyer@example.com", model.RoleUser)
	_, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)
	s.placeOrder(t, userToken, product)

	w := s.do(t, request{Method: http.MethodGet, Path: "/api/v1/admin/orders/export", Token: adminToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Order ID", rows[0][0])
	assert.Contains(t, rows[1], "Notebook")

	w = s.do(t, request{Method: http.MethodGet, Path: "/api/v1/admin/orders/export", Token: userToken})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
