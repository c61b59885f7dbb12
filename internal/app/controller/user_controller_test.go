package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserController_ProfileAndPassword(t *testing.T) {
	s := setupControllerTest(t)
	user, token := s.createUser(t, "profile@example.com", model.RoleUser)

	w := s.do(t, request{Method: http.MethodPut, Path: "/api/v1/users/me", Token: token, Body: map[string]string{"phone": "+1 555 0100"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		User model.User `json:"user"`
	}
	decode(t, w, &body)
	assert.Equal(t, "+1 555 0100", body.User.Phone)
	assert.Equal(t, "Test", body.User.FirstName, "omitted fields are kept")

	w = s.do(t, request{Method: http.MethodPut, Path: "/api/v1/users/me/password", Token: token, Body: ChangePasswordRequest{CurrentPassword: "not-it", NewPassword: "new-password-1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, request{Method: http.MethodPut, Path: "/api/v1/users/me/password", Token: token, Body: ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "new-password-1"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, request{Method: http.MethodPost, Path: "/api/v1/auth/login", Body: LoginRequest{Email: user.Email, Password: "new-password-1"}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAddressController_DefaultAndCheckout(t *testing.T) {
	s := setupControllerTest(t)
	_, token := s.createUser(t, "addr@example.com", model.RoleUser)
	product := s.createProduct(t, "Kettle", 35, 4)

	home := service.AddressInput{ReceiverName: "Home", ReceiverPhone: "111", Province: "North", Street: "1 Elm St"}
	work := service.AddressInput{ReceiverName: "Work", ReceiverPhone: "222", Province: "South", Street: "9 Oak Ave"}

	w := s.do(t, request{Method: http.MethodPost, Path: "/api/v1/users/me/addresses", Token: token, Body: home})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first struct {
		Address model.Address `json:"address"`
	}
	decode(t, w, &first)
	assert.True(t, first.Address.IsDefault, "first address becomes the default")

	w = s.do(t, request{Method: http.MethodPost, Path: "/api/v1/users/me/addresses", Token: token, Body: work})
	require.Equal(t, http.StatusCreated, w.Code)
	var second struct {
		Address model.Address `json:"address"`
	}
	decode(t, w, &second)
	assert.False(t, second.Address.IsDefault)

	w = s.do(t, request{Method: http.MethodPut, Path: fmt.Sprintf("/api/v1/users/me/addresses/%d/default", second.Address.ID), Token: token})
	require.Equal(t, http.StatusOK, w.Code)

	var stored []model.Address
	require.NoError(t, s.DB.Where("is_default = ?", true).Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, second.Address.ID, stored[0].ID)

	// A saved address can stand in for the typed delivery fields
	w = s.do(t, request{Method: http.MethodPost, Path: "/api/v1/cart/items", Token: token, Body: service.AddItemInput{ProductID: product.ID, Variant: "M", Quantity: 1}})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, request{Method: http.MethodPost, Path: "/api/v1/checkout", Token: token, Body: service.CheckoutInput{AddressID: &second.Address.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result service.CheckoutResult
	decode(t, w, &result)
	assert.Equal(t, "Work", result.Order.ReceiverName)
	assert.Contains(t, result.Order.ShippingAddress, "9 Oak Ave")

	_, otherToken := s.createUser(t, "other@example.com", model.RoleUser)
	w = s.do(t, request{Method: http.MethodPut, Path: fmt.Sprintf("/api/v1/users/me/addresses/%d/default", first.Address.ID), Token: otherToken})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
