package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponController_CRUD(t *testing.T) {
	s := setupControllerTest(t)
	_, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)

	w := s.do(t, request{
		Method: http.MethodPost,
		Path:   "/api/v1/admin/coupons",
		Token:  adminToken,
		Body:   map[string]interface{}{"code": "SPRING15", "discount_percentage": 15, "max_usage": 50},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Coupon model.Coupon `json:"coupon"`
	}
	decode(t, w, &created)
	assert.True(t, created.Coupon.IsActive)
	assert.False(t, created.Coupon.ExpiryDate.IsZero(), "default validity applies")

	path := fmt.Sprintf("/api/v1/admin/coupons/%d", created.Coupon.ID)

	w = s.do(t, request{Method: http.MethodPost, Path: "/api/v1/admin/coupons", Token: adminToken, Body: map[string]interface{}{"code": "SPRING15", "discount_percentage": 5}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, request{Method: http.MethodPost, Path: "/api/v1/admin/coupons", Token: adminToken, Body: map[string]interface{}{"code": "HUGE", "discount_percentage": 150}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, request{Method: http.MethodPut, Path: path, Token: adminToken, Body: map[string]interface{}{"is_active": false}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated struct {
		Coupon model.Coupon `json:"coupon"`
	}
	decode(t, w, &updated)
	assert.False(t, updated.Coupon.IsActive)
	assert.Equal(t, 15.0, updated.Coupon.DiscountPercentage)

	w = s.do(t, request{Method: http.MethodGet, Path: "/api/v1/admin/coupons", Token: adminToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = s.do(t, request{Method: http.MethodDelete, Path: path, Token: adminToken})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, request{Method: http.MethodGet, Path: path, Token: adminToken})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCouponController_RequiresAdmin(t *testing.T) {
	s := setupControllerTest(t)
	_, userToken := s.createUser(t, "user@example.com", model.RoleUser)

	w := s.do(t, request{Method: http.MethodGet, Path: "/api/v1/admin/coupons", Token: userToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, request{Method: http.MethodGet, Path: "/api/v1/admin/coupons"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
