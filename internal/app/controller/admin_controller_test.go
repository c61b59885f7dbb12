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

func TestAdminController_BanUser(t *testing.T) {
	s := setupControllerTest(t)
	admin, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)
	user, userToken := s.createUser(t, "rowdy@example.com", model.RoleUser)

	w := s.do(t, request{Method: http.MethodPut, Path: fmt.Sprintf("/api/v1/admin/users/%d/ban", user.ID), Token: adminToken, Body: map[string]bool{"banned": true}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The existing token stops working right away
	w = s.do(t, request{Method: http.MethodGet, Path: "/api/v1/orders", Token: userToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, request{Method: http.MethodPut, Path: fmt.Sprintf("/api/v1/admin/users/%d/ban", user.ID), Token: adminToken, Body: map[string]bool{"banned": false}})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, request{Method: http.MethodGet, Path: "/api/v1/orders", Token: userToken})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, request{Method: http.MethodPut, Path: fmt.Sprintf("/api/v1/admin/users/%d/ban", admin.ID), Token: adminToken, Body: map[string]bool{"banned": true}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, request{Method: http.MethodPut, Path: fmt.Sprintf("/api/v1/admin/users/%d/ban", user.ID), Token: adminToken, Body: map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminController_ListUsers(t *testing.T) {
	s := setupControllerTest(t)
	_, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)
	s.createUser(t, "one@example.com", model.RoleUser)
	s.createUser(t, "two@example.com", model.RoleUser)

	w := s.do(t, request{Method: http.MethodGet, Path: "/api/v1/admin/users?page=1&limit=2", Token: adminToken})
	require.Equal(t, http.StatusOK, w.Code)
	var page service.UserPage
	decode(t, w, &page)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Users, 2)
}

func TestAdminController_Revenue(t *testing.T) {
	s := setupControllerTest(t)
	product := s.createProduct(t, "Lamp", 30, 10)
	_, userToken := s.createUser(t, "buyer@example.com", model.RoleUser)
	_, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)
	s.placeOrder(t, userToken, product)

	w := s.do(t, request{Method: http.MethodGet, Path: "/api/v1/admin/revenue?period=week", Token: adminToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report service.RevenueReport
	decode(t, w, &report)
	assert.Equal(t, "week", report.Period)
	assert.Equal(t, 30.0, report.Revenue)
	assert.EqualValues(t, 1, report.OrderCount)
}
