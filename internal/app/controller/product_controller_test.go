package controller

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productResponse struct {
	Product service.ProductDetail `json:"product"`
}

func TestProductController_CreateJSON(t *testing.T) {
	s := setupControllerTest(t)
	_, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)

	w := s.do(t, request{
		Method: http.MethodPost,
		Path:   "/api/v1/admin/products",
		Token:  adminToken,
		Body: service.ProductInput{
			Name:     "Rain Jacket",
			Price:    89.5,
			Weight:   0.9,
			Category: "outerwear",
			Variants: []service.VariantInput{{Size: "M", Color: "Navy", Stock: 4}, {Size: "L", Color: "Navy", Stock: 2}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Product model.Product `json:"product"`
	}
	decode(t, w, &created)
	require.Len(t, created.Product.Variants, 2)
	assert.NotNil(t, created.Product.Variant("M/Navy"))

	w = s.do(t, request{Method: http.MethodPost, Path: "/api/v1/admin/products", Token: adminToken, Body: service.ProductInput{Name: "Free", Price: 0}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductController_CreateMultipartWithImage(t *testing.T) {
	s := setupControllerTest(t)
	_, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("name", "Canvas Print"))
	require.NoError(t, form.WriteField("price", "35"))
	require.NoError(t, form.WriteField("category", "decor"))
	require.NoError(t, form.WriteField("variants", `[{"label":"A3","stock":5}]`))

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="print.png"`)
	header.Set("Content-Type", "image/png")
	part, err := form.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake image"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Product model.Product `json:"product"`
	}
	decode(t, w, &created)
	assert.Contains(t, created.Product.ImageURL, "https://cdn.test/products/")
	require.Len(t, created.Product.Variants, 1)
	assert.Equal(t, 5, created.Product.Variants[0].Stock)
}

func TestProductController_ListSearchSort(t *testing.T) {
	s := setupControllerTest(t)
	s.createProduct(t, "Wool Sweater", 60, 3)
	s.createProduct(t, "Cotton Tee", 20, 3)
	s.createProduct(t, "Linen Shirt", 40, 3)

	w := s.do(t, request{Method: http.MethodGet, Path: "/api/v1/products?limit=2"})
	require.Equal(t, http.StatusOK, w.Code)
	var page service.ProductPage
	decode(t, w, &page)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Products, 2)

	w = s.do(t, request{Method: http.MethodGet, Path: "/api/v1/products/search?q=tee"})
	decode(t, w, &page)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Cotton Tee", page.Products[0].Name)

	w = s.do(t, request{Method: http.MethodGet, Path: "/api/v1/products/search?min_price=30&max_price=50"})
	decode(t, w, &page)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Linen Shirt", page.Products[0].Name)

	w = s.do(t, request{Method: http.MethodGet, Path: "/api/v1/products/sort-by-price?order=desc"})
	decode(t, w, &page)
	require.Len(t, page.Products, 3)
	assert.Equal(t, "Wool Sweater", page.Products[0].Name)
	assert.Equal(t, "Cotton Tee", page.Products[2].Name)

	w = s.do(t, request{Method: http.MethodGet, Path: "/api/v1/products/categories"})
	assert.JSONEq(t, `{"categories":["tops"]}`, w.Body.String())
}

func TestProductController_GetProductAndReviews(t *testing.T) {
	s := setupControllerTest(t)
	product := s.createProduct(t, "Backpack", 70, 5)
	_, buyerToken := s.createUser(t, "buyer@example.com", model.RoleUser)
	_, browserToken := s.createUser(t, "browser@example.com", model.RoleUser)
	s.placeOrder(t, buyerToken, product)

	path := fmt.Sprintf("/api/v1/products/%d", product.ID)
	rating := 5

	w := s.do(t, request{Method: http.MethodPost, Path: path + "/reviews", Token: browserToken, Body: service.ReviewInput{Rating: &rating}})
	assert.Equal(t, http.StatusForbidden, w.Code, "rating needs a purchase")

	w = s.do(t, request{Method: http.MethodPost, Path: path + "/reviews", Token: browserToken, Body: service.ReviewInput{Text: "Looks sturdy"}})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, request{Method: http.MethodPost, Path: path + "/reviews", Token: buyerToken, Body: service.ReviewInput{Rating: &rating, Text: "Great bag"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, request{Method: http.MethodGet, Path: path, Token: buyerToken})
	require.Equal(t, http.StatusOK, w.Code)
	var detail productResponse
	decode(t, w, &detail)
	assert.True(t, detail.Product.HasPurchased)
	assert.Equal(t, 5.0, detail.Product.AverageRating)
	assert.EqualValues(t, 1, detail.Product.RatingCount)

	w = s.do(t, request{Method: http.MethodGet, Path: path})
	decode(t, w, &detail)
	assert.False(t, detail.Product.HasPurchased)

	w = s.do(t, request{Method: http.MethodGet, Path: path + "/reviews"})
	require.Equal(t, http.StatusOK, w.Code)
	var reviews service.ReviewPage
	decode(t, w, &reviews)
	assert.EqualValues(t, 2, reviews.Total)

	assert.Equal(t, http.StatusNotFound, s.do(t, request{Method: http.MethodGet, Path: "/api/v1/products/9999"}).Code)
}

func TestProductController_DeleteRequiresAdmin(t *testing.T) {
	s := setupControllerTest(t)
	product := s.createProduct(t, "Umbrella", 18, 5)
	_, userToken := s.createUser(t, "user@example.com", model.RoleUser)
	_, adminToken := s.createUser(t, "admin@example.com", model.RoleAdmin)
	path := fmt.Sprintf("/api/v1/admin/products/%d", product.ID)

	assert.Equal(t, http.StatusForbidden, s.do(t, request{Method: http.MethodDelete, Path: path, Token: userToken}).Code)
	assert.Equal(t, http.StatusOK, s.do(t, request{Method: http.MethodDelete, Path: path, Token: adminToken}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, request{Method: http.MethodGet, Path: fmt.Sprintf("/api/v1/products/%d", product.ID)}).Code)
}
