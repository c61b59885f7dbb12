package controller

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/internal/app/service"
	apperrors "github.com/madness-store/madness-backend/internal/errors"
	"github.com/madness-store/madness-backend/internal/middleware"
)

const bestSellerCount = 10

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

func optionalFloat(c *gin.Context, name string) (*float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid "+name)
		return nil, false
	}
	return &v, true
}

func (ctrl *ProductController) list(c *gin.Context, opts service.ProductListOptions) {
	opts.Page = queryInt(c, "page", 1)
	opts.Limit = queryInt(c, "limit", 20)

	page, err := ctrl.productService.ListProducts(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListProducts returns the catalog, newest first
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	ctrl.list(c, service.ProductListOptions{Sort: repository.ProductSortNewest})
}

// SearchProducts filters by name, category and price range
// GET /api/v1/products/search?q=&category=&min_price=&max_price=
func (ctrl *ProductController) SearchProducts(c *gin.Context) {
	minPrice, ok := optionalFloat(c, "min_price")
	if !ok {
		return
	}
	maxPrice, ok := optionalFloat(c, "max_price")
	if !ok {
		return
	}

	ctrl.list(c, service.ProductListOptions{
		Search:   c.Query("q"),
		Category: c.Query("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     repository.ProductSortNewest,
	})
}

// SortByPrice lists the catalog by price
// GET /api/v1/products/sort-by-price?order=asc|desc
func (ctrl *ProductController) SortByPrice(c *gin.Context) {
	order := strings.ToLower(c.DefaultQuery("order", "asc"))
	if order != "asc" && order != "desc" {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "order must be asc or desc")
		return
	}
	ctrl.list(c, service.ProductListOptions{
		Sort:      repository.ProductSortPrice,
		Ascending: order == "asc",
	})
}

// GetProductsByCategory
// GET /api/v1/products/category/:category
func (ctrl *ProductController) GetProductsByCategory(c *gin.Context) {
	ctrl.list(c, service.ProductListOptions{
		Category: c.Param("category"),
		Sort:     repository.ProductSortNewest,
	})
}

// GET /api/v1/products/best-sellers
func (ctrl *ProductController) BestSellers(c *gin.Context) {
	products, err := ctrl.productService.BestSellers(c.Request.Context(), bestSellerCount)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GET /api/v1/products/categories
func (ctrl *ProductController) Categories(c *gin.Context) {
	categories, err := ctrl.productService.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err, "category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetProduct returns one product with its rating summary. Signed-in callers
// also learn whether they bought it.
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	viewerID, _ := middleware.GetUserID(c)

	product, err := ctrl.productService.GetProduct(c.Request.Context(), id, viewerID)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// bindProductInput accepts either a JSON body or a multipart form with an
// optional "image" file and the variants as a JSON string.
func bindProductInput(c *gin.Context) (service.ProductInput, *service.ImageUpload, func(), bool) {
	var input service.ProductInput
	noop := func() {}

	if c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return input, nil, noop, false
		}
		return input, nil, noop, true
	}

	if err := c.ShouldBindWith(&input, binding.FormMultipart); err != nil {
		respondBindingError(c, err)
		return input, nil, noop, false
	}
	if raw := c.PostForm("variants"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.Variants); err != nil {
			respondBindingError(c, err)
			return input, nil, noop, false
		}
	}

	header, err := c.FormFile("image")
	if err != nil {
		// No file is fine; the product keeps or lacks an image.
		return input, nil, noop, true
	}
	file, err := header.Open()
	if err != nil {
		apperrors.BadRequest(c, apperrors.UploadFailed, "Could not read the uploaded image")
		return input, nil, noop, false
	}
	return input, imageUpload(header, file), func() { file.Close() }, true
}

func imageUpload(header *multipart.FileHeader, file multipart.File) *service.ImageUpload {
	return &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
}

// CreateProduct
// POST /api/v1/admin/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	input, image, done, ok := bindProductInput(c)
	if !ok {
		return
	}
	defer done()

	product, err := ctrl.productService.CreateProduct(c.Request.Context(), input, image)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Product created", map[string]interface{}{
		"product_id": product.ID,
	})
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct
// PUT /api/v1/admin/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	input, image, done, ok := bindProductInput(c)
	if !ok {
		return
	}
	defer done()

	product, err := ctrl.productService.UpdateProduct(c.Request.Context(), id, input, image)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct
// DELETE /api/v1/admin/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}
