package service

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"

	"github.com/lib/pq"
	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/internal/storage"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrInvalidProduct = errors.New("product needs a name and a positive price")
	ErrInvalidImage   = errors.New("image must be a JPEG, PNG, GIF or WEBP file of at most 5MB")
)

// ObjectStorage stores uploaded product images.
type ObjectStorage interface {
	ImageLocator
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type VariantInput struct {
	Label string `json:"label"`
	Size  string `json:"size"`
	Color string `json:"color"`
	Stock int    `json:"stock"`
}

type ProductInput struct {
	Name        string         `json:"name" form:"name"`
	Description string         `json:"description" form:"description"`
	Price       float64        `json:"price" form:"price"`
	Weight      float64        `json:"weight" form:"weight"`
	Category    string         `json:"category" form:"category"`
	Tags        []string       `json:"tags" form:"tags"`
	Stock       int            `json:"stock" form:"stock"` // used when no variants are given
	Variants    []VariantInput `json:"variants" form:"-"`
}

type ProductListOptions struct {
	Category  string
	Search    string
	MinPrice  *float64
	MaxPrice  *float64
	Sort      repository.ProductSort
	Ascending bool
	Page      int
	Limit     int
}

type ProductPage struct {
	Products []model.Product `json:"products"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

type ProductDetail struct {
	*model.Product
	AverageRating float64 `json:"average_rating"`
	RatingCount   int64   `json:"rating_count"`
	HasPurchased  bool    `json:"has_purchased"`
}

type ProductService interface {
	ListProducts(ctx context.Context, opts ProductListOptions) (*ProductPage, error)
	// GetProduct returns the product page. viewerID is 0 for anonymous
	// visitors.
	GetProduct(ctx context.Context, id, viewerID uint) (*ProductDetail, error)
	Categories(ctx context.Context) ([]string, error)
	BestSellers(ctx context.Context, limit int) ([]model.Product, error)
	CreateProduct(ctx context.Context, input ProductInput, image *ImageUpload) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint, input ProductInput, image *ImageUpload) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
}

type productService struct {
	productRepo repository.ProductRepository
	reviewRepo  *repository.ReviewRepository
	orderRepo   repository.OrderRepository
	images      ObjectStorage
}

func NewProductService(
	productRepo repository.ProductRepository,
	reviewRepo *repository.ReviewRepository,
	orderRepo repository.OrderRepository,
	images ObjectStorage,
) ProductService {
	return &productService{
		productRepo: productRepo,
		reviewRepo:  reviewRepo,
		orderRepo:   orderRepo,
		images:      images,
	}
}

func (s *productService) withImage(p *model.Product) {
	if s.images != nil && p.ImageKey != "" {
		p.ImageURL = s.images.URL(p.ImageKey)
	}
}

func (s *productService) ListProducts(ctx context.Context, opts ProductListOptions) (*ProductPage, error) {
	page, limit := normalizePage(opts.Page, opts.Limit)
	products, total, err := s.productRepo.FindWithFilter(ctx, repository.ProductFilter{
		Category:      strings.TrimSpace(opts.Category),
		Search:        strings.TrimSpace(opts.Search),
		MinPrice:      opts.MinPrice,
		MaxPrice:      opts.MaxPrice,
		SortBy:        opts.Sort,
		SortAscending: opts.Ascending,
		Limit:         limit,
		Offset:        (page - 1) * limit,
	})
	if err != nil {
		logger.Error("Failed to list products", err, map[string]interface{}{
			"category": opts.Category,
			"search":   opts.Search,
		})
		return nil, err
	}
	for i := range products {
		s.withImage(&products[i])
	}
	return &ProductPage{Products: products, Total: total, Page: page, Limit: limit}, nil
}

func (s *productService) findProduct(ctx context.Context, id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	s.withImage(product)
	return product, nil
}

func (s *productService) GetProduct(ctx context.Context, id, viewerID uint) (*ProductDetail, error) {
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &ProductDetail{Product: product}

	avg, count, err := s.reviewRepo.AverageRating(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.AverageRating = math.Round(avg*10) / 10
	detail.RatingCount = count

	if viewerID != 0 {
		purchased, err := s.orderRepo.HasPurchased(ctx, viewerID, id)
		if err != nil {
			return nil, err
		}
		detail.HasPurchased = purchased
	}
	return detail, nil
}

func (s *productService) Categories(ctx context.Context) ([]string, error) {
	return s.productRepo.Categories(ctx)
}

func (s *productService) BestSellers(ctx context.Context, limit int) ([]model.Product, error) {
	_, limit = normalizePage(1, limit)
	products, _, err := s.productRepo.FindWithFilter(ctx, repository.ProductFilter{
		SortBy: repository.ProductSortBestSold,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	for i := range products {
		s.withImage(&products[i])
	}
	return products, nil
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" || input.Price <= 0 || math.IsNaN(input.Price) || math.IsInf(input.Price, 0) {
		return ErrInvalidProduct
	}
	if input.Weight < 0 || input.Stock < 0 {
		return ErrInvalidInput
	}
	seen := make(map[string]bool, len(input.Variants))
	for _, v := range input.Variants {
		label := variantLabel(v)
		if v.Stock < 0 || seen[label] {
			return ErrInvalidInput
		}
		seen[label] = true
	}
	return nil
}

// variantLabel falls back to "size/color" when no explicit label is set.
func variantLabel(v VariantInput) string {
	if label := strings.TrimSpace(v.Label); label != "" {
		return label
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{v.Size, v.Color} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

func applyProductInput(p *model.Product, input ProductInput) {
	p.Name = strings.TrimSpace(input.Name)
	p.Description = input.Description
	p.Price = input.Price
	p.Weight = input.Weight
	p.Category = strings.ToLower(strings.TrimSpace(input.Category))
	p.Tags = pq.StringArray(input.Tags)

	p.Variants = p.Variants[:0]
	if len(input.Variants) == 0 {
		p.Variants = append(p.Variants, model.ProductVariant{Label: "", Stock: input.Stock})
		return
	}
	for _, v := range input.Variants {
		p.Variants = append(p.Variants, model.ProductVariant{
			Label: variantLabel(v),
			Size:  strings.TrimSpace(v.Size),
			Color: strings.TrimSpace(v.Color),
			Stock: v.Stock,
		})
	}
}

func (s *productService) uploadImage(ctx context.Context, image *ImageUpload) (string, error) {
	if image == nil {
		return "", nil
	}
	if storage.ValidateContentType(image.ContentType, storage.ImageContentTypes) != nil ||
		storage.ValidateFileSize(image.Size, storage.MaxImageSize) != nil {
		return "", ErrInvalidImage
	}
	if s.images == nil {
		return "", errors.New("image storage is not configured")
	}
	key := storage.NewKey("products", image.Filename)
	if err := s.images.Put(ctx, key, image.Body, image.ContentType); err != nil {
		return "", err
	}
	return key, nil
}

func (s *productService) CreateProduct(ctx context.Context, input ProductInput, image *ImageUpload) (*model.Product, error) {
	logger.Info("Creating product", map[string]interface{}{
		"name":     input.Name,
		"category": input.Category,
		"variants": len(input.Variants),
	})

	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	key, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}

	product := &model.Product{ImageKey: key}
	applyProductInput(product, input)
	if err := s.productRepo.Create(ctx, product); err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"name": input.Name,
		})
		s.discardImage(ctx, key)
		return nil, err
	}

	s.withImage(product)
	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
	})
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uint, input ProductInput, image *ImageUpload) (*model.Product, error) {
	logger.Info("Updating product", map[string]interface{}{
		"product_id": id,
	})

	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}
	if key != "" {
		product.ImageKey = key
	}
	applyProductInput(product, input)

	if err := s.productRepo.Update(ctx, product); err != nil {
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		s.discardImage(ctx, key)
		return nil, err
	}

	return s.findProduct(ctx, id)
}

func (s *productService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	// Images are never removed; order snapshots keep referring to them.
	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (s *productService) discardImage(ctx context.Context, key string) {
	if key == "" || s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		logger.Warn("Failed to delete unused image", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
