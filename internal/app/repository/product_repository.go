package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductSort string

const (
	ProductSortNewest   ProductSort = "newest"
	ProductSortPrice    ProductSort = "price"
	ProductSortBestSold ProductSort = "best_sold"
)

type ProductFilter struct {
	Category      string
	Search        string // case-insensitive substring of the name
	MinPrice      *float64
	MaxPrice      *float64
	SortBy        ProductSort
	SortAscending bool
	Limit         int
	Offset        int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	BulkCreate(ctx context.Context, products []model.Product, batchSize int) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*model.Product, error)
	FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uint) error
	DecrementStock(ctx context.Context, productID uint, variant string, quantity int) (bool, error)
	IncrementSold(ctx context.Context, productID uint, quantity int) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":     product.Name,
		"category": product.Category,
		"variants": len(product.Variants),
	})

	if err := db.Conn(ctx, r.db).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

// BulkCreate inserts a catalog import in batches, variants included.
func (r *productRepository) BulkCreate(ctx context.Context, products []model.Product, batchSize int) error {
	if len(products) == 0 {
		return nil
	}

	if err := db.Conn(ctx, r.db).CreateInBatches(products, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create products", err, map[string]interface{}{
			"count":      len(products),
			"batch_size": batchSize,
		})
		return err
	}

	logger.Info("Products bulk created", map[string]interface{}{
		"count": len(products),
	})
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := db.Conn(ctx, r.db).Preload("Variants").First(&product, id).Error; err != nil {
		logLookupError("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads products for a read-time cart join. Missing ids are absent
// from the map.
func (r *productRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*model.Product, error) {
	out := make(map[uint]*model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var products []model.Product
	if err := db.Conn(ctx, r.db).Preload("Variants").Where("id IN ?", ids).Find(&products).Error; err != nil {
		logger.Error("Failed to find products by IDs in database", err, map[string]interface{}{
			"count": len(ids),
		})
		return nil, err
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (r *productRepository) FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"category":  filter.Category,
		"search":    filter.Search,
		"sort_by":   filter.SortBy,
		"ascending": filter.SortAscending,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})

	query := db.Conn(ctx, r.db).Model(&model.Product{})
	if filter.Category != "" {
		query = query.Where("products.category = ?", filter.Category)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(products.name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(filter.Search))+"%")
	}
	if filter.MinPrice != nil {
		query = query.Where("products.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("products.price <= ?", *filter.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count products with filter", err)
		return nil, 0, err
	}

	direction := "DESC"
	if filter.SortAscending {
		direction = "ASC"
	}
	switch filter.SortBy {
	case ProductSortPrice:
		query = query.Order("products.price " + direction)
	case ProductSortBestSold:
		query = query.Order("products.total_sold " + direction)
	default:
		query = query.Order("products.created_at " + direction)
	}
	query = query.Order("products.id ASC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Preload("Variants").Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err, map[string]interface{}{
			"search": filter.Search,
		})
		return nil, 0, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := db.Conn(ctx, r.db).Model(&model.Product{}).
		Where("category <> ''").
		Distinct("category").
		Order("category").
		Pluck("category", &categories).Error; err != nil {
		logger.Error("Failed to list product categories", err)
		return nil, err
	}
	return categories, nil
}

// Update saves product fields and reconciles variants by label: labels no
// longer present are removed, existing ones are updated, new ones created.
func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	return db.RunInTx(ctx, r.db, func(ctx context.Context) error {
		tx := db.Conn(ctx, r.db)
		if err := tx.Model(product).
			Select("name", "description", "price", "weight", "category", "tags", "image_key").
			Updates(product).Error; err != nil {
			logger.Error("Failed to update product in database", err, map[string]interface{}{
				"product_id": product.ID,
			})
			return err
		}

		labels := make([]string, 0, len(product.Variants))
		for i := range product.Variants {
			v := &product.Variants[i]
			v.ProductID = product.ID
			labels = append(labels, v.Label)

			var existing model.ProductVariant
			err := tx.Where("product_id = ? AND label = ?", product.ID, v.Label).First(&existing).Error
			switch {
			case err == nil:
				v.ID = existing.ID
				if err := tx.Model(&existing).Select("size", "color", "stock").Updates(v).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(v).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}

		remove := tx.Where("product_id = ?", product.ID)
		if len(labels) > 0 {
			remove = remove.Where("label NOT IN ?", labels)
		}
		return remove.Delete(&model.ProductVariant{}).Error
	})
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	result := db.Conn(ctx, r.db).Delete(&model.Product{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete product from database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock subtracts quantity only while enough stock remains, so two
// concurrent callers can never both pass the check. Returns false when the
// guard rejected the update.
func (r *productRepository) DecrementStock(ctx context.Context, productID uint, variant string, quantity int) (bool, error) {
	result := db.Conn(ctx, r.db).Model(&model.ProductVariant{}).
		Where("product_id = ? AND label = ? AND stock >= ?", productID, variant, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		logger.Error("Failed to decrement variant stock", result.Error, map[string]interface{}{
			"product_id": productID,
			"variant":    variant,
			"quantity":   quantity,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *productRepository) IncrementSold(ctx context.Context, productID uint, quantity int) error {
	if err := db.Conn(ctx, r.db).Model(&model.Product{}).Where("id = ?", productID).
		Update("total_sold", gorm.Expr("total_sold + ?", quantity)).Error; err != nil {
		logger.Error("Failed to increment product total sold", err, map[string]interface{}{
			"product_id": productID,
			"quantity":   quantity,
		})
		return err
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
