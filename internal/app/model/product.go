package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"not null;index" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       float64        `gorm:"not null" json:"price"`
	Weight      float64        `json:"weight"` // kg, used for server-side shipping
	Category    string         `gorm:"type:varchar(50);index" json:"category"`
	Tags        pq.StringArray `gorm:"type:text" json:"tags"`
	ImageKey    string         `json:"image_key"`
	ImageURL    string         `gorm:"-" json:"image_url"` // CDN prefix + ImageKey, filled on read
	TotalSold   int            `gorm:"not null;default:0" json:"total_sold"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants"`
}

func (Product) TableName() string {
	return "products"
}

// Variant returns the variant with the given label, or nil.
func (p *Product) Variant(label string) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].Label == label {
			return &p.Variants[i]
		}
	}
	return nil
}

// ProductVariant is a purchasable size/colour of a product and owns its stock.
// Products sold without options carry one variant with an empty label.
type ProductVariant struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_variant_product_label" json:"product_id"`
	Label     string    `gorm:"size:100;not null;uniqueIndex:idx_variant_product_label" json:"label"`
	Size      string    `gorm:"size:50" json:"size"`
	Color     string    `gorm:"size:50" json:"color"`
	Stock     int       `gorm:"not null;default:0" json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}
