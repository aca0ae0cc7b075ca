package models

import "time"

// ProductKind enumerates the supported product kinds.
type ProductKind string

const (
	ProductPhysical ProductKind = "physical"
	ProductDigital  ProductKind = "digital"
)

// Product is a physical or digital catalogue item.
type Product struct {
	ID          int         `db:"id" json:"id"`
	BusinessID  int         `db:"business_id" json:"-"`
	Kind        ProductKind `db:"kind" json:"kind"`
	Name        string      `db:"name" json:"name"`
	Description string      `db:"description" json:"description"`
	SKU         string      `db:"sku" json:"sku"`
	Stock       int         `db:"stock" json:"stock"`
	FileURL     string      `db:"file_url" json:"fileUrl,omitempty"`
	Prices      Prices      `db:"prices" json:"prices"`
	IsActive    bool        `db:"is_active" json:"isActive"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}
