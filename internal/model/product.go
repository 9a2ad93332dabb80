package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a company's catalogue item with its fiscal classification.
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_products_company_sku,priority:1" json:"companyId"`
	SKU       string          `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_products_company_sku,priority:2" json:"sku"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	NCM       string          `gorm:"column:ncm;type:varchar(8);not null" json:"ncm"`
	CEST      *string         `gorm:"column:cest;type:varchar(7)" json:"cest,omitempty"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
