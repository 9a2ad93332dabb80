package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is a tenant of the back office.
type Company struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	CNPJ      string         `gorm:"column:cnpj;type:varchar(14);uniqueIndex;not null" json:"cnpj"`
	UF        string         `gorm:"column:uf;type:varchar(2);not null" json:"uf"`
	Regime    string         `gorm:"type:varchar(10);not null" json:"regime"` // NORMAL, SIMPLES
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
