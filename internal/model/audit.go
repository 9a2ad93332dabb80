package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateFiscalRule  = "CREATE_FISCAL_RULE"
	ActionUpdateFiscalRule  = "UPDATE_FISCAL_RULE"
	ActionDeleteFiscalRule  = "DELETE_FISCAL_RULE"
	ActionImportFiscalRules = "IMPORT_FISCAL_RULES"
	ActionCreateCompany     = "CREATE_COMPANY"
	ActionUpdateCompany     = "UPDATE_COMPANY"
	ActionDeleteCompany     = "DELETE_COMPANY"
	ActionCreateProduct     = "CREATE_PRODUCT"
	ActionUpdateProduct     = "UPDATE_PRODUCT"
	ActionDeleteProduct     = "DELETE_PRODUCT"
)

// AuditLog tracks who changed what, for which company and when.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"userId"` // nil for CLI and automated writes
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CompanyID  *uuid.UUID `gorm:"type:uuid;index" json:"companyId"` // nil for platform-wide changes
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entityId"`
	EntityName string     `gorm:"type:varchar(255)" json:"entityName,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
