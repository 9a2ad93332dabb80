package model

import (
	"time"

	"backoffice/internal/fiscal"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FiscalRule is the persisted form of an ICMS rule. A nil CompanyID marks a
// platform-wide default visible to every company.
type FiscalRule struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CompanyID   *uuid.UUID          `gorm:"column:company_id;type:uuid;index:idx_fiscal_rules_lookup,priority:3" json:"companyId"`
	UF          string              `gorm:"column:uf;type:varchar(2);not null;index:idx_fiscal_rules_lookup,priority:1" json:"uf"`
	Regime      string              `gorm:"column:regime;type:varchar(10);not null;index:idx_fiscal_rules_lookup,priority:2" json:"regime"`
	Mode        string              `gorm:"column:mode;type:varchar(12);not null" json:"mode"`
	CST         *string             `gorm:"column:cst;type:varchar(3)" json:"cst"`
	CSOSN       *string             `gorm:"column:csosn;type:varchar(3)" json:"csosn"`
	ICMSRate    decimal.NullDecimal `gorm:"column:icms_rate;type:decimal(7,4)" json:"icmsRate"`
	MVARate     decimal.NullDecimal `gorm:"column:mva_rate;type:decimal(9,4)" json:"mvaRate"`
	STReduction decimal.NullDecimal `gorm:"column:st_reduction;type:decimal(7,4)" json:"stReduction"`
	STRate      decimal.NullDecimal `gorm:"column:st_rate;type:decimal(7,4)" json:"stRate"`
	Reason      *string             `gorm:"column:reason;type:text" json:"reason"`
	Priority    decimal.Decimal     `gorm:"column:priority;type:decimal(12,4);not null" json:"priority"`
	Description *string             `gorm:"column:description;type:varchar(255)" json:"description"`
	CreatedAt   time.Time           `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time           `gorm:"column:updated_at" json:"updatedAt"`
}

func (FiscalRule) TableName() string { return "fiscal_rules" }

func (r *FiscalRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NewFiscalRule maps a validated rule onto its row.
func NewFiscalRule(rule fiscal.Rule) *FiscalRule {
	s := rule.Stored()
	return &FiscalRule{
		ID:          s.ID,
		CompanyID:   s.CompanyID,
		UF:          s.UF,
		Regime:      string(s.Regime),
		Mode:        string(s.Mode),
		CST:         optional(s.CST),
		CSOSN:       optional(s.CSOSN),
		ICMSRate:    s.ICMSRate,
		MVARate:     s.MVARate,
		STReduction: s.STReduction,
		STRate:      s.STRate,
		Reason:      optional(s.Reason),
		Priority:    s.Priority,
		Description: optional(s.Description),
	}
}

// Stored converts the row into the engine's read model. No invariant is
// checked here.
func (r *FiscalRule) Stored() fiscal.StoredRule {
	return fiscal.StoredRule{
		ID:          r.ID,
		CompanyID:   r.CompanyID,
		UF:          r.UF,
		Regime:      fiscal.Regime(r.Regime),
		Mode:        fiscal.Mode(r.Mode),
		CST:         deref(r.CST),
		CSOSN:       deref(r.CSOSN),
		ICMSRate:    r.ICMSRate,
		MVARate:     r.MVARate,
		STReduction: r.STReduction,
		STRate:      r.STRate,
		Reason:      deref(r.Reason),
		Priority:    r.Priority,
		Description: deref(r.Description),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
