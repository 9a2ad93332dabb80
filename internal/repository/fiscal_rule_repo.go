package repository

import (
	"context"

	"backoffice/internal/fiscal"
	"backoffice/internal/model"
	"backoffice/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleFilter narrows a rule listing. Empty fields match everything.
type RuleFilter struct {
	Scope  fiscal.TenantScope
	UF     string
	Regime string
	Mode   string
	Page   pagination.Params
}

// FiscalRuleRepository persists fiscal rules and serves the resolver's
// candidate lookup.
type FiscalRuleRepository interface {
	fiscal.RuleStore
	Create(ctx context.Context, rule *model.FiscalRule) error
	Update(ctx context.Context, rule *model.FiscalRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FiscalRule, error)
	List(ctx context.Context, filter RuleFilter) ([]model.FiscalRule, int64, error)
}

type fiscalRuleRepository struct {
	db *gorm.DB
}

func NewFiscalRuleRepository(db *gorm.DB) FiscalRuleRepository {
	return &fiscalRuleRepository{db: db}
}

// visibleIn restricts a query to platform rules plus, for a company scope,
// that company's own rules.
func visibleIn(db *gorm.DB, scope fiscal.TenantScope) *gorm.DB {
	if scope.CompanyID == nil {
		return db.Where("company_id IS NULL")
	}
	return db.Where("(company_id IS NULL OR company_id = ?)", *scope.CompanyID)
}

func (r *fiscalRuleRepository) FindMatching(ctx context.Context, uf string, regime fiscal.Regime, scope fiscal.TenantScope) ([]fiscal.StoredRule, error) {
	var rows []model.FiscalRule
	q := GetDB(ctx, r.db).Where("uf = ? AND regime = ?", uf, string(regime))
	if err := visibleIn(q, scope).Find(&rows).Error; err != nil {
		return nil, err
	}

	rules := make([]fiscal.StoredRule, 0, len(rows))
	for i := range rows {
		rules = append(rules, rows[i].Stored())
	}
	return rules, nil
}

func (r *fiscalRuleRepository) Create(ctx context.Context, rule *model.FiscalRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *fiscalRuleRepository) Update(ctx context.Context, rule *model.FiscalRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *fiscalRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.FiscalRule{}).Error
}

// FindByID loads a rule regardless of owner; callers enforce visibility.
func (r *fiscalRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FiscalRule, error) {
	var rule model.FiscalRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *fiscalRuleRepository) List(ctx context.Context, filter RuleFilter) ([]model.FiscalRule, int64, error) {
	var rules []model.FiscalRule
	var total int64

	db := visibleIn(GetDB(ctx, r.db).Model(&model.FiscalRule{}), filter.Scope)
	if filter.UF != "" {
		db = db.Where("uf = ?", filter.UF)
	}
	if filter.Regime != "" {
		db = db.Where("regime = ?", filter.Regime)
	}
	if filter.Mode != "" {
		db = db.Where("mode = ?", filter.Mode)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := pagination.New(filter.Page.Page, filter.Page.Limit)
	if err := db.Order("uf asc, regime asc, priority asc, id asc").
		Offset(page.Offset).Limit(page.Limit).Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}
