package repository

import (
	"context"
	"errors"
	"strings"

	"backoffice/internal/fiscal"
	"backoffice/internal/model"
	"backoffice/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository stores company catalogues and provides the product
// context shown next to simulated outcomes.
type ProductRepository interface {
	fiscal.ProductLookup
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id, companyID uuid.UUID) (*model.Product, error)
	List(ctx context.Context, companyID uuid.UUID, page pagination.Params, search string) ([]model.Product, int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id, companyID uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, companyID uuid.UUID, page pagination.Params, search string) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{}).Where("company_id = ?", companyID)
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		db = db.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)", like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at desc").Offset(page.Offset).Limit(page.Limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// FindProductContext returns nil, nil when the product is missing or belongs
// to another company. Platform scope sees no company catalogue.
func (r *productRepository) FindProductContext(ctx context.Context, id uuid.UUID, scope fiscal.TenantScope) (*fiscal.ProductContext, error) {
	if scope.CompanyID == nil {
		return nil, nil
	}
	p, err := r.FindByID(ctx, id, *scope.CompanyID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pc := &fiscal.ProductContext{ID: p.ID, SKU: p.SKU, Name: p.Name, NCM: p.NCM}
	if p.CEST != nil {
		pc.CEST = *p.CEST
	}
	return pc, nil
}
