package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type ProductRequest struct {
	CompanyID *uuid.UUID      `json:"companyId"`
	SKU       string          `json:"sku" binding:"required,max=100"`
	Name      string          `json:"name" binding:"required,max=255"`
	NCM       string          `json:"ncm" binding:"required,len=8,numeric"`
	CEST      string          `json:"cest" binding:"omitempty,len=7,numeric"`
	Price     decimal.Decimal `json:"price"`
}

type ProductListQuery struct {
	CompanyID *uuid.UUID
	Search    string
	Page      pagination.Params
}

// --- Interface ---

type ProductService interface {
	List(ctx context.Context, actor Actor, q ProductListQuery) ([]model.Product, pagination.Meta, error)
	Get(ctx context.Context, actor Actor, id string, companyID *uuid.UUID) (*model.Product, error)
	Create(ctx context.Context, actor Actor, req ProductRequest) (*model.Product, error)
	Update(ctx context.Context, actor Actor, id string, req ProductRequest) (*model.Product, error)
	Delete(ctx context.Context, actor Actor, id string, companyID *uuid.UUID) error
}

type productService struct {
	repo      repository.ProductRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
}

func NewProductService(repo repository.ProductRepository, audit repository.AuditRepository, txManager repository.TransactionManager) ProductService {
	return &productService{repo: repo, audit: audit, txManager: txManager}
}

// --- Implementation ---

func (s *productService) List(ctx context.Context, actor Actor, q ProductListQuery) ([]model.Product, pagination.Meta, error) {
	companyID, err := actor.CompanyScope(q.CompanyID)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	page := pagination.New(q.Page.Page, q.Page.Limit)
	products, total, err := s.repo.List(ctx, companyID, page, strings.TrimSpace(q.Search))
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("failed to list products: %w", err)
	}
	return products, page.Meta(total), nil
}

func (s *productService) Get(ctx context.Context, actor Actor, id string, companyID *uuid.UUID) (*model.Product, error) {
	owner, err := actor.CompanyScope(companyID)
	if err != nil {
		return nil, err
	}
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	product, err := s.repo.FindByID(ctx, productID, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return product, nil
}

func (s *productService) Create(ctx context.Context, actor Actor, req ProductRequest) (*model.Product, error) {
	owner, err := s.writableCompany(actor, req.CompanyID)
	if err != nil {
		return nil, err
	}

	product := &model.Product{CompanyID: owner}
	applyProduct(product, req)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, product); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return fmt.Errorf("failed to create product: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, &owner, model.ActionCreateProduct, product.ID.String(), product.SKU, req)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, actor Actor, id string, req ProductRequest) (*model.Product, error) {
	owner, err := s.writableCompany(actor, req.CompanyID)
	if err != nil {
		return nil, err
	}
	product, err := s.Get(ctx, actor, id, &owner)
	if err != nil {
		return nil, err
	}
	applyProduct(product, req)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, product); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return fmt.Errorf("failed to update product: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, &owner, model.ActionUpdateProduct, product.ID.String(), product.SKU, req)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, actor Actor, id string, companyID *uuid.UUID) error {
	owner, err := s.writableCompany(actor, companyID)
	if err != nil {
		return err
	}
	product, err := s.Get(ctx, actor, id, &owner)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, product.ID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, &owner, model.ActionDeleteProduct, product.ID.String(), product.SKU, map[string]string{"sku": product.SKU})
	})
}

// writableCompany is the company whose catalogue the actor may change.
func (s *productService) writableCompany(actor Actor, requested *uuid.UUID) (uuid.UUID, error) {
	owner, err := actor.CompanyScope(requested)
	if err != nil {
		return uuid.Nil, err
	}
	if !actor.CanWrite(&owner) {
		return uuid.Nil, ErrForbidden
	}
	return owner, nil
}

func applyProduct(product *model.Product, req ProductRequest) {
	product.SKU = strings.TrimSpace(req.SKU)
	product.Name = strings.TrimSpace(req.Name)
	product.NCM = req.NCM
	product.CEST = nil
	if cest := strings.TrimSpace(req.CEST); cest != "" {
		product.CEST = &cest
	}
	product.Price = req.Price
}
