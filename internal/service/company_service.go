package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backoffice/internal/fiscal"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CompanyRequest struct {
	Name   string `json:"name" binding:"required,max=255"`
	CNPJ   string `json:"cnpj" binding:"required,len=14,numeric"`
	UF     string `json:"uf" binding:"required,len=2,alpha"`
	Regime string `json:"regime" binding:"required,oneof=NORMAL SIMPLES normal simples"`
}

// --- Interface ---

type CompanyService interface {
	List(ctx context.Context, actor Actor, page pagination.Params) ([]model.Company, pagination.Meta, error)
	Get(ctx context.Context, actor Actor, id string) (*model.Company, error)
	Create(ctx context.Context, actor Actor, req CompanyRequest) (*model.Company, error)
	Update(ctx context.Context, actor Actor, id string, req CompanyRequest) (*model.Company, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type companyService struct {
	repo      repository.CompanyRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
}

func NewCompanyService(repo repository.CompanyRepository, audit repository.AuditRepository, txManager repository.TransactionManager) CompanyService {
	return &companyService{repo: repo, audit: audit, txManager: txManager}
}

// --- Implementation ---

// List returns every company to admins and only their own to everyone else.
func (s *companyService) List(ctx context.Context, actor Actor, page pagination.Params) ([]model.Company, pagination.Meta, error) {
	page = pagination.New(page.Page, page.Limit)
	if !actor.IsAdmin() {
		if actor.CompanyID == nil {
			return nil, pagination.Meta{}, ErrForbidden
		}
		company, err := s.find(ctx, *actor.CompanyID)
		if err != nil {
			return nil, pagination.Meta{}, err
		}
		return []model.Company{*company}, page.Meta(1), nil
	}

	companies, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, page.Meta(total), nil
}

func (s *companyService) Get(ctx context.Context, actor Actor, id string) (*model.Company, error) {
	companyID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	if !actor.CanSee(&companyID) {
		return nil, ErrNotFound
	}
	return s.find(ctx, companyID)
}

func (s *companyService) Create(ctx context.Context, actor Actor, req CompanyRequest) (*model.Company, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	company := &model.Company{}
	if err := applyCompany(company, req); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, company); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return fmt.Errorf("failed to create company: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, &company.ID, model.ActionCreateCompany, company.ID.String(), company.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return company, nil
}

// Update lets admins edit any company and managers their own.
func (s *companyService) Update(ctx context.Context, actor Actor, id string, req CompanyRequest) (*model.Company, error) {
	company, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanWrite(&company.ID) {
		return nil, ErrForbidden
	}
	if err := applyCompany(company, req); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, company); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return fmt.Errorf("failed to update company: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, &company.ID, model.ActionUpdateCompany, company.ID.String(), company.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return company, nil
}

func (s *companyService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	company, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, company.ID); err != nil {
			return fmt.Errorf("failed to delete company: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, &company.ID, model.ActionDeleteCompany, company.ID.String(), company.Name, map[string]string{"cnpj": company.CNPJ})
	})
}

func (s *companyService) find(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch company: %w", err)
	}
	return company, nil
}

func applyCompany(company *model.Company, req CompanyRequest) error {
	uf, err := fiscal.NormalizeUF(req.UF)
	if err != nil {
		return &fiscal.ValidationError{Violations: []fiscal.Violation{{Field: "uf", Message: err.Error()}}}
	}
	regime, err := fiscal.ParseRegime(req.Regime)
	if err != nil {
		return &fiscal.ValidationError{Violations: []fiscal.Violation{{Field: "regime", Message: err.Error()}}}
	}

	company.Name = strings.TrimSpace(req.Name)
	company.CNPJ = req.CNPJ
	company.UF = uf
	company.Regime = string(regime)
	return nil
}
