package service

import (
	"context"
	"testing"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyService(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCompanyService(repository.NewCompanyRepository(db), repository.NewAuditRepository(db), repository.NewTransactionManager(db))
	admin := adminActor()

	created, err := svc.Create(ctx, admin, CompanyRequest{Name: " Padaria Sol ", CNPJ: "12345678000195", UF: "sp", Regime: "simples"})
	require.NoError(t, err)
	assert.Equal(t, "Padaria Sol", created.Name)
	assert.Equal(t, "SP", created.UF)
	assert.Equal(t, "SIMPLES", created.Regime)

	_, err = svc.Create(ctx, admin, CompanyRequest{Name: "Clone", CNPJ: "12345678000195", UF: "RJ", Regime: "NORMAL"})
	assert.ErrorIs(t, err, ErrConflict)

	other, err := svc.Create(ctx, admin, CompanyRequest{Name: "Outra", CNPJ: "98765432000110", UF: "RJ", Regime: "NORMAL"})
	require.NoError(t, err)

	manager := companyActor(model.RoleManager, created.ID)
	staff := companyActor(model.RoleStaff, created.ID)

	t.Run("non admins see their own company only", func(t *testing.T) {
		list, meta, err := svc.List(ctx, staff, pagination.New(1, 20))
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, created.ID, list[0].ID)
		assert.Equal(t, int64(1), meta.Total)

		_, err = svc.Get(ctx, staff, other.ID.String())
		assert.ErrorIs(t, err, ErrNotFound)

		all, _, err := svc.List(ctx, admin, pagination.New(1, 20))
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("managers update their own company", func(t *testing.T) {
		updated, err := svc.Update(ctx, manager, created.ID.String(), CompanyRequest{Name: "Padaria Sol Nascente", CNPJ: "12345678000195", UF: "SP", Regime: "NORMAL"})
		require.NoError(t, err)
		assert.Equal(t, "NORMAL", updated.Regime)

		_, err = svc.Update(ctx, staff, created.ID.String(), CompanyRequest{Name: "X", CNPJ: "12345678000195", UF: "SP", Regime: "NORMAL"})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("only admins create and delete", func(t *testing.T) {
		_, err := svc.Create(ctx, manager, CompanyRequest{Name: "X", CNPJ: "11111111000111", UF: "SP", Regime: "NORMAL"})
		assert.ErrorIs(t, err, ErrForbidden)
		assert.ErrorIs(t, svc.Delete(ctx, manager, created.ID.String()), ErrForbidden)

		require.NoError(t, svc.Delete(ctx, admin, other.ID.String()))
		_, err = svc.Get(ctx, admin, other.ID.String())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestProductService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	manager := companyActor(model.RoleManager, f.company.ID)
	staff := companyActor(model.RoleStaff, f.company.ID)
	outsider := companyActor(model.RoleManager, f.other.ID)

	product, err := f.products.Create(ctx, manager, ProductRequest{SKU: "ARZ-5KG", Name: "Arroz 5kg", NCM: "10063021", Price: decimal.NewFromFloat(27.9)})
	require.NoError(t, err)
	assert.Equal(t, f.company.ID, product.CompanyID)
	assert.Nil(t, product.CEST)

	_, err = f.products.Create(ctx, manager, ProductRequest{SKU: "ARZ-5KG", Name: "Duplicado", NCM: "10063021"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.products.Create(ctx, staff, ProductRequest{SKU: "FEJ-1KG", Name: "Feijão 1kg", NCM: "07133319"})
	assert.ErrorIs(t, err, ErrForbidden)

	list, meta, err := f.products.List(ctx, staff, ProductListQuery{Search: "arroz"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), meta.Total)

	_, err = f.products.Get(ctx, outsider, product.ID.String(), nil)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := f.products.Update(ctx, manager, product.ID.String(), ProductRequest{SKU: "ARZ-5KG", Name: "Arroz tipo 1 5kg", NCM: "10063021", CEST: "1703100"})
	require.NoError(t, err)
	require.NotNil(t, updated.CEST)
	assert.Equal(t, "1703100", *updated.CEST)

	_, _, err = f.products.List(ctx, adminActor(), ProductListQuery{})
	assert.ErrorIs(t, err, ErrCompanyRequired)

	require.NoError(t, f.products.Delete(ctx, manager, product.ID.String(), nil))
	_, err = f.products.Get(ctx, manager, product.ID.String(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.products.Get(ctx, manager, uuid.NewString(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuditService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	manager := companyActor(model.RoleManager, f.company.ID)

	_, err := f.products.Create(ctx, manager, ProductRequest{SKU: "A", Name: "A", NCM: "10063021"})
	require.NoError(t, err)
	_, err = f.products.Create(ctx, companyActor(model.RoleManager, f.other.ID), ProductRequest{SKU: "B", Name: "B", NCM: "10063021"})
	require.NoError(t, err)

	svc := NewAuditService(repository.NewAuditRepository(f.db))

	logs, meta, err := svc.List(ctx, adminActor(), nil, pagination.New(1, 20))
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.Equal(t, int64(2), meta.Total)

	logs, _, err = svc.List(ctx, manager, nil, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ActionCreateProduct, logs[0].Action)
	assert.Equal(t, "System", logs[0].Username)

	_, _, err = svc.List(ctx, companyActor(model.RoleStaff, f.company.ID), nil, pagination.Params{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = svc.List(ctx, manager, &f.other.ID, pagination.Params{})
	assert.ErrorIs(t, err, ErrForbidden)
}
