package service

import (
	"context"
	"testing"

	"backoffice/internal/fiscal"
	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionService_Resolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := adminActor()
	staff := companyActor(model.RoleStaff, f.company.ID)

	_, err := f.rules.Import(ctx, admin, []fiscal.Draft{
		{UF: "SP", Regime: fiscal.RegimeNormal, Mode: fiscal.ModeTributado, ICMSRate: rate(18), Description: "SP interna"},
		{UF: "RJ", Regime: fiscal.RegimeNormal, Mode: fiscal.ModeICMSST, ICMSRate: rate(20), MVARate: rate(40), STReduction: rate(10), STRate: rate(18)},
		{UF: "MG", Regime: fiscal.RegimeSimples, Mode: fiscal.ModeIsento, Reason: "Produto da cesta básica"},
	})
	require.NoError(t, err)

	t.Run("SP tributado falls back to the default CST", func(t *testing.T) {
		out, err := f.resolution.Resolve(ctx, staff, ResolveRequest{UF: "sp", Regime: "normal"})
		require.NoError(t, err)
		assert.Equal(t, fiscal.ModeTributado, out.Mode)
		assert.Equal(t, fiscal.CST("00"), out.Code)
		assert.Equal(t, "18", out.ICMSRate.Decimal.String())
		assert.Equal(t, "SP interna", out.RuleDescription)
	})

	t.Run("RJ ICMS ST carries the reduction", func(t *testing.T) {
		out, err := f.resolution.Resolve(ctx, staff, ResolveRequest{UF: "RJ", Regime: "NORMAL"})
		require.NoError(t, err)
		assert.Equal(t, fiscal.CST("60"), out.Code)
		assert.Equal(t, "40", out.MVARate.Decimal.String())
		assert.Equal(t, "10", out.STReduction.Decimal.String())
	})

	t.Run("MG simples isento carries the reason", func(t *testing.T) {
		out, err := f.resolution.Resolve(ctx, staff, ResolveRequest{UF: "MG", Regime: "SIMPLES"})
		require.NoError(t, err)
		assert.Equal(t, fiscal.CSOSN("400"), out.Code)
		assert.Equal(t, "Produto da cesta básica", out.Reason)
	})

	t.Run("company rule overrides the platform default", func(t *testing.T) {
		p := decimal.NewFromInt(50)
		own, err := f.rules.Create(ctx, companyActor(model.RoleManager, f.company.ID), fiscal.Draft{UF: "SP", Regime: fiscal.RegimeNormal, Mode: fiscal.ModeTributado, ICMSRate: rate(12), Priority: &p})
		require.NoError(t, err)

		out, err := f.resolution.Resolve(ctx, staff, ResolveRequest{UF: "SP", Regime: "NORMAL"})
		require.NoError(t, err)
		assert.Equal(t, own.ID, out.RuleID)

		out, err = f.resolution.Resolve(ctx, admin, ResolveRequest{UF: "SP", Regime: "NORMAL"})
		require.NoError(t, err)
		assert.NotEqual(t, own.ID, out.RuleID)
	})

	t.Run("unconfigured UF", func(t *testing.T) {
		_, err := f.resolution.Resolve(ctx, staff, ResolveRequest{UF: "AM", Regime: "NORMAL"})
		assert.True(t, fiscal.IsNoApplicableRule(err))
	})

	t.Run("foreign company is forbidden", func(t *testing.T) {
		_, err := f.resolution.Resolve(ctx, staff, ResolveRequest{UF: "SP", Regime: "NORMAL", CompanyID: &f.other.ID})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("bad regime", func(t *testing.T) {
		_, err := f.resolution.Resolve(ctx, staff, ResolveRequest{UF: "SP", Regime: "LUCRO_REAL"})
		_, ok := fiscal.AsValidationError(err)
		assert.True(t, ok)
	})
}

func TestResolutionService_Simulate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	manager := companyActor(model.RoleManager, f.company.ID)

	_, err := f.rules.Create(ctx, adminActor(), fiscal.Draft{UF: "SP", Regime: fiscal.RegimeNormal, Mode: fiscal.ModeICMSST, MVARate: rate(35)})
	require.NoError(t, err)
	product, err := f.products.Create(ctx, manager, ProductRequest{SKU: "CERV-350", Name: "Cerveja lata 350ml", NCM: "22030000", CEST: "0302100", Price: decimal.NewFromFloat(4.99)})
	require.NoError(t, err)

	sim, err := f.resolution.Simulate(ctx, manager, SimulateRequest{ResolveRequest: ResolveRequest{UF: "SP", Regime: "NORMAL"}, ProductID: &product.ID})
	require.NoError(t, err)
	require.NotNil(t, sim.Product)
	assert.Equal(t, "0302100", sim.Product.CEST)
	assert.Equal(t, fiscal.CST("60"), sim.Outcome.Code)

	missing := uuid.New()
	sim, err = f.resolution.Simulate(ctx, manager, SimulateRequest{ResolveRequest: ResolveRequest{UF: "SP", Regime: "NORMAL"}, ProductID: &missing})
	require.NoError(t, err)
	assert.Nil(t, sim.Product)

	// Platform scope has no catalogue, so the product is omitted.
	sim, err = f.resolution.Simulate(ctx, adminActor(), SimulateRequest{ResolveRequest: ResolveRequest{UF: "SP", Regime: "NORMAL"}, ProductID: &product.ID})
	require.NoError(t, err)
	assert.Nil(t, sim.Product)
}

func TestResolutionService_Defaults(t *testing.T) {
	svc := NewResolutionService(nil, nil)

	all, err := svc.Defaults("", "")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	simples, err := svc.Defaults("simples", "")
	require.NoError(t, err)
	assert.Len(t, simples, 3)

	one, err := svc.Defaults("NORMAL", "ISENTO")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "40", one[0].Code)
	assert.Equal(t, "cst", one[0].Field)

	_, err = svc.Defaults("LUCRO", "DIFERIDO")
	verr, ok := fiscal.AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, verr.Violations, 2)
}
