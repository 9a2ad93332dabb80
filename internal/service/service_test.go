package service

import (
	"context"
	"errors"
	"testing"

	"backoffice/internal/config"
	"backoffice/internal/database"
	"backoffice/internal/fiscal"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}, zap.NewNop(), "error")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newCompany(t *testing.T, db *gorm.DB, name string) *model.Company {
	t.Helper()
	c := &model.Company{Name: name, CNPJ: uuid.NewString()[:14], UF: "SP", Regime: "NORMAL"}
	require.NoError(t, repository.NewCompanyRepository(db).Create(context.Background(), c))
	return c
}

func rate(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func adminActor() Actor {
	id := uuid.New()
	return Actor{UserID: &id, Role: model.RoleAdmin}
}

func companyActor(role string, companyID uuid.UUID) Actor {
	id := uuid.New()
	return Actor{UserID: &id, Role: role, CompanyID: &companyID}
}

type recordingBroadcaster struct {
	events []interface{}
}

func (b *recordingBroadcaster) BroadcastJSON(v interface{}) {
	b.events = append(b.events, v)
}

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return c.err
}

type failingAudit struct {
	repository.AuditRepository
}

func (failingAudit) Log(context.Context, *model.AuditLog) error {
	return errors.New("audit table locked")
}

type fixture struct {
	db          *gorm.DB
	rules       FiscalRuleService
	resolution  ResolutionService
	products    ProductService
	events      *recordingBroadcaster
	invalidator *countingInvalidator
	company     *model.Company
	other       *model.Company
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	ruleRepo := repository.NewFiscalRuleRepository(db)
	productRepo := repository.NewProductRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	events := &recordingBroadcaster{}
	invalidator := &countingInvalidator{}
	resolver := fiscal.NewResolver(ruleRepo, nil)

	return &fixture{
		db: db,
		rules: NewFiscalRuleService(ruleRepo, repository.NewCompanyRepository(db), auditRepo, txManager,
			fiscal.NewValidator(), invalidator, events, nil),
		resolution:  NewResolutionService(resolver, fiscal.NewSimulator(resolver, productRepo)),
		products:    NewProductService(productRepo, auditRepo, txManager),
		events:      events,
		invalidator: invalidator,
		company:     newCompany(t, db, "Mercado Central"),
		other:       newCompany(t, db, "Atacado Norte"),
	}
}

func (f *fixture) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)
	return n
}
