package cli

import (
	"errors"
	"fmt"
	"time"

	"backoffice/internal/cache"
	"backoffice/internal/config"
	"backoffice/internal/database"
	"backoffice/internal/fiscal"
	"backoffice/internal/logger"
	"backoffice/internal/repository"
	"backoffice/internal/service"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Env is what the database-backed commands run against.
type Env struct {
	DB      *gorm.DB
	Cache   cache.Cache
	RuleTTL time.Duration
	Logger  *zap.Logger

	close func() error
}

// Opener builds an Env on demand.
type Opener func() (*Env, error)

// OpenFromConfig loads the service configuration and connects to the same
// database and rule cache as the API, so an import invalidates the cache the
// running server reads from.
func OpenFromConfig() (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	db, err := database.Open(cfg.Database, log, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.Redis)
	if err != nil {
		log.Warn("Rule cache unavailable, running without it", zap.Error(err))
		c = cache.NewMemoryCache()
	}

	return &Env{
		DB:      db,
		Cache:   c,
		RuleTTL: cfg.Cache.RuleTTL,
		Logger:  log,
		close: func() error {
			var errs []error
			errs = append(errs, c.Close())
			if sqlDB, err := db.DB(); err == nil {
				errs = append(errs, sqlDB.Close())
			}
			_ = log.Sync()
			return errors.Join(errs...)
		},
	}, nil
}

// Close releases the connections opened by OpenFromConfig.
func (e *Env) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) ruleStore() *repository.CachedRuleStore {
	return repository.NewCachedRuleStore(repository.NewFiscalRuleRepository(e.DB), e.Cache, e.RuleTTL, e.logger())
}

func (e *Env) ruleService() service.FiscalRuleService {
	return service.NewFiscalRuleService(
		repository.NewFiscalRuleRepository(e.DB),
		repository.NewCompanyRepository(e.DB),
		repository.NewAuditRepository(e.DB),
		repository.NewTransactionManager(e.DB),
		fiscal.NewValidator(),
		e.ruleStore(),
		nil,
		e.logger(),
	)
}

func (e *Env) resolutionService() service.ResolutionService {
	resolver := fiscal.NewResolver(e.ruleStore(), e.logger())
	return service.NewResolutionService(resolver, fiscal.NewSimulator(resolver, repository.NewProductRepository(e.DB)))
}

// The token manager is only needed for Login, which the CLI never does.
func (e *Env) authService() service.AuthService {
	return service.NewAuthService(repository.NewUserRepository(e.DB), repository.NewCompanyRepository(e.DB), nil)
}

func withEnv(opts *RootOptions, fn func(env *Env) error) error {
	if opts.open == nil {
		return errors.New("no database configured")
	}
	env, err := opts.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			env.logger().Warn("Failed to close connections", zap.Error(err))
		}
	}()
	return fn(env)
}
