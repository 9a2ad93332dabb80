package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"backoffice/internal/cache"
	"backoffice/internal/fiscal"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingStore struct {
	rules []fiscal.StoredRule
	calls int
}

func (s *countingStore) FindMatching(context.Context, string, fiscal.Regime, fiscal.TenantScope) ([]fiscal.StoredRule, error) {
	s.calls++
	return s.rules, nil
}

type brokenCache struct{ cache.Cache }

func (brokenCache) Get(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestCachedRuleStore(t *testing.T) {
	ctx := context.Background()
	rule := fiscal.StoredRule{
		ID:       uuid.New(),
		UF:       "RJ",
		Regime:   fiscal.RegimeNormal,
		Mode:     fiscal.ModeICMSST,
		MVARate:  decimal.NewNullDecimal(decimal.RequireFromString("40")),
		Priority: decimal.NewFromInt(100),
	}

	t.Run("serves repeated lookups from cache", func(t *testing.T) {
		next := &countingStore{rules: []fiscal.StoredRule{rule}}
		store := NewCachedRuleStore(next, cache.NewMemoryCache(), time.Minute, nil)

		for i := 0; i < 3; i++ {
			rules, err := store.FindMatching(ctx, "RJ", fiscal.RegimeNormal, fiscal.PlatformScope())
			require.NoError(t, err)
			require.Len(t, rules, 1)
			assert.Equal(t, rule.ID, rules[0].ID)
			assert.Equal(t, "40", rules[0].MVARate.Decimal.String())
			assert.False(t, rules[0].ICMSRate.Valid)
		}
		assert.Equal(t, 1, next.calls)
	})

	t.Run("scopes are cached separately", func(t *testing.T) {
		next := &countingStore{rules: []fiscal.StoredRule{rule}}
		store := NewCachedRuleStore(next, cache.NewMemoryCache(), time.Minute, nil)

		_, err := store.FindMatching(ctx, "RJ", fiscal.RegimeNormal, fiscal.PlatformScope())
		require.NoError(t, err)
		_, err = store.FindMatching(ctx, "RJ", fiscal.RegimeNormal, fiscal.CompanyScope(uuid.New()))
		require.NoError(t, err)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		next := &countingStore{rules: []fiscal.StoredRule{rule}}
		store := NewCachedRuleStore(next, cache.NewMemoryCache(), time.Minute, nil)

		_, err := store.FindMatching(ctx, "RJ", fiscal.RegimeNormal, fiscal.PlatformScope())
		require.NoError(t, err)
		require.NoError(t, store.Invalidate(ctx))

		next.rules = nil
		rules, err := store.FindMatching(ctx, "RJ", fiscal.RegimeNormal, fiscal.PlatformScope())
		require.NoError(t, err)
		assert.Empty(t, rules)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("falls back to the store when the cache fails", func(t *testing.T) {
		core, recorded := observer.New(zapcore.WarnLevel)
		next := &countingStore{rules: []fiscal.StoredRule{rule}}
		store := NewCachedRuleStore(next, brokenCache{}, time.Minute, zap.New(core))

		rules, err := store.FindMatching(ctx, "RJ", fiscal.RegimeNormal, fiscal.PlatformScope())
		require.NoError(t, err)
		assert.Len(t, rules, 1)
		assert.Equal(t, 1, recorded.Len())
	})
}
