package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"backoffice/internal/cache"
	"backoffice/internal/fiscal"

	"go.uber.org/zap"
)

const (
	generationTenant = "global"
	generationKey    = "fiscal_rules:generation"
)

// CachedRuleStore caches candidate lists per scope, UF and regime. Entries
// are keyed by a generation counter that every rule write bumps, so stale
// lists are never read after Invalidate returns. Cache failures degrade to
// direct store reads.
type CachedRuleStore struct {
	next   fiscal.RuleStore
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedRuleStore(next fiscal.RuleStore, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedRuleStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRuleStore{next: next, cache: c, ttl: ttl, logger: logger.Named("rule_cache")}
}

func (s *CachedRuleStore) FindMatching(ctx context.Context, uf string, regime fiscal.Regime, scope fiscal.TenantScope) ([]fiscal.StoredRule, error) {
	gen, err := s.generation(ctx)
	if err != nil {
		s.logger.Warn("Rule cache unavailable, reading store", zap.Error(err))
		return s.next.FindMatching(ctx, uf, regime, scope)
	}

	key := fmt.Sprintf("fiscal_rules:v%d:%s:%s", gen, uf, regime)
	if raw, err := s.cache.Get(ctx, scope.Key(), key); err != nil {
		s.logger.Warn("Rule cache read failed", zap.String("key", key), zap.Error(err))
	} else if raw != nil {
		var rules []fiscal.StoredRule
		if err := json.Unmarshal(raw, &rules); err == nil {
			return rules, nil
		}
		s.logger.Warn("Discarding undecodable rule cache entry", zap.String("key", key))
	}

	rules, err := s.next.FindMatching(ctx, uf, regime, scope)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(rules); err == nil {
		if err := s.cache.Set(ctx, scope.Key(), key, raw, s.ttl); err != nil {
			s.logger.Warn("Rule cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return rules, nil
}

// Invalidate retires every cached candidate list.
func (s *CachedRuleStore) Invalidate(ctx context.Context) error {
	if _, err := s.cache.Incr(ctx, generationTenant, generationKey); err != nil {
		return fmt.Errorf("failed to bump rule cache generation: %w", err)
	}
	return nil
}

func (s *CachedRuleStore) generation(ctx context.Context) (int64, error) {
	raw, err := s.cache.Get(ctx, generationTenant, generationKey)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return strconv.ParseInt(string(raw), 10, 64)
}
