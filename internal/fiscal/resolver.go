package fiscal

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RuleStore is the read capability the resolver needs from storage. The
// returned rules are in no particular order.
type RuleStore interface {
	FindMatching(ctx context.Context, uf string, regime Regime, scope TenantScope) ([]StoredRule, error)
}

// Query is the resolution context: destination UF, the seller's regime and
// its effective tenant.
type Query struct {
	UF     string
	Regime Regime
	Scope  TenantScope
}

// Resolver selects the applicable rule for a query and derives its outcome.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	store  RuleStore
	logger *zap.Logger
}

// NewResolver creates a resolver reading candidates from store.
func NewResolver(store RuleStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger.Named("fiscal.resolver")}
}

// Resolve returns the outcome of the highest-priority rule matching the
// query, or a *NoApplicableRuleError when none matches.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*Outcome, error) {
	uf, err := NormalizeUF(q.UF)
	if err != nil {
		return nil, &ValidationError{Violations: []Violation{{Field: "uf", Message: err.Error()}}}
	}
	if !q.Regime.Valid() {
		return nil, &ValidationError{Violations: []Violation{{Field: "regime", Message: "regime must be one of: NORMAL, SIMPLES"}}}
	}

	candidates, err := r.store.FindMatching(ctx, uf, q.Regime, q.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load fiscal rules: %w", err)
	}

	selected, ok := selectRule(candidates, uf, q.Regime, q.Scope)
	if !ok {
		return nil, &NoApplicableRuleError{UF: uf, Regime: q.Regime}
	}

	out := derive(selected)
	if len(out.Warnings) > 0 {
		r.logger.Warn("Resolved fiscal rule violates write-time invariants",
			zap.String("rule_id", selected.ID.String()),
			zap.String("uf", uf),
			zap.String("regime", string(q.Regime)),
			zap.Strings("warnings", out.Warnings),
		)
	}
	return &out, nil
}

// selectRule picks the winning candidate. Candidates outside the UF, regime
// or scope are ignored even if the store returned them.
func selectRule(candidates []StoredRule, uf string, regime Regime, scope TenantScope) (StoredRule, bool) {
	var best StoredRule
	found := false
	for _, c := range candidates {
		if c.UF != uf || c.Regime != regime || !visible(c, scope) {
			continue
		}
		if !found || precedes(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

func visible(rule StoredRule, scope TenantScope) bool {
	if rule.CompanyID == nil {
		return true
	}
	return scope.CompanyID != nil && *rule.CompanyID == *scope.CompanyID
}

// precedes orders candidates by ascending priority. Equal priorities prefer
// the company's own rule over a platform default, then the lowest id, so the
// choice is total and independent of store ordering.
func precedes(a, b StoredRule) bool {
	if cmp := a.Priority.Cmp(b.Priority); cmp != 0 {
		return cmp < 0
	}
	if a.IsPlatform() != b.IsPlatform() {
		return !a.IsPlatform()
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}
