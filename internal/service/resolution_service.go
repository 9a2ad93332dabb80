package service

import (
	"context"
	"strings"

	"backoffice/internal/fiscal"

	"github.com/google/uuid"
)

// --- DTOs ---

type ResolveRequest struct {
	UF        string     `json:"uf" binding:"required"`
	Regime    string     `json:"regime" binding:"required"`
	CompanyID *uuid.UUID `json:"companyId"`
}

type SimulateRequest struct {
	ResolveRequest
	ProductID *uuid.UUID `json:"productId"`
}

// --- Interface ---

// ResolutionService is the read path: resolve, simulate and the default code
// table. It never writes.
type ResolutionService interface {
	Resolve(ctx context.Context, actor Actor, req ResolveRequest) (*fiscal.Outcome, error)
	Simulate(ctx context.Context, actor Actor, req SimulateRequest) (*fiscal.Simulation, error)
	Defaults(regime, mode string) ([]fiscal.DefaultCodeEntry, error)
}

type resolutionService struct {
	resolver  *fiscal.Resolver
	simulator *fiscal.Simulator
}

func NewResolutionService(resolver *fiscal.Resolver, simulator *fiscal.Simulator) ResolutionService {
	return &resolutionService{resolver: resolver, simulator: simulator}
}

// --- Implementation ---

func (s *resolutionService) Resolve(ctx context.Context, actor Actor, req ResolveRequest) (*fiscal.Outcome, error) {
	q, err := queryFor(actor, req)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, q)
}

func (s *resolutionService) Simulate(ctx context.Context, actor Actor, req SimulateRequest) (*fiscal.Simulation, error) {
	q, err := queryFor(actor, req.ResolveRequest)
	if err != nil {
		return nil, err
	}
	return s.simulator.Simulate(ctx, fiscal.SimulationRequest{Query: q, ProductID: req.ProductID})
}

// Defaults filters the default code table. Empty filters match everything.
func (s *resolutionService) Defaults(regime, mode string) ([]fiscal.DefaultCodeEntry, error) {
	var violations []fiscal.Violation
	var r fiscal.Regime
	var m fiscal.Mode
	if strings.TrimSpace(regime) != "" {
		parsed, err := fiscal.ParseRegime(regime)
		if err != nil {
			violations = append(violations, fiscal.Violation{Field: "regime", Message: err.Error()})
		}
		r = parsed
	}
	if strings.TrimSpace(mode) != "" {
		parsed, err := fiscal.ParseMode(mode)
		if err != nil {
			violations = append(violations, fiscal.Violation{Field: "mode", Message: err.Error()})
		}
		m = parsed
	}
	if len(violations) > 0 {
		return nil, &fiscal.ValidationError{Violations: violations}
	}

	table := fiscal.DefaultCodeTable()
	res := make([]fiscal.DefaultCodeEntry, 0, len(table))
	for _, e := range table {
		if (r == "" || e.Regime == r) && (m == "" || e.Mode == m) {
			res = append(res, e)
		}
	}
	return res, nil
}

func queryFor(actor Actor, req ResolveRequest) (fiscal.Query, error) {
	scope, err := actor.Scope(req.CompanyID)
	if err != nil {
		return fiscal.Query{}, err
	}
	return fiscal.Query{
		UF:     req.UF,
		Regime: fiscal.Regime(strings.ToUpper(strings.TrimSpace(req.Regime))),
		Scope:  scope,
	}, nil
}
