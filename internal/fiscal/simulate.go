package fiscal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ProductContext is the product information shown next to a simulated outcome.
type ProductContext struct {
	ID   uuid.UUID `json:"id"`
	SKU  string    `json:"sku"`
	Name string    `json:"name"`
	NCM  string    `json:"ncm"`
	CEST string    `json:"cest,omitempty"`
}

// ProductLookup loads display context for a product. It returns nil, nil when
// the product does not exist in the scope.
type ProductLookup interface {
	FindProductContext(ctx context.Context, id uuid.UUID, scope TenantScope) (*ProductContext, error)
}

// SimulationRequest is a what-if resolution for a product.
type SimulationRequest struct {
	Query
	ProductID *uuid.UUID
}

// Simulation pairs an outcome with the product it was simulated for.
type Simulation struct {
	Outcome *Outcome        `json:"outcome"`
	Product *ProductContext `json:"product,omitempty"`
}

// Simulator answers what-if questions from the rule editor. Selection is the
// resolver's: the product only contributes display context.
type Simulator struct {
	resolver *Resolver
	products ProductLookup
}

// NewSimulator creates a simulator over resolver and products.
func NewSimulator(resolver *Resolver, products ProductLookup) *Simulator {
	return &Simulator{resolver: resolver, products: products}
}

// Simulate resolves the query and attaches the product when it is known.
func (s *Simulator) Simulate(ctx context.Context, req SimulationRequest) (*Simulation, error) {
	outcome, err := s.resolver.Resolve(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	sim := &Simulation{Outcome: outcome}
	if req.ProductID == nil || s.products == nil {
		return sim, nil
	}

	product, err := s.products.FindProductContext(ctx, *req.ProductID, req.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load product context: %w", err)
	}
	sim.Product = product
	return sim, nil
}
