package service

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
)

// Rule change event types pushed to dashboards.
const (
	EventRuleCreated = "fiscal_rule.created"
	EventRuleUpdated = "fiscal_rule.updated"
	EventRuleDeleted = "fiscal_rule.deleted"
)

// RuleEvent is the websocket payload for a rule change.
type RuleEvent struct {
	Type      string     `json:"type"`
	RuleID    uuid.UUID  `json:"ruleId"`
	UF        string     `json:"uf"`
	Regime    string     `json:"regime"`
	CompanyID *uuid.UUID `json:"companyId"`
}

// EventBroadcaster fans events out to connected clients.
type EventBroadcaster interface {
	BroadcastJSON(v interface{})
}

// RuleInvalidator drops cached rule candidates after a write.
type RuleInvalidator interface {
	Invalidate(ctx context.Context) error
}

func newRuleEvent(eventType string, r *model.FiscalRule) RuleEvent {
	return RuleEvent{Type: eventType, RuleID: r.ID, UF: r.UF, Regime: r.Regime, CompanyID: r.CompanyID}
}

// Audience is the company allowed to see the event. Nil reaches every tenant.
func (e RuleEvent) Audience() *uuid.UUID {
	return e.CompanyID
}
