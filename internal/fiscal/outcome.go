package fiscal

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Anomalies reported when a stored rule breaks a write-time invariant.
const (
	AnomalyMissingMVA    = "mvaRate missing for ICMS_ST rule"
	AnomalyMissingReason = "reason missing for ISENTO rule"
)

// Outcome is the fiscal treatment derived from the selected rule.
type Outcome struct {
	Mode            Mode
	Code            Code
	ICMSRate        decimal.NullDecimal
	MVARate         decimal.NullDecimal
	STReduction     decimal.NullDecimal
	STRate          decimal.NullDecimal
	Reason          string
	RuleID          uuid.UUID
	RuleDescription string
	RuleCompanyID   *uuid.UUID
	// Warnings lists write-time invariants the selected rule violates. The
	// affected fields are left null.
	Warnings []string
}

// CST returns the code when the outcome is under the NORMAL regime.
func (o Outcome) CST() (CST, bool) {
	c, ok := o.Code.(CST)
	return c, ok
}

// CSOSN returns the code when the outcome is under the SIMPLES regime.
func (o Outcome) CSOSN() (CSOSN, bool) {
	c, ok := o.Code.(CSOSN)
	return c, ok
}

type outcomeJSON struct {
	Mode            Mode         `json:"mode"`
	CST             string       `json:"cst,omitempty"`
	CSOSN           string       `json:"csosn,omitempty"`
	ICMSRate        *json.Number `json:"icmsRate,omitempty"`
	MVARate         *json.Number `json:"mvaRate,omitempty"`
	STReduction     *json.Number `json:"stReduction,omitempty"`
	STRate          *json.Number `json:"stRate,omitempty"`
	Reason          string       `json:"reason,omitempty"`
	RuleID          string       `json:"ruleId,omitempty"`
	RuleDescription string       `json:"ruleDescription,omitempty"`
	Warnings        []string     `json:"warnings,omitempty"`
}

// MarshalJSON renders the outcome in the API shape: the code appears as cst
// or csosn according to its regime and rates are plain JSON numbers.
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{
		Mode:            o.Mode,
		ICMSRate:        number(o.ICMSRate),
		MVARate:         number(o.MVARate),
		STReduction:     number(o.STReduction),
		STRate:          number(o.STRate),
		Reason:          o.Reason,
		RuleDescription: o.RuleDescription,
		Warnings:        o.Warnings,
	}
	switch c := o.Code.(type) {
	case CST:
		out.CST = string(c)
	case CSOSN:
		out.CSOSN = string(c)
	}
	if o.RuleID != uuid.Nil {
		out.RuleID = o.RuleID.String()
	}
	return json.Marshal(out)
}

func number(d decimal.NullDecimal) *json.Number {
	if !d.Valid {
		return nil
	}
	n := json.Number(d.Decimal.String())
	return &n
}

// derive shapes the outcome of a selected rule. It never invents values:
// null rates stay null, and only the code falls back to the default table.
func derive(rule StoredRule) Outcome {
	code := NewCode(rule.Regime, rule.CodeValue())
	if code == nil {
		code = DefaultCode(rule.Regime, rule.Mode)
	}

	out := Outcome{
		Mode:            rule.Mode,
		Code:            code,
		ICMSRate:        rule.ICMSRate,
		MVARate:         rule.MVARate,
		STReduction:     rule.STReduction,
		STRate:          rule.STRate,
		Reason:          rule.Reason,
		RuleID:          rule.ID,
		RuleDescription: rule.Description,
		RuleCompanyID:   rule.CompanyID,
	}

	switch rule.Mode {
	case ModeICMSST:
		if !rule.MVARate.Valid {
			out.Warnings = append(out.Warnings, AnomalyMissingMVA)
		}
	case ModeIsento:
		if rule.Reason == "" {
			out.Warnings = append(out.Warnings, AnomalyMissingReason)
		}
	}
	return out
}
