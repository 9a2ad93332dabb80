package fiscal

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPriority is assigned to drafts that omit a priority.
var DefaultPriority = decimal.NewFromInt(100)

// Treatment is the mode-specific part of a rule. Each mode has its own
// constructor so a substitution-tax treatment cannot exist without an MVA
// and an exemption cannot exist without a reason.
type Treatment interface {
	Mode() Mode
	isTreatment()
}

// Taxed is ordinary ICMS taxation at an optional rate.
type Taxed struct {
	ICMSRate decimal.NullDecimal
}

// NewTaxed builds a TRIBUTADO treatment.
func NewTaxed(icmsRate decimal.NullDecimal) Taxed {
	return Taxed{ICMSRate: icmsRate}
}

func (Taxed) Mode() Mode { return ModeTributado }
func (Taxed) isTreatment() {}

// SubstitutionTax is ICMS collected upstream under tax substitution.
type SubstitutionTax struct {
	mva         decimal.Decimal
	ICMSRate    decimal.NullDecimal
	STReduction decimal.NullDecimal
	STRate      decimal.NullDecimal
}

// NewSubstitutionTax builds an ICMS_ST treatment; the MVA is mandatory.
func NewSubstitutionTax(mva decimal.Decimal, icmsRate, stReduction, stRate decimal.NullDecimal) SubstitutionTax {
	return SubstitutionTax{mva: mva, ICMSRate: icmsRate, STReduction: stReduction, STRate: stRate}
}

// MVA returns the margin value added used as the ST base markup.
func (t SubstitutionTax) MVA() decimal.Decimal { return t.mva }

func (SubstitutionTax) Mode() Mode { return ModeICMSST }
func (SubstitutionTax) isTreatment() {}

// Exempt is an ICMS exemption with its legal reason.
type Exempt struct {
	reason string
}

var errBlankReason = errors.New("reason is required for ISENTO rules")

// NewExempt builds an ISENTO treatment; a blank reason is rejected.
func NewExempt(reason string) (Exempt, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Exempt{}, errBlankReason
	}
	return Exempt{reason: reason}, nil
}

// Reason explains the exemption.
func (t Exempt) Reason() string { return t.reason }

func (Exempt) Mode() Mode { return ModeIsento }
func (Exempt) isTreatment() {}

// Rule is a validated fiscal rule ready to be persisted.
type Rule struct {
	ID          uuid.UUID
	CompanyID   *uuid.UUID
	UF          string
	Regime      Regime
	Code        Code
	Treatment   Treatment
	Priority    decimal.Decimal
	Description string
}

// Mode is the mode of the rule's treatment.
func (r Rule) Mode() Mode {
	return r.Treatment.Mode()
}

// Stored flattens the rule into its persisted shape: the code lands in the
// cst or csosn column according to its regime.
func (r Rule) Stored() StoredRule {
	s := StoredRule{
		ID:          r.ID,
		CompanyID:   r.CompanyID,
		UF:          r.UF,
		Regime:      r.Regime,
		Mode:        r.Mode(),
		Priority:    r.Priority,
		Description: r.Description,
	}

	switch code := r.Code.(type) {
	case CST:
		s.CST = string(code)
	case CSOSN:
		s.CSOSN = string(code)
	}

	switch t := r.Treatment.(type) {
	case Taxed:
		s.ICMSRate = t.ICMSRate
	case SubstitutionTax:
		s.ICMSRate = t.ICMSRate
		s.MVARate = decimal.NewNullDecimal(t.mva)
		s.STReduction = t.STReduction
		s.STRate = t.STRate
	case Exempt:
		s.Reason = t.reason
	}
	return s
}

// StoredRule is a rule as read back from storage. Write-time invariants are
// not guaranteed here: rows written before validation existed may lack an MVA
// or a reason, and the resolver must cope with them.
type StoredRule struct {
	ID          uuid.UUID           `json:"id"`
	CompanyID   *uuid.UUID          `json:"companyId,omitempty"`
	UF          string              `json:"uf"`
	Regime      Regime              `json:"regime"`
	Mode        Mode                `json:"mode"`
	CST         string              `json:"cst,omitempty"`
	CSOSN       string              `json:"csosn,omitempty"`
	ICMSRate    decimal.NullDecimal `json:"icmsRate"`
	MVARate     decimal.NullDecimal `json:"mvaRate"`
	STReduction decimal.NullDecimal `json:"stReduction"`
	STRate      decimal.NullDecimal `json:"stRate"`
	Reason      string              `json:"reason,omitempty"`
	Priority    decimal.Decimal     `json:"priority"`
	Description string              `json:"description,omitempty"`
}

// CodeValue returns the raw code of the rule's regime, ignoring the other one.
func (s StoredRule) CodeValue() string {
	if s.Regime == RegimeSimples {
		return s.CSOSN
	}
	return s.CST
}

// IsPlatform reports whether the rule is a platform-wide default.
func (s StoredRule) IsPlatform() bool {
	return s.CompanyID == nil
}
