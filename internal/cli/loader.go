package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"backoffice/internal/fiscal"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// rulesFile is the YAML layout accepted by validate and import:
//
//	rules:
//	  - uf: SP
//	    regime: NORMAL
//	    mode: ICMS_ST
//	    mvaRate: 40
type rulesFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

// Rates are read as text so 18, 18.0 and "18" all reach decimal parsing
// unchanged.
type ruleEntry struct {
	CompanyID   string  `yaml:"companyId"`
	UF          string  `yaml:"uf"`
	Regime      string  `yaml:"regime"`
	Mode        string  `yaml:"mode"`
	CST         string  `yaml:"cst"`
	CSOSN       string  `yaml:"csosn"`
	ICMSRate    *string `yaml:"icmsRate"`
	MVARate     *string `yaml:"mvaRate"`
	STReduction *string `yaml:"stReduction"`
	STRate      *string `yaml:"stRate"`
	Reason      string  `yaml:"reason"`
	Priority    *string `yaml:"priority"`
	Description string  `yaml:"description"`
}

// LoadRules reads rule drafts from a YAML file. Values that cannot be parsed
// are reported as a *fiscal.ValidationError naming rules[i].field.
func LoadRules(path string) ([]fiscal.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file rulesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("no rules found in %s", path)
	}

	drafts := make([]fiscal.Draft, 0, len(file.Rules))
	var violations []fiscal.Violation
	for i, entry := range file.Rules {
		draft, vs := entry.draft()
		violations = append(violations, prefixViolations(i, vs)...)
		drafts = append(drafts, draft)
	}
	if len(violations) > 0 {
		return nil, &fiscal.ValidationError{Violations: violations}
	}
	return drafts, nil
}

func (e ruleEntry) draft() (fiscal.Draft, []fiscal.Violation) {
	var vs []fiscal.Violation
	d := fiscal.Draft{
		UF:          e.UF,
		Regime:      fiscal.Regime(e.Regime),
		Mode:        fiscal.Mode(e.Mode),
		CST:         e.CST,
		CSOSN:       e.CSOSN,
		Reason:      e.Reason,
		Description: e.Description,
	}

	if e.CompanyID != "" {
		id, err := uuid.Parse(e.CompanyID)
		if err != nil {
			vs = append(vs, fiscal.Violation{Field: "companyId", Message: "companyId must be a UUID"})
		} else {
			d.CompanyID = &id
		}
	}

	rates := []struct {
		field string
		raw   *string
		dst   *decimal.NullDecimal
	}{
		{"icmsRate", e.ICMSRate, &d.ICMSRate},
		{"mvaRate", e.MVARate, &d.MVARate},
		{"stReduction", e.STReduction, &d.STReduction},
		{"stRate", e.STRate, &d.STRate},
	}
	for _, r := range rates {
		if r.raw == nil {
			continue
		}
		v, err := decimal.NewFromString(*r.raw)
		if err != nil {
			vs = append(vs, fiscal.Violation{Field: r.field, Message: r.field + " must be a number"})
			continue
		}
		*r.dst = decimal.NewNullDecimal(v)
	}

	if e.Priority != nil {
		p, err := decimal.NewFromString(*e.Priority)
		if err != nil {
			vs = append(vs, fiscal.Violation{Field: "priority", Message: "priority must be a number"})
		} else {
			d.Priority = &p
		}
	}
	return d, vs
}

func prefixViolations(i int, vs []fiscal.Violation) []fiscal.Violation {
	out := make([]fiscal.Violation, 0, len(vs))
	for _, v := range vs {
		out = append(out, fiscal.Violation{Field: fmt.Sprintf("rules[%d].%s", i, v.Field), Message: v.Message})
	}
	return out
}
