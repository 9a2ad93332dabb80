package fiscal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Draft is an unvalidated rule as submitted by the administrative form, the
// API or an import file.
type Draft struct {
	ID          uuid.UUID           `json:"-"`
	CompanyID   *uuid.UUID          `json:"companyId"`
	UF          string              `json:"uf" validate:"required,len=2,alpha"`
	Regime      Regime              `json:"regime" validate:"required,oneof=NORMAL SIMPLES"`
	Mode        Mode                `json:"mode" validate:"required,oneof=TRIBUTADO ICMS_ST ISENTO"`
	CST         string              `json:"cst" validate:"omitempty,min=2,max=3,numeric"`
	CSOSN       string              `json:"csosn" validate:"omitempty,len=3,numeric"`
	ICMSRate    decimal.NullDecimal `json:"icmsRate" validate:"omitempty,gte=0,lte=100"`
	MVARate     decimal.NullDecimal `json:"mvaRate" validate:"omitempty,gte=0"`
	STReduction decimal.NullDecimal `json:"stReduction" validate:"omitempty,gte=0,lte=100"`
	STRate      decimal.NullDecimal `json:"stRate" validate:"omitempty,gte=0,lte=100"`
	Reason      string              `json:"reason" validate:"max=500"`
	Priority    *decimal.Decimal    `json:"priority"`
	Description string              `json:"description" validate:"max=255"`
}

// ValidationResult is the outcome of validating a draft.
type ValidationResult struct {
	Violations []Violation `json:"violations"`
}

// Valid reports whether the draft passed every check.
func (r ValidationResult) Valid() bool {
	return len(r.Violations) == 0
}

// Err returns a *ValidationError, or nil when the draft is valid.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Violations: r.Violations}
}

// Validator checks drafts on the write path. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// NewValidator wires the struct-tag validator for drafts.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Null rates surface as nil so omitempty skips them.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if nd, ok := field.Interface().(decimal.NullDecimal); ok && nd.Valid {
			f, _ := nd.Decimal.Float64()
			return f
		}
		return nil
	}, decimal.NullDecimal{})
	return &Validator{v: v}
}

// Normalize trims text fields and upper-cases the UF and enums so the checks
// see the canonical form.
func Normalize(d Draft) Draft {
	d.UF = strings.ToUpper(strings.TrimSpace(d.UF))
	d.Regime = Regime(strings.ToUpper(strings.TrimSpace(string(d.Regime))))
	d.Mode = Mode(strings.ToUpper(strings.TrimSpace(string(d.Mode))))
	d.CST = strings.TrimSpace(d.CST)
	d.CSOSN = strings.TrimSpace(d.CSOSN)
	d.Reason = strings.TrimSpace(d.Reason)
	d.Description = strings.TrimSpace(d.Description)
	return d
}

// Validate reports every violation of the draft without persisting anything.
func (val *Validator) Validate(d Draft) ValidationResult {
	d = Normalize(d)

	var violations []Violation
	if err := val.v.Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return ValidationResult{Violations: []Violation{{Field: "rule", Message: err.Error()}}}
		}
		for _, fe := range fieldErrs {
			violations = append(violations, Violation{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	}

	if _, err := treatmentOf(d); err != nil {
		var v *violationError
		if errors.As(err, &v) {
			violations = append(violations, v.Violation)
		}
	}

	return ValidationResult{Violations: violations}
}

// Build validates the draft and turns it into a Rule. Omitted priority
// defaults to DefaultPriority; an omitted code stays nil so the default table
// keeps applying if it ever changes.
func (val *Validator) Build(d Draft) (Rule, error) {
	if err := val.Validate(d).Err(); err != nil {
		return Rule{}, err
	}
	d = Normalize(d)

	treatment, err := treatmentOf(d)
	if err != nil {
		return Rule{}, err
	}

	priority := DefaultPriority
	if d.Priority != nil {
		priority = *d.Priority
	}

	code := d.CST
	if d.Regime == RegimeSimples {
		code = d.CSOSN
	}

	return Rule{
		ID:          d.ID,
		CompanyID:   d.CompanyID,
		UF:          d.UF,
		Regime:      d.Regime,
		Code:        NewCode(d.Regime, code),
		Treatment:   treatment,
		Priority:    priority,
		Description: d.Description,
	}, nil
}

type violationError struct {
	Violation
}

func (e *violationError) Error() string { return e.Message }

// treatmentOf runs the per-mode constructor for the draft's mode.
func treatmentOf(d Draft) (Treatment, error) {
	switch d.Mode {
	case ModeTributado:
		return NewTaxed(d.ICMSRate), nil
	case ModeICMSST:
		if !d.MVARate.Valid {
			return nil, &violationError{Violation{Field: "mvaRate", Message: "mvaRate is required for ICMS_ST rules"}}
		}
		return NewSubstitutionTax(d.MVARate.Decimal, d.ICMSRate, d.STReduction, d.STRate), nil
	case ModeIsento:
		t, err := NewExempt(d.Reason)
		if err != nil {
			return nil, &violationError{Violation{Field: "reason", Message: err.Error()}}
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", d.Mode)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "len":
		if fe.Field() == "uf" {
			return "uf must be a two-letter state code"
		}
		return fmt.Sprintf("%s must have %s characters", fe.Field(), fe.Param())
	case "alpha":
		return "uf must be a two-letter state code"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "numeric":
		return fe.Field() + " must contain only digits"
	case "min", "max":
		return fmt.Sprintf("%s has an invalid length", fe.Field())
	case "gte":
		return fe.Field() + " must not be negative"
	case "lte":
		return fe.Field() + " must not exceed 100"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
