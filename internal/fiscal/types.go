// Package fiscal resolves ICMS treatment for a sale from the tenant's fiscal
// rule set: it validates rule drafts on the write path and, on the read path,
// selects the single applicable rule for a UF/regime pair and derives the
// fiscal code and rates for it.
package fiscal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Regime is the company tax regime a rule applies under.
type Regime string

const (
	RegimeNormal  Regime = "NORMAL"
	RegimeSimples Regime = "SIMPLES"
)

// Valid reports whether r is a known regime.
func (r Regime) Valid() bool {
	return r == RegimeNormal || r == RegimeSimples
}

// ParseRegime accepts the regime name in any case.
func ParseRegime(s string) (Regime, error) {
	r := Regime(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("regime must be one of: NORMAL, SIMPLES")
	}
	return r, nil
}

// Mode is the fiscal treatment a rule expresses.
type Mode string

const (
	ModeTributado Mode = "TRIBUTADO"
	ModeICMSST    Mode = "ICMS_ST"
	ModeIsento    Mode = "ISENTO"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeTributado, ModeICMSST, ModeIsento}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeTributado || m == ModeICMSST || m == ModeIsento
}

// ParseMode accepts the mode name in any case.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("mode must be one of: TRIBUTADO, ICMS_ST, ISENTO")
	}
	return m, nil
}

var ufPattern = regexp.MustCompile(`^[A-Za-z]{2}$`)

// NormalizeUF checks the two-letter pattern and returns the upper-cased code.
func NormalizeUF(uf string) (string, error) {
	uf = strings.TrimSpace(uf)
	if !ufPattern.MatchString(uf) {
		return "", fmt.Errorf("uf must be a two-letter state code")
	}
	return strings.ToUpper(uf), nil
}

// TenantScope is the effective tenant used to scope a rule lookup. A nil
// CompanyID restricts the lookup to platform-wide rules; otherwise
// platform-wide rules and the company's own rules are both visible.
type TenantScope struct {
	CompanyID *uuid.UUID
}

// PlatformScope returns the scope that sees only platform-wide rules.
func PlatformScope() TenantScope {
	return TenantScope{}
}

// CompanyScope returns the scope of a single company.
func CompanyScope(id uuid.UUID) TenantScope {
	return TenantScope{CompanyID: &id}
}

// Key is a stable textual form of the scope, used for cache keys and logs.
func (s TenantScope) Key() string {
	if s.CompanyID == nil {
		return "platform"
	}
	return s.CompanyID.String()
}
