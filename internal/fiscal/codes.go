package fiscal

// Code is the fiscal situation code of an outcome. Its concrete type carries
// the regime: CST under NORMAL, CSOSN under SIMPLES.
type Code interface {
	Regime() Regime
	String() string
	isCode()
}

// CST is the situation code used by companies under the NORMAL regime.
type CST string

func (CST) Regime() Regime { return RegimeNormal }
func (c CST) String() string { return string(c) }
func (CST) isCode() {}

// CSOSN is the situation code used by companies under the SIMPLES regime.
type CSOSN string

func (CSOSN) Regime() Regime { return RegimeSimples }
func (c CSOSN) String() string { return string(c) }
func (CSOSN) isCode() {}

// NewCode wraps value in the code type of regime. An empty value yields nil.
func NewCode(regime Regime, value string) Code {
	if value == "" {
		return nil
	}
	if regime == RegimeSimples {
		return CSOSN(value)
	}
	return CST(value)
}

// DefaultCode returns the conventional code for a regime/mode pair. It is
// used to pre-fill the rule form and as the fallback when a rule carries no
// explicit code for its regime.
func DefaultCode(regime Regime, mode Mode) Code {
	switch regime {
	case RegimeSimples:
		switch mode {
		case ModeICMSST:
			return CSOSN("500")
		case ModeIsento:
			return CSOSN("400")
		default:
			return CSOSN("102")
		}
	default:
		switch mode {
		case ModeICMSST:
			return CST("60")
		case ModeIsento:
			return CST("40")
		default:
			return CST("00")
		}
	}
}

// DefaultCodeEntry is one cell of the default code table.
type DefaultCodeEntry struct {
	Regime Regime `json:"regime"`
	Mode   Mode   `json:"mode"`
	Field  string `json:"field"`
	Code   string `json:"code"`
}

// DefaultCodeTable lists every regime/mode pair with its default code.
func DefaultCodeTable() []DefaultCodeEntry {
	entries := make([]DefaultCodeEntry, 0, 6)
	for _, regime := range []Regime{RegimeNormal, RegimeSimples} {
		for _, mode := range Modes {
			entries = append(entries, DefaultCodeEntry{
				Regime: regime,
				Mode:   mode,
				Field:  CodeField(regime),
				Code:   DefaultCode(regime, mode).String(),
			})
		}
	}
	return entries
}

// CodeField names the rule field that is authoritative under regime.
func CodeField(regime Regime) string {
	if regime == RegimeSimples {
		return "csosn"
	}
	return "cst"
}
