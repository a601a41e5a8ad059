package scenario

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Intent names double as scenario keys.
const (
	IntentSaudacao           = "SAUDACAO"
	IntentOrcamentoTatuagem  = "ORCAMENTO_REMOVER_TATUAGEM"
	IntentOrcamentoMicro     = "ORCAMENTO_REMOVER_MICRO"
	IntentDorMedo            = "DOR_MEDO"
	IntentInfoProcedimento   = "INFORMACAO_PROCEDIMENTO"
	IntentFallback           = "FALLBACK"
	DefaultScenarioKey       = "DEFAULT"
)

// IntentConfig describes a deterministic intent category.
type IntentConfig struct {
	Name        string
	Description string
	Confidence  float64
	// AllowAutoInMisto lets the robot answer alone while the operator runs
	// mixed mode; sensitive topics keep it false so they reach a human.
	AllowAutoInMisto bool
}

var intentConfigs = map[string]IntentConfig{
	IntentSaudacao: {
		Name:             IntentSaudacao,
		Description:      "Saudação inicial e apresentação.",
		Confidence:       0.95,
		AllowAutoInMisto: true,
	},
	IntentOrcamentoTatuagem: {
		Name:             IntentOrcamentoTatuagem,
		Description:      "Cliente buscando orçamento para remoção de tatuagem.",
		Confidence:       0.95,
		AllowAutoInMisto: true,
	},
	IntentOrcamentoMicro: {
		Name:             IntentOrcamentoMicro,
		Description:      "Cliente buscando orçamento para remoção de micropigmentação.",
		Confidence:       0.95,
		AllowAutoInMisto: true,
	},
	IntentDorMedo: {
		Name:             IntentDorMedo,
		Description:      "Cliente com medo de dor ou consequências do procedimento.",
		Confidence:       0.85,
		AllowAutoInMisto: false,
	},
	IntentInfoProcedimento: {
		Name:             IntentInfoProcedimento,
		Description:      "Cliente pedindo explicação geral do procedimento.",
		Confidence:       0.85,
		AllowAutoInMisto: false,
	},
	IntentFallback: {
		Name:             IntentFallback,
		Description:      "Texto sem intenção clara.",
		Confidence:       0.4,
		AllowAutoInMisto: false,
	},
}

// IntentConfigFor returns the config for a named intent. Unknown names get
// the fallback config so callers never branch on a missing entry.
func IntentConfigFor(name string) IntentConfig {
	if cfg, ok := intentConfigs[name]; ok {
		return cfg
	}
	return intentConfigs[IntentFallback]
}

// intentRule maps ordered keyword groups to an intent. Declared order
// matters: the first rule with any matching keyword wins.
type intentRule struct {
	intent   string
	keywords []string
}

var intentRules = []intentRule{
	{IntentSaudacao, []string{"oi", "ola", "bom dia", "boa tarde", "boa noite"}},
	{IntentOrcamentoTatuagem, []string{"tatuagem", "tattoo", "tatoo"}},
	{IntentOrcamentoMicro, []string{"micropigmentacao", "microblading", "sobrancelha"}},
	{IntentDorMedo, []string{"doi", "doe", "dor", "medo", "receio", "machuca"}},
	{IntentInfoProcedimento, []string{"como funciona", "quantas sessoes", "resultado", "cicatriz"}},
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lower-cases and strips diacritics so keyword rules match
// "dói" and "doi" alike.
func normalizeText(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	stripped, _, err := transform.String(diacriticStripper, lower)
	if err != nil {
		return lower
	}
	return stripped
}

// ClassifyIntent runs the deterministic keyword classifier. Empty text and
// unmatched text both yield the fallback intent.
func ClassifyIntent(text string) IntentConfig {
	norm := normalizeText(text)
	if norm == "" {
		return intentConfigs[IntentFallback]
	}
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(norm, kw) {
				return intentConfigs[rule.intent]
			}
		}
	}
	return intentConfigs[IntentFallback]
}

// IsGreeting reports whether the text opens with a greeting phrase. Used to
// choose the SAUDACAO scenario when no explicit context key arrives.
func IsGreeting(text string) bool {
	norm := normalizeText(text)
	switch norm {
	case "oi", "ola", "bom dia", "boa tarde", "boa noite":
		return true
	}
	return strings.HasPrefix(norm, "oi ") || strings.HasPrefix(norm, "ola ")
}
