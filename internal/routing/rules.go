package routing

import "regexp"

// TriggerRule scores one intent: each keyword hit counts 1.0, each pattern
// hit counts 1.5, plus a flat confidence boost. Scores are normalized by the
// rule's maximum possible score so rules with many triggers do not dominate.
type TriggerRule struct {
	Intent          IntentType
	Keywords        []string
	Patterns        []*regexp.Regexp
	ConfidenceBoost float64
	BotSpecific     BotType // zero value means the rule applies to every channel
}

const (
	keywordWeight = 1.0
	patternWeight = 1.5
)

// maxScore is the normalization denominator for this rule.
func (r TriggerRule) maxScore() float64 {
	return keywordWeight*float64(len(r.Keywords)) + patternWeight*float64(len(r.Patterns)) + r.ConfidenceBoost
}

func mustPatterns(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		patterns[i] = regexp.MustCompile("(?i)" + expr)
	}
	return patterns
}

// defaultTriggerRules returns the Spanish storefront rule set. Order matters:
// when two rules score equally, the earlier one wins.
func defaultTriggerRules() []TriggerRule {
	return []TriggerRule{
		{
			// English greetings ride on the pattern so the keyword list stays
			// short enough for a two-keyword greeting to clear the direct
			// threshold.
			Intent:   IntentGreeting,
			Keywords: []string{"hola", "buenos días", "buenas tardes", "buenas noches"},
			Patterns: mustPatterns(`\b(hola|hi|hello|hey)\b`, `buenos\s+(días|tardes|noches)`),
		},
		{
			Intent:   IntentProductInquiry,
			Keywords: []string{"iphone", "mac", "macbook", "ipad", "apple watch", "airpods", "producto", "modelo"},
			Patterns: mustPatterns(`\b(iphone|mac|ipad|watch|airpods)\b`, `qué\s+me\s+recomiendas?`, `necesito\s+un?`),
		},
		{
			// Boosted so a price question about a named product outranks the
			// product-inquiry rule that also matches the product mention.
			Intent:          IntentPriceQuestion,
			Keywords:        []string{"precio", "costo", "vale", "cuesta", "barato", "económico", "presupuesto"},
			Patterns:        mustPatterns(`\bcuánto\s+(cuesta|vale|es)`, `\bprecio\b`, `\bcosto\b`, `presupuesto`),
			ConfidenceBoost: 1.0,
		},
		{
			Intent:   IntentTechnicalSupport,
			Keywords: []string{"problema", "error", "no funciona", "ayuda", "configurar", "instalar", "actualizar"},
			Patterns: mustPatterns(`\bno\s+funciona\b`, `\bproblema\s+con\b`, `\berror\b`, `cómo\s+(configurar|instalar)`),
		},
		{
			Intent:   IntentComparison,
			Keywords: []string{"comparar", "diferencia", "mejor", "vs", "versus", "entre"},
			Patterns: mustPatterns(`\bvs\b`, `\bversus\b`, `diferencia\s+entre`, `mejor\s+que`, `comparar`),
		},
		{
			Intent:   IntentPurchaseIntent,
			Keywords: []string{"comprar", "adquirir", "pedido", "ordenar", "donde compro", "stock", "disponible"},
			Patterns: mustPatterns(`\bcomprar\b`, `\badquirir\b`, `hacer\s+pedido`, `está\s+disponible`, `en\s+stock`),
		},
		{
			Intent:   IntentComplaint,
			Keywords: []string{"queja", "mal servicio", "problema", "insatisfecho", "devolver", "reembolso"},
			Patterns: mustPatterns(`\bqueja\b`, `mal\s+servicio`, `\bdevolver\b`, `\breembolso\b`),
		},
		{
			Intent:   IntentGoodbye,
			Keywords: []string{"adiós", "gracias", "hasta luego", "bye", "chao", "nos vemos"},
			Patterns: mustPatterns(`\b(adiós|bye|chao)\b`, `hasta\s+luego`, `nos\s+vemos`, `gracias\s+por`),
		},
		{
			Intent:   IntentGeneralInfo,
			Keywords: []string{"horarios", "ubicación", "tienda", "contacto", "información", "apple store"},
			Patterns: mustPatterns(`\bhorarios?\b`, `\bubicación\b`, `\btienda\b`, `apple\s+store`),
		},
	}
}

// defaultAgentRouting maps intents to the agent type that handles them.
// Intents missing here fall back to the general assistant.
func defaultAgentRouting() map[IntentType]string {
	return map[IntentType]string{
		IntentProductInquiry:   "sales_assistant",
		IntentPriceQuestion:    "sales_assistant",
		IntentComparison:       "product_expert",
		IntentPurchaseIntent:   "sales_assistant",
		IntentTechnicalSupport: "technical_support",
		IntentComplaint:        "technical_support",
		IntentUnknown:          "general_assistant",
	}
}
