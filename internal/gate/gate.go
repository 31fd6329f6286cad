// Package gate decides, per query, whether knowledge retrieval (and with it
// the generation step's tool access) is worth paying for. The bias is toward
// correctness: when no rule fires, retrieval stays on.
package gate

import (
	"log/slog"
	"regexp"
	"strings"
)

// Decision is the gate's verdict for one query.
type Decision struct {
	NeedsRetrieval bool     `json:"needs_retrieval"`
	Reasons        []string `json:"reasons"`
}

type rule struct {
	name string
	re   *regexp.Regexp
}

// needRules fire when the query references anything that may have changed
// since the model was trained: explicit years, regulatory institutions,
// normative citations, or live tax subject matter.
var needRules = []rule{
	{"explicit_year", regexp.MustCompile(`\b(19|20)\d{2}\b`)},
	{"institution", regexp.MustCompile(`(?i)\b(agenzia delle entrate|inps|inail|guardia di finanza|cassazione|corte costituzionale|mef|commissione europea|consiglio ue)\b`)},
	{"normative_reference", regexp.MustCompile(`(?i)\b(art\.?\s*\d+|articolo\s+\d+|d\.?\s*lgs\.?|d\.?\s*l\.?\s*\d|dpr\s*\d|legge\s+n?\.?\s*\d|circolare\s+n?\.?\s*\d+|risoluzione\s+n?\.?\s*\d+|provvedimento)\b`)},
	{"tax_keyword", regexp.MustCompile(`(?i)\b(iva|irpef|ires|irap|imu|tari|bollo|ravvedimento|forfettario|fattura elettronica|dichiarazione dei redditi|730|f24|aliquot\w+|detrazion\w+|deduzion\w+|scadenz\w+)\b`)},
}

// skipRules fire for queries that are self-contained: pure arithmetic or a
// generic definition request with no normative anchor.
var skipRules = []rule{
	{"arithmetic_only", regexp.MustCompile(`^[\d\s\.\,\+\-\*/\(\)%=]+\??$`)},
	{"generic_definition", regexp.MustCompile(`(?i)^\s*(what\s+(is|does|are)|cosa\s+(è|significa|sono)|che\s+cos'?è|definizione\s+di|spiega(mi)?\s)`)},
}

// Evaluate pattern-matches the query against both rule sets. Skip rules only
// win when no need rule fired; any evaluation problem fails open toward
// retrieval.
func Evaluate(query string) Decision {
	q := strings.TrimSpace(query)
	if q == "" {
		return Decision{NeedsRetrieval: true, Reasons: []string{"default_open"}}
	}

	var needs, skips []string
	for _, r := range needRules {
		if r.re.MatchString(q) {
			needs = append(needs, r.name)
		}
	}
	for _, r := range skipRules {
		if r.re.MatchString(q) {
			skips = append(skips, r.name)
		}
	}

	d := Decision{}
	switch {
	case len(needs) > 0:
		d.NeedsRetrieval = true
		d.Reasons = needs
	case len(skips) > 0:
		d.NeedsRetrieval = false
		d.Reasons = skips
	default:
		d.NeedsRetrieval = true
		d.Reasons = []string{"default_open"}
	}

	slog.Debug("retrieval gate decision",
		"needs_retrieval", d.NeedsRetrieval,
		"reasons", d.Reasons,
	)
	return d
}
