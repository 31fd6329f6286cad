// Package classify assigns a query to a professional domain and an action
// shape. The signal steers provider routing (quality tier and budget per
// domain) and prompt selection; it never blocks a request.
package classify

import (
	"context"
	"regexp"
)

// Domain is the professional area of a query.
type Domain string

const (
	DomainTax        Domain = "tax"
	DomainLegal      Domain = "legal"
	DomainLabor      Domain = "labor"
	DomainAccounting Domain = "accounting"
	DomainGeneric    Domain = "generic"
)

// Action is the shape of work the query asks for.
type Action string

const (
	ActionQuestion    Action = "question"
	ActionCalculation Action = "calculation"
	ActionDocument    Action = "document"
)

// Result is a classification with its confidence in [0,1].
type Result struct {
	Domain     Domain  `json:"domain"`
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// Classifier decides domain and action for a query.
type Classifier interface {
	Classify(ctx context.Context, query string) Result
}

type domainRule struct {
	domain Domain
	re     *regexp.Regexp
}

var domainRules = []domainRule{
	{DomainTax, regexp.MustCompile(`(?i)\b(iva|irpef|ires|irap|imu|tari|f24|730|redditi|aliquot\w+|detrazion\w+|deduzion\w+|ravvedimento|forfettario|agenzia delle entrate)\b`)},
	{DomainLabor, regexp.MustCompile(`(?i)\b(inps|inail|tfr|busta paga|contratto di lavoro|licenziament\w+|ccnl|contribut\w+ previdenzial\w+|naspi)\b`)},
	{DomainLegal, regexp.MustCompile(`(?i)\b(cassazione|sentenz\w+|ricorso|contenzioso|codice civile|codice penale|contratt\w+|clausol\w+|diffida)\b`)},
	{DomainAccounting, regexp.MustCompile(`(?i)\b(bilancio|partita doppia|ammortament\w+|stato patrimoniale|conto economico|fattur\w+|registrazion\w+ contabil\w+)\b`)},
}

var (
	calcRe = regexp.MustCompile(`(?i)(calcol\w+|quanto (pago|devo|costa)|importo|[\d\s\.\,]+[%€])`)
	docRe  = regexp.MustCompile(`(?i)(bozza|redigi|scrivi|prepara|modello di|fac.?simile)`)
)

// RuleBased is the default pattern-matching classifier.
type RuleBased struct{}

// NewRuleBased creates the rule-based classifier.
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

// Classify matches the query against domain and action patterns. The first
// matching domain rule wins; multiple domain matches lower confidence since
// the query straddles areas.
func (c *RuleBased) Classify(_ context.Context, query string) Result {
	res := Result{Domain: DomainGeneric, Action: ActionQuestion, Confidence: 0.5}

	var matched int
	for _, r := range domainRules {
		if r.re.MatchString(query) {
			if matched == 0 {
				res.Domain = r.domain
			}
			matched++
		}
	}
	switch matched {
	case 0:
		res.Confidence = 0.5
	case 1:
		res.Confidence = 0.9
	default:
		res.Confidence = 0.7
	}

	switch {
	case docRe.MatchString(query):
		res.Action = ActionDocument
	case calcRe.MatchString(query):
		res.Action = ActionCalculation
	}

	return res
}
