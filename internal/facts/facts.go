package facts

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind categorizes a canonical fact extracted from a user query.
type Kind string

const (
	KindDate    Kind = "date"    // normalized to ISO-8601 (2006-01-02)
	KindAmount  Kind = "amount"  // normalized to a fixed 2-decimal string
	KindEntity  Kind = "entity"  // institution or party name
	KindArticle Kind = "article" // legal reference, e.g. "art. 13 d.lgs. 472/1997"
	KindSubject Kind = "subject" // tax/legal subject matter, e.g. "iva"
	KindTerm    Kind = "term"    // free-form normalized term
)

// Fact is a single typed (kind, value) pair.
type Fact struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

var whitespace = regexp.MustCompile(`\s+`)

// dateLayouts are the input formats accepted for date facts, tried in order.
// Day-first layouts come before month-first since queries are Italian-domain.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"2006",
}

// Normalize canonicalizes a set of facts: values are trimmed, lowercased,
// whitespace-collapsed and kind-specific forms applied (ISO dates, 2-decimal
// amounts). Empty values are dropped, duplicates removed, and the result is
// sorted by (kind, value) so insertion order never matters.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(in []Fact) []Fact {
	seen := make(map[Fact]struct{}, len(in))
	out := make([]Fact, 0, len(in))
	for _, f := range in {
		v := normalizeValue(f.Kind, f.Value)
		if v == "" {
			continue
		}
		nf := Fact{Kind: f.Kind, Value: v}
		if _, dup := seen[nf]; dup {
			continue
		}
		seen[nf] = struct{}{}
		out = append(out, nf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func normalizeValue(kind Kind, raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = whitespace.ReplaceAllString(v, " ")
	if v == "" {
		return ""
	}

	switch kind {
	case KindDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				if layout == "2006" {
					return t.Format("2006")
				}
				return t.Format("2006-01-02")
			}
		}
		// Unparseable dates keep their cleaned text form rather than being lost.
		return v
	case KindAmount:
		return normalizeAmount(v)
	default:
		return v
	}
}

// normalizeAmount renders a monetary value as a plain 2-decimal number.
// Accepts "1.234,56", "1,234.56", "1234.56", "€ 1234", "1234 eur".
func normalizeAmount(v string) string {
	s := strings.NewReplacer("€", "", "eur", "", "euro", "", " ", "").Replace(v)
	if s == "" {
		return ""
	}

	// Decide which of '.' and ',' is the decimal separator: the one that
	// appears last. The other is a thousands separator and is removed.
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
		s = strings.ReplaceAll(s, ",", "")
	case lastDot > lastComma:
		s = strings.ReplaceAll(s, ",", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return v
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
