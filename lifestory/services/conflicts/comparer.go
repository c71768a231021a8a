// lifestory/services/conflicts/comparer.go
package conflicts

import (
	"regexp"
	"strings"

	"lifestory/lifestory/sources/psql/models"
)

// Claim is one factual assertion extracted from draft content: a semantic
// slot ("birth_year", "spouse_name", ...) and the value the draft gives it.
type Claim struct {
	Field string
	Value string
}

// Comparer is the pluggable claim-extraction capability. The detector only
// needs claims per draft; how they are mined from prose is the capability's
// business (a rule set here, an NLP service elsewhere).
type Comparer interface {
	ExtractClaims(draft *models.Draft) []Claim
}

// patternComparer mines a small set of factual slots with regular
// expressions. Deliberately conservative: a missed claim is just an
// undetected conflict, a wrong claim is a false alarm for an admin.
type patternComparer struct {
	patterns map[string]*regexp.Regexp
}

// NewPatternComparer returns the default rule-based comparer.
func NewPatternComparer() Comparer {
	return &patternComparer{
		patterns: map[string]*regexp.Regexp{
			"birth_year":     regexp.MustCompile(`(?i)\bborn\s+(?:in|on)?\s*.*?\b((?:18|19|20)\d{2})\b`),
			"birth_place":    regexp.MustCompile(`(?i)\bborn\s+(?:in|at)\s+([A-Z][A-Za-z .'-]+?)(?:[,.]|\s+(?:in|on)\b)`),
			// (?i) stays on the prefix only; the capture needs real
			// capitalization to count as a name
			"spouse_name":    regexp.MustCompile(`(?i:\bmarried\s+(?:to\s+)?)([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
			"children_count": regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|\d+)\s+(?:children|kids)\b`),
		},
	}
}

func (c *patternComparer) ExtractClaims(draft *models.Draft) []Claim {
	var claims []Claim
	for field, re := range c.patterns {
		match := re.FindStringSubmatch(draft.Content)
		if len(match) > 1 {
			claims = append(claims, Claim{
				Field: field,
				Value: normalizeValue(match[1]),
			})
		}
	}
	return claims
}

var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7",
}

func normalizeValue(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if n, ok := numberWords[v]; ok {
		return n
	}
	return v
}
