// Package classify applies ordered keyword rules to an analysis result
// to assign invoice direction and tax category. User rules take
// precedence over the analyzer's own suggestion: the first rule whose
// keyword list matches wins and evaluation stops.
package classify

import (
	"strings"

	"github.com/pkoster/beleghub/internal/core/domain"
)

// Outcome is the resolved classification for one document.
type Outcome struct {
	Direction domain.InvoiceDirection
	Category  string
	RuleID    string
	Matched   bool
}

// Apply evaluates rules in list order against the analysis result.
// A rule matches when its target field (vendor or raw text) contains
// any of its comma-separated keywords, case-insensitively. Without a
// match the analyzer's suggestion stands, defaulting to incoming /
// uncategorized.
func Apply(result domain.AnalysisResult, rules []domain.Rule) Outcome {
	for _, rule := range rules {
		target := result.RawText
		if rule.ConditionType == domain.ConditionVendor {
			target = result.Vendor
		}
		if matchesAny(target, rule.ConditionValue) {
			return Outcome{
				Direction: rule.InvoiceDirection,
				Category:  rule.ResultCategory,
				RuleID:    rule.ID,
				Matched:   true,
			}
		}
	}

	out := Outcome{
		Direction: result.InvoiceDirection,
		Category:  result.TaxCategory,
	}
	if out.Direction == "" {
		out.Direction = domain.DirectionIncoming
	}
	if out.Category == "" {
		out.Category = domain.CategoryUncategorized
	}
	return out
}

func matchesAny(target, conditionValue string) bool {
	haystack := strings.ToLower(target)
	for _, token := range strings.Split(conditionValue, ",") {
		keyword := strings.ToLower(strings.TrimSpace(token))
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}
