// Package normalize canonicalizes contact names and phone numbers for
// duplicate matching. All functions are pure and total.
package normalize

import (
	"regexp"
	"strings"
)

// Legal-entity suffixes stripped from company names, longest first so
// compound forms win over their parts.
var legalSuffixPattern = regexp.MustCompile(`(?i)\b(gmbh\s*&\s*co\.?\s*kg|gmbh|ohg|mbh|ag|ug|kg)\b`)

var nonAlnumPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Name lower-cases, strips legal-entity suffixes as whole words,
// collapses every non-alphanumeric run to a single space and trims.
func Name(name string) string {
	s := strings.ToLower(name)
	s = legalSuffixPattern.ReplaceAllString(s, " ")
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Phone strips every character except digits and a leading plus sign.
func Phone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
