package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkoster/beleghub/internal/core/domain"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	return path
}

func TestLoadParsesOrderedRules(t *testing.T) {
	path := writeRules(t, `
rules:
  - id: sys-1
    condition_type: vendor
    condition_value: "telekom,vodafone"
    invoice_direction: incoming
    result_category: telecom
  - id: sys-2
    condition_type: textContent
    condition_value: hosting
    invoice_direction: incoming
    result_category: hosting
`)

	rules, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].ID != "sys-1" || rules[0].ConditionType != domain.ConditionVendor {
		t.Fatalf("unexpected first rule %+v", rules[0])
	}
	if rules[1].ConditionType != domain.ConditionTextContent || rules[1].ResultCategory != "hosting" {
		t.Fatalf("unexpected second rule %+v", rules[1])
	}
}

func TestLoadEmptyPathMeansNoRules(t *testing.T) {
	rules, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rules != nil {
		t.Fatalf("expected nil rules, got %+v", rules)
	}
}

func TestLoadRejectsUnknownConditionType(t *testing.T) {
	path := writeRules(t, `
rules:
  - id: bad
    condition_type: regex
    condition_value: ".*"
    result_category: misc
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown condition type")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
