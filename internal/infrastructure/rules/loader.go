// Package rules loads the optional system-wide classification rules
// from a YAML file. System rules are evaluated after the user's own
// rules.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pkoster/beleghub/internal/core/domain"
)

type rulesFile struct {
	Rules []domain.Rule `yaml:"rules"`
}

// Load reads the rules file at path. An empty path means no system
// rules and is not an error.
func Load(path string) ([]domain.Rule, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	for i, rule := range file.Rules {
		if err := validate(rule); err != nil {
			return nil, fmt.Errorf("rules file entry %d: %w", i, err)
		}
	}
	return file.Rules, nil
}

func validate(rule domain.Rule) error {
	switch rule.ConditionType {
	case domain.ConditionVendor, domain.ConditionTextContent:
	default:
		return fmt.Errorf("unknown condition type %q", rule.ConditionType)
	}
	if rule.ConditionValue == "" {
		return fmt.Errorf("condition value is empty")
	}
	if rule.ResultCategory == "" {
		return fmt.Errorf("result category is empty")
	}
	return nil
}
