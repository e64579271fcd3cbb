package domain

type RuleConditionType string

const (
	ConditionVendor      RuleConditionType = "vendor"
	ConditionTextContent RuleConditionType = "textContent"
)

// Rule is a user- or system-defined classification rule. Rules are
// evaluated in list order; the first match wins.
type Rule struct {
	ID               string            `json:"id" yaml:"id"`
	ConditionType    RuleConditionType `json:"condition_type" yaml:"condition_type"`
	ConditionValue   string            `json:"condition_value" yaml:"condition_value"`
	InvoiceDirection InvoiceDirection  `json:"invoice_direction" yaml:"invoice_direction"`
	ResultCategory   string            `json:"result_category" yaml:"result_category"`
}

// RuleSuggestion proposes a new rule derived from a classified
// document. Emitted at most once per ingested batch.
type RuleSuggestion struct {
	Vendor    string           `json:"vendor"`
	Category  string           `json:"category"`
	Direction InvoiceDirection `json:"direction"`
}
