package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkoster/beleghub/internal/core/domain"
)

type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListByUser returns the user's rules in evaluation order.
func (r *RuleRepository) ListByUser(ctx context.Context, userID string) ([]domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, condition_type, condition_value, invoice_direction, result_category
FROM rules
WHERE user_id = $1
ORDER BY position
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.Rule
	for rows.Next() {
		var (
			rule                     domain.Rule
			conditionType, direction string
		)
		if err := rows.Scan(&rule.ID, &conditionType, &rule.ConditionValue, &direction, &rule.ResultCategory); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.ConditionType = domain.RuleConditionType(conditionType)
		rule.InvoiceDirection = domain.InvoiceDirection(direction)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}
