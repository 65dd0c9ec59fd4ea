// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// DataCleaner applies the numeric and categorical cleaning passes to a table
type DataCleaner struct {
	logger *zap.Logger
	cctx   model.CleaningContext
}

// Plan is the full set of cleaning steps for one run
type Plan struct {
	DropIncomplete bool // Drop rows with any missing value before the column passes
	Numeric        []NumericRule
	Categorical    []CategoricalRule
}

// DefaultPlan returns the plan for the vehicle sales dataset
func DefaultPlan() Plan {
	return Plan{
		DropIncomplete: true,
		Numeric:        DefaultNumericRules(),
		Categorical:    DefaultCategoricalRules(),
	}
}

// Validate checks every rule of the plan
func (p Plan) Validate() error {
	for _, r := range p.Numeric {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	for _, r := range p.Categorical {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Report collects everything a Clean call produced
type Report struct {
	IncompleteDropped int
	Numeric           []NumericResult
	Categorical       []CategoricalResult
	Operations        []model.CleaningOperation
}

// InvalidValues returns the invalid numeric entries keyed by column
func (r *Report) InvalidValues() map[string][]model.InvalidValue {
	out := make(map[string][]model.InvalidValue, len(r.Numeric))
	for _, n := range r.Numeric {
		if len(n.Invalid) > 0 {
			out[n.Column] = n.Invalid
		}
	}
	return out
}

// CleaningLog returns the action log keyed by column
func (r *Report) CleaningLog() map[string]model.ActionLog {
	out := make(map[string]model.ActionLog, len(r.Categorical))
	for _, c := range r.Categorical {
		if !c.Skipped {
			out[c.Column] = c.Log
		}
	}
	return out
}

// NewDataCleaner creates a new DataCleaner instance
func NewDataCleaner(logger *zap.Logger, cctx model.CleaningContext) (*DataCleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cctx.RunID == "" {
		return nil, errors.New("cleaning context needs a run id")
	}

	return &DataCleaner{
		logger: logger,
		cctx:   cctx,
	}, nil
}

// Clean runs the plan against the table in place
func (c *DataCleaner) Clean(table *model.Table, plan Plan) (*Report, error) {
	if table == nil {
		return nil, errors.New("table cannot be nil")
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cleaning plan: %w", err)
	}

	report := &Report{}

	if plan.DropIncomplete {
		dropped, ops := c.DropIncomplete(table)
		report.IncompleteDropped = dropped
		report.Operations = append(report.Operations, ops...)
	}

	report.Numeric = c.ConvertColumnsToInt(table, plan.Numeric)
	for _, n := range report.Numeric {
		if n.Err != nil {
			return nil, fmt.Errorf("failed to convert column %s: %w", n.Column, n.Err)
		}
		report.Operations = append(report.Operations, n.Operations...)
	}

	report.Categorical = c.CleanCategoricalColumns(table, plan.Categorical)
	for _, cr := range report.Categorical {
		report.Operations = append(report.Operations, cr.Operations...)
	}

	c.logger.Info("Cleaned table",
		zap.Int("rows", table.Len()),
		zap.Int("incompleteDropped", report.IncompleteDropped),
		zap.Int("operations", len(report.Operations)))

	return report, nil
}

// DropIncomplete removes rows with a missing value in the named columns (all
// columns when none are named)
func (c *DataCleaner) DropIncomplete(table *model.Table, columns ...string) (int, []model.CleaningOperation) {
	check := columns
	if len(check) == 0 {
		check = table.Columns()
	}

	var operations []model.CleaningOperation
	dropped := table.Filter(func(i int) bool {
		for _, col := range check {
			if converter.IsMissing(table.Value(i, col)) {
				operations = append(operations, c.cctx.NewOperation(
					col, table.RowIndex(i), nil, "dropped",
					model.OperationRowDrop, model.ReasonIncompleteRow,
				))
				return false
			}
		}
		return true
	})

	rows, cols := table.Shape()
	c.logger.Info("Dropped incomplete rows",
		zap.Int("dropped", dropped),
		zap.Int("rows", rows),
		zap.Int("columns", cols))

	return dropped, operations
}

// ValidateTable checks the cleaned table against the plan without modifying it.
// Returns one error per violating cell.
func (c *DataCleaner) ValidateTable(table *model.Table, plan Plan) []error {
	var violations []error

	for _, rule := range plan.Numeric {
		if !table.HasColumn(rule.Column) {
			continue
		}
		for i := 0; i < table.Len(); i++ {
			raw := table.Value(i, rule.Column)
			v, ok := raw.(int64)
			if !ok {
				violations = append(violations, fmt.Errorf("row %d, column %s: expected int64, got %T",
					table.RowIndex(i), rule.Column, raw))
				continue
			}
			if v != rule.Sentinel && rule.Range != nil && !rule.Range.Contains(v) {
				violations = append(violations, fmt.Errorf("row %d, column %s: %d outside [%d, %d]",
					table.RowIndex(i), rule.Column, v, rule.Range.Min, rule.Range.Max))
			}
		}
	}

	for _, rule := range plan.Categorical {
		if !table.HasColumn(rule.Column) {
			continue
		}
		for i := 0; i < table.Len(); i++ {
			if table.Value(i, rule.Column) == nil {
				violations = append(violations, fmt.Errorf("row %d, column %s: missing value",
					table.RowIndex(i), rule.Column))
			}
		}
	}

	return violations
}
