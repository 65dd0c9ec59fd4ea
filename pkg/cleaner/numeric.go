// pkg/cleaner/numeric.go
package cleaner

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// NumericResult is the outcome of coercing one column to integers
type NumericResult struct {
	Column     string
	Invalid    []model.InvalidValue
	Operations []model.CleaningOperation
	Skipped    bool  // Column absent from the table
	Err        error // Set when the converted column could not be stored
}

// ConvertColumnsToInt coerces each rule's column in order
func (c *DataCleaner) ConvertColumnsToInt(table *model.Table, rules []NumericRule) []NumericResult {
	results := make([]NumericResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, c.NormalizeNumericColumn(table, rule))
	}
	return results
}

// NormalizeNumericColumn converts a column to int64. Values that fail conversion
// or fall outside the rule's range become the sentinel and are reported.
func (c *DataCleaner) NormalizeNumericColumn(table *model.Table, rule NumericRule) NumericResult {
	result := NumericResult{Column: rule.Column}

	if !table.HasColumn(rule.Column) {
		c.logger.Warn("Column not found, skipping numeric conversion", zap.String("column", rule.Column))
		result.Skipped = true
		return result
	}

	sentinelText := strconv.FormatInt(rule.Sentinel, 10)
	values := make([]interface{}, table.Len())

	for i := range values {
		original := table.Value(i, rule.Column)

		value, err := converter.ToInt(original)
		reason := ""
		switch {
		case err != nil:
			reason = model.ReasonNotNumeric
		case rule.Range != nil && !rule.Range.Contains(value):
			reason = model.ReasonOutOfRange
		}

		if reason == "" {
			values[i] = value
			continue
		}

		values[i] = rule.Sentinel
		rowIndex := table.RowIndex(i)
		result.Invalid = append(result.Invalid, model.InvalidValue{
			RowIndex:      rowIndex,
			OriginalValue: original,
			Reason:        reason,
		})
		result.Operations = append(result.Operations, c.cctx.NewOperation(
			rule.Column, rowIndex, original, sentinelText,
			model.OperationSentinelReplacement, reason,
		))
	}

	if err := table.SetIntColumn(rule.Column, values); err != nil {
		c.logger.Error("Failed to store integer column", zap.String("column", rule.Column), zap.Error(err))
		result.Err = err
		return result
	}

	if len(result.Invalid) > 0 {
		c.logger.Info("Replaced invalid numeric values",
			zap.String("column", rule.Column),
			zap.Int("count", len(result.Invalid)),
			zap.Int64("sentinel", rule.Sentinel))
	}

	return result
}
