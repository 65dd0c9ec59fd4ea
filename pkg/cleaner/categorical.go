// pkg/cleaner/categorical.go
package cleaner

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// CategoricalResult is the outcome of cleaning one text column
type CategoricalResult struct {
	Column      string
	Log         model.ActionLog
	Operations  []model.CleaningOperation
	Corrected   int // Cells rewritten by the mapping
	Imputed     int // Missing cells set to UnknownLabel
	RowsDropped int // Rows removed for a missing critical value
	Bucketed    int // Cells set to OtherLabel
	Levels      int // Distinct values after cleaning
	Skipped     bool
}

// CleanCategoricalColumns cleans each rule's column in order. Rows dropped for
// one column are gone for the columns after it.
func (c *DataCleaner) CleanCategoricalColumns(table *model.Table, rules []CategoricalRule) []CategoricalResult {
	results := make([]CategoricalResult, 0, len(rules))
	for _, rule := range rules {
		result := c.CleanCategoricalColumn(table, rule)
		c.logger.Debug("Cleaning summary",
			zap.String("column", rule.Column),
			zap.Strings("log", result.Log))
		results = append(results, result)
	}
	return results
}

// CleanCategoricalColumn normalizes a text column: standardize, correct, handle
// missing values, bucket rare values, apply casing, encode as category
func (c *DataCleaner) CleanCategoricalColumn(table *model.Table, rule CategoricalRule) CategoricalResult {
	result := CategoricalResult{Column: rule.Column}
	col := rule.Column

	if !table.HasColumn(col) {
		c.logger.Warn("Column not found, skipping categorical cleaning", zap.String("column", col))
		result.Skipped = true
		return result
	}

	mapping, err := NormalizeMapping(rule.Mapping)
	if err != nil {
		c.logger.Error("Invalid correction mapping", zap.String("column", col), zap.Error(err))
		result.Log.Add(fmt.Sprintf("Error: %v", err))
		return result
	}

	// Raw values by row index, for the operation records
	originals := make(map[int]interface{}, table.Len())

	// 1. Standardize text
	for i := 0; i < table.Len(); i++ {
		v := table.Value(i, col)
		originals[table.RowIndex(i)] = v
		if v == nil {
			continue
		}
		if s := converter.NormalizeText(converter.ToText(v)); s != "" {
			table.Set(i, col, s)
		} else {
			table.Set(i, col, nil)
		}
	}
	result.Log.Add("Standardized text: lowercase and trimmed whitespace")

	// 2. Apply corrections
	if len(mapping) > 0 {
		for i := 0; i < table.Len(); i++ {
			s, ok := table.Value(i, col).(string)
			if !ok {
				continue
			}
			canonical, found := mapping[s]
			if !found || canonical == s {
				continue
			}
			table.Set(i, col, canonical)
			result.Corrected++
			result.Operations = append(result.Operations, c.cctx.NewOperation(
				col, table.RowIndex(i), originals[table.RowIndex(i)], canonical,
				model.OperationMappingCorrection, model.ReasonKnownVariant,
			))
		}
		result.Log.Add(fmt.Sprintf("Applied %s mapping: %s (%d values corrected)",
			col, formatMapping(mapping), result.Corrected))
	}

	// 3. Missing values
	if rule.Critical {
		result.RowsDropped = table.Filter(func(i int) bool {
			if table.Value(i, col) != nil {
				return true
			}
			idx := table.RowIndex(i)
			result.Operations = append(result.Operations, c.cctx.NewOperation(
				col, idx, originals[idx], "dropped",
				model.OperationRowDrop, model.ReasonMissingCritical,
			))
			return false
		})
		if result.RowsDropped > 0 {
			result.Log.Add(fmt.Sprintf("Dropped %d rows with missing %s", result.RowsDropped, col))
		} else {
			result.Log.Add(fmt.Sprintf("No missing %s values", col))
		}
	} else {
		for i := 0; i < table.Len(); i++ {
			if table.Value(i, col) != nil {
				continue
			}
			table.Set(i, col, UnknownLabel)
			result.Imputed++
			idx := table.RowIndex(i)
			result.Operations = append(result.Operations, c.cctx.NewOperation(
				col, idx, originals[idx], UnknownLabel,
				model.OperationImputation, model.ReasonMissingValue,
			))
		}
		if result.Imputed > 0 {
			result.Log.Add(fmt.Sprintf("Imputed %d missing %s values with '%s'", result.Imputed, col, UnknownLabel))
		} else {
			result.Log.Add(fmt.Sprintf("No missing %s values", col))
		}
	}

	// 4. Rare-value bucketing, on the folded form so that values differing
	// only in case share one count
	if rule.RareThreshold > 0 && table.Len() > 0 {
		rare := rareValues(table, col, rule.RareThreshold)
		for i := 0; i < table.Len(); i++ {
			s, _ := table.Value(i, col).(string)
			if _, ok := rare[converter.NormalizeText(s)]; !ok {
				continue
			}
			table.Set(i, col, OtherLabel)
			result.Bucketed++
			idx := table.RowIndex(i)
			result.Operations = append(result.Operations, c.cctx.NewOperation(
				col, idx, originals[idx], OtherLabel,
				model.OperationRareBucketing, model.ReasonBelowThreshold,
			))
		}
		if len(rare) > 0 {
			result.Log.Add(fmt.Sprintf("Grouped %d rare %s values into '%s' (%d rows)",
				len(rare), col, OtherLabel, result.Bucketed))
		} else {
			result.Log.Add(fmt.Sprintf("No %s values at or below %s frequency",
				col, formatPercent(rule.RareThreshold)))
		}
	}

	// 5. Final casing
	if rule.Case == converter.CaseTitle || rule.Case == converter.CaseCapitalize {
		for i := 0; i < table.Len(); i++ {
			if s, ok := table.Value(i, col).(string); ok {
				table.Set(i, col, converter.ApplyCase(s, rule.Case))
			}
		}
		result.Log.Add(fmt.Sprintf("Applied %s case", rule.Case))
	}

	// 6. Categorical encoding
	cat := model.EncodeCategorical(table.Column(col))
	if err := table.SetCategorical(col, cat); err != nil {
		c.logger.Error("Failed to encode column", zap.String("column", col), zap.Error(err))
		result.Log.Add(fmt.Sprintf("Error: %v", err))
		return result
	}
	result.Levels = len(cat.Levels)
	result.Log.Add(fmt.Sprintf("Converted %s to category type (%d levels)", col, result.Levels))

	return result
}

// rareValues returns the folded values whose share of rows is at or below
// threshold. The Other bucket never counts as rare.
func rareValues(table *model.Table, col string, threshold float64) map[string]struct{} {
	counts := make(map[string]int)
	for value, n := range table.ValueCounts(col) {
		counts[converter.NormalizeText(value)] += n
	}

	total := float64(table.Len())
	other := converter.NormalizeText(OtherLabel)
	rare := make(map[string]struct{})
	for value, n := range counts {
		if value == other {
			continue
		}
		if float64(n)/total <= threshold {
			rare[value] = struct{}{}
		}
	}
	return rare
}

// formatMapping renders a mapping as {key: value, ...} in key order
func formatMapping(mapping map[string]string) string {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, mapping[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatPercent(f float64) string {
	return strconv.FormatFloat(f*100, 'g', -1, 64) + "%"
}
