// pkg/model/cleaning.go
package model

import (
	"strconv"
	"time"
)

// Operation names stored in CleaningOperation.CleaningOperation
const (
	OperationSentinelReplacement = "sentinel_replacement"
	OperationMappingCorrection   = "mapping_correction"
	OperationImputation          = "imputation"
	OperationRareBucketing       = "rare_bucketing"
	OperationRowDrop             = "row_drop"
)

// Reasons stored in CleaningOperation.CleaningReason and InvalidValue.Reason
const (
	ReasonNotNumeric      = "not_numeric"
	ReasonOutOfRange      = "out_of_range"
	ReasonKnownVariant    = "known_variant"
	ReasonMissingValue    = "missing_value"
	ReasonMissingCritical = "missing_critical_value"
	ReasonIncompleteRow   = "incomplete_row"
	ReasonBelowThreshold  = "below_frequency_threshold"
)

// CleaningOperation represents a single data cleaning operation
type CleaningOperation struct {
	RunID             string      `db:"run_id"`             // Identifies the cleaning run
	TableName         string      `db:"table_name"`         // Dataset or table name
	ColumnName        string      `db:"column_name"`        // Column that was cleaned ("*" for whole-row drops)
	OriginalValue     interface{} `db:"original_value"`     // Original value (may be nil)
	NewValue          string      `db:"new_value"`          // New value after cleaning
	RowIdentifier     string      `db:"row_identifier"`     // Row index in the loaded input
	CleaningOperation string      `db:"cleaning_operation"` // Type of cleaning performed
	CleaningReason    string      `db:"cleaning_reason"`    // Reason for cleaning
	CleanedAt         time.Time   `db:"cleaned_at"`         // When the cleaning occurred
}

// CleaningContext carries what every operation of one run is stamped with
type CleaningContext struct {
	RunID     string
	TableName string
}

// NewOperation creates an operation for a row of the current run
func (c CleaningContext) NewOperation(column string, rowIndex int, original interface{}, newValue, operation, reason string) CleaningOperation {
	return CleaningOperation{
		RunID:             c.RunID,
		TableName:         c.TableName,
		ColumnName:        column,
		OriginalValue:     original,
		NewValue:          newValue,
		RowIdentifier:     strconv.Itoa(rowIndex),
		CleaningOperation: operation,
		CleaningReason:    reason,
		CleanedAt:         time.Now().UTC(),
	}
}

// InvalidValue is a numeric cell that was replaced by the sentinel
type InvalidValue struct {
	RowIndex      int
	OriginalValue interface{}
	Reason        string
}

// ActionLog is the ordered, human-readable record of what was done to one column
type ActionLog []string

// Add appends an entry
func (l *ActionLog) Add(entry string) {
	*l = append(*l, entry)
}
