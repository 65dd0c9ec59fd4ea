// pkg/model/metadata.go
package model

import "strings"

// Required input columns of the vehicle sales dataset
const (
	ColumnYear         = "year"
	ColumnOdometer     = "odometer"
	ColumnMake         = "make"
	ColumnModel        = "model"
	ColumnTrim         = "trim"
	ColumnTransmission = "transmission"
	ColumnBody         = "body"
)

// RequiredColumns lists the columns a dataset must provide, in report order
func RequiredColumns() []string {
	return []string{
		ColumnYear,
		ColumnOdometer,
		ColumnMake,
		ColumnModel,
		ColumnTrim,
		ColumnTransmission,
		ColumnBody,
	}
}

// TableMetadata contains the structure information for a persisted table
type TableMetadata struct {
	Schema  string   // Schema name
	Table   string   // Table name
	Columns []Column // Column definitions
}

// Column represents metadata about a table column
type Column struct {
	Name     string     // Column name
	Type     ColumnType // Type held in memory
	PgType   string     // Mapped PostgreSQL type
	Nullable bool       // Whether column allows NULL values
}

// MetadataFromTable describes a cleaned table for persistence
func MetadataFromTable(schema, table string, t *Table) *TableMetadata {
	md := &TableMetadata{Schema: schema, Table: table}
	for _, name := range t.Columns() {
		md.Columns = append(md.Columns, Column{
			Name:     name,
			Type:     t.ColumnType(name),
			Nullable: !isRequiredColumn(name),
		})
	}
	return md
}

func isRequiredColumn(name string) bool {
	for _, c := range RequiredColumns() {
		if normalizeColumnName(c) == normalizeColumnName(name) {
			return true
		}
	}
	return false
}

func normalizeColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
