// pkg/model/table.go
package model

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ColumnType describes how the values of a column are held
type ColumnType string

const (
	ColumnTypeObject   ColumnType = "object"   // Raw text as loaded
	ColumnTypeInt64    ColumnType = "int64"    // Coerced integers
	ColumnTypeCategory ColumnType = "category" // Dictionary encoded text
)

// naText is how a missing cell is spelled to gota
const naText = "NaN"

// Table is the vehicle record collection mutated by the cleaning passes.
// Cells live in a gota DataFrame: text columns as String series, coerced
// columns as Int series, missing cells as NaN elements. Rows keep the
// position they had in the loaded input.
type Table struct {
	frame      dataframe.DataFrame
	index      []int
	pos        map[string]int
	types      map[string]ColumnType
	categories map[string]*Categorical
}

// NewTable builds a table from positional records matching columns. Short
// records are padded with missing cells; nil and NaN values are missing.
// Blank or duplicate column names are renamed by gota (X0, name_1).
func NewTable(columns []string, records [][]interface{}) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table needs at least one column")
	}

	var frame dataframe.DataFrame
	if len(records) == 0 {
		cols := make([]series.Series, len(columns))
		for i, name := range columns {
			cols[i] = series.New([]string{}, series.String, name)
		}
		frame = dataframe.New(cols...)
	} else {
		raw := make([][]string, 0, len(records)+1)
		raw = append(raw, append([]string(nil), columns...))
		for n, rec := range records {
			if len(rec) > len(columns) {
				return nil, fmt.Errorf("record %d has %d values, table has %d columns", n, len(rec), len(columns))
			}
			cells := make([]string, len(columns))
			for i := range cells {
				cells[i] = naText
				if i < len(rec) {
					cells[i] = cellText(rec[i])
				}
			}
			raw = append(raw, cells)
		}
		frame = dataframe.LoadRecords(raw,
			dataframe.HasHeader(true),
			dataframe.DetectTypes(false),
			dataframe.DefaultType(series.String),
		)
	}
	if frame.Err != nil {
		return nil, fmt.Errorf("failed to build table: %w", frame.Err)
	}

	index := make([]int, frame.Nrow())
	for i := range index {
		index[i] = i
	}

	t := &Table{
		frame:      frame,
		index:      index,
		types:      make(map[string]ColumnType, len(columns)),
		categories: make(map[string]*Categorical),
	}
	t.reindex()
	for _, name := range t.Columns() {
		t.types[name] = ColumnTypeObject
	}
	return t, nil
}

// Frame returns the underlying DataFrame
func (t *Table) Frame() dataframe.DataFrame {
	return t.frame
}

// Columns returns the column names in order
func (t *Table) Columns() []string {
	return t.frame.Names()
}

// Shape returns the number of rows and columns
func (t *Table) Shape() (int, int) {
	return t.frame.Dims()
}

// Len returns the number of rows
func (t *Table) Len() int {
	return t.frame.Nrow()
}

// HasColumn reports whether a column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.pos[name]
	return ok
}

// MissingColumns returns the required columns the table lacks, in required order
func (t *Table) MissingColumns(required []string) []string {
	var missing []string
	for _, col := range required {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// RowIndex returns the input position of row i
func (t *Table) RowIndex(i int) int {
	return t.index[i]
}

// Value returns the cell at row i: nil when missing, int64 for int64
// columns, string otherwise
func (t *Table) Value(i int, col string) interface{} {
	c, ok := t.pos[col]
	if !ok {
		return nil
	}
	e := t.frame.Elem(i, c)
	if e.IsNA() {
		return nil
	}
	if e.Type() == series.Int {
		n, err := e.Int()
		if err != nil {
			return nil
		}
		return int64(n)
	}
	return e.String()
}

// Set replaces the cell at row i; nil marks it missing
func (t *Table) Set(i int, col string, v interface{}) {
	c, ok := t.pos[col]
	if !ok {
		return
	}
	e := t.frame.Elem(i, c)
	if e.Type() == series.Int {
		if n, ok := v.(int64); ok {
			e.Set(int(n))
			return
		}
		e.Set(v)
		return
	}
	if v == nil {
		e.Set(naText)
		return
	}
	e.Set(cellText(v))
}

// Column returns the values of a column in row order, as Value returns them
func (t *Table) Column(col string) []interface{} {
	out := make([]interface{}, t.Len())
	for i := range out {
		out[i] = t.Value(i, col)
	}
	return out
}

// ValueCounts returns the number of rows per present value of a column
func (t *Table) ValueCounts(col string) map[string]int {
	counts := make(map[string]int)
	if !t.HasColumn(col) {
		return counts
	}
	s := t.frame.Col(col)
	na := s.IsNaN()
	for i, v := range s.Records() {
		if !na[i] {
			counts[v]++
		}
	}
	return counts
}

// SetIntColumn replaces a column with integers; nil entries are missing
func (t *Table) SetIntColumn(col string, values []interface{}) error {
	if !t.HasColumn(col) {
		return fmt.Errorf("unknown column %q", col)
	}
	if len(values) != t.Len() {
		return fmt.Errorf("column %q has %d values, table has %d rows", col, len(values), t.Len())
	}

	ints := make([]interface{}, len(values))
	for i, v := range values {
		switch n := v.(type) {
		case int64:
			ints[i] = int(n)
		case int:
			ints[i] = n
		default:
			ints[i] = nil
		}
	}

	frame := t.frame.Mutate(series.New(ints, series.Int, col))
	if frame.Err != nil {
		return fmt.Errorf("failed to replace column %q: %w", col, frame.Err)
	}
	t.frame = frame
	t.reindex()
	t.SetColumnType(col, ColumnTypeInt64)
	return nil
}

// Filter keeps only the rows for which keep returns true and returns the
// number removed
func (t *Table) Filter(keep func(i int) bool) int {
	kept := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if keep(i) {
			kept = append(kept, i)
		}
	}
	removed := t.Len() - len(kept)
	if removed == 0 {
		return 0
	}

	t.subset(kept)

	// Row positions changed, so any encoding is stale
	for col := range t.categories {
		t.categories[col] = EncodeCategorical(t.Column(col))
	}
	return removed
}

// Head returns a table of up to n leading rows; n < 0 means all rows
func (t *Table) Head(n int) *Table {
	if n < 0 || n > t.Len() {
		n = t.Len()
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	head := &Table{
		frame:      t.frame,
		index:      t.index,
		pos:        t.pos,
		types:      t.types,
		categories: make(map[string]*Categorical),
	}
	head.subset(rows)
	return head
}

// ColumnType returns the type of a column (object for unknown columns)
func (t *Table) ColumnType(name string) ColumnType {
	if ct, ok := t.types[name]; ok {
		return ct
	}
	return ColumnTypeObject
}

// SetColumnType records the type of a column
func (t *Table) SetColumnType(name string, ct ColumnType) {
	if !t.HasColumn(name) {
		return
	}
	t.types[name] = ct
	if ct != ColumnTypeCategory {
		delete(t.categories, name)
	}
}

// SetCategorical stores the encoding of a column and rewrites its cells to
// the shared level strings
func (t *Table) SetCategorical(name string, cat *Categorical) error {
	if !t.HasColumn(name) {
		return fmt.Errorf("unknown column %q", name)
	}
	if cat.Len() != t.Len() {
		return fmt.Errorf("categorical for %q has %d codes, table has %d rows", name, cat.Len(), t.Len())
	}

	for i := 0; i < t.Len(); i++ {
		t.Set(i, name, cat.Value(i))
	}
	t.types[name] = ColumnTypeCategory
	t.categories[name] = cat
	return nil
}

// Categorical returns the encoding of a category column, nil otherwise
func (t *Table) Categorical(name string) *Categorical {
	return t.categories[name]
}

// subset keeps the given row positions, in order
func (t *Table) subset(rows []int) {
	index := make([]int, len(rows))
	for i, r := range rows {
		index[i] = t.index[r]
	}

	if len(rows) == 0 {
		cols := make([]series.Series, 0, t.frame.Ncol())
		for _, name := range t.Columns() {
			cols = append(cols, series.New([]string{}, t.frame.Col(name).Type(), name))
		}
		t.frame = dataframe.New(cols...)
	} else {
		t.frame = t.frame.Subset(rows)
	}
	t.index = index
	t.reindex()
}

func (t *Table) reindex() {
	names := t.frame.Names()
	t.pos = make(map[string]int, len(names))
	for i, name := range names {
		t.pos[name] = i
	}
}

// cellText spells a value the way the String series stores it
func cellText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return naText
	case string:
		return val
	case []byte:
		return string(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if math.IsNaN(val) {
			return naText
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		if math.IsNaN(float64(val)) {
			return naText
		}
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}
