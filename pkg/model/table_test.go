package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Table(t *testing.T) {
	build := func(t *testing.T) *Table {
		t.Helper()
		table, err := NewTable([]string{"make", "body"}, [][]interface{}{
			{"ford", "sedan"},
			{nil, "suv"},
			{"kia"},
		})
		require.NoError(t, err)
		return table
	}

	t.Run("Should report shape and pad short records", func(t *testing.T) {
		table := build(t)
		rows, cols := table.Shape()
		assert.Equal(t, 3, rows)
		assert.Equal(t, 2, cols)
		assert.Equal(t, []string{"make", "body"}, table.Columns())
		assert.Equal(t, "ford", table.Value(0, "make"))
		assert.Nil(t, table.Value(1, "make"))
		assert.Nil(t, table.Value(2, "body"))
	})

	t.Run("Should store numbers as text and NaN as missing", func(t *testing.T) {
		table, err := NewTable([]string{"year", "odometer"}, [][]interface{}{
			{int64(2015), 16639.5},
			{2014, math.NaN()},
		})
		require.NoError(t, err)
		assert.Equal(t, "2015", table.Value(0, "year"))
		assert.Equal(t, "16639.5", table.Value(0, "odometer"))
		assert.Equal(t, "2014", table.Value(1, "year"))
		assert.Nil(t, table.Value(1, "odometer"))
	})

	t.Run("Should build an empty table from a header", func(t *testing.T) {
		table, err := NewTable([]string{"year", "make"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())
		assert.True(t, table.HasColumn("make"))
	})

	t.Run("Should reject records longer than the header", func(t *testing.T) {
		_, err := NewTable([]string{"a"}, [][]interface{}{{"1", "2"}})
		require.Error(t, err)
	})

	t.Run("Should list missing required columns in order", func(t *testing.T) {
		table := build(t)
		assert.Equal(t, []string{"year", "odometer", "model", "trim", "transmission"}, table.MissingColumns(RequiredColumns()))
	})

	t.Run("Should filter rows and keep original indices", func(t *testing.T) {
		table := build(t)
		removed := table.Filter(func(i int) bool { return table.Value(i, "make") != nil })
		assert.Equal(t, 1, removed)
		require.Equal(t, 2, table.Len())
		assert.Equal(t, []int{0, 2}, []int{table.RowIndex(0), table.RowIndex(1)})
		assert.Equal(t, "kia", table.Value(1, "make"))
	})

	t.Run("Should filter every row away", func(t *testing.T) {
		table := build(t)
		assert.Equal(t, 3, table.Filter(func(int) bool { return false }))
		assert.Equal(t, 0, table.Len())
		assert.Equal(t, []string{"make", "body"}, table.Columns())
	})

	t.Run("Should set and clear cells", func(t *testing.T) {
		table := build(t)
		table.Set(1, "make", "chevrolet")
		table.Set(0, "body", nil)
		assert.Equal(t, "chevrolet", table.Value(1, "make"))
		assert.Nil(t, table.Value(0, "body"))
	})

	t.Run("Should count present values", func(t *testing.T) {
		table := build(t)
		assert.Equal(t, map[string]int{"ford": 1, "kia": 1}, table.ValueCounts("make"))
		assert.Empty(t, table.ValueCounts("color"))
	})

	t.Run("Should replace a column with integers", func(t *testing.T) {
		table, err := NewTable([]string{"year", "make"}, [][]interface{}{{"2015", "kia"}, {"soon", "ford"}})
		require.NoError(t, err)
		require.NoError(t, table.SetIntColumn("year", []interface{}{int64(2015), nil}))
		assert.Equal(t, ColumnTypeInt64, table.ColumnType("year"))
		assert.Equal(t, int64(2015), table.Value(0, "year"))
		assert.Nil(t, table.Value(1, "year"))
		assert.Equal(t, "ford", table.Value(1, "make"))

		table.Set(1, "year", int64(-1))
		assert.Equal(t, int64(-1), table.Value(1, "year"))

		require.Error(t, table.SetIntColumn("year", []interface{}{int64(1)}))
		require.Error(t, table.SetIntColumn("color", []interface{}{nil, nil}))
	})

	t.Run("Should return a bounded head", func(t *testing.T) {
		table := build(t)
		assert.Equal(t, 2, table.Head(2).Len())
		assert.Equal(t, 3, table.Head(10).Len())
		assert.Equal(t, 3, table.Head(-1).Len())
		assert.Equal(t, 0, table.Head(0).Len())
		assert.Equal(t, 3, table.Len())
	})

	t.Run("Should re-encode categoricals after rows are removed", func(t *testing.T) {
		table := build(t)
		cat := EncodeCategorical([]interface{}{"sedan", "suv", "sedan"})
		require.NoError(t, table.SetCategorical("body", cat))
		assert.Equal(t, ColumnTypeCategory, table.ColumnType("body"))

		table.Filter(func(i int) bool { return table.RowIndex(i) != 1 })
		got := table.Categorical("body")
		require.NotNil(t, got)
		assert.Equal(t, []string{"sedan"}, got.Levels)
		assert.Equal(t, []int32{0, 0}, got.Codes)
	})

	t.Run("Should refuse a categorical of the wrong length", func(t *testing.T) {
		table := build(t)
		err := table.SetCategorical("body", EncodeCategorical([]interface{}{"a"}))
		require.Error(t, err)
	})

	t.Run("Should drop the encoding when the type changes", func(t *testing.T) {
		table := build(t)
		require.NoError(t, table.SetCategorical("make", EncodeCategorical([]interface{}{"a", nil, "b"})))
		table.SetColumnType("make", ColumnTypeObject)
		assert.Nil(t, table.Categorical("make"))
	})
}

func Test_EncodeCategorical(t *testing.T) {
	t.Run("Should sort levels and code missing as -1", func(t *testing.T) {
		cat := EncodeCategorical([]interface{}{"suv", nil, "coupe", "suv"})
		assert.Equal(t, []string{"coupe", "suv"}, cat.Levels)
		assert.Equal(t, []int32{1, -1, 0, 1}, cat.Codes)
		assert.Nil(t, cat.Value(1))
		assert.Equal(t, "suv", cat.Value(3))
		assert.Equal(t, map[string]int{"coupe": 1, "suv": 2}, cat.Counts())
	})
}

func Test_CleaningContext(t *testing.T) {
	t.Run("Should stamp operations with the run and row", func(t *testing.T) {
		cctx := CleaningContext{RunID: "r", TableName: "cars"}
		op := cctx.NewOperation("year", 42, "abc", "-1", OperationSentinelReplacement, ReasonNotNumeric)
		assert.Equal(t, "r", op.RunID)
		assert.Equal(t, "cars", op.TableName)
		assert.Equal(t, "42", op.RowIdentifier)
		assert.False(t, op.CleanedAt.IsZero())
	})
}

func Test_TableMetadata(t *testing.T) {
	t.Run("Should describe a table with required columns not nullable", func(t *testing.T) {
		table, err := NewTable([]string{"year", "Color"}, nil)
		require.NoError(t, err)
		table.SetColumnType("year", ColumnTypeInt64)
		md := MetadataFromTable("public", "cars", table)

		require.Len(t, md.Columns, 2)
		assert.Equal(t, "year", md.Columns[0].Name)
		assert.Equal(t, ColumnTypeInt64, md.Columns[0].Type)
		assert.False(t, md.Columns[0].Nullable)
		assert.True(t, md.Columns[1].Nullable)
	})
}
