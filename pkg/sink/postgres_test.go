package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

func newTestSink() *PostgresSink {
	return &PostgresSink{
		converter: converter.NewTypeConverter(zap.NewNop()),
		schema:    "public",
		table:     "vehicle_sales_clean",
		logger:    zap.NewNop(),
	}
}

func cleanedTable(t *testing.T) *model.Table {
	t.Helper()
	table, err := model.NewTable([]string{"year", "Make", "color"}, [][]interface{}{
		{"2015", "Kia", nil},
		{"invalid", "Chevrolet", "blue"},
	})
	require.NoError(t, err)
	require.NoError(t, table.SetIntColumn("year", []interface{}{int64(2015), int64(-1)}))
	return table
}

func Test_SplitTableName(t *testing.T) {
	t.Run("Should split and lowercase schema and table", func(t *testing.T) {
		schema, table, err := SplitTableName("Analytics.Vehicle_Sales")
		require.NoError(t, err)
		assert.Equal(t, "analytics", schema)
		assert.Equal(t, "vehicle_sales", table)
	})

	t.Run("Should default to public", func(t *testing.T) {
		schema, table, err := SplitTableName("cars")
		require.NoError(t, err)
		assert.Equal(t, "public", schema)
		assert.Equal(t, "cars", table)
	})

	t.Run("Should reject malformed names", func(t *testing.T) {
		for _, name := range []string{"", "a.b.c", ".cars", "public."} {
			_, _, err := SplitTableName(name)
			assert.Error(t, err, name)
		}
	})
}

func Test_PostgresSink(t *testing.T) {
	t.Run("Should define run and row keys before the dataset columns", func(t *testing.T) {
		s := newTestSink()
		md := model.MetadataFromTable(s.schema, s.table, cleanedTable(t))
		assert.Equal(t, []string{
			`"run_id" TEXT NOT NULL`,
			`"row_index" BIGINT NOT NULL`,
			`"year" INTEGER NOT NULL`,
			`"make" TEXT NOT NULL`,
			`"color" TEXT NULL`,
		}, s.ColumnDefinitions(md))
	})

	t.Run("Should build insert rows stamped with the run", func(t *testing.T) {
		s := newTestSink()
		columns, rows, err := s.InsertRows("run-1", cleanedTable(t))
		require.NoError(t, err)
		assert.Equal(t, []string{"run_id", "row_index", "year", "make", "color"}, columns)
		assert.Equal(t, []interface{}{"run-1", int64(0), int64(2015), "Kia", nil}, rows[0])
		assert.Equal(t, []interface{}{"run-1", int64(1), int64(-1), "Chevrolet", "blue"}, rows[1])
	})

	t.Run("Should fail on a value that cannot be stored", func(t *testing.T) {
		s := newTestSink()
		table, err := model.NewTable([]string{"year"}, [][]interface{}{{"soon"}})
		require.NoError(t, err)
		table.SetColumnType("year", model.ColumnTypeInt64)
		_, _, err = s.InsertRows("run-1", table)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row 0")
	})
}

func Test_OperationRecords(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	records := operationRecords([]model.CleaningOperation{
		{RunID: "r", ColumnName: "year", OriginalValue: int64(3000), NewValue: "-1", CleanedAt: at},
		{RunID: "r", ColumnName: "trim", OriginalValue: nil, NewValue: "Unknown", CleanedAt: at},
	})
	require.Len(t, records, 2)
	require.NotNil(t, records[0].OriginalValue)
	assert.Equal(t, "3000", *records[0].OriginalValue)
	assert.Nil(t, records[1].OriginalValue)
	assert.Equal(t, at, records[1].CleanedAt)
}

func Test_OperationChunkSize(t *testing.T) {
	assert.Equal(t, 65535/9, operationChunkSize(0))
	assert.Equal(t, 500, operationChunkSize(500))
	assert.Equal(t, 65535/9, operationChunkSize(100000))
}
