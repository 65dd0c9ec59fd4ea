package converter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

func Test_ToInt(t *testing.T) {
	valid := []struct {
		in   interface{}
		want int64
	}{
		{"2015", 2015},
		{" 42 ", 42},
		{"2015.0", 2015},
		{"-3.9", -3},
		{"1e3", 1000},
		{int32(7), 7},
		{uint8(9), 9},
		{float64(12.7), 12},
		{[]byte("15"), 15},
	}
	for _, tc := range valid {
		got, err := ToInt(tc.in)
		require.NoError(t, err, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}

	invalid := []interface{}{nil, "", "invalid", "NaN", "inf", math.NaN(), math.Inf(1), "1e30", uint64(math.MaxUint64), struct{}{}}
	for _, in := range invalid {
		_, err := ToInt(in)
		assert.Error(t, err, "%v", in)
	}
}

func Test_IsMissing(t *testing.T) {
	t.Run("Should recognise missing markers", func(t *testing.T) {
		for _, v := range []interface{}{nil, "", "  ", "NaN", "nan", "NA", "N/A", "null", "None", "<NA>", math.NaN()} {
			assert.True(t, IsMissing(v), "%v", v)
		}
	})

	t.Run("Should keep real values", func(t *testing.T) {
		for _, v := range []interface{}{"0", "sedan", "na sedan", 0, int64(-1), false} {
			assert.False(t, IsMissing(v), "%v", v)
		}
	})

	t.Run("Should parse cells", func(t *testing.T) {
		assert.Nil(t, ParseCell("NaN"))
		assert.Equal(t, " Sedan ", ParseCell(" Sedan "))
	})
}

func Test_Text(t *testing.T) {
	t.Run("Should normalize to the lookup form", func(t *testing.T) {
		assert.Equal(t, "chevy", NormalizeText("  CHEVY\t"))
		assert.Equal(t, "crew cab", NormalizeText("Ｃrew Cab"))
	})

	t.Run("Should apply case policies", func(t *testing.T) {
		assert.Equal(t, "Crew Cab", ApplyCase("crew cab", CaseTitle))
		assert.Equal(t, "Mercedes-Benz", ApplyCase("mercedes-benz", CaseTitle))
		assert.Equal(t, "Crew cab", ApplyCase("crew cab", CaseCapitalize))
		assert.Equal(t, "crew cab", ApplyCase("crew cab", CaseKeep))
		assert.Equal(t, "", ApplyCase("", CaseCapitalize))
	})

	t.Run("Should parse case policy names", func(t *testing.T) {
		p, ok := ParseCasePolicy(" Title ")
		assert.True(t, ok)
		assert.Equal(t, CaseTitle, p)
		p, ok = ParseCasePolicy("upper")
		assert.False(t, ok)
		assert.Equal(t, CaseKeep, p)
	})
}

func Test_TypeConverter(t *testing.T) {
	c := NewTypeConverter(zap.NewNop())

	t.Run("Should map column types", func(t *testing.T) {
		assert.Equal(t, "INTEGER", c.MapColumnTypeToPostgres(model.ColumnTypeInt64))
		assert.Equal(t, "TEXT", c.MapColumnTypeToPostgres(model.ColumnTypeCategory))
		assert.Equal(t, "TEXT", c.MapColumnTypeToPostgres(model.ColumnType("blob")))
	})

	t.Run("Should generate column definitions", func(t *testing.T) {
		md := &model.TableMetadata{Columns: []model.Column{
			{Name: "year", Type: model.ColumnTypeInt64},
			{Name: "Sale Date", Type: model.ColumnTypeObject, Nullable: true},
		}}
		defs := c.GenerateColumnDefinitions(md)
		assert.Equal(t, []string{`"year" INTEGER NOT NULL`, `"sale date" TEXT NULL`}, defs)
		assert.Equal(t, "INTEGER", md.Columns[0].PgType)
	})

	t.Run("Should convert values for insert", func(t *testing.T) {
		v, err := c.ConvertValueForPostgres(int64(2015), model.ColumnTypeInt64, "year")
		require.NoError(t, err)
		assert.Equal(t, int64(2015), v)

		_, err = c.ConvertValueForPostgres("abc", model.ColumnTypeInt64, "year")
		require.Error(t, err)

		v, err = c.ConvertValueForPostgres("", model.ColumnTypeObject, "note")
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = c.ConvertValueForPostgres(nil, model.ColumnTypeCategory, "body")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Should quote dotted identifiers per part", func(t *testing.T) {
		assert.Equal(t, `"public"."vehicle_sales_clean"`, QuoteIdentifier("public.Vehicle_Sales_Clean"))
	})
}
