package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/cleaner"
	"github.com/David-Botos/vehicle-cleaner/pkg/config"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
	"github.com/David-Botos/vehicle-cleaner/pkg/sink"
	"github.com/David-Botos/vehicle-cleaner/pkg/source"
)

var vehicleColumns = []string{"year", "odometer", "make", "model", "trim", "transmission", "body"}

type fakeLoader struct {
	columns []string
	records [][]interface{}
	err     error
}

func (l *fakeLoader) Describe() string { return "fake.csv" }

func (l *fakeLoader) Load(context.Context) (*model.Table, error) {
	if l.err != nil {
		return nil, l.err
	}
	return model.NewTable(l.columns, l.records)
}

type fakeSink struct {
	runID      string
	rows       int
	operations int
	err        error
}

func (s *fakeSink) Describe() string { return "public.fake" }

func (s *fakeSink) Write(_ context.Context, runID string, table *model.Table, ops []model.CleaningOperation) (*sink.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.runID = runID
	s.rows = table.Len()
	s.operations = len(ops)
	return &sink.Result{Table: s.Describe(), RowsWritten: int64(table.Len()), OperationsLogged: len(ops)}, nil
}

func salesLoader() *fakeLoader {
	return &fakeLoader{
		columns: vehicleColumns,
		records: [][]interface{}{
			{"2015", "16639", "kia", "sorento", "lx", "automatic", "suv"},
			{"3000", "50000", "chevy", "malibu", "ls", "auto", "sedan"},
			{"2014", "100", "ford", "focus", nil, "manual", "sedan"},
		},
	}
}

func fixedRunID() string { return "run-fixed" }

func newTestPipeline(t *testing.T, loader source.Loader, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithRunIDGenerator(fixedRunID)}, opts...)
	p, err := NewPipeline(loader, cleaner.DefaultPlan(), zap.NewNop(), opts...)
	require.NoError(t, err)
	return p
}

func Test_NewPipeline(t *testing.T) {
	t.Run("Should require a loader and a logger", func(t *testing.T) {
		_, err := NewPipeline(nil, cleaner.DefaultPlan(), zap.NewNop())
		require.Error(t, err)
		_, err = NewPipeline(salesLoader(), cleaner.DefaultPlan(), nil)
		require.Error(t, err)
	})
}

func Test_Pipeline_Run(t *testing.T) {
	t.Run("Should load, clean and store the dataset", func(t *testing.T) {
		out := &fakeSink{}
		p := newTestPipeline(t, salesLoader(), WithSink(out), WithDatasetName("sales"))

		res, err := p.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "run-fixed", res.RunID)
		assert.Equal(t, [2]int{2, 7}, res.ShapeAfterDrop)
		require.Equal(t, 2, res.Table.Len())

		assert.Equal(t, 1, res.Table.RowIndex(1))
		assert.Equal(t, int64(-1), res.Table.Value(1, "year"))
		assert.Equal(t, "Chevrolet", res.Table.Value(1, "make"))
		assert.Equal(t, "automatic", res.Table.Value(1, "transmission"))

		m := res.Metrics
		assert.Equal(t, 3, m.RowsRead)
		assert.Equal(t, 1, m.IncompleteDropped)
		assert.Equal(t, 2, m.RowsOut)
		assert.Equal(t, 1, m.InvalidNumeric)
		assert.Equal(t, 2, m.Corrected)
		assert.Equal(t, 0, m.Violations)
		assert.Equal(t, int64(2), m.RowsWritten)
		assert.False(t, m.EndTime.IsZero())

		assert.Equal(t, "run-fixed", out.runID)
		assert.Equal(t, 2, out.rows)
		assert.Equal(t, len(res.Report.Operations), out.operations)
		for _, op := range res.Report.Operations {
			assert.Equal(t, "run-fixed", op.RunID)
			assert.Equal(t, "sales", op.TableName)
		}
		require.NotNil(t, res.Sink)
	})

	t.Run("Should fail when required columns are absent", func(t *testing.T) {
		loader := &fakeLoader{columns: []string{"year", "odometer", "make", "model", "trim"}}
		_, err := newTestPipeline(t, loader).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingColumns)
		assert.Equal(t, StageValidate, StageOf(err))
		assert.Contains(t, err.Error(), "transmission, body")
	})

	t.Run("Should surface load failures", func(t *testing.T) {
		loader := &fakeLoader{err: fmt.Errorf("%w: gone", source.ErrDatasetUnavailable)}
		_, err := newTestPipeline(t, loader).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, source.ErrDatasetUnavailable)
		assert.Equal(t, StageLoad, StageOf(err))
	})

	t.Run("Should surface sink failures", func(t *testing.T) {
		p := newTestPipeline(t, salesLoader(), WithSink(&fakeSink{err: errors.New("connection refused")}))
		_, err := p.Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, StageSink, StageOf(err))
	})

	t.Run("Should not write to the sink after cancellation", func(t *testing.T) {
		out := &fakeSink{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestPipeline(t, salesLoader(), WithSink(out)).Run(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, out.runID)
	})
}

func Test_PlanFromConfig(t *testing.T) {
	t.Run("Should apply configured ranges, sentinel and threshold", func(t *testing.T) {
		cfg := &config.Config{
			DropIncomplete: false,
			Sentinel:       -99,
			YearMin:        1990,
			YearMax:        2020,
			OdometerMin:    1,
			OdometerMax:    500000,
			RareThreshold:  0.05,
		}
		plan := PlanFromConfig(cfg)
		require.NoError(t, plan.Validate())
		assert.False(t, plan.DropIncomplete)

		for _, r := range plan.Numeric {
			assert.Equal(t, int64(-99), r.Sentinel)
		}
		assert.Equal(t, &cleaner.IntRange{Min: 1990, Max: 2020}, plan.Numeric[0].Range)
		assert.Equal(t, &cleaner.IntRange{Min: 1, Max: 500000}, plan.Numeric[1].Range)

		for _, r := range plan.Categorical {
			switch r.Column {
			case model.ColumnTrim, model.ColumnBody:
				assert.InDelta(t, 0.05, r.RareThreshold, 1e-12, r.Column)
			default:
				assert.Zero(t, r.RareThreshold, r.Column)
			}
		}
	})
}

func Test_WriteReport(t *testing.T) {
	t.Run("Should print every section of the run summary", func(t *testing.T) {
		res, err := newTestPipeline(t, salesLoader(), WithSink(&fakeSink{})).Run(context.Background())
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, res, 1))
		out := buf.String()

		assert.Contains(t, out, "Dataset loaded successfully from fake.csv.")
		assert.Contains(t, out, "Shape after dropping missing values: (2, 7)")
		assert.Contains(t, out, "Cleaned table:")
		assert.Contains(t, out, "Sorento")
		assert.NotContains(t, out, "Malibu")
		assert.Contains(t, out, "Data types:")
		assert.Contains(t, out, `year: 1 invalid [row 1: "3000" (out_of_range)]`)
		assert.Contains(t, out, "odometer: none")
		assert.Contains(t, out, "Categorical cleaning log:")
		assert.Contains(t, out, "  - Standardized text: lowercase and trimmed whitespace")
		assert.Contains(t, out, "Wrote 2 rows to public.fake")
		assert.Contains(t, out, "Run run-fixed")
		assert.Contains(t, out, "Run Metrics")
	})

	t.Run("Should cap long invalid lists", func(t *testing.T) {
		invalid := make([]model.InvalidValue, maxInvalidShown+3)
		for i := range invalid {
			invalid[i] = model.InvalidValue{RowIndex: i, OriginalValue: "x", Reason: model.ReasonNotNumeric}
		}
		got := formatInvalid(invalid)
		assert.Contains(t, got, "13 invalid")
		assert.Contains(t, got, "... 3 more]")
	})
}

func Test_RunMetrics(t *testing.T) {
	t.Run("Should time stages and serialize counters", func(t *testing.T) {
		m := NewRunMetrics(nil)
		m.StartStage(StageLoad)
		m.EndStage(StageLoad, nil)
		m.StartStage(StageSink)
		m.EndStage(StageSink, errors.New("boom"))
		m.RecordLoad(10)
		m.RecordCleaning(&cleaner.Report{
			IncompleteDropped: 2,
			Categorical:       []cleaner.CategoricalResult{{RowsDropped: 3, Imputed: 1, Bucketed: 4}},
		}, 5)
		m.Complete()

		assert.Equal(t, 5, m.RowsDropped())
		report := m.GenerateMetricsReport()
		assert.Contains(t, report, "Rows Out:                5 (50.0% dropped)")
		assert.Contains(t, report, "- load:")
		assert.Contains(t, report, "(failed)")

		raw, err := m.ToJSON()
		require.NoError(t, err)
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, float64(3), decoded["criticalDropped"])
		assert.Equal(t, float64(4), decoded["bucketed"])
	})

	t.Run("Should format durations", func(t *testing.T) {
		assert.Equal(t, "1.50s", formatDuration(1500*1e6))
		assert.Equal(t, "2m 5s", formatDuration(125*1e9))
		assert.Equal(t, "1h 0m 1s", formatDuration(3601*1e9))
	})
}
