// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/cleaner"
	"github.com/David-Botos/vehicle-cleaner/pkg/config"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
	"github.com/David-Botos/vehicle-cleaner/pkg/sink"
	"github.com/David-Botos/vehicle-cleaner/pkg/source"
)

// Sink receives the cleaned table and its cleaning operations
type Sink interface {
	Write(ctx context.Context, runID string, table *model.Table, operations []model.CleaningOperation) (*sink.Result, error)
	Describe() string
}

// Result is everything one run produced
type Result struct {
	RunID   string
	Source  string
	Table   *model.Table
	Report  *cleaner.Report
	Metrics *RunMetrics
	Sink    *sink.Result

	// Shape after the incomplete-row drop, before the column passes
	ShapeAfterDrop [2]int
}

// Pipeline loads, cleans and optionally stores the sales dataset
type Pipeline struct {
	loader      source.Loader
	sink        Sink
	plan        cleaner.Plan
	datasetName string
	logger      *zap.Logger
	newRunID    func() string
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithSink stores the cleaned table after a successful clean
func WithSink(s Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithDatasetName sets the table name stamped on cleaning operations
func WithDatasetName(name string) Option {
	return func(p *Pipeline) { p.datasetName = name }
}

// WithRunIDGenerator replaces the random run id
func WithRunIDGenerator(gen func() string) Option {
	return func(p *Pipeline) { p.newRunID = gen }
}

// NewPipeline creates a pipeline reading from loader and cleaning with plan
func NewPipeline(loader source.Loader, plan cleaner.Plan, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if loader == nil {
		return nil, errors.New("loader cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	p := &Pipeline{
		loader:      loader,
		plan:        plan,
		datasetName: "car_details",
		logger:      logger.Named("pipeline"),
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PlanFromConfig adjusts the default plan to the configured ranges, sentinel and threshold
func PlanFromConfig(cfg *config.Config) cleaner.Plan {
	plan := cleaner.DefaultPlan()
	plan.DropIncomplete = cfg.DropIncomplete

	for i := range plan.Numeric {
		rule := &plan.Numeric[i]
		rule.Sentinel = cfg.Sentinel
		switch rule.Column {
		case model.ColumnYear:
			rule.Range = &cleaner.IntRange{Min: cfg.YearMin, Max: cfg.YearMax}
		case model.ColumnOdometer:
			rule.Range = &cleaner.IntRange{Min: cfg.OdometerMin, Max: cfg.OdometerMax}
		}
	}

	for i := range plan.Categorical {
		if plan.Categorical[i].RareThreshold > 0 {
			plan.Categorical[i].RareThreshold = cfg.RareThreshold
		}
	}

	return plan
}

// Run executes one load, clean and store cycle. Load failures and missing
// required columns are fatal; value-level problems are repaired and reported.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := p.newRunID()
	logger := p.logger.With(zap.String("runID", runID))
	metrics := NewRunMetrics(logger)

	logger.Info("Starting run", zap.String("source", p.loader.Describe()))

	metrics.StartStage(StageLoad)
	table, err := p.loader.Load(ctx)
	metrics.EndStage(StageLoad, err)
	if err != nil {
		return nil, wrapStage(StageLoad, err)
	}
	metrics.RecordLoad(table.Len())

	metrics.StartStage(StageValidate)
	err = p.checkColumns(table)
	metrics.EndStage(StageValidate, err)
	if err != nil {
		return nil, wrapStage(StageValidate, err)
	}

	dc, err := cleaner.NewDataCleaner(logger, model.CleaningContext{RunID: runID, TableName: p.datasetName})
	if err != nil {
		return nil, wrapStage(StageClean, err)
	}

	metrics.StartStage(StageClean)
	report, err := dc.Clean(table, p.plan)
	metrics.EndStage(StageClean, err)
	if err != nil {
		return nil, wrapStage(StageClean, err)
	}
	metrics.RecordCleaning(report, table.Len())

	violations := dc.ValidateTable(table, p.plan)
	metrics.RecordViolations(len(violations))
	for _, v := range violations {
		logger.Warn("Cleaned table failed validation", zap.Error(v))
	}

	result := &Result{
		RunID:          runID,
		Source:         p.loader.Describe(),
		Table:          table,
		Report:         report,
		Metrics:        metrics,
		ShapeAfterDrop: [2]int{metrics.RowsRead - report.IncompleteDropped, len(table.Columns())},
	}

	if p.sink != nil {
		if err := ctx.Err(); err != nil {
			return nil, wrapStage(StageSink, err)
		}

		metrics.StartStage(StageSink)
		sinkResult, err := p.sink.Write(ctx, runID, table, report.Operations)
		metrics.EndStage(StageSink, err)
		if err != nil {
			return nil, wrapStage(StageSink, err)
		}
		metrics.RecordSink(sinkResult.RowsWritten)
		result.Sink = sinkResult
	}

	metrics.Complete()
	return result, nil
}

func (p *Pipeline) checkColumns(table *model.Table) error {
	var required []string
	for _, r := range p.plan.Numeric {
		required = append(required, r.Column)
	}
	for _, r := range p.plan.Categorical {
		required = append(required, r.Column)
	}

	if missing := table.MissingColumns(required); len(missing) > 0 {
		return missingColumnsError(missing)
	}
	return nil
}
