// pkg/pipeline/metrics.go
package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/cleaner"
)

// StageMetrics tracks the timing of one stage
type StageMetrics struct {
	Stage     Stage
	StartTime time.Time
	EndTime   time.Time
	Failed    bool
}

// Duration returns how long the stage ran (so far, if still running)
func (sm *StageMetrics) Duration() time.Duration {
	if sm.EndTime.IsZero() {
		return time.Since(sm.StartTime)
	}
	return sm.EndTime.Sub(sm.StartTime)
}

// RunMetrics tracks the counters of one run
type RunMetrics struct {
	mu        sync.Mutex
	logger    *zap.Logger
	StartTime time.Time
	EndTime   time.Time
	Stages    []*StageMetrics

	RowsRead          int
	RowsOut           int
	IncompleteDropped int
	CriticalDropped   int
	InvalidNumeric    int
	Corrected         int
	Imputed           int
	Bucketed          int
	Operations        int
	Violations        int
	RowsWritten       int64
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		StartTime: time.Now(),
		logger:    logger,
	}
}

// StartStage begins timing a stage
func (rm *RunMetrics) StartStage(stage Stage) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.Stages = append(rm.Stages, &StageMetrics{Stage: stage, StartTime: time.Now()})

	if rm.logger != nil {
		rm.logger.Debug("Started stage", zap.String("stage", string(stage)))
	}
}

// EndStage stops timing the most recent run of stage
func (rm *RunMetrics) EndStage(stage Stage, err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for i := len(rm.Stages) - 1; i >= 0; i-- {
		sm := rm.Stages[i]
		if sm.Stage != stage || !sm.EndTime.IsZero() {
			continue
		}
		sm.EndTime = time.Now()
		sm.Failed = err != nil

		if rm.logger != nil {
			rm.logger.Info("Completed stage",
				zap.String("stage", string(stage)),
				zap.Duration("duration", sm.Duration()),
				zap.Bool("failed", sm.Failed))
		}
		return
	}
}

// RecordLoad records the size of the loaded dataset
func (rm *RunMetrics) RecordLoad(rows int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.RowsRead = rows
}

// RecordCleaning folds a cleaning report into the counters
func (rm *RunMetrics) RecordCleaning(report *cleaner.Report, rowsOut int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.RowsOut = rowsOut
	rm.IncompleteDropped = report.IncompleteDropped
	rm.Operations = len(report.Operations)

	for _, n := range report.Numeric {
		rm.InvalidNumeric += len(n.Invalid)
	}
	for _, c := range report.Categorical {
		rm.CriticalDropped += c.RowsDropped
		rm.Corrected += c.Corrected
		rm.Imputed += c.Imputed
		rm.Bucketed += c.Bucketed
	}
}

// RecordViolations records how many cells failed post-clean validation
func (rm *RunMetrics) RecordViolations(n int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.Violations = n
}

// RecordSink records rows written to the sink
func (rm *RunMetrics) RecordSink(rows int64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.RowsWritten = rows
}

// Complete marks the run as complete
func (rm *RunMetrics) Complete() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.EndTime = time.Now()

	if rm.logger != nil {
		rm.logger.Info("Run completed",
			zap.Duration("totalDuration", rm.EndTime.Sub(rm.StartTime)),
			zap.Int("rowsRead", rm.RowsRead),
			zap.Int("rowsOut", rm.RowsOut),
			zap.Int("operations", rm.Operations),
			zap.Float64("throughput", rm.calculateThroughput()))
	}
}

// Duration returns the total duration of the run
func (rm *RunMetrics) Duration() time.Duration {
	if rm.EndTime.IsZero() {
		return time.Since(rm.StartTime)
	}
	return rm.EndTime.Sub(rm.StartTime)
}

// RowsDropped returns every row removed during cleaning
func (rm *RunMetrics) RowsDropped() int {
	return rm.IncompleteDropped + rm.CriticalDropped
}

// calculateThroughput calculates the rows/second read rate
func (rm *RunMetrics) calculateThroughput() float64 {
	duration := rm.Duration().Seconds()
	if duration <= 0 {
		return 0
	}
	return float64(rm.RowsRead) / duration
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// getPercentage safely calculates a percentage, avoiding division by zero
func getPercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}

// GenerateMetricsReport creates the metrics block of the run report
func (rm *RunMetrics) GenerateMetricsReport() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, `Run Metrics
===========
Duration:                %s

Rows
----
Rows Read:               %d
Dropped (incomplete):    %d
Dropped (critical):      %d
Rows Out:                %d (%.1f%% dropped)

Values
------
Invalid Numerics:        %d
Mapping Corrections:     %d
Imputed:                 %d
Bucketed:                %d
Cleaning Operations:     %d
Validation Violations:   %d
`,
		formatDuration(rm.Duration()),
		rm.RowsRead,
		rm.IncompleteDropped,
		rm.CriticalDropped,
		rm.RowsOut, getPercentage(float64(rm.RowsDropped()), float64(rm.RowsRead)),
		rm.InvalidNumeric,
		rm.Corrected,
		rm.Imputed,
		rm.Bucketed,
		rm.Operations,
		rm.Violations,
	)

	if rm.RowsWritten > 0 {
		fmt.Fprintf(&b, "Rows Written:            %d\n", rm.RowsWritten)
	}

	if len(rm.Stages) > 0 {
		b.WriteString("\nStages\n------\n")
		for _, sm := range rm.Stages {
			status := "ok"
			if sm.Failed {
				status = "failed"
			}
			fmt.Fprintf(&b, "- %s: %s (%s)\n", sm.Stage, formatDuration(sm.Duration()), status)
		}
	}

	return b.String()
}

// ToJSON serializes metrics to JSON
func (rm *RunMetrics) ToJSON() ([]byte, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	stages := make(map[Stage]string, len(rm.Stages))
	for _, sm := range rm.Stages {
		stages[sm.Stage] = formatDuration(sm.Duration())
	}

	return json.Marshal(struct {
		Duration          string           `json:"duration"`
		RowsRead          int              `json:"rowsRead"`
		RowsOut           int              `json:"rowsOut"`
		IncompleteDropped int              `json:"incompleteDropped"`
		CriticalDropped   int              `json:"criticalDropped"`
		InvalidNumeric    int              `json:"invalidNumeric"`
		Corrected         int              `json:"corrected"`
		Imputed           int              `json:"imputed"`
		Bucketed          int              `json:"bucketed"`
		Operations        int              `json:"operations"`
		RowsWritten       int64            `json:"rowsWritten"`
		Stages            map[Stage]string `json:"stages"`
	}{
		Duration:          formatDuration(rm.Duration()),
		RowsRead:          rm.RowsRead,
		RowsOut:           rm.RowsOut,
		IncompleteDropped: rm.IncompleteDropped,
		CriticalDropped:   rm.CriticalDropped,
		InvalidNumeric:    rm.InvalidNumeric,
		Corrected:         rm.Corrected,
		Imputed:           rm.Imputed,
		Bucketed:          rm.Bucketed,
		Operations:        rm.Operations,
		RowsWritten:       rm.RowsWritten,
		Stages:            stages,
	})
}
