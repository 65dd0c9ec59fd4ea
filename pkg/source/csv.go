// pkg/source/csv.go
package source

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// CSVLoader reads the dataset from a local file
type CSVLoader struct {
	path   string
	logger *zap.Logger
}

// NewCSVLoader creates a loader for the CSV file at path
func NewCSVLoader(path string, logger *zap.Logger) *CSVLoader {
	return &CSVLoader{path: path, logger: logger}
}

// Describe returns the file path
func (l *CSVLoader) Describe() string {
	return l.path
}

// Load opens and parses the file
func (l *CSVLoader) Load(ctx context.Context) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(l.path, err)
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, unavailable(l.path, err)
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return nil, unavailable(l.path, err)
	}

	rows, cols := table.Shape()
	l.logger.Info("Loaded dataset from file",
		zap.String("path", l.path),
		zap.Int("rows", rows),
		zap.Int("columns", cols))

	return table, nil
}
