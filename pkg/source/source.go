// pkg/source/source.go
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/config"
	"github.com/David-Botos/vehicle-cleaner/pkg/connector"
	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// ErrDatasetUnavailable is returned when the dataset cannot be read from its source
var ErrDatasetUnavailable = errors.New("dataset unavailable")

// Loader reads the raw sales dataset into a table
type Loader interface {
	Load(ctx context.Context) (*model.Table, error)
	// Describe names where the data comes from, for logs and the report
	Describe() string
}

// NewLoader picks the loader for cfg.Source
func NewLoader(cfg *config.Config, factory *connector.ConnectorFactory, logger *zap.Logger) (Loader, error) {
	switch cfg.Source {
	case config.SourceCSV:
		return NewCSVLoader(cfg.DatasetPath, logger), nil
	case config.SourceHTTP:
		return NewHTTPLoader(cfg.DatasetURL, cfg.DownloadTimeout, logger), nil
	case config.SourceSnowflake:
		if factory == nil {
			return nil, errors.New("snowflake source needs a connector factory")
		}
		if cfg.Snowflake == nil {
			return nil, errors.New("snowflake source needs snowflake configuration")
		}
		return NewSnowflakeLoader(factory, cfg.Snowflake.QualifiedTable(), cfg.BatchSize, logger), nil
	default:
		return nil, fmt.Errorf("unknown dataset source %q", cfg.Source)
	}
}

// unavailable wraps cause so callers can match ErrDatasetUnavailable
func unavailable(from string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, from, cause)
}

// ReadCSV parses a header-first CSV stream into a table. Cells holding a
// missing marker become nil; everything else stays text.
func ReadCSV(r io.Reader) (*model.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		columns[i] = strings.TrimSpace(name)
	}
	var records [][]interface{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(record) > len(columns) {
			return nil, fmt.Errorf("csv line %d: record has %d values, header has %d columns", line, len(record), len(columns))
		}

		values := make([]interface{}, len(record))
		for i, raw := range record {
			values[i] = converter.ParseCell(raw)
		}
		records = append(records, values)
	}

	return model.NewTable(columns, records)
}
