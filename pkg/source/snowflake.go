// pkg/source/snowflake.go
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/connector"
	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// batchSource is the slice of SnowflakeConnector the loader needs
type batchSource interface {
	BatchQuery(ctx context.Context, query string, batchSize int, processor func(connector.RowScanner) error) error
	Close() error
}

// SnowflakeLoader reads the dataset from a Snowflake table in batches
type SnowflakeLoader struct {
	open      func(ctx context.Context) (batchSource, error)
	table     string
	batchSize int
	logger    *zap.Logger
}

// NewSnowflakeLoader creates a loader that selects every row of table
// (SCHEMA.TABLE) through a connector from factory
func NewSnowflakeLoader(factory *connector.ConnectorFactory, table string, batchSize int, logger *zap.Logger) *SnowflakeLoader {
	return &SnowflakeLoader{
		open: func(ctx context.Context) (batchSource, error) {
			conn, err := factory.CreateSnowflakeConnector(ctx)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		table:     table,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Describe returns the qualified table name
func (l *SnowflakeLoader) Describe() string {
	return "snowflake:" + l.table
}

// Load runs the batched select and builds the table. Snowflake column names
// are lowercased to match the CSV header.
func (l *SnowflakeLoader) Load(ctx context.Context) (*model.Table, error) {
	start := time.Now()

	conn, err := l.open(ctx)
	if err != nil {
		return nil, unavailable(l.Describe(), err)
	}
	defer conn.Close()

	var columns []string
	var records [][]interface{}
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY 1", l.table)

	err = conn.BatchQuery(ctx, query, l.batchSize, func(rows connector.RowScanner) error {
		if columns == nil {
			cols, err := rows.Columns()
			if err != nil {
				return fmt.Errorf("failed to read result columns: %w", err)
			}
			columns = make([]string, len(cols))
			for i, c := range cols {
				columns[i] = strings.ToLower(c)
			}
		}

		raw := make([]interface{}, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		values := make([]interface{}, len(raw))
		for i, v := range raw {
			values[i] = cellFromDriver(v)
		}
		records = append(records, values)
		return nil
	})
	if err != nil {
		return nil, unavailable(l.Describe(), err)
	}

	if len(records) == 0 {
		return nil, unavailable(l.Describe(), fmt.Errorf("table %s returned no rows", l.table))
	}

	table, err := model.NewTable(columns, records)
	if err != nil {
		return nil, unavailable(l.Describe(), err)
	}

	rows, cols := table.Shape()
	l.logger.Info("Loaded dataset from Snowflake",
		zap.String("table", l.table),
		zap.Int("rows", rows),
		zap.Int("columns", cols),
		zap.Duration("duration", time.Since(start)))

	return table, nil
}

// cellFromDriver maps a driver value onto the table's cell representation
func cellFromDriver(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return converter.ParseCell(string(t))
	case string:
		return converter.ParseCell(t)
	default:
		if converter.IsMissing(t) {
			return nil
		}
		return t
	}
}
