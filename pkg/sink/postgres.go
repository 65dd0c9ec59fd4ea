// pkg/sink/postgres.go
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/connector"
	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// TrackingTable records every cleaning operation of every run
const TrackingTable = "public.cleaned_on_ingress"

const trackingTableSQL = `
	CREATE TABLE IF NOT EXISTS public.cleaned_on_ingress (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		table_name TEXT NOT NULL,
		column_name TEXT NOT NULL,
		original_value TEXT,
		new_value TEXT NOT NULL,
		row_identifier TEXT NOT NULL,
		cleaning_operation TEXT NOT NULL,
		cleaning_reason TEXT NOT NULL,
		cleaned_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)
`

const insertOperationSQL = `
	INSERT INTO public.cleaned_on_ingress
	(run_id, table_name, column_name, original_value, new_value,
	 row_identifier, cleaning_operation, cleaning_reason, cleaned_at)
	VALUES (:run_id, :table_name, :column_name, :original_value, :new_value,
	 :row_identifier, :cleaning_operation, :cleaning_reason, :cleaned_at)
`

// Columns the sink adds in front of the dataset's own
const (
	RunIDColumn    = "run_id"
	RowIndexColumn = "row_index"
)

// operationRecord is a CleaningOperation with its original value rendered as text
type operationRecord struct {
	RunID             string    `db:"run_id"`
	TableName         string    `db:"table_name"`
	ColumnName        string    `db:"column_name"`
	OriginalValue     *string   `db:"original_value"`
	NewValue          string    `db:"new_value"`
	RowIdentifier     string    `db:"row_identifier"`
	CleaningOperation string    `db:"cleaning_operation"`
	CleaningReason    string    `db:"cleaning_reason"`
	CleanedAt         time.Time `db:"cleaned_at"`
}

// Result summarizes one write
type Result struct {
	Table            string
	RowsWritten      int64
	OperationsLogged int
}

// PostgresSink writes the cleaned table and its cleaning operations to PostgreSQL
type PostgresSink struct {
	conn      *connector.PostgresConnector
	db        *sqlx.DB
	converter *converter.TypeConverter
	schema    string
	table     string
	batchSize int
	logger    *zap.Logger
}

// NewPostgresSink creates a sink writing to target (schema.table, or a bare
// table in public)
func NewPostgresSink(conn *connector.PostgresConnector, target string, batchSize int, logger *zap.Logger) (*PostgresSink, error) {
	if conn == nil {
		return nil, errors.New("postgres connector cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	schema, table, err := SplitTableName(target)
	if err != nil {
		return nil, err
	}

	return &PostgresSink{
		conn:      conn,
		db:        sqlx.NewDb(conn.DB(), "pgx"),
		converter: converter.NewTypeConverter(logger),
		schema:    schema,
		table:     table,
		batchSize: batchSize,
		logger:    logger.Named("postgres-sink"),
	}, nil
}

// Describe returns the target table
func (s *PostgresSink) Describe() string {
	return s.schema + "." + s.table
}

// Write creates the tables if needed, inserts the cleaned rows stamped with
// runID and records the operations
func (s *PostgresSink) Write(ctx context.Context, runID string, table *model.Table, operations []model.CleaningOperation) (*Result, error) {
	if err := s.conn.EnsureSchema(ctx, s.schema); err != nil {
		return nil, err
	}

	if err := s.EnsureTrackingTable(ctx); err != nil {
		return nil, err
	}

	metadata := model.MetadataFromTable(s.schema, s.table, table)
	if err := s.conn.CreateTableIfNotExists(
		ctx,
		s.schema,
		s.table,
		s.ColumnDefinitions(metadata),
		converter.QuoteIdentifier(RunIDColumn)+", "+converter.QuoteIdentifier(RowIndexColumn),
	); err != nil {
		return nil, err
	}

	columns, rows, err := s.InsertRows(runID, table)
	if err != nil {
		return nil, err
	}

	written, err := s.conn.BatchInsert(ctx, s.schema, s.table, columns, rows, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", s.Describe(), err)
	}

	if err := s.RecordCleaningOperations(ctx, operations); err != nil {
		return nil, err
	}

	s.logger.Info("Wrote cleaned table",
		zap.String("table", s.Describe()),
		zap.Int64("rows", written),
		zap.Int("operations", len(operations)))

	return &Result{
		Table:            s.Describe(),
		RowsWritten:      written,
		OperationsLogged: len(operations),
	}, nil
}

// EnsureTrackingTable ensures the cleaned_on_ingress tracking table exists
func (s *PostgresSink) EnsureTrackingTable(ctx context.Context) error {
	if _, err := s.conn.ExecWithTimeout(ctx, trackingTableSQL, 10*time.Second); err != nil {
		return fmt.Errorf("failed to create tracking table: %w", err)
	}
	s.logger.Debug("Ensured cleaned_on_ingress table exists")
	return nil
}

// RecordCleaningOperations inserts operations into the tracking table in one
// transaction
func (s *PostgresSink) RecordCleaningOperations(ctx context.Context, operations []model.CleaningOperation) error {
	if len(operations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	records := operationRecords(operations)
	chunk := operationChunkSize(s.batchSize)
	for i := 0; i < len(records); i += chunk {
		end := i + chunk
		if end > len(records) {
			end = len(records)
		}
		if _, err := tx.NamedExecContext(ctx, insertOperationSQL, records[i:end]); err != nil {
			return fmt.Errorf("failed to record cleaning operations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cleaning operations: %w", err)
	}

	s.logger.Info("Recorded cleaning operations",
		zap.String("table", TrackingTable),
		zap.Int("count", len(records)))
	return nil
}

// ColumnDefinitions returns the target table's column definitions, run and
// row keys first
func (s *PostgresSink) ColumnDefinitions(metadata *model.TableMetadata) []string {
	defs := []string{
		converter.QuoteIdentifier(RunIDColumn) + " TEXT NOT NULL",
		converter.QuoteIdentifier(RowIndexColumn) + " BIGINT NOT NULL",
	}
	return append(defs, s.converter.GenerateColumnDefinitions(metadata)...)
}

// InsertRows converts the table into insert arguments matching ColumnDefinitions
func (s *PostgresSink) InsertRows(runID string, table *model.Table) ([]string, [][]interface{}, error) {
	names := table.Columns()
	columns := make([]string, 0, len(names)+2)
	columns = append(columns, RunIDColumn, RowIndexColumn)
	for _, col := range names {
		columns = append(columns, strings.ToLower(col))
	}

	rows := make([][]interface{}, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		index := table.RowIndex(i)
		values := make([]interface{}, 0, len(columns))
		values = append(values, runID, int64(index))
		for _, col := range names {
			v, err := s.converter.ConvertValueForPostgres(table.Value(i, col), table.ColumnType(col), col)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", index, err)
			}
			values = append(values, v)
		}
		rows = append(rows, values)
	}

	return columns, rows, nil
}

// operationRecords renders operations for the tracking table
func operationRecords(operations []model.CleaningOperation) []operationRecord {
	records := make([]operationRecord, len(operations))
	for i, op := range operations {
		records[i] = operationRecord{
			RunID:             op.RunID,
			TableName:         op.TableName,
			ColumnName:        op.ColumnName,
			OriginalValue:     converter.ToNullableText(op.OriginalValue),
			NewValue:          op.NewValue,
			RowIdentifier:     op.RowIdentifier,
			CleaningOperation: op.CleaningOperation,
			CleaningReason:    op.CleaningReason,
			CleanedAt:         op.CleanedAt,
		}
	}
	return records
}

// SplitTableName splits schema.table, defaulting the schema to public
func SplitTableName(name string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(name), ".")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return "public", strings.ToLower(parts[0]), nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return strings.ToLower(parts[0]), strings.ToLower(parts[1]), nil
	default:
		return "", "", fmt.Errorf("invalid table name %s", pq.QuoteIdentifier(name))
	}
}

// operationChunkSize keeps each named batch insert under the bind limit (9 params per row)
func operationChunkSize(batchSize int) int {
	const maxRows = 65535 / 9
	if batchSize <= 0 || batchSize > maxRows {
		return maxRows
	}
	return batchSize
}
