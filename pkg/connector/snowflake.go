// pkg/connector/snowflake.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/config"
)

// SnowflakeConnector implements the DatabaseConnector interface for Snowflake
type SnowflakeConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
}

// NewSnowflakeConnector creates a new Snowflake connection
func NewSnowflakeConnector(ctx context.Context, cfg *config.SnowflakeConfig, logger *zap.Logger) (*SnowflakeConnector, error) {
	logger = logger.Named("snowflake-connector")

	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("table", cfg.QualifiedTable()),
		zap.String("warehouse", cfg.Warehouse))

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}
	ApplyConnectionSettings(db, cfg.Pool)

	if err := PingWithTimeout(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	connector := &SnowflakeConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Database, db)
	return connector, nil
}

// DB returns the underlying database connection
func (c *SnowflakeConnector) DB() *sql.DB {
	return c.db
}

// Validate verifies the Snowflake session and that the sales table is visible
func (c *SnowflakeConnector) Validate(ctx context.Context) error {
	var role, database, warehouse string
	err := c.db.QueryRowContext(ctx, "SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	c.logger.Info("Connected to Snowflake",
		zap.String("role", role),
		zap.String("database", database),
		zap.String("warehouse", warehouse))

	if !strings.EqualFold(database, c.cfg.Database) {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database, c.cfg.Database)
	}

	tables, err := c.GetTables(ctx, c.cfg.Schema)
	if err != nil {
		return fmt.Errorf("failed to verify schema %s: %w", c.cfg.Schema, err)
	}

	for _, table := range tables {
		if strings.EqualFold(table, c.cfg.Table) {
			return nil
		}
	}
	return fmt.Errorf("table %s not found", c.cfg.QualifiedTable())
}

// Close closes the database connection
func (c *SnowflakeConnector) Close() error {
	c.logger.Info("Closing Snowflake connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db)
	return c.db.Close()
}

// GetTables retrieves all tables in a schema
func (c *SnowflakeConnector) GetTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SHOW TABLES IN SCHEMA "+schema)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tables from schema %s: %w", schema, err)
	}
	defer rows.Close()

	// SHOW TABLES output width varies by Snowflake version; the name is column 2
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read SHOW TABLES columns: %w", err)
	}

	var tables []string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]interface{}, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		if len(values) > 1 {
			tables = append(tables, values[1].String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return tables, nil
}

// ExecWithTimeout executes a statement with a timeout
func (c *SnowflakeConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	return execWithTimeout(ctx, c.db, query, timeout, args...)
}

// BatchQuery pages through query with LIMIT/OFFSET, handing each row to processor
func (c *SnowflakeConnector) BatchQuery(
	ctx context.Context,
	query string,
	batchSize int,
	processor func(RowScanner) error,
) error {
	if batchSize <= 0 {
		batchSize = 10000
	}

	offset := 0
	for {
		rowCount, err := c.queryBatch(ctx, query, batchSize, offset, processor)
		if err != nil {
			return err
		}

		if rowCount < batchSize {
			return nil
		}

		offset += batchSize
	}
}

func (c *SnowflakeConnector) queryBatch(
	ctx context.Context,
	query string,
	batchSize, offset int,
	processor func(RowScanner) error,
) (int, error) {
	timeout := c.cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	batchQuery := fmt.Sprintf("%s LIMIT %d OFFSET %d", query, batchSize, offset)
	rows, err := c.db.QueryContext(queryCtx, batchQuery)
	if err != nil {
		return 0, fmt.Errorf("batch query failed at offset %d: %w", offset, err)
	}
	defer rows.Close()

	rowCount := 0
	for rows.Next() {
		rowCount++
		if err := processor(rows); err != nil {
			return rowCount, fmt.Errorf("row processing failed at offset %d: %w", offset, err)
		}
	}

	if err := rows.Err(); err != nil {
		return rowCount, fmt.Errorf("error iterating rows at offset %d: %w", offset, err)
	}

	c.logger.Debug("Fetched batch", zap.Int("offset", offset), zap.Int("rows", rowCount))
	return rowCount, nil
}
