// pkg/converter/converter.go
package converter

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// TypeConverter maps in-memory column types to PostgreSQL and converts values for insert
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for type conversion
type TypeConverterConfig struct {
	// Type used for int64 columns
	IntegerType string
	// Type used for text and category columns
	TextType string
	// Whether to treat empty strings as NULL
	EmptyStringAsNull bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		IntegerType:       "INTEGER",
		TextType:          "TEXT",
		EmptyStringAsNull: true,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	return &TypeConverter{
		logger: logger,
		config: config,
	}
}

// MapColumnTypeToPostgres converts an in-memory column type to PostgreSQL
func (c *TypeConverter) MapColumnTypeToPostgres(ct model.ColumnType) string {
	switch ct {
	case model.ColumnTypeInt64:
		return c.config.IntegerType
	case model.ColumnTypeCategory, model.ColumnTypeObject:
		return c.config.TextType
	default:
		c.logger.Warn("Unknown column type encountered", zap.String("columnType", string(ct)))
		return c.config.TextType
	}
}

// GenerateColumnDefinitions creates PostgreSQL column definitions
func (c *TypeConverter) GenerateColumnDefinitions(metadata *model.TableMetadata) []string {
	definitions := make([]string, 0, len(metadata.Columns))

	for i, col := range metadata.Columns {
		pgType := col.PgType
		if pgType == "" {
			pgType = c.MapColumnTypeToPostgres(col.Type)
			metadata.Columns[i].PgType = pgType
		}

		nullability := "NULL"
		if !col.Nullable {
			nullability = "NOT NULL"
		}

		definitions = append(definitions, fmt.Sprintf("%s %s %s",
			QuoteIdentifier(col.Name),
			pgType,
			nullability))
	}

	return definitions
}

// ConvertValueForPostgres converts a table value to an insert argument for a column type
func (c *TypeConverter) ConvertValueForPostgres(value interface{}, ct model.ColumnType, colName string) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch ct {
	case model.ColumnTypeInt64:
		i, err := ToInt(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", colName, err)
		}
		return i, nil
	default:
		s := ToText(value)
		if s == "" && c.config.EmptyStringAsNull {
			return nil, nil
		}
		return s, nil
	}
}

// QuoteIdentifier quotes a PostgreSQL identifier; dotted names are quoted per part
func QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(strings.ToLower(p))
	}
	return strings.Join(parts, ".")
}
