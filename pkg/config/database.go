// pkg/config/database.go
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// applicationName identifies the cleaner's sessions on the database side
const applicationName = "vehicle-cleaner"

// identifierPattern matches an unquoted Snowflake identifier
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Authenticators the Snowflake source can be configured with, by SNOWFLAKE_AUTHENTICATOR
var authenticators = map[string]gosnowflake.AuthType{
	"snowflake":             gosnowflake.AuthTypeSnowflake,
	"username_password_mfa": gosnowflake.AuthTypeUsernamePasswordMFA,
	"oauth":                 gosnowflake.AuthTypeOAuth,
	"externalbrowser":       gosnowflake.AuthTypeExternalBrowser,
}

// PoolConfig sizes a database/sql connection pool
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// SnowflakeConfig locates the raw sales table in Snowflake and the
// credentials used to read it
type SnowflakeConfig struct {
	Account       string
	User          string
	Password      string // snowflake and username_password_mfa
	Token         string // oauth
	Authenticator gosnowflake.AuthType
	Warehouse     string
	Role          string

	Database string
	Schema   string
	Table    string

	Pool         PoolConfig
	QueryTimeout time.Duration
}

// PostgresConfig holds the connection settings of the cleaned-data sink
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	Pool             PoolConfig
	StatementTimeout time.Duration
}

// LoadSnowflakeConfig reads the SNOWFLAKE_* keys. The credential required
// depends on SNOWFLAKE_AUTHENTICATOR; schema and table must be plain identifiers.
func LoadSnowflakeConfig() (*SnowflakeConfig, error) {
	env, err := requireEnv("SNOWFLAKE_ACCOUNT", "SNOWFLAKE_USER", "SNOWFLAKE_WAREHOUSE")
	if err != nil {
		return nil, err
	}

	authName := strings.ToLower(getEnv("SNOWFLAKE_AUTHENTICATOR", "snowflake"))
	auth, ok := authenticators[authName]
	if !ok {
		return nil, fmt.Errorf("unsupported SNOWFLAKE_AUTHENTICATOR %q", authName)
	}

	cfg := &SnowflakeConfig{
		Account:       env["SNOWFLAKE_ACCOUNT"],
		User:          env["SNOWFLAKE_USER"],
		Warehouse:     env["SNOWFLAKE_WAREHOUSE"],
		Authenticator: auth,
		Role:          getEnv("SNOWFLAKE_ROLE", ""),

		Database: getEnv("SNOWFLAKE_DATABASE", "VEHICLE_SALES"),
		Schema:   getEnv("SNOWFLAKE_SCHEMA", "PUBLIC"),
		Table:    getEnv("SNOWFLAKE_TABLE", "CAR_DETAILS"),

		Pool:         loadPool("SNOWFLAKE", 4, 2),
		QueryTimeout: time.Duration(getEnvAsInt("SNOWFLAKE_QUERY_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	switch auth {
	case gosnowflake.AuthTypeSnowflake, gosnowflake.AuthTypeUsernamePasswordMFA:
		creds, err := requireEnv("SNOWFLAKE_PASSWORD")
		if err != nil {
			return nil, fmt.Errorf("%s authentication: %w", authName, err)
		}
		cfg.Password = creds["SNOWFLAKE_PASSWORD"]
	case gosnowflake.AuthTypeOAuth:
		creds, err := requireEnv("SNOWFLAKE_TOKEN")
		if err != nil {
			return nil, fmt.Errorf("%s authentication: %w", authName, err)
		}
		cfg.Token = creds["SNOWFLAKE_TOKEN"]
	}

	for _, id := range []struct{ key, name string }{
		{"SNOWFLAKE_DATABASE", cfg.Database},
		{"SNOWFLAKE_SCHEMA", cfg.Schema},
		{"SNOWFLAKE_TABLE", cfg.Table},
	} {
		if !identifierPattern.MatchString(id.name) {
			return nil, fmt.Errorf("%s %q is not a valid identifier", id.key, id.name)
		}
	}

	return cfg, nil
}

// DriverConfig returns the gosnowflake settings for this source. The query
// timeout is sent as a session parameter so every pooled session gets it.
func (c *SnowflakeConfig) DriverConfig() *gosnowflake.Config {
	params := make(map[string]*string)
	if c.QueryTimeout > 0 {
		timeout := strconv.Itoa(int(c.QueryTimeout.Seconds()))
		params["STATEMENT_TIMEOUT_IN_SECONDS"] = &timeout
	}

	return &gosnowflake.Config{
		Account:       c.Account,
		User:          c.User,
		Password:      c.Password,
		Token:         c.Token,
		Authenticator: c.Authenticator,
		Warehouse:     c.Warehouse,
		Role:          c.Role,
		Database:      c.Database,
		Schema:        c.Schema,
		Application:   applicationName,
		Params:        params,
	}
}

// DSN builds the driver connection string
func (c *SnowflakeConfig) DSN() (string, error) {
	dsn, err := gosnowflake.DSN(c.DriverConfig())
	if err != nil {
		return "", fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}
	return dsn, nil
}

// QualifiedTable returns SCHEMA.TABLE for queries
func (c *SnowflakeConfig) QualifiedTable() string {
	return c.Schema + "." + c.Table
}

// LoadPostgresConfig reads the POSTGRES_* keys
func LoadPostgresConfig() (*PostgresConfig, error) {
	env, err := requireEnv("POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB")
	if err != nil {
		return nil, err
	}

	return &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvAsInt("POSTGRES_PORT", 5432),
		User:     env["POSTGRES_USER"],
		Password: env["POSTGRES_PASSWORD"],
		Database: env["POSTGRES_DB"],
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		Pool:             loadPool("POSTGRES", 10, 5),
		StatementTimeout: time.Duration(getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_SECONDS", 300)) * time.Second,
	}, nil
}

// ConnectionString returns a postgres:// URL. The statement timeout travels
// as a runtime parameter so every pooled session gets it.
func (c *PostgresConfig) ConnectionString() string {
	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	if c.StatementTimeout > 0 {
		query.Set("statement_timeout", strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// loadPool reads <prefix>_MAX_OPEN_CONNS and friends
func loadPool(prefix string, maxOpen, maxIdle int) PoolConfig {
	return PoolConfig{
		MaxOpenConns:    getEnvAsInt(prefix+"_MAX_OPEN_CONNS", maxOpen),
		MaxIdleConns:    getEnvAsInt(prefix+"_MAX_IDLE_CONNS", maxIdle),
		ConnMaxLifetime: time.Duration(getEnvAsInt(prefix+"_CONN_MAX_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvAsInt(prefix+"_CONN_MAX_IDLE_TIME_SECONDS", 300)) * time.Second,
	}
}

// requireEnv returns the values of keys, or one error naming every unset key
func requireEnv(keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	var missing []string
	for _, key := range keys {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return values, nil
}
