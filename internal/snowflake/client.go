// Package snowflake loads pipeline input tables from a Snowflake warehouse.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/ignite/marketing-analytics/internal/dataset"
	sf "github.com/snowflakedb/gosnowflake"
)

// Client wraps a Snowflake connection pool.
type Client struct {
	db *sql.DB
}

// DSN builds the driver connection string for cfg.
func DSN(cfg config.SnowflakeConfig) (string, error) {
	return sf.DSN(&sf.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
	})
}

// NewClient opens a pool. No connection is made until the first query.
func NewClient(cfg config.SnowflakeConfig) (*Client, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("snowflake dsn: %w", err)
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Client{db: db}, nil
}

// NewClientWithDB wraps an existing pool.
func NewClientWithDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close closes the pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Source returns a table source for query.
func (c *Client) Source(query string, args ...interface{}) dataset.Source {
	return dataset.SQLSource{DB: c.db, Query: query, Args: args}
}

// Load runs query and returns its result set as a table.
func (c *Client) Load(ctx context.Context, query string, args ...interface{}) (dataframe.DataFrame, error) {
	return c.Source(query, args...).Load(ctx)
}

// ParseConnectionString reads the semicolon separated form
// "ACCOUNT=x;USER=y;PASSWORD=z;DB=database.schema;WAREHOUSE=w" into a
// config. Keys are case-insensitive; unknown keys are ignored.
func ParseConnectionString(connStr string) config.SnowflakeConfig {
	parts := make(map[string]string)
	for _, kv := range strings.Split(connStr, ";") {
		key, value, ok := strings.Cut(kv, "=")
		if ok && key != "" {
			parts[strings.ToUpper(strings.TrimSpace(key))] = value
		}
	}

	database, schema, _ := strings.Cut(parts["DB"], ".")
	return config.SnowflakeConfig{
		Account:   parts["ACCOUNT"],
		User:      parts["USER"],
		Password:  parts["PASSWORD"],
		Database:  database,
		Schema:    schema,
		Warehouse: parts["WAREHOUSE"],
		Enabled:   parts["ACCOUNT"] != "",
	}
}
