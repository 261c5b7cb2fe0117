// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package database talks to the MySQL/MariaDB server behind a browser
// window: connection handling, DESCRIBE, SELECT * and single-row UPDATE.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"leadsdesk/config"
	"leadsdesk/records"
)

// DefaultPort is appended to hosts given without a port.
const DefaultPort = "3306"

// DSN builds the driver connection string for cfg.
func DSN(cfg config.Config) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = hostPort(cfg.Host)
	c.DBName = cfg.DB
	c.Collation = "utf8mb4_unicode_ci"
	c.Timeout = 10 * time.Second
	return c.FormatDSN()
}

func hostPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, DefaultPort)
}

// DB is the connection handle owned by one browser window.
type DB struct {
	db      *sql.DB
	key     string
	Verbose bool
}

// Open creates a handle for cfg. No connection is made until first use.
func Open(cfg config.Config) (*DB, error) {
	dsn := DSN(cfg)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg, err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &DB{db: db, key: cfg.String()}, nil
}

// New wraps an existing *sql.DB. key identifies the server in the schema cache.
func New(db *sql.DB, key string) *DB {
	return &DB{db: db, key: key}
}

// Key identifies the server and database of this handle.
func (d *DB) Key() string { return d.key }

// Close releases the handle's connections.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Ping runs SELECT 1.
func (d *DB) Ping(ctx context.Context) error {
	var one int
	if err := d.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}
	return nil
}

// Verify opens a connection for cfg, runs SELECT 1 and closes it again.
func Verify(ctx context.Context, cfg config.Config) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Printf("Attempting to connect to database '%s' at '%s' with user '%s'...", cfg.DB, cfg.Host, cfg.User)
	return db.Ping(ctx)
}

// Describe returns the column layout of table.
func (d *DB) Describe(ctx context.Context, table string) (*records.Schema, error) {
	rows, err := d.db.QueryContext(ctx, "DESCRIBE "+QuoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	defer rows.Close()

	columns := make([]records.Column, 0)
	for rows.Next() {
		var (
			c   records.Column
			key sql.NullString
			def sql.NullString
			ext sql.NullString
		)
		if err := rows.Scan(&c.Field, &c.Type, &c.Null, &key, &def, &ext); err != nil {
			return nil, fmt.Errorf("failed to read structure of %s: %w", table, err)
		}
		c.Key = key.String
		c.Extra = ext.String
		if def.Valid {
			v := def.String
			c.Default = &v
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read structure of %s: %w", table, err)
	}
	return records.NewSchema(table, columns), nil
}

// FetchAll loads every row of table.
func (d *DB) FetchAll(ctx context.Context, table string) ([]*records.Record, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT * FROM "+QuoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
	}

	out := make([]*records.Record, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to read row of %s: %w", table, err)
		}
		out = append(out, records.NewRecord(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
	}
	return out, nil
}

// BuildUpdate returns the statement and arguments that overwrite every
// column of rec in the row whose key column equals the record's key.
func BuildUpdate(table, key string, rec *records.Record) (string, []any, error) {
	keyValue, ok := rec.Get(key)
	if !ok {
		return "", nil, fmt.Errorf("%w: key column %s", records.ErrUnknownColumn, key)
	}

	cols := rec.Columns()
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = QuoteIdent(c) + " = ?"
		v, _ := rec.Get(c)
		args = append(args, v)
	}
	args = append(args, keyValue)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", QuoteIdent(table), strings.Join(sets, ", "), QuoteIdent(key))
	return query, args, nil
}

// SaveRecord writes the whole record back. There is no version check: the
// last writer wins.
func (d *DB) SaveRecord(ctx context.Context, table, key string, rec *records.Record) error {
	query, args, err := BuildUpdate(table, key, rec)
	if err != nil {
		return err
	}
	if d.Verbose {
		log.Printf("Executing query: %s", query)
		log.Printf("With values: %v", args)
	}
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

// QuoteIdent quotes a table or column name for MySQL.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
