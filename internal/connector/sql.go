// Copyright © 2024 KubeStack-AI Authors
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

// Package connector collects reference interfaces.Connector and
// interfaces.MetadataExtractor implementations built on database/sql.
// Neither is required by the core; a host may bring its own pooled
// connector (pgx, a cloud SDK, ...), but these are what the CLI wires
// by default.
package connector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
)

// SQLConnector adapts a database/sql.DB to interfaces.Connector.
// *sql.Rows already satisfies interfaces.Rows method-for-method, so no
// row-level adapter is needed.
type SQLConnector struct {
	db          *sql.DB
	productName string
	version     string
}

// NewSQLConnector opens (lazily, per database/sql semantics) a
// connection pool for driverName/dsn. productName must be one of the
// names internal/sampler/dialect.Resolve recognizes ("MySQL",
// "PostgreSQL", "Oracle", "Microsoft SQL Server"); the connector
// itself does not attempt to introspect it, since database/sql has no
// portable way to do so across drivers.
func NewSQLConnector(driverName, dsn, productName string) (*SQLConnector, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", driverName, err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", driverName, err)
	}

	version := ""
	if v, err := queryVersion(db, productName); err == nil {
		version = v
	}

	return &SQLConnector{db: db, productName: productName, version: version}, nil
}

func queryVersion(db *sql.DB, productName string) (string, error) {
	var query string
	switch productName {
	case "MySQL":
		query = "SELECT VERSION()"
	case "PostgreSQL":
		query = "SHOW server_version"
	default:
		return "", fmt.Errorf("no version query known for %s", productName)
	}
	var version string
	if err := db.QueryRow(query).Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

// Query implements interfaces.Connector.
func (c *SQLConnector) Query(ctx context.Context, query string, args ...interface{}) (interfaces.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ProductName implements interfaces.Connector.
func (c *SQLConnector) ProductName(_ context.Context) (string, error) {
	return c.productName, nil
}

// ProductVersion implements interfaces.Connector.
func (c *SQLConnector) ProductVersion(_ context.Context) (string, error) {
	return c.version, nil
}

// Close implements interfaces.Connector.
func (c *SQLConnector) Close() error {
	return c.db.Close()
}

// DB exposes the underlying pool for a MetadataExtractor that needs to
// run information_schema queries directly.
func (c *SQLConnector) DB() *sql.DB {
	return c.db
}
