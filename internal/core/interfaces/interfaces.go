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

// Package interfaces collects the contracts between the scan core and
// its host-supplied collaborators. Per DESIGN NOTES (spec.md §9), the
// core never does framework-style dependency injection; every
// collaborator is an explicit constructor argument, typed against one
// of these interfaces.
package interfaces

import (
	"context"
	"time"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// RequestContext replaces thread-local correlation ids / MDC: every
// operation that can be cancelled or needs a correlation key takes one
// of these explicitly instead of reading ambient state.
type RequestContext struct {
	JobID         string
	CorrelationID string
	Context       context.Context
}

// Connector is the external collaborator that owns the DB connection
// pool. The core borrows connections per query and returns them
// promptly; it never manages pool lifecycle itself.
type Connector interface {
	// Query executes a read-only query and returns opaque rows; the
	// caller is responsible for closing the returned Rows.
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	// ProductName returns the DB product name used for dialect
	// selection (e.g. "MySQL", "PostgreSQL", "Oracle", "Microsoft SQL Server").
	ProductName(ctx context.Context) (string, error)
	// ProductVersion returns a semver-parseable server version string,
	// or "" if unknown.
	ProductVersion(ctx context.Context) (string, error)
	// Close releases the connector. Safe to call multiple times.
	Close() error
}

// Rows is the minimal opaque cursor the core needs; it deliberately
// mirrors the subset of database/sql.Rows the sampler uses so a
// *sql.Rows satisfies it as is.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// MetadataExtractor is the external collaborator that turns a raw
// connection into a fully-populated Schema graph using the dialect's
// metadata-comment/FK queries. The orchestrator only ever consumes the
// Schema it returns, never the extractor's SQL.
type MetadataExtractor interface {
	ExtractSchema(ctx context.Context, conn Connector, includedSchemas, includedTables, excludedTables []string) (*models.Schema, error)
}

// NerClient is the contract for the external NER service (or an
// LLM-backed stand-in): batch a column's non-null string samples and
// get back entity spans with a label and a confidence score.
type NerClient interface {
	Detect(ctx context.Context, column string, texts []string) ([]NerEntity, error)
}

// NerEntity is one entity the NER backend recognized in a sample.
type NerEntity struct {
	Text  string
	Label string
	Score float64
}

// EventSink is the single-writer/many-reader event channel consumer:
// the orchestrator publishes ScanEvents, external notification
// collaborators (websocket hubs, Kafka producers, log sinks, ...)
// subscribe to them.
type EventSink interface {
	Publish(event models.ScanEvent)
}

// Store is the external persistence collaborator. The core treats it
// purely as a key/value and bulk-index surface; schema migrations,
// query builders and report serialization formats stay out of scope.
type Store interface {
	Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (interface{}, bool, error)
	Delete(ctx context.Context, key string) error
	IndexReport(ctx context.Context, report *models.Report) error
}

// Orchestrator is the programmatic API §6 describes.
type Orchestrator interface {
	SubmitScan(ctx context.Context, connectionID string, req models.ScanRequest) (string, error)
	GetStatus(jobID string) (models.ScanJob, error)
	Cancel(jobID string) error
	Subscribe(jobID string) (<-chan models.ScanEvent, func())
	GetReport(jobID string) (*models.Report, error)
	Await(ctx context.Context, jobID string) (models.ScanJob, error)
}
