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

// Package sampler implements the Parallel Sampler (spec.md §4.2): it
// extracts samples for N columns concurrently under a worker pool,
// with every query execution additionally gated by a global
// DB-query permit so a wide scan cannot overwhelm the source database.
package sampler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/semaphore"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
	"github.com/pii-scanner/pii-scanner/internal/sampler/dialect"
)

// Result is the sum-typed worker outcome for one column: exactly one of
// Data or Err is set. Patterns downstream match on this instead of
// letting a panic or error cross the worker boundary.
type Result struct {
	Column *models.Column
	Data   *models.SampleData
	Err    error
}

// Sampler extracts column samples across a schema, bounding CPU
// parallelism with a worker pool and DB load with a semaphore; two
// independent concurrency dimensions per spec.md §4.2.
type Sampler struct {
	d                         dialect.Dialect
	maxConcurrentDbQueries    int
	defaultSampleSize         int
	entropyCalculationEnabled bool
	log                       logger.Logger
}

// New constructs a Sampler targeting the given dialect.
func New(d dialect.Dialect, maxConcurrentDbQueries, defaultSampleSize int, entropyCalculationEnabled bool) *Sampler {
	if maxConcurrentDbQueries <= 0 {
		maxConcurrentDbQueries = 5
	}
	if defaultSampleSize <= 0 {
		defaultSampleSize = 1000
	}
	return &Sampler{
		d:                         d,
		maxConcurrentDbQueries:    maxConcurrentDbQueries,
		defaultSampleSize:         defaultSampleSize,
		entropyCalculationEnabled: entropyCalculationEnabled,
		log:                       logger.NewLogger("sampler"),
	}
}

// workerPoolSize returns 2*CPU, falling back to 2*4 if gopsutil cannot
// determine the core count on this host.
func workerPoolSize() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = 4
	}
	return 2 * n
}

// SampleColumns extracts samples for every column, n rows per column
// (or fewer if determineOptimalSampleSize picks a smaller exact count).
// A per-column failure is attached to that column's Result and does NOT
// abort the remaining columns; only ctx cancellation does. onProgress,
// if non-nil, is called once per completed column with the running
// count and the total, so a caller can report intra-stage progress;
// it may be called from multiple goroutines concurrently.
func (s *Sampler) SampleColumns(ctx context.Context, conn interfaces.Connector, columns []*models.Column, n int, onProgress func(done, total int)) map[*models.Column]Result {
	sem := semaphore.NewWeighted(int64(s.maxConcurrentDbQueries))
	p := pool.New().WithMaxGoroutines(workerPoolSize())

	results := make(map[*models.Column]Result, len(columns))
	resultsCh := make(chan Result, len(columns))

	var done int64
	total := len(columns)
	for _, col := range columns {
		col := col
		p.Go(func() {
			resultsCh <- s.sampleOne(ctx, conn, sem, col, n)
			if onProgress != nil {
				onProgress(int(atomic.AddInt64(&done, 1)), total)
			}
		})
	}
	p.Wait()
	close(resultsCh)

	for r := range resultsCh {
		results[r.Column] = r
	}
	return results
}

func (s *Sampler) sampleOne(ctx context.Context, conn interfaces.Connector, sem *semaphore.Weighted, col *models.Column, n int) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Column: col, Err: fmt.Errorf("sampling %s panicked: %v", col.QualifiedName(), r)}
		}
	}()
	if err := ctx.Err(); err != nil {
		return Result{Column: col, Err: fmt.Errorf("sampling cancelled: %w", err)}
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return Result{Column: col, Err: fmt.Errorf("acquiring db-query permit: %w", err)}
	}
	defer sem.Release(1)

	size := s.determineOptimalSampleSize(ctx, conn, col, n)

	query := s.d.BuildSamplingQuery(col.TableRef.QualifiedName(), col.Name, size)
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return Result{Column: col, Err: fmt.Errorf("sampling %s: %w", col.QualifiedName(), err)}
	}
	defer rows.Close()

	data := &models.SampleData{ColumnRef: col}
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return Result{Column: col, Err: fmt.Errorf("sampling cancelled: %w", err)}
		}
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return Result{Column: col, Err: fmt.Errorf("scanning %s: %w", col.QualifiedName(), err)}
		}
		if v == nil {
			v = models.NullValue
			data.NullCount++
		}
		data.Samples = append(data.Samples, v)
		data.TotalCount++
	}
	if err := rows.Err(); err != nil {
		return Result{Column: col, Err: fmt.Errorf("reading rows for %s: %w", col.QualifiedName(), err)}
	}

	if s.entropyCalculationEnabled {
		data.ComputeEntropy()
	}
	return Result{Column: col, Data: data}
}

// determineOptimalSampleSize returns exact row count when it is at most
// requested, else the requested size. A COUNT(*) failure is non-fatal
// and falls back to the requested size.
func (s *Sampler) determineOptimalSampleSize(ctx context.Context, conn interfaces.Connector, col *models.Column, requested int) int {
	query := s.d.BuildCountQuery(col.TableRef.QualifiedName())
	rows, err := conn.Query(ctx, query)
	if err != nil {
		s.log.WithField("table", col.TableRef.QualifiedName()).Warnf("row count failed, falling back to requested size: %v", err)
		return requested
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			s.log.WithField("table", col.TableRef.QualifiedName()).Warnf("row count scan failed, falling back to requested size: %v", err)
			return requested
		}
	}
	if count > 0 && count <= int64(requested) {
		return int(count)
	}
	return requested
}
