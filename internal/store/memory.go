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

// Package store collects reference interfaces.Store implementations.
// None of these are required by the core; a host may supply any
// persistence it likes. The CLI's default configuration wires in
// MemoryStore so the module runs end-to-end out of the box; RedisStore
// and ElasticStore are not wired into any command.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

type entry struct {
	value     interface{}
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// MemoryStore is an in-process interfaces.Store backed by a guarded
// map, for CLI single-shot runs and unit tests where standing up Redis
// or Elasticsearch would be pure overhead.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]entry
	reports map[string]*models.Report
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]entry),
		reports: make(map[string]*models.Report),
	}
}

// Put implements interfaces.Store.
func (s *MemoryStore) Put(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

// Get implements interfaces.Store.
func (s *MemoryStore) Get(_ context.Context, key string) (interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired() {
		delete(s.data, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Delete implements interfaces.Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// IndexReport implements interfaces.Store by keeping the latest report
// per job id in memory.
func (s *MemoryStore) IndexReport(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.JobID] = report
	return nil
}

// Report returns a previously indexed report, for tests and the CLI's
// "show last report" path.
func (s *MemoryStore) Report(jobID string) (*models.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[jobID]
	return r, ok
}
